package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"

	"github.com/corymhall/shlsp/config"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "0.0.0-dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath     string
	shellcheckPath string
	severity       string
	exclude        []string
	shell          string
	logLevel       string
	logFile        string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "shlsp",
		Short:         "A shellcheck language server",
		Long:          `shlsp runs shellcheck over shell scripts and shell templates and reports the findings to an editor or the terminal.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", config.DefaultPath(), "path of the configuration file")
	pf.StringVar(&flags.shellcheckPath, "shellcheck", "", "shellcheck executable")
	pf.StringVar(&flags.severity, "severity", "", "minimum severity to report (error|warning|info|style)")
	pf.StringSliceVar(&flags.exclude, "exclude", nil, "inspection codes to disable, e.g. SC2086")
	pf.StringVar(&flags.shell, "shell", "", "dialect for scripts without a shebang")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (trace|debug|info|warn|error)")
	pf.StringVar(&flags.logFile, "log-file", "", `log file, "-" for stderr`)

	root.AddCommand(
		newServeCmd(flags),
		newCheckCmd(flags),
		newLogCmd(flags),
		newVersionCmd(),
	)
	return root
}

// overrides collects the flags that were given on the command line.
func (f *globalFlags) overrides(cmd *cobra.Command) *config.Overrides {
	ov := &config.Overrides{Exclude: f.exclude}
	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	if changed("shellcheck") {
		ov.ShellcheckPath = &f.shellcheckPath
	}
	if changed("severity") {
		ov.Severity = &f.severity
	}
	if changed("shell") {
		ov.DefaultShell = &f.shell
	}
	if changed("log-level") {
		ov.LogLevel = &f.logLevel
	}
	if changed("log-file") {
		ov.LogFile = &f.logFile
	}
	return ov
}

// load reads the configuration file and applies the command line.
func (f *globalFlags) load(cmd *cobra.Command) (*config.Config, *config.Overrides, []string, error) {
	ov := f.overrides(cmd)
	cfg, undecoded, err := config.Load(f.configPath, ov)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, ov, undecoded, nil
}

func main() {
	defer panicHandler()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if code, ok := exitCode(err); ok {
			os.Exit(code)
		}
		fmt.Fprintln(os.Stderr, "shlsp:", err)
		os.Exit(1)
	}
}

func panicHandler() {
	if panicPayload := recover(); panicPayload != nil {
		stack := string(debug.Stack())
		fmt.Fprintln(os.Stderr, "================================================================================")
		fmt.Fprintln(os.Stderr, "shlsp encountered a fatal error. This is a bug!")
		fmt.Fprintln(os.Stderr, "We would appreciate a report: https://github.com/corymhall/shlsp/issues/")
		fmt.Fprintln(os.Stderr, "Please provide all of the below text in your report.")
		fmt.Fprintln(os.Stderr, "================================================================================")
		fmt.Fprintf(os.Stderr, "shlsp Version:        %s\n", Version)
		fmt.Fprintf(os.Stderr, "Go Version:           %s\n", runtime.Version())
		fmt.Fprintf(os.Stderr, "Go Compiler:          %s\n", runtime.Compiler)
		fmt.Fprintf(os.Stderr, "Architecture:         %s\n", runtime.GOARCH)
		fmt.Fprintf(os.Stderr, "Operating System:     %s\n", runtime.GOOS)
		fmt.Fprintf(os.Stderr, "Panic:                %s\n\n", panicPayload)
		fmt.Fprintln(os.Stderr, stack)
		os.Exit(1)
	}
}
