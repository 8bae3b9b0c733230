package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/corymhall/shlsp/config"
	"github.com/corymhall/shlsp/file"
	"github.com/corymhall/shlsp/parser"
	"github.com/corymhall/shlsp/projector"
	"github.com/corymhall/shlsp/shellcheck"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// errFindings is returned when an error severity finding was reported.
var errFindings = errors.New("shellcheck reported errors")

// exitCode maps errors that carry their own exit status.
func exitCode(err error) (int, bool) {
	if errors.Is(err, errFindings) {
		return 1, true
	}
	return 0, false
}

type checkOptions struct {
	format string
	fix    bool
	jobs   int
	color  string
}

func newCheckCmd(flags *globalFlags) *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check [flags] <file>...",
		Short: "Lint shell scripts and print the findings",
		Long: `Lint shell scripts and shell templates the same way the language server does.
The command exits with status 1 when an error severity finding is reported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, undecoded, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if len(undecoded) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "shlsp: %s: unrecognized keys %v\n", flags.configPath, undecoded)
			}
			runner := shellcheck.New(cfg.Shellcheck.Path,
				shellcheck.WithInvoker(cfg.Invoker()),
				shellcheck.WithMaxInFlight(opts.jobs),
			)
			return runCheck(cmd.Context(), cfg, runner, args, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format (text|json)")
	cmd.Flags().BoolVar(&opts.fix, "fix", false, "apply the available fixes in place")
	cmd.Flags().IntVar(&opts.jobs, "jobs", runtime.NumCPU(), "number of files linted in parallel")
	cmd.Flags().StringVar(&opts.color, "color", "auto", "colorize output (auto|on|off)")
	return cmd
}

// finding is one projected diagnostic as printed by check. Lines and
// columns are 1-based, as reported by shellcheck.
type finding struct {
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"endLine"`
	EndColumn int    `json:"endColumn"`
	Severity  string `json:"severity"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	URL       string `json:"url"`
	Fixable   bool   `json:"fixable"`
}

type fileReport struct {
	Path     string    `json:"path"`
	Findings []finding `json:"findings"`
	Fixed    int       `json:"fixed,omitempty"`
	Error    string    `json:"error,omitempty"`

	hasErrors bool
}

func runCheck(ctx context.Context, cfg *config.Config, runner *shellcheck.Runner, paths []string, opts *checkOptions, out io.Writer) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q, expected text or json", opts.format)
	}
	jobs := opts.jobs
	if jobs < 1 {
		jobs = 1
	}

	reports := make([]fileReport, len(paths))
	errs := make([]error, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			report, err := checkFile(ctx, cfg, runner, path, opts.fix)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				report = fileReport{Path: path, Error: err.Error()}
				errs[i] = err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var err error
	switch opts.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(reports)
	default:
		err = printText(out, reports, useColor(opts.color, out))
	}
	if err != nil {
		return err
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	for _, r := range reports {
		if r.hasErrors {
			return errFindings
		}
	}
	return nil
}

// checkFile lints one file. Files that are neither a known shell nor a
// template extension are linted as plain shell scripts.
func checkFile(ctx context.Context, cfg *config.Config, runner *shellcheck.Runner, path string, fix bool) (fileReport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return fileReport{}, err
	}
	text := string(content)
	abs, err := filepath.Abs(path)
	if err != nil {
		return fileReport{}, err
	}

	params := cfg.Params()
	params.Shell = shellcheck.Interpreter(text, shellcheck.KnownShells, cfg.Shellcheck.DefaultShell)
	batch, err := runner.Run(ctx, shellcheck.Submission{
		Text:   text,
		Params: params,
		Dir:    filepath.Dir(abs),
	})
	if err != nil {
		return fileReport{}, err
	}

	var regions []projector.Region
	if file.KindForPath(path) == file.ShellTemplate {
		regions = parser.TemplateRegions(text, cfg.Delimiters())
	}
	doc := projector.NewDocument(text, batch.Revision)
	sc := projector.Projector{TabWidth: cfg.Shellcheck.TabWidth}
	res := sc.ProjectBatch(doc, batch, regions)

	report := fileReport{Path: path, Findings: []finding{}}
	var edits []projector.Edit
	for _, p := range res.Projected {
		d := p.Diagnostic
		report.Findings = append(report.Findings, finding{
			Line:      d.StartLine,
			Column:    d.StartColumn,
			EndLine:   d.EndLine,
			EndColumn: d.EndColumn,
			Severity:  p.Severity.String(),
			Code:      d.CodeString(),
			Message:   projector.FormatMessage(d.Message),
			URL:       shellcheck.WikiURL(d.Code),
			Fixable:   d.HasFix(),
		})
		if p.Severity == projector.Error {
			report.hasErrors = true
		}
		if fix && d.HasFix() {
			fixEdits, err := sc.ProjectFix(doc, d.Fix)
			if err != nil {
				continue
			}
			if accepted, ok := addNonOverlapping(edits, fixEdits); ok {
				edits = accepted
				report.Fixed++
			}
		}
	}

	if len(edits) > 0 {
		fixed, err := projector.ApplyEdits(text, edits)
		if err != nil {
			return fileReport{}, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return fileReport{}, err
		}
		if err := os.WriteFile(path, []byte(fixed), info.Mode().Perm()); err != nil {
			return fileReport{}, err
		}
	}
	return report, nil
}

// addNonOverlapping adds the edits of one fix unless one of them overlaps
// an edit already accepted. Fixes apply whole or not at all.
func addNonOverlapping(accepted, fix []projector.Edit) ([]projector.Edit, bool) {
	all := append(append([]projector.Edit(nil), accepted...), fix...)
	sorted := append([]projector.Edit(nil), all...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Range.Start < sorted[j].Range.Start })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Range.Start < sorted[i-1].Range.End {
			return accepted, false
		}
	}
	return all, true
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	pathColor    = color.New(color.Bold)
	codeColor    = color.New(color.Faint)
)

func severityColor(sev string) *color.Color {
	switch sev {
	case projector.Error.String():
		return errorColor
	case projector.Warning.String():
		return warningColor
	default:
		return infoColor
	}
}

func printText(out io.Writer, reports []fileReport, colored bool) error {
	if colored {
		for _, c := range []*color.Color{errorColor, warningColor, infoColor, pathColor, codeColor} {
			c.EnableColor()
		}
	}
	sprint := func(c *color.Color, s string) string {
		if !colored {
			return s
		}
		return c.Sprint(s)
	}
	for _, r := range reports {
		if r.Error != "" {
			continue
		}
		for _, f := range r.Findings {
			if _, err := fmt.Fprintf(out, "%s:%d:%d: %s: %s [%s]\n",
				sprint(pathColor, r.Path), f.Line, f.Column,
				sprint(severityColor(f.Severity), f.Severity),
				f.Message,
				sprint(codeColor, f.Code),
			); err != nil {
				return err
			}
		}
		if r.Fixed > 0 {
			if _, err := fmt.Fprintf(out, "%s: applied %d fixes\n", r.Path, r.Fixed); err != nil {
				return err
			}
		}
	}
	return nil
}

// useColor resolves the --color flag. Auto colours only terminals.
func useColor(mode string, out io.Writer) bool {
	switch mode {
	case "on", "always":
		return true
	case "off", "never":
		return false
	}
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == ""
}
