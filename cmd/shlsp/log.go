package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/corymhall/shlsp/logger"
	"github.com/nxadm/tail"
	"github.com/spf13/cobra"
)

func newLogCmd(flags *globalFlags) *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the language server log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, _, err := flags.load(cmd)
			if err != nil {
				return err
			}
			path := cfg.Logger.File
			switch path {
			case "-":
				return errors.New("the server logs to stderr, there is no log file")
			case "":
				path = logger.DefaultFile()
			}
			if !follow {
				return printLog(path, cmd.OutOrStdout())
			}
			return followLog(cmd, path)
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing lines as they are logged")
	return cmd
}

func printLog(path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(out, f)
	return err
}

// followLog prints the log and every line appended to it until the
// command context is done.
func followLog(cmd *cobra.Command, path string) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:        true,
		ReOpen:        true,
		MustExist:     false,
		Poll:          runtime.GOOS == "windows", // on Windows poll for file changes instead of using the default inotify
		Logger:        tail.DiscardingLogger,
		CompleteLines: true,
	})
	if err != nil {
		return fmt.Errorf("following %s: %w", path, err)
	}
	defer t.Cleanup()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	for {
		select {
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			if _, err := fmt.Fprintln(out, line.Text); err != nil {
				return err
			}
		case <-ctx.Done():
			return t.Stop()
		}
	}
}
