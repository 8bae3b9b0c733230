package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/corymhall/shlsp/debug"
	"github.com/corymhall/shlsp/logger"
	"github.com/corymhall/shlsp/lsp"
	"github.com/corymhall/shlsp/rpc"
	"github.com/corymhall/shlsp/server"
	"github.com/corymhall/shlsp/telemetry"
	"github.com/spf13/cobra"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the language server on stdin and stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags, os.Stdin, os.Stdout)
		},
	}
}

func runServe(cmd *cobra.Command, flags *globalFlags, in io.Reader, out io.Writer) error {
	cfg, ov, undecoded, err := flags.load(cmd)
	if err != nil {
		return err
	}
	fileLogger, logOut, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer logOut.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stream := rpc.NewHeaderStream(in, out)
	conn := rpc.NewConn(stream)
	client := lsp.ClientDispatcher(conn)

	// records at warn and above also reach the editor's output panel
	log := slog.New(logger.NewClientHandler(fileLogger.Handler(), client, slog.LevelWarn))
	ctx = debug.WithLogger(ctx, log)
	ctx = lsp.WithClient(ctx, client)
	if len(undecoded) > 0 {
		log.Warn("configuration file has unrecognized keys", "path", flags.configPath, "keys", undecoded)
	}

	tel, err := telemetry.Init(ctx, cfg.Telemetry, Version, logOut)
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Warn("error shutting down telemetry", "err", err)
		}
	}()
	go func() {
		if err := tel.Serve(ctx); err != nil {
			log.Warn("metrics endpoint stopped", "err", err)
		}
	}()

	srv := server.New(client, server.Options{
		Config:     cfg,
		ConfigPath: flags.configPath,
		Overrides:  ov,
		Version:    Version,
		Logger:     log,
	})
	defer func() {
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("error shutting down server", "err", err)
		}
	}()
	log.Info("starting language server", "version", Version, "shellcheck", cfg.Shellcheck.Path)
	conn.Run(ctx, lsp.ServerHandler(srv, rpc.MethodNotFound))
	if err := conn.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
