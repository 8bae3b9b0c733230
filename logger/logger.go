// Package logger builds the process logger and forwards records to the
// language client through window/logMessage.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/corymhall/shlsp/debug"
	"github.com/corymhall/shlsp/lsp"
	"github.com/corymhall/shlsp/xcontext"
)

// Config holds the [logger] table of the configuration file.
type Config struct {
	// Level is the minimum level to log: trace, debug, info, warn or error.
	Level string `toml:"level" json:"level"`
	// File is the path of the log file. Empty means DefaultFile, "-" means
	// stderr.
	File string `toml:"file" json:"file"`
}

// ProgramLevel is the level of every logger built by New. It is adjusted
// in place when the configuration is reloaded.
var ProgramLevel = new(slog.LevelVar)

var (
	startLogSenderOnce sync.Once
	logQueue           = make(chan func(), 100) // big enough for a large transient burst
)

// ParseLevel accepts the level names used in configuration files.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return debug.LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// DefaultFile is where the server logs when no file is configured.
func DefaultFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "shlsp", "shlsp.log")
}

// New opens the configured log destination and returns a text logger
// writing to it, together with the destination itself. Callers close it
// when they are done logging.
func New(cfg Config) (*slog.Logger, io.WriteCloser, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	ProgramLevel.Set(level)

	var out io.WriteCloser
	switch cfg.File {
	case "-":
		out = nopCloser{os.Stderr}
	default:
		path := cfg.File
		if path == "" {
			path = DefaultFile()
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out = f
	}
	return slog.New(newTextHandler(out)), out, nil
}

func newTextHandler(w io.Writer) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ProgramLevel,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.DateTime))
			}
			return a
		},
	})
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Log sends msg to the client carried by ctx, if any. Messages are queued
// and sent in order from a single goroutine so that a slow client never
// blocks the caller.
func Log(ctx context.Context, msg string, mt lsp.MessageType) {
	send(xcontext.Detach(ctx), lsp.GetClient(ctx), msg, mt)
}

func send(ctx context.Context, client lsp.Client, msg string, mt lsp.MessageType) {
	if client == nil {
		return
	}
	logMsg := &lsp.LogMessageParams{
		Message: msg,
		Type:    mt,
	}

	startLogSenderOnce.Do(func() {
		go func() {
			for fn := range logQueue {
				fn()
			}
		}()
	})

	select {
	case logQueue <- func() { _ = client.LogMessage(ctx, logMsg) }:
	default:
		// queue full, drop the message
	}
}

func convertLevel(level slog.Level) lsp.MessageType {
	switch {
	case level >= slog.LevelError:
		return lsp.MessageTypeError
	case level >= slog.LevelWarn:
		return lsp.MessageTypeWarning
	case level >= slog.LevelInfo:
		return lsp.MessageTypeInfo
	case level >= slog.LevelDebug:
		return lsp.MessageTypeLog
	default:
		return lsp.MessageTypeDebug
	}
}
