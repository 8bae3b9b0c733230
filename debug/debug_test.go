package debug

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: LevelTrace}))
	ctx := WithLogger(context.Background(), logger)

	ctx, _ = With(ctx, "uri", "file:///a.sh")
	Trace.Log(ctx, "wire")
	LogError(ctx, "lint failed", errors.New("boom"))

	out := buf.String()
	require.Contains(t, out, `level=DEBUG-4 msg=wire uri=file:///a.sh`)
	require.Contains(t, out, `msg="lint failed" uri=file:///a.sh error=boom`)

	buf.Reset()
	Info.Log(Silence(ctx), "dropped")
	require.Empty(t, buf.String())
}

func TestStart(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := WithLogger(context.Background(), logger)

	_, done := Start(ctx, "shellcheck", "revision", 3)
	done()
	require.Contains(t, buf.String(), `msg="shellcheck Starting..." shellcheck.revision=3`)
	require.Contains(t, buf.String(), `msg="shellcheck Done" shellcheck.revision=3 shellcheck.elapsed=`)
}

func TestLoggerDefault(t *testing.T) {
	require.Same(t, slog.Default(), Logger(context.Background()))
}
