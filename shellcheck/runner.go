package shellcheck

import (
	"context"
	"sync"
	"time"

	"github.com/corymhall/shlsp/debug"
	"github.com/corymhall/shlsp/projector"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Submission is a document revision to lint.
type Submission struct {
	Text     string
	Revision uint64
	Params   Params
	Dir      string
}

// Runner lints submissions with one linter executable. By default runs are
// serialised; MaxInFlight raises the number of concurrent processes.
type Runner struct {
	once sync.Once

	inFlight chan struct{}

	path        string
	invoker     Invoker
	maxInFlight int
}

type RunnerOption func(*Runner)

// WithInvoker replaces the process invoker.
func WithInvoker(inv Invoker) RunnerOption {
	return func(r *Runner) { r.invoker = inv }
}

// WithMaxInFlight sets the number of concurrent linter processes.
func WithMaxInFlight(n int) RunnerOption {
	return func(r *Runner) { r.maxInFlight = n }
}

func New(path string, opts ...RunnerOption) *Runner {
	r := &Runner{
		path:        path,
		invoker:     &ExecInvoker{},
		maxInFlight: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) initialize() {
	r.once.Do(func() {
		n := r.maxInFlight
		if n < 1 {
			n = 1
		}
		r.inFlight = make(chan struct{}, n)
	})
}

// Path is the configured linter executable.
func (r *Runner) Path() string { return r.path }

// Run lints sub and returns the findings tagged with the submission
// revision. A missing or non-executable linter is reported as a ToolError
// before any process is started.
func (r *Runner) Run(ctx context.Context, sub Submission) (projector.Batch, error) {
	r.initialize()

	// Wait for in-progress runs to return before proceeding
	select {
	case <-ctx.Done():
		return projector.Batch{}, ctx.Err()
	case r.inFlight <- struct{}{}:
		defer func() { <-r.inFlight }()
	}

	shell := sub.Params.Shell
	if shell == "" {
		shell = DefaultShell
	}
	ctx, done := debug.Start(ctx, "shellcheck.run", "revision", sub.Revision, "shell", shell)
	defer done()
	ctx, span := startRunSpan(ctx, shell, sub.Revision)
	defer span.End()

	path, err := ValidPath(r.path)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return projector.Batch{}, NewToolError(r.path, err)
	}

	start := time.Now()
	out, err := r.invoker.Invoke(ctx, Request{
		Path:  path,
		Args:  sub.Params.Args(),
		Input: sub.Text,
		Dir:   sub.Dir,
	})
	if err != nil {
		recordRunMetrics(ctx, shell, time.Since(start), nil, false)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invoke failed")
		return projector.Batch{}, err
	}

	diags, err := Decode(out)
	recordRunMetrics(ctx, shell, time.Since(start), diags, err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return projector.Batch{}, NewToolError(path, err).WithOutput(string(out))
	}
	span.SetAttributes(attribute.Int("shellcheck.findings", len(diags)))
	debug.Debug.Log(ctx, "shellcheck finished", "findings", len(diags))
	return projector.Batch{Revision: sub.Revision, Diagnostics: diags}, nil
}
