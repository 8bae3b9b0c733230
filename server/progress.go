package server

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/corymhall/shlsp/lsp"
	"github.com/corymhall/shlsp/xcontext"
	"golang.org/x/exp/rand"
)

// A Tracker reports the progress of a long-running operation to an LSP client.
type Tracker struct {
	client                   lsp.Client
	supportsWorkDoneProgress bool
	logger                   *slog.Logger

	mu         sync.Mutex
	inProgress map[string]*WorkDone
}

// NewTracker returns a new Tracker that reports progress to the
// specified client.
func NewTracker(client lsp.Client, logger *slog.Logger) *Tracker {
	return &Tracker{
		client:     client,
		logger:     logger,
		inProgress: make(map[string]*WorkDone),
	}
}

// SetSupportsWorkDoneProgress sets whether the client supports "work done"
// progress reporting. It must be set before using the tracker.
func (t *Tracker) SetSupportsWorkDoneProgress(b bool) {
	t.supportsWorkDoneProgress = b
}

// WorkDone represents a unit of work that is reported to the client via the
// progress API.
type WorkDone struct {
	client lsp.Client
	// If token is nil, this workDone object uses the ShowMessage API, rather
	// than $/progress.
	token lsp.ProgressToken
	// err is set if progress reporting is broken for some reason (for example,
	// if there was an initial error creating a token).
	err error

	logger *slog.Logger

	cancelMu  sync.Mutex
	cancelled bool
	cancel    func()

	cleanup func()
}

func (wd *WorkDone) doCancel() {
	wd.cancelMu.Lock()
	defer wd.cancelMu.Unlock()
	if !wd.cancelled {
		wd.cancelled = true
		wd.cancel()
	}
}

// Start begins reporting. It calls the client, so it must never run on the
// goroutine that reads client messages.
func (t *Tracker) Start(ctx context.Context, title, message string, cancel func()) *WorkDone {
	ctx = xcontext.Detach(ctx)
	wd := &WorkDone{
		client: t.client,
		cancel: cancel,
		logger: t.logger,
	}
	if !t.supportsWorkDoneProgress {
		if err := wd.client.ShowMessage(ctx, &lsp.ShowMessageParams{
			Type:    lsp.MessageTypeLog,
			Message: message,
		}); err != nil {
			t.logger.Error("error showing message", "err", err)
		}
		return wd
	}

	token := strconv.FormatInt(rand.Int63(), 10)
	if err := wd.client.WorkDoneProgressCreate(ctx, &lsp.WorkDoneProgressCreateParams{
		Token: token,
	}); err != nil {
		t.logger.Warn("error creating progress token", "err", err)
		wd.err = err
		return wd
	}
	wd.token = token
	t.mu.Lock()
	t.inProgress[token] = wd
	t.mu.Unlock()
	wd.cleanup = func() {
		t.mu.Lock()
		delete(t.inProgress, token)
		t.mu.Unlock()
	}
	t.logger.Debug("starting progress", "token", token)
	err := wd.client.ProgressBegin(ctx, &lsp.WorkDoneProgressBeginParams{
		Token: wd.token,
		Value: &lsp.WorkDoneProgressBeginValue{
			Kind:        lsp.Begin,
			Title:       title,
			Cancellable: wd.cancel != nil,
			Message:     message,
		},
	})
	if err != nil {
		t.logger.Warn("error starting progress", "err", err)
	}
	return wd
}

// Report updates the message and percentage of in-progress work. It is a
// no-op when reporting falls back to messages.
func (wd *WorkDone) Report(ctx context.Context, message string, percentage uint32) {
	if wd == nil || wd.err != nil || wd.token == nil {
		return
	}
	ctx = xcontext.Detach(ctx)
	if err := wd.client.ProgressReport(ctx, &lsp.WorkDoneProgressReportParams{
		Token: wd.token,
		Value: &lsp.WorkDoneProgressReportValue{
			Kind:       lsp.Report,
			Message:    message,
			Percentage: &percentage,
		},
	}); err != nil {
		wd.logger.Warn("error reporting progress", "err", err)
	}
}

// End reports a workdone completion back to the client.
func (wd *WorkDone) End(ctx context.Context, message string) {
	if wd == nil {
		return
	}
	ctx = xcontext.Detach(ctx) // progress messages should not be cancelled
	var err error
	switch {
	case wd.err != nil:
		// There is a prior error.
	case wd.token == nil:
		// We're falling back to message-based reporting.
		err = wd.client.ShowMessage(ctx, &lsp.ShowMessageParams{
			Type:    lsp.MessageTypeInfo,
			Message: message,
		})
	default:
		wd.logger.Debug("ending progress", "token", wd.token)
		err = wd.client.ProgressEnd(ctx, &lsp.WorkDoneProgressEndParams{
			Token: wd.token,
			Value: &lsp.WorkDoneProgressEndValue{
				Kind:    lsp.End,
				Message: message,
			},
		})
	}
	if err != nil {
		wd.logger.Warn("error ending progress", "err", err)
	}
	if wd.cleanup != nil {
		wd.cleanup()
	}
}

// Cancel cancels the work started with token. Clients send numeric and
// string tokens alike, so the token is compared in its string form.
func (t *Tracker) Cancel(token lsp.ProgressToken) error {
	key := fmt.Sprint(token)
	t.mu.Lock()
	defer t.mu.Unlock()
	wd, ok := t.inProgress[key]
	if !ok {
		return fmt.Errorf("token %q not found in progress", key)
	}
	if wd.cancel == nil {
		return fmt.Errorf("work %q is not cancellable", key)
	}
	wd.doCancel()
	return nil
}
