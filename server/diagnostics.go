package server

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"fortio.org/safecast"
	"github.com/corymhall/shlsp/debug"
	"github.com/corymhall/shlsp/file"
	"github.com/corymhall/shlsp/lsp"
	"github.com/corymhall/shlsp/parser"
	"github.com/corymhall/shlsp/projector"
	"github.com/corymhall/shlsp/shellcheck"
	"github.com/corymhall/shlsp/xcontext"
	"golang.org/x/time/rate"
)

const (
	// Source is the source of every published diagnostic.
	Source = "shellcheck"

	defaultLintInterval = rate.Limit(4) // runs per second per document
)

// fileDiagnostics holds the last published diagnostics of a document and
// what they were computed from.
type fileDiagnostics struct {
	revision uint64
	version  int32
	hash     file.Hash
	doc      *projector.Document
	// projected and published are parallel.
	projected []projector.Projected
	published []lsp.Diagnostic
}

// pendingRun is a scheduled or running diagnosis of one document.
type pendingRun struct {
	timer  *time.Timer
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (p *pendingRun) finish() {
	p.once.Do(func() { close(p.done) })
}

// stop cancels the run. The timer function closes done itself once it has
// started.
func (p *pendingRun) stop() {
	if p.timer.Stop() {
		p.finish()
	}
	p.cancel()
}

// scheduleDiagnosis lints uri after delay, cancelling any run of the same
// document that is still waiting or in progress. The returned channel is
// closed when the run has finished or was superseded.
func (s *server) scheduleDiagnosis(ctx context.Context, uri lsp.DocumentURI, delay time.Duration) <-chan struct{} {
	s.diagnosticsMu.Lock()
	defer s.diagnosticsMu.Unlock()

	if prev := s.pending[uri]; prev != nil {
		prev.stop()
	}
	runCtx, cancel := context.WithCancel(xcontext.Detach(ctx))
	runCtx, _ = debug.With(runCtx, "uri", uri)
	p := &pendingRun{cancel: cancel, done: make(chan struct{})}
	p.timer = time.AfterFunc(delay, func() {
		defer p.finish()
		defer cancel()
		s.diagnoseFile(runCtx, uri)

		s.diagnosticsMu.Lock()
		if s.pending[uri] == p {
			delete(s.pending, uri)
		}
		s.diagnosticsMu.Unlock()
	})
	s.pending[uri] = p
	return p.done
}

func (s *server) limiter(uri lsp.DocumentURI) *rate.Limiter {
	s.diagnosticsMu.Lock()
	defer s.diagnosticsMu.Unlock()
	lim, ok := s.limiters[uri]
	if !ok {
		lim = rate.NewLimiter(s.lintInterval, 1)
		s.limiters[uri] = lim
	}
	return lim
}

// diagnoseFile runs the linter over the current content of uri and
// publishes the result, unless the document changed in the meantime.
func (s *server) diagnoseFile(ctx context.Context, uri lsp.DocumentURI) {
	ctx, done := debug.Start(ctx, "diagnose")
	defer done()

	if err := s.limiter(uri).Wait(ctx); err != nil {
		return
	}

	snapshot, release, err := s.view.Snapshot()
	if err != nil {
		return
	}
	defer release()
	fh, err := snapshot.ReadFile(ctx, uri)
	if err != nil {
		debug.Debug.Log(ctx, "document closed before diagnosis")
		return
	}
	if fh.Kind() == file.UnknownKind {
		return
	}
	content, err := fh.Content()
	if err != nil {
		debug.LogError(ctx, "reading document", err)
		return
	}
	text := string(content)

	cfg, runner := s.currentConfig()
	params := cfg.Params()
	params.Shell = shellcheck.Interpreter(text, shellcheck.KnownShells, cfg.Shellcheck.DefaultShell)
	var dir string
	if path := uri.Path(); path != "" {
		dir = filepath.Dir(path)
	}

	batch, err := runner.Run(ctx, shellcheck.Submission{
		Text:     text,
		Revision: fh.Revision(),
		Params:   params,
		Dir:      dir,
	})
	if err != nil {
		if ctx.Err() == nil {
			// tool failures leave the document without diagnostics
			s.logger.Warn("shellcheck failed", "uri", uri, "err", err)
		}
		return
	}

	var regions []projector.Region
	if fh.Kind() == file.ShellTemplate {
		regions = parser.TemplateRegions(text, cfg.Delimiters())
	}
	doc := projector.NewDocument(text, fh.Revision())
	sc := projector.Projector{TabWidth: cfg.Shellcheck.TabWidth}
	res := sc.ProjectBatch(doc, batch, regions)
	debug.Debug.Log(ctx, "projected diagnostics", "reported", len(batch.Diagnostics), "kept", len(res.Projected))

	projected, published := s.toProtocolDiagnostics(doc, res)
	s.publish(ctx, fh, &fileDiagnostics{
		revision:  res.Revision,
		version:   fh.Version(),
		hash:      fh.Hash(),
		doc:       doc,
		projected: projected,
		published: published,
	})
}

// publish stores and sends f unless the document moved past the revision
// f was computed for.
func (s *server) publish(ctx context.Context, fh file.Handle, f *fileDiagnostics) {
	s.diagnosticsMu.Lock()
	defer s.diagnosticsMu.Unlock()

	// the run was superseded by a newer modification
	if ctx.Err() != nil {
		return
	}
	if !s.isCurrent(ctx, fh.URI(), f.revision) {
		debug.Debug.Log(ctx, "discarding stale diagnostics", "revision", f.revision)
		return
	}
	s.diagnostics[fh.URI()] = f
	version := f.version
	if err := s.client.PublishDiagnostics(ctx, &lsp.PublishDiagnosticsParams{
		URI:         fh.URI(),
		Version:     &version,
		Diagnostics: f.published,
	}); err != nil {
		debug.LogError(ctx, "error publishing diagnostics", err)
	}
}

// isCurrent reports whether uri is open at revision.
func (s *server) isCurrent(ctx context.Context, uri lsp.DocumentURI, revision uint64) bool {
	snapshot, release, err := s.view.Snapshot()
	if err != nil {
		return false
	}
	defer release()
	fh, err := snapshot.ReadFile(ctx, uri)
	return err == nil && fh.Revision() == revision
}

// upToDate reports whether the published diagnostics of uri were computed
// from content with hash.
func (s *server) upToDate(uri lsp.DocumentURI, hash file.Hash) bool {
	s.diagnosticsMu.Lock()
	defer s.diagnosticsMu.Unlock()
	f, ok := s.diagnostics[uri]
	return ok && f.hash == hash
}

// clearDiagnostics forgets uri and removes its diagnostics from the client.
func (s *server) clearDiagnostics(ctx context.Context, uri lsp.DocumentURI) {
	s.diagnosticsMu.Lock()
	defer s.diagnosticsMu.Unlock()
	if p := s.pending[uri]; p != nil {
		p.stop()
		delete(s.pending, uri)
	}
	delete(s.diagnostics, uri)
	delete(s.limiters, uri)
	if err := s.client.PublishDiagnostics(ctx, &lsp.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []lsp.Diagnostic{},
	}); err != nil {
		debug.LogError(ctx, "error clearing diagnostics", err)
	}
}

// stored returns the last published diagnostics of uri.
func (s *server) stored(uri lsp.DocumentURI) (*fileDiagnostics, bool) {
	s.diagnosticsMu.Lock()
	defer s.diagnosticsMu.Unlock()
	f, ok := s.diagnostics[uri]
	return f, ok
}

func (s *server) toProtocolDiagnostics(doc *projector.Document, res projector.Result) ([]projector.Projected, []lsp.Diagnostic) {
	var kept []projector.Projected
	reports := []lsp.Diagnostic{}
	for _, p := range res.Projected {
		rng, err := s.toProtocolRange(doc, p.Range)
		if err != nil {
			continue
		}
		kept = append(kept, p)
		reports = append(reports, lsp.Diagnostic{
			Range:           rng,
			Severity:        toProtocolSeverity(p.Severity),
			Code:            p.Diagnostic.CodeString(),
			CodeDescription: &lsp.CodeDescription{Href: shellcheck.WikiURL(p.Diagnostic.Code)},
			Source:          Source,
			Message:         projector.FormatMessage(p.Diagnostic.Message),
		})
	}
	return kept, reports
}

func (s *server) toProtocolRange(doc *projector.Document, r projector.Range) (lsp.Range, error) {
	start, err := s.toProtocolPosition(doc, r.Start)
	if err != nil {
		return lsp.Range{}, err
	}
	end, err := s.toProtocolPosition(doc, r.End)
	if err != nil {
		return lsp.Range{}, err
	}
	return lsp.Range{Start: start, End: end}, nil
}

func (s *server) toProtocolPosition(doc *projector.Document, offset int) (lsp.Position, error) {
	line, char := doc.Position(offset, s.positionEncoding())
	l, err := safecast.Conv[uint32](line)
	if err != nil {
		return lsp.Position{}, err
	}
	c, err := safecast.Conv[uint32](char)
	if err != nil {
		return lsp.Position{}, err
	}
	return lsp.Position{Line: l, Character: c}, nil
}

func (s *server) positionEncoding() projector.Encoding {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.encoding
}

func toProtocolSeverity(sev projector.Severity) lsp.DiagnosticSeverity {
	switch sev {
	case projector.Error:
		return lsp.SeverityError
	case projector.Warning:
		return lsp.SeverityWarning
	default:
		return lsp.SeverityInformation
	}
}
