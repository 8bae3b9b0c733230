package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/corymhall/shlsp/config"
	"github.com/corymhall/shlsp/lsp"
	"github.com/corymhall/shlsp/projector"
	"github.com/corymhall/shlsp/rpc"
	"github.com/corymhall/shlsp/shellcheck"
	"github.com/hexops/autogold/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const (
	scriptURI = lsp.DocumentURI("file:///work/run.sh")

	unquoted = `[{"line":1,"endLine":1,"column":6,"endColumn":8,"level":"warning","code":2086,` +
		`"message":"Double quote to prevent globbing.",` +
		`"fix":{"replacements":[` +
		`{"line":1,"endLine":1,"column":6,"endColumn":6,"replacement":"\""},` +
		`{"line":1,"endLine":1,"column":8,"endColumn":8,"replacement":"\""}]}}]`
)

// fakeInvoker answers with canned linter output per script text.
type fakeInvoker struct {
	mu       sync.Mutex
	outputs  map[string]string
	requests []shellcheck.Request

	// block holds the run of blockText until it is closed.
	blockText string
	block     chan struct{}
	started   chan struct{}
}

func (f *fakeInvoker) Invoke(ctx context.Context, req shellcheck.Request) ([]byte, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	out, ok := f.outputs[req.Input]
	block := f.block
	blocked := req.Input == f.blockText && block != nil
	f.mu.Unlock()

	if blocked {
		f.started <- struct{}{}
		<-block
	}
	if slices.Contains(req.Args, "--exclude=SC2086") {
		return []byte("[]"), nil
	}
	if !ok {
		return []byte("[]"), nil
	}
	return []byte(out), nil
}

func (f *fakeInvoker) lastArgs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1].Args
}

// fakeClient records what the server sends.
type fakeClient struct {
	published chan *lsp.PublishDiagnosticsParams
	shown     chan *lsp.ShowMessageParams
	settings  lsp.LSPAny

	mu       sync.Mutex
	progress []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		published: make(chan *lsp.PublishDiagnosticsParams, 100),
		shown:     make(chan *lsp.ShowMessageParams, 100),
	}
}

func (c *fakeClient) PublishDiagnostics(_ context.Context, p *lsp.PublishDiagnosticsParams) error {
	c.published <- p
	return nil
}

func (c *fakeClient) WorkDoneProgressCreate(context.Context, *lsp.WorkDoneProgressCreateParams) error {
	return nil
}

func (c *fakeClient) ProgressBegin(_ context.Context, p *lsp.WorkDoneProgressBeginParams) error {
	c.record("begin " + p.Value.Title)
	return nil
}

func (c *fakeClient) ProgressReport(_ context.Context, p *lsp.WorkDoneProgressReportParams) error {
	c.record("report " + p.Value.Message)
	return nil
}

func (c *fakeClient) ProgressEnd(_ context.Context, p *lsp.WorkDoneProgressEndParams) error {
	c.record("end " + p.Value.Message)
	return nil
}

func (c *fakeClient) ShowMessage(_ context.Context, p *lsp.ShowMessageParams) error {
	c.shown <- p
	return nil
}

func (c *fakeClient) LogMessage(context.Context, *lsp.LogMessageParams) error { return nil }

func (c *fakeClient) Configuration(context.Context, *lsp.ParamConfiguration) ([]lsp.LSPAny, error) {
	return []lsp.LSPAny{c.settings}, nil
}

func (c *fakeClient) record(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress = append(c.progress, s)
}

func (c *fakeClient) progressEvents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.progress)
}

func nextPublish(t *testing.T, c *fakeClient) *lsp.PublishDiagnosticsParams {
	t.Helper()
	select {
	case p := <-c.published:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("no diagnostics published")
		return nil
	}
}

func nextShown(t *testing.T, c *fakeClient) *lsp.ShowMessageParams {
	t.Helper()
	select {
	case p := <-c.shown:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("no message shown")
		return nil
	}
}

func requireNoPublish(t *testing.T, c *fakeClient) {
	t.Helper()
	select {
	case p := <-c.published:
		t.Fatalf("unexpected diagnostics published for version %v: %v", p.Version, p.Diagnostics)
	case <-time.After(100 * time.Millisecond):
	}
}

// linterPath creates an executable for the runner's path check. The fake
// invoker never starts it.
func linterPath(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "shellcheck")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	return path
}

func newTestServer(t *testing.T, inv *fakeInvoker) (*server, *fakeClient) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Shellcheck.Path = linterPath(t)
	cfg.Server.Debounce = config.Duration{}
	client := newFakeClient()
	s := New(client, Options{
		Config:       cfg,
		Invoker:      inv,
		Version:      "test",
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		LintInterval: rate.Inf,
	}).(*server)
	s.exit = func(int) {}
	t.Cleanup(func() {
		require.NoError(t, s.Shutdown(context.Background()))
	})
	return s, client
}

func initialize(t *testing.T, s *server, caps lsp.ClientCapabilities) *lsp.InitializeResult {
	t.Helper()
	ctx := context.Background()
	res, err := s.Initialize(ctx, &lsp.InitializeRequestParams{RootURI: "file:///work", Capabilities: caps})
	require.NoError(t, err)
	require.NoError(t, s.Initialized(ctx, &lsp.InitializedParams{}))
	return res
}

func open(t *testing.T, s *server, uri lsp.DocumentURI, text string) {
	t.Helper()
	require.NoError(t, s.DidOpen(context.Background(), &lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: uri, LanguageID: "shellscript", Version: 1, Text: text},
	}))
}

func change(t *testing.T, s *server, uri lsp.DocumentURI, version int32, text string) {
	t.Helper()
	require.NoError(t, s.DidChange(context.Background(), &lsp.DidChangeTextDocumentParams{
		TextDocument: lsp.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: lsp.TextDocumentIdentifier{URI: uri},
			Version:                version,
		},
		ContentChanges: []lsp.TextDocumentContentChangeEvent{{Text: text}},
	}))
}

func lineRange(line, from, to uint32) lsp.Range {
	return lsp.Range{
		Start: lsp.Position{Line: line, Character: from},
		End:   lsp.Position{Line: line, Character: to},
	}
}

func TestInitialize(t *testing.T) {
	s, _ := newTestServer(t, &fakeInvoker{})
	res := initialize(t, s, lsp.ClientCapabilities{})
	require.Equal(t, lsp.PositionEncodingUTF16, res.Capabilities.PositionEncoding)
	require.Equal(t, lsp.TextDocumentSyncFull, res.Capabilities.TextDocumentSync.Change)
	require.True(t, res.Capabilities.TextDocumentSync.Save.IncludeText)
	require.False(t, res.Capabilities.CodeActionProvider.ResolveProvider)
	autogold.Expect([]string{"shlsp.disableInspection"}).Equal(t, res.Capabilities.ExecuteCommandProvider.Commands)
	require.Equal(t, "shlsp", res.ServerInfo.Name)

	_, err := s.Initialize(context.Background(), &lsp.InitializeRequestParams{})
	require.ErrorIs(t, err, rpc.ErrInvalidRequest)
}

func TestNegotiate(t *testing.T) {
	enc, resolve, pull := negotiate(lsp.ClientCapabilities{
		General:   lsp.ClientGeneralCapabilities{PositionEncodings: []lsp.PositionEncodingKind{lsp.PositionEncodingUTF16, lsp.PositionEncodingUTF8}},
		Workspace: lsp.ClientWorkspaceCapabilities{Configuration: true},
		TextDocument: lsp.ClientTextDocumentCapabilities{CodeAction: lsp.ClientCodeActionCapabilities{
			ResolveSupport: &lsp.CodeActionResolveSupport{Properties: []string{"edit"}},
		}},
	})
	require.Equal(t, projector.UTF8, enc)
	require.True(t, resolve)
	require.True(t, pull)

	enc, resolve, pull = negotiate(lsp.ClientCapabilities{})
	require.Equal(t, projector.UTF16, enc)
	require.False(t, resolve)
	require.False(t, pull)
}

func TestNotInitialized(t *testing.T) {
	s, _ := newTestServer(t, &fakeInvoker{})
	err := s.DidOpen(context.Background(), &lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: scriptURI, LanguageID: "shellscript", Version: 1, Text: "echo $x\n"},
	})
	require.ErrorIs(t, err, rpc.ErrServerNotInitialized)
	_, err = s.CodeAction(context.Background(), &lsp.CodeActionParams{})
	require.ErrorIs(t, err, rpc.ErrServerNotInitialized)
}

func TestPublishDiagnosticsOnOpen(t *testing.T) {
	inv := &fakeInvoker{outputs: map[string]string{"echo $x\n": unquoted}}
	s, client := newTestServer(t, inv)
	initialize(t, s, lsp.ClientCapabilities{})

	open(t, s, scriptURI, "echo $x\n")
	p := nextPublish(t, client)
	require.Equal(t, scriptURI, p.URI)
	require.NotNil(t, p.Version)
	require.Equal(t, int32(1), *p.Version)
	require.Equal(t, []lsp.Diagnostic{{
		Range:           lineRange(0, 5, 7),
		Severity:        lsp.SeverityWarning,
		Code:            "SC2086",
		CodeDescription: &lsp.CodeDescription{Href: "https://github.com/koalaman/shellcheck/wiki/SC2086"},
		Source:          "shellcheck",
		Message:         "Double quote to prevent globbing",
	}}, p.Diagnostics)

	args := inv.lastArgs()
	require.Contains(t, args, "--shell=bash")
	require.Contains(t, args, "--format=json")
}

func TestPositionEncoding(t *testing.T) {
	// x=é; echo $x, with $x at characters 11-13 counted from 1
	text := "x=é; echo $x\n"
	out := `[{"line":1,"endLine":1,"column":11,"endColumn":13,"level":"info","code":2086,"message":"Double quote to prevent globbing."}]`

	t.Run("utf-16", func(t *testing.T) {
		s, client := newTestServer(t, &fakeInvoker{outputs: map[string]string{text: out}})
		initialize(t, s, lsp.ClientCapabilities{})
		open(t, s, scriptURI, text)
		p := nextPublish(t, client)
		require.Len(t, p.Diagnostics, 1)
		require.Equal(t, lineRange(0, 10, 12), p.Diagnostics[0].Range)
		require.Equal(t, lsp.SeverityInformation, p.Diagnostics[0].Severity)
	})
	t.Run("utf-8", func(t *testing.T) {
		s, client := newTestServer(t, &fakeInvoker{outputs: map[string]string{text: out}})
		initialize(t, s, lsp.ClientCapabilities{
			General: lsp.ClientGeneralCapabilities{PositionEncodings: []lsp.PositionEncodingKind{lsp.PositionEncodingUTF8}},
		})
		open(t, s, scriptURI, text)
		p := nextPublish(t, client)
		require.Len(t, p.Diagnostics, 1)
		require.Equal(t, lineRange(0, 11, 13), p.Diagnostics[0].Range)
	})
}

func TestTemplateRegionsDropDiagnostics(t *testing.T) {
	text := "echo {{ .Name }}\n"
	out := `[{"line":1,"endLine":1,"column":9,"endColumn":14,"level":"warning","code":2154,"message":"Name is referenced but not assigned."}]`
	s, client := newTestServer(t, &fakeInvoker{outputs: map[string]string{text: out}})
	initialize(t, s, lsp.ClientCapabilities{})

	require.NoError(t, s.DidOpen(context.Background(), &lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: "file:///work/run.sh.tmpl", LanguageID: "shellscript", Version: 1, Text: text},
	}))
	p := nextPublish(t, client)
	require.Empty(t, p.Diagnostics)
}

func TestUnknownLanguageIsNotLinted(t *testing.T) {
	inv := &fakeInvoker{}
	s, client := newTestServer(t, inv)
	initialize(t, s, lsp.ClientCapabilities{})

	require.NoError(t, s.DidOpen(context.Background(), &lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: "file:///work/main.py", LanguageID: "python", Version: 1, Text: "print(1)\n"},
	}))
	requireNoPublish(t, client)
	require.Nil(t, inv.lastArgs())
}

func TestSupersededRunIsDiscarded(t *testing.T) {
	inv := &fakeInvoker{
		outputs:   map[string]string{"echo $x\n": unquoted, "echo $y\n": unquoted},
		blockText: "echo $x\n",
		block:     make(chan struct{}),
		started:   make(chan struct{}, 1),
	}
	s, client := newTestServer(t, inv)
	initialize(t, s, lsp.ClientCapabilities{})

	open(t, s, scriptURI, "echo $x\n")
	<-inv.started
	change(t, s, scriptURI, 2, "echo $y\n")
	close(inv.block)

	p := nextPublish(t, client)
	require.Equal(t, int32(2), *p.Version)
	require.Len(t, p.Diagnostics, 1)
	requireNoPublish(t, client)
}

func TestStaleRevisionIsDiscarded(t *testing.T) {
	s, client := newTestServer(t, &fakeInvoker{})
	initialize(t, s, lsp.ClientCapabilities{})
	ctx := context.Background()

	open(t, s, scriptURI, "echo $x\n")
	nextPublish(t, client)
	change(t, s, scriptURI, 2, "echo $y\n")
	nextPublish(t, client)

	current, release, err := s.view.Snapshot()
	require.NoError(t, err)
	fh, err := current.ReadFile(ctx, scriptURI)
	release()
	require.NoError(t, err)

	stale := &fileDiagnostics{revision: fh.Revision() - 1, version: 1, published: []lsp.Diagnostic{}}
	s.publish(ctx, fh, stale)
	requireNoPublish(t, client)

	fresh := &fileDiagnostics{revision: fh.Revision(), version: 2, published: []lsp.Diagnostic{}}
	s.publish(ctx, fh, fresh)
	p := nextPublish(t, client)
	require.Equal(t, int32(2), *p.Version)
}

func TestCloseClearsDiagnostics(t *testing.T) {
	s, client := newTestServer(t, &fakeInvoker{outputs: map[string]string{"echo $x\n": unquoted}})
	initialize(t, s, lsp.ClientCapabilities{})

	open(t, s, scriptURI, "echo $x\n")
	require.Len(t, nextPublish(t, client).Diagnostics, 1)

	require.NoError(t, s.DidClose(context.Background(), &lsp.DidCloseTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: scriptURI},
	}))
	p := nextPublish(t, client)
	require.Nil(t, p.Version)
	require.Empty(t, p.Diagnostics)
	_, ok := s.stored(scriptURI)
	require.False(t, ok)
}

func TestSaveWithoutChangeIsNotRelinted(t *testing.T) {
	inv := &fakeInvoker{outputs: map[string]string{"echo $x\n": unquoted}}
	s, client := newTestServer(t, inv)
	initialize(t, s, lsp.ClientCapabilities{})

	open(t, s, scriptURI, "echo $x\n")
	nextPublish(t, client)

	text := "echo $x\n"
	require.NoError(t, s.DidSave(context.Background(), &lsp.DidSaveTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: scriptURI},
		Text:         &text,
	}))
	requireNoPublish(t, client)

	text = "echo $y\n"
	require.NoError(t, s.DidSave(context.Background(), &lsp.DidSaveTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: scriptURI},
		Text:         &text,
	}))
	nextPublish(t, client)
}

func TestIncrementalChangeRejected(t *testing.T) {
	s, _ := newTestServer(t, &fakeInvoker{})
	initialize(t, s, lsp.ClientCapabilities{})
	rng := lineRange(0, 0, 1)
	err := s.DidChange(context.Background(), &lsp.DidChangeTextDocumentParams{
		TextDocument:   lsp.VersionedTextDocumentIdentifier{TextDocumentIdentifier: lsp.TextDocumentIdentifier{URI: scriptURI}, Version: 2},
		ContentChanges: []lsp.TextDocumentContentChangeEvent{{Range: &rng, Text: "x"}},
	})
	require.ErrorIs(t, err, rpc.ErrInvalidParams)
}

func codeActions(t *testing.T, s *server, rng lsp.Range) []lsp.CodeAction {
	t.Helper()
	actions, err := s.CodeAction(context.Background(), &lsp.CodeActionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: scriptURI},
		Range:        rng,
	})
	require.NoError(t, err)
	return actions
}

func titles(actions []lsp.CodeAction) []string {
	var out []string
	for _, a := range actions {
		out = append(out, a.Title)
	}
	return out
}

func TestCodeActions(t *testing.T) {
	s, client := newTestServer(t, &fakeInvoker{outputs: map[string]string{"echo $x\n": unquoted}})
	initialize(t, s, lsp.ClientCapabilities{})
	open(t, s, scriptURI, "echo $x\n")
	nextPublish(t, client)

	require.Empty(t, codeActions(t, s, lineRange(1, 0, 0)))

	actions := codeActions(t, s, lineRange(0, 6, 6))
	autogold.Expect([]string{
		"Fix: Double quote to prevent globbing",
		"Suppress 'Double quote to prevent globbing' for statement",
		"Disable inspection 'Double quote to prevent globbing'",
	}).Equal(t, titles(actions))

	fix := actions[0]
	require.True(t, fix.IsPreferred)
	require.Equal(t, []lsp.TextEdit{
		{Range: lineRange(0, 5, 5), NewText: `"`},
		{Range: lineRange(0, 7, 7), NewText: `"`},
	}, fix.Edit.Changes[scriptURI])

	suppress := actions[1]
	require.Nil(t, suppress.Data)
	require.Equal(t, []lsp.TextEdit{
		{Range: lineRange(0, 0, 0), NewText: "# shellcheck disable=SC2086\n"},
	}, suppress.Edit.Changes[scriptURI])

	disable := actions[2]
	require.Nil(t, disable.Edit)
	require.Equal(t, CommandDisableInspection, disable.Command.Command)
	require.Equal(t, []any{"SC2086"}, disable.Command.Arguments)

	only, err := s.CodeAction(context.Background(), &lsp.CodeActionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: scriptURI},
		Range:        lineRange(0, 6, 6),
		Context:      lsp.CodeActionContext{Only: []lsp.CodeActionKind{lsp.CodeActionKindRefactor}},
	})
	require.NoError(t, err)
	require.Empty(t, only)
}

func TestCodeActionsAlreadySuppressed(t *testing.T) {
	text := "# shellcheck disable=SC2086\necho $x\n"
	out := `[{"line":2,"endLine":2,"column":6,"endColumn":8,"level":"warning","code":2086,"message":"Double quote to prevent globbing."}]`
	s, client := newTestServer(t, &fakeInvoker{outputs: map[string]string{text: out}})
	initialize(t, s, lsp.ClientCapabilities{})
	open(t, s, scriptURI, text)
	nextPublish(t, client)

	autogold.Expect([]string{"Disable inspection 'Double quote to prevent globbing'"}).Equal(t, titles(codeActions(t, s, lineRange(1, 6, 6))))
}

func TestResolveCodeAction(t *testing.T) {
	s, client := newTestServer(t, &fakeInvoker{outputs: map[string]string{"echo $x\n": unquoted}})
	initialize(t, s, lsp.ClientCapabilities{
		TextDocument: lsp.ClientTextDocumentCapabilities{CodeAction: lsp.ClientCodeActionCapabilities{
			ResolveSupport: &lsp.CodeActionResolveSupport{Properties: []string{"edit"}},
		}},
	})
	open(t, s, scriptURI, "echo $x\n")
	nextPublish(t, client)

	actions := codeActions(t, s, lineRange(0, 6, 6))
	suppress := actions[1]
	require.Nil(t, suppress.Edit)
	require.NotNil(t, suppress.Data)

	resolved, err := s.ResolveCodeAction(context.Background(), &suppress)
	require.NoError(t, err)
	require.Equal(t, []lsp.TextEdit{
		{Range: lineRange(0, 0, 0), NewText: "# shellcheck disable=SC2086\n"},
	}, resolved.Edit.Changes[scriptURI])

	change(t, s, scriptURI, 2, "  echo $x\n")
	_, err = s.ResolveCodeAction(context.Background(), &suppress)
	require.ErrorIs(t, err, rpc.ErrContentModified)
}

func TestCodeActionsOnStaleDiagnostics(t *testing.T) {
	inv := &fakeInvoker{
		outputs:   map[string]string{"echo $x\n": unquoted},
		blockText: "echo $y\n",
		block:     make(chan struct{}),
		started:   make(chan struct{}, 1),
	}
	s, client := newTestServer(t, inv)
	initialize(t, s, lsp.ClientCapabilities{})
	open(t, s, scriptURI, "echo $x\n")
	nextPublish(t, client)

	change(t, s, scriptURI, 2, "echo $y\n")
	<-inv.started
	require.Empty(t, codeActions(t, s, lineRange(0, 6, 6)))
	close(inv.block)
	nextPublish(t, client)
}

func TestDisableInspectionCommand(t *testing.T) {
	inv := &fakeInvoker{outputs: map[string]string{"echo $x\n": unquoted}}
	s, client := newTestServer(t, inv)
	initialize(t, s, lsp.ClientCapabilities{Window: lsp.ClientWindowCapabilities{WorkDoneProgress: true}})
	open(t, s, scriptURI, "echo $x\n")
	require.Len(t, nextPublish(t, client).Diagnostics, 1)

	arg, err := json.Marshal("2086")
	require.NoError(t, err)
	_, err = s.ExecuteCommand(context.Background(), &lsp.ExecuteCommandParams{
		Command:   CommandDisableInspection,
		Arguments: []json.RawMessage{arg},
	})
	require.NoError(t, err)

	p := nextPublish(t, client)
	require.Empty(t, p.Diagnostics)
	require.Contains(t, inv.lastArgs(), "--exclude=SC2086")
	cfg, _ := s.currentConfig()
	require.True(t, cfg.Excludes("SC2086"))

	require.Eventually(t, func() bool {
		return len(client.progressEvents()) == 3
	}, 5*time.Second, 10*time.Millisecond)
	autogold.Expect([]string{"begin Disabled SC2086", "report 1/1", "end Done"}).Equal(t, client.progressEvents())
}

func TestExecuteCommandErrors(t *testing.T) {
	s, _ := newTestServer(t, &fakeInvoker{})
	initialize(t, s, lsp.ClientCapabilities{})
	ctx := context.Background()

	_, err := s.ExecuteCommand(ctx, &lsp.ExecuteCommandParams{Command: "shlsp.unknown"})
	require.ErrorIs(t, err, rpc.ErrInvalidParams)

	_, err = s.ExecuteCommand(ctx, &lsp.ExecuteCommandParams{Command: CommandDisableInspection})
	require.ErrorIs(t, err, rpc.ErrInvalidParams)

	bad, err := json.Marshal("not-a-code")
	require.NoError(t, err)
	_, err = s.ExecuteCommand(ctx, &lsp.ExecuteCommandParams{
		Command:   CommandDisableInspection,
		Arguments: []json.RawMessage{bad},
	})
	require.ErrorIs(t, err, rpc.ErrInvalidParams)
}

func TestDidChangeConfiguration(t *testing.T) {
	inv := &fakeInvoker{outputs: map[string]string{"echo $x\n": unquoted}}
	s, client := newTestServer(t, inv)
	initialize(t, s, lsp.ClientCapabilities{})
	open(t, s, scriptURI, "echo $x\n")
	nextPublish(t, client)
	ctx := context.Background()

	require.NoError(t, s.DidChangeConfiguration(ctx, &lsp.DidChangeConfigurationParams{
		Settings: json.RawMessage(`{"shlsp": {"shellcheck": {"severity": "bogus"}}}`),
	}))
	require.Equal(t, lsp.MessageTypeError, nextShown(t, client).Type)
	cfg, _ := s.currentConfig()
	require.Equal(t, "style", cfg.Shellcheck.Severity)

	require.NoError(t, s.DidChangeConfiguration(ctx, &lsp.DidChangeConfigurationParams{
		Settings: json.RawMessage(`{"shlsp": {"shellcheck": {"exclude": ["SC2086"], "default_shell": "dash"}}}`),
	}))
	p := nextPublish(t, client)
	require.Empty(t, p.Diagnostics)
	args := inv.lastArgs()
	require.Contains(t, args, "--exclude=SC2086")
	require.Contains(t, args, "--shell=dash")
}

func TestPullConfiguration(t *testing.T) {
	inv := &fakeInvoker{}
	s, client := newTestServer(t, inv)
	client.settings = map[string]any{"shellcheck": map[string]any{"severity": "warning"}}
	initialize(t, s, lsp.ClientCapabilities{Workspace: lsp.ClientWorkspaceCapabilities{Configuration: true}})

	require.Eventually(t, func() bool {
		cfg, _ := s.currentConfig()
		return cfg.Shellcheck.Severity == "warning"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestShutdownAndExit(t *testing.T) {
	s, _ := newTestServer(t, &fakeInvoker{})
	var codes []int
	s.exit = func(code int) { codes = append(codes, code) }
	initialize(t, s, lsp.ClientCapabilities{})

	require.NoError(t, s.Exit(context.Background()))
	require.NoError(t, s.Shutdown(context.Background()))
	require.NoError(t, s.Exit(context.Background()))
	require.Equal(t, []int{1, 0}, codes)

	_, err := s.CodeAction(context.Background(), &lsp.CodeActionParams{})
	require.ErrorIs(t, err, rpc.ErrInvalidRequest)
}
