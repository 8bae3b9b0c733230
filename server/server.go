package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/corymhall/shlsp/config"
	"github.com/corymhall/shlsp/lsp"
	"github.com/corymhall/shlsp/parser"
	"github.com/corymhall/shlsp/projector"
	"github.com/corymhall/shlsp/rpc"
	"github.com/corymhall/shlsp/shellcheck"
	"github.com/pulumi/pulumi/sdk/v3/go/common/util/contract"
	"golang.org/x/time/rate"
)

// Options configure a server.
type Options struct {
	// Config is the configuration loaded from defaults, file and flags.
	Config *config.Config
	// ConfigPath is watched for changes when set.
	ConfigPath string
	// Overrides are re-applied whenever ConfigPath is reloaded.
	Overrides *config.Overrides
	// Invoker replaces the process invoker. Tests use it to avoid running
	// a real linter.
	Invoker shellcheck.Invoker
	Version string
	Logger  *slog.Logger
	// LintInterval is the minimum time between two runs on one document.
	LintInterval rate.Limit
}

// New creates an LSP server that reports to client.
func New(client lsp.Client, opts Options) lsp.Server {
	finder, err := parser.NewStatementFinder(parser.BashLanguage())
	contract.AssertNoErrorf(err, "failed to create statement finder: %v", err)

	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.LintInterval
	if interval == 0 {
		interval = defaultLintInterval
	}
	s := &server{
		logger:       logger,
		client:       client,
		version:      opts.Version,
		finder:       finder,
		configPath:   opts.ConfigPath,
		overrides:    opts.Overrides,
		invoker:      opts.Invoker,
		lintInterval: interval,
		baseConfig:   cfg,
		diagnostics:  make(map[lsp.DocumentURI]*fileDiagnostics),
		pending:      make(map[lsp.DocumentURI]*pendingRun),
		limiters:     make(map[lsp.DocumentURI]*rate.Limiter),
		progress:     NewTracker(client, logger),
		exit:         os.Exit,
	}
	s.setConfigLocked(cfg)
	s.view = newView(&s.snapshotWG)
	return s
}

type serverState int

const (
	serverCreated      = serverState(iota)
	serverInitializing // set once the server has received "initialize" request
	serverInitialized  // set once the server has received "initialized" request
	serverShutDown
)

func (s serverState) String() string {
	switch s {
	case serverCreated:
		return "created"
	case serverInitializing:
		return "initializing"
	case serverInitialized:
		return "initialized"
	case serverShutDown:
		return "shutDown"
	}
	return fmt.Sprintf("(unknown state: %d)", int(s))
}

type server struct {
	logger  *slog.Logger
	client  lsp.Client
	version string

	stateMu sync.Mutex
	state   serverState
	rootURI lsp.DocumentURI

	// negotiated during initialize
	encoding        projector.Encoding
	resolveSupport  bool
	configSupport   bool
	stopConfigWatch context.CancelFunc

	// view is the view associated with this server
	view *View

	// snapshotWG counts the unreleased snapshots associated with this
	// session. Shutdown waits for it to fall to zero.
	snapshotWG sync.WaitGroup

	// finder locates statements for suppression comments.
	finder *parser.StatementFinder

	// progress is the progress tracker used to report progress
	// to the client.
	progress *Tracker

	configMu   sync.Mutex
	configPath string
	overrides  *config.Overrides
	baseConfig *config.Config  // defaults, file and flags
	settings   json.RawMessage // client settings section
	disabled   []string        // codes disabled with the disableInspection command
	cfg        *config.Config  // effective configuration
	runner     *shellcheck.Runner
	invoker    shellcheck.Invoker

	diagnosticsMu sync.Mutex // guards the maps below and their values
	diagnostics   map[lsp.DocumentURI]*fileDiagnostics
	pending       map[lsp.DocumentURI]*pendingRun
	limiters      map[lsp.DocumentURI]*rate.Limiter
	lintInterval  rate.Limit

	exit func(code int)
}

func (s *server) Logger() *slog.Logger {
	return s.logger
}

// checkInitialized rejects requests that arrive before initialize or
// after shutdown.
func (s *server) checkInitialized() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	switch s.state {
	case serverCreated:
		return rpc.ErrServerNotInitialized
	case serverShutDown:
		return fmt.Errorf("%w: server is shut down", rpc.ErrInvalidRequest)
	}
	return nil
}

// Shutdown implements the 'shutdown' LSP handler. It releases resources
// associated with the server and waits for all ongoing work to complete.
func (s *server) Shutdown(ctx context.Context) error {
	s.stateMu.Lock()
	if s.state == serverShutDown {
		s.stateMu.Unlock()
		return nil
	}
	s.state = serverShutDown
	stopWatch := s.stopConfigWatch
	s.stateMu.Unlock()

	// running diagnoses read the state, so wait without holding stateMu
	if stopWatch != nil {
		stopWatch()
	}
	s.cancelPending()
	s.view.shutdown()
	s.snapshotWG.Wait() // wait for all work on associated snapshots to finish
	s.finder.Close()
	return nil
}

func (s *server) Exit(ctx context.Context) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state != serverShutDown {
		s.exit(1)
		return nil
	}
	s.exit(0)
	return nil
}

func (s *server) cancelPending() {
	s.diagnosticsMu.Lock()
	defer s.diagnosticsMu.Unlock()
	for uri, p := range s.pending {
		p.stop()
		delete(s.pending, uri)
	}
}
