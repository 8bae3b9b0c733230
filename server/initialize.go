package server

import (
	"context"
	"fmt"
	"slices"

	"github.com/corymhall/shlsp/config"
	"github.com/corymhall/shlsp/lsp"
	"github.com/corymhall/shlsp/projector"
	"github.com/corymhall/shlsp/rpc"
	"github.com/corymhall/shlsp/xcontext"
)

func (s *server) Initialize(ctx context.Context, params *lsp.InitializeRequestParams) (*lsp.InitializeResult, error) {
	s.stateMu.Lock()
	if s.state >= serverInitializing {
		defer s.stateMu.Unlock()
		return nil, fmt.Errorf("%w: initialize called while server in %v state", rpc.ErrInvalidRequest, s.state)
	}
	s.progress.SetSupportsWorkDoneProgress(params.Capabilities.Window.WorkDoneProgress)
	s.state = serverInitializing
	s.rootURI = params.RootURI
	s.encoding, s.resolveSupport, s.configSupport = negotiate(params.Capabilities)
	encoding := s.encoding
	s.stateMu.Unlock()

	if len(params.InitializationOptions) > 0 {
		section, err := settingsSection(params.InitializationOptions)
		if err == nil {
			err = s.applySettings(section)
		}
		if err != nil {
			s.reportConfigError(ctx, err)
		}
	}

	kind := lsp.PositionEncodingUTF16
	if encoding == projector.UTF8 {
		kind = lsp.PositionEncodingUTF8
	}
	return &lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			PositionEncoding: kind,
			TextDocumentSync: lsp.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    lsp.TextDocumentSyncFull,
				Save:      &lsp.SaveOptions{IncludeText: true},
			},
			CodeActionProvider: lsp.CodeActionProviderOptions{
				ResolveProvider: s.resolveSupport,
				CodeActionKinds: []lsp.CodeActionKind{
					lsp.CodeActionKindQuickFix,
				},
			},
			ExecuteCommandProvider: lsp.ExecuteCommandOptions{
				Commands: []string{CommandDisableInspection},
			},
		},
		ServerInfo: lsp.ServerInfo{
			Name:    config.AppName,
			Version: s.version,
		},
	}, nil
}

// negotiate picks the position encoding and the optional features the
// client supports. UTF-8 is preferred because it needs no conversion.
func negotiate(caps lsp.ClientCapabilities) (enc projector.Encoding, resolve, pull bool) {
	enc = projector.UTF16
	if slices.Contains(caps.General.PositionEncodings, lsp.PositionEncodingUTF8) {
		enc = projector.UTF8
	}
	if rs := caps.TextDocument.CodeAction.ResolveSupport; rs != nil {
		resolve = slices.Contains(rs.Properties, "edit")
	}
	return enc, resolve, caps.Workspace.Configuration
}

func (s *server) Initialized(ctx context.Context, params *lsp.InitializedParams) error {
	s.stateMu.Lock()
	if s.state >= serverInitialized {
		defer s.stateMu.Unlock()
		return fmt.Errorf("%w: initialized called while server in %v state", rpc.ErrInvalidRequest, s.state)
	}
	s.state = serverInitialized
	ctx = xcontext.Detach(ctx)
	if s.configPath != "" {
		watchCtx, cancel := context.WithCancel(ctx)
		s.stopConfigWatch = cancel
		go func() {
			if err := config.Watch(watchCtx, s.configPath, s.overrides, func(cfg *config.Config) {
				s.onConfigFileChange(watchCtx, cfg)
			}); err != nil {
				s.logger.Warn("not watching configuration file", "path", s.configPath, "err", err)
			}
		}()
	}
	s.stateMu.Unlock()

	if s.configSupport {
		go s.pullConfiguration(ctx)
	}
	return nil
}
