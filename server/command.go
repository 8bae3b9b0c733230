package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/corymhall/shlsp/debug"
	"github.com/corymhall/shlsp/lsp"
	"github.com/corymhall/shlsp/rpc"
	"github.com/corymhall/shlsp/shellcheck"
	"github.com/corymhall/shlsp/xcontext"
)

// CommandDisableInspection excludes an inspection code for the rest of the
// session. Its one argument is the code, e.g. "SC2086".
const CommandDisableInspection = "shlsp.disableInspection"

func (s *server) ExecuteCommand(ctx context.Context, params *lsp.ExecuteCommandParams) (any, error) {
	if err := s.checkInitialized(); err != nil {
		return nil, err
	}
	ctx, done := debug.Start(ctx, "ExecuteCommand", "command", params.Command)
	defer done()

	switch params.Command {
	case CommandDisableInspection:
		if len(params.Arguments) != 1 {
			return nil, fmt.Errorf("%w: %s takes one argument, got %d", rpc.ErrInvalidParams, params.Command, len(params.Arguments))
		}
		var arg string
		if err := json.Unmarshal(params.Arguments[0], &arg); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", rpc.ErrInvalidParams, params.Command, err)
		}
		code := shellcheck.NormalizeCode(arg)
		if code == "" {
			return nil, fmt.Errorf("%w: invalid inspection code %q", rpc.ErrInvalidParams, arg)
		}
		changed, err := s.disableInspection(code)
		if err != nil {
			return nil, err
		}
		if changed {
			s.logger.Info("inspection disabled", "code", code)
			go s.rediagnoseAll(xcontext.Detach(ctx), "Disabled "+code)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown command %q", rpc.ErrInvalidParams, params.Command)
	}
}

func (s *server) WorkDoneProgressCancel(ctx context.Context, params *lsp.WorkDoneProgressCancelParams) error {
	if err := s.progress.Cancel(params.Token); err != nil {
		debug.Debug.Log(ctx, "ignoring progress cancel", "err", err)
	}
	return nil
}
