package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/corymhall/shlsp/debug"
	"github.com/corymhall/shlsp/lsp"
	"github.com/corymhall/shlsp/parser"
	"github.com/corymhall/shlsp/projector"
	"github.com/corymhall/shlsp/rpc"
)

// CodeAction offers, for every published diagnostic in the requested
// range, its fix, a statement suppression directive and a command that
// disables the inspection for the session.
func (s *server) CodeAction(ctx context.Context, params *lsp.CodeActionParams) ([]lsp.CodeAction, error) {
	if err := s.checkInitialized(); err != nil {
		return nil, err
	}
	ctx, done := debug.Start(ctx, "CodeAction")
	defer done()
	actions := []lsp.CodeAction{}
	if !params.Context.Allows(lsp.CodeActionKindQuickFix) {
		return actions, nil
	}

	uri := params.TextDocument.URI
	f, ok := s.stored(uri)
	if !ok {
		return actions, nil
	}
	if !s.isCurrent(ctx, uri, f.revision) {
		debug.Debug.Log(ctx, "diagnostics are stale, no actions", "revision", f.revision)
		return actions, nil
	}
	cfg, _ := s.currentConfig()
	sc := projector.Projector{TabWidth: cfg.Shellcheck.TabWidth}

	var fixes, suppressions, disables []lsp.CodeAction
	seenSuppress := make(map[string]bool)
	seenDisable := make(map[int]bool)
	for i, diag := range f.published {
		if !diag.Range.Overlaps(params.Range) {
			continue
		}
		p := f.projected[i]

		if p.Diagnostic.HasFix() {
			if edits, err := s.fixEdits(sc, f.doc, p.Diagnostic.Fix); err != nil {
				debug.Debug.Log(ctx, "fix does not fit the document", "code", diag.Code, "err", err)
			} else {
				fixes = append(fixes, lsp.CodeAction{
					Title:       "Fix: " + diag.Message,
					Kind:        lsp.CodeActionKindQuickFix,
					Diagnostics: []lsp.Diagnostic{diag},
					IsPreferred: true,
					Edit:        &lsp.WorkspaceEdit{Changes: map[lsp.DocumentURI][]lsp.TextEdit{uri: edits}},
				})
			}
		}

		if action, ok, err := s.suppressAction(f, uri, p, diag, seenSuppress); err != nil {
			debug.LogError(ctx, "error building suppression", err)
		} else if ok {
			suppressions = append(suppressions, action)
		}

		if !seenDisable[p.Diagnostic.Code] {
			seenDisable[p.Diagnostic.Code] = true
			disables = append(disables, lsp.CodeAction{
				Title:       "Disable inspection " + projector.QuoteMessage(diag.Message),
				Kind:        lsp.CodeActionKindQuickFix,
				Diagnostics: []lsp.Diagnostic{diag},
				Command: &lsp.Command{
					Title:     "Disable inspection",
					Command:   CommandDisableInspection,
					Arguments: []any{diag.Code},
				},
			})
		}
	}
	actions = append(actions, fixes...)
	actions = append(actions, suppressions...)
	actions = append(actions, disables...)
	return actions, nil
}

// suppressAction builds the directive action for p. Clients that resolve
// actions get the edit on codeAction/resolve.
func (s *server) suppressAction(f *fileDiagnostics, uri lsp.DocumentURI, p projector.Projected, diag lsp.Diagnostic, seen map[string]bool) (lsp.CodeAction, bool, error) {
	edit, err := s.finder.SuppressEdit(f.doc.Text(), p.Range.Start, diag.Code)
	if errors.Is(err, parser.ErrAlreadySuppressed) {
		return lsp.CodeAction{}, false, nil
	}
	if err != nil {
		return lsp.CodeAction{}, false, err
	}
	key := fmt.Sprintf("%s@%d", diag.Code, edit.Range.Start)
	if seen[key] {
		return lsp.CodeAction{}, false, nil
	}
	seen[key] = true

	action := lsp.CodeAction{
		Title:       fmt.Sprintf("Suppress %s for statement", projector.QuoteMessage(diag.Message)),
		Kind:        lsp.CodeActionKindQuickFix,
		Diagnostics: []lsp.Diagnostic{diag},
	}
	if s.resolveSupport {
		data, err := json.Marshal(lsp.CodeActionResolveData{
			URI:     uri,
			Version: f.version,
			Offset:  p.Range.Start,
			Code:    p.Diagnostic.Code,
		})
		if err != nil {
			return lsp.CodeAction{}, false, err
		}
		raw := json.RawMessage(data)
		action.Data = &raw
		return action, true, nil
	}
	textEdit, err := s.toTextEdit(f.doc, edit)
	if err != nil {
		return lsp.CodeAction{}, false, err
	}
	action.Edit = &lsp.WorkspaceEdit{Changes: map[lsp.DocumentURI][]lsp.TextEdit{uri: {textEdit}}}
	return action, true, nil
}

func (s *server) ResolveCodeAction(ctx context.Context, params *lsp.CodeAction) (*lsp.CodeAction, error) {
	if err := s.checkInitialized(); err != nil {
		return nil, err
	}
	ctx, done := debug.Start(ctx, "ResolveCodeAction")
	defer done()
	if params.Data == nil {
		return params, nil
	}
	var data lsp.CodeActionResolveData
	if err := json.Unmarshal(*params.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: decoding code action data: %w", rpc.ErrInvalidParams, err)
	}

	snapshot, release, err := s.view.Snapshot()
	if err != nil {
		return nil, err
	}
	defer release()
	fh, err := snapshot.ReadFile(ctx, data.URI)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", rpc.ErrContentModified, err)
	}
	if fh.Version() != data.Version {
		return nil, fmt.Errorf("%w: %s is at version %d, action was computed for %d", rpc.ErrContentModified, data.URI, fh.Version(), data.Version)
	}
	content, err := fh.Content()
	if err != nil {
		return nil, err
	}
	doc := projector.NewDocument(string(content), fh.Revision())
	code := projector.Diagnostic{Code: data.Code}.CodeString()
	edit, err := s.finder.SuppressEdit(doc.Text(), data.Offset, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", rpc.ErrContentModified, err)
	}
	textEdit, err := s.toTextEdit(doc, edit)
	if err != nil {
		return nil, err
	}
	resolved := *params
	resolved.Edit = &lsp.WorkspaceEdit{Changes: map[lsp.DocumentURI][]lsp.TextEdit{data.URI: {textEdit}}}
	return &resolved, nil
}

func (s *server) fixEdits(sc projector.Projector, doc *projector.Document, fix *projector.Fix) ([]lsp.TextEdit, error) {
	edits, err := sc.ProjectFix(doc, fix)
	if err != nil {
		return nil, err
	}
	textEdits := make([]lsp.TextEdit, 0, len(edits))
	for _, e := range edits {
		te, err := s.toTextEdit(doc, e)
		if err != nil {
			return nil, err
		}
		textEdits = append(textEdits, te)
	}
	return textEdits, nil
}

func (s *server) toTextEdit(doc *projector.Document, e projector.Edit) (lsp.TextEdit, error) {
	rng, err := s.toProtocolRange(doc, e.Range)
	if err != nil {
		return lsp.TextEdit{}, err
	}
	return lsp.TextEdit{Range: rng, NewText: e.NewText}, nil
}
