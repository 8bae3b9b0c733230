package server

import (
	"context"
	"fmt"

	"github.com/corymhall/shlsp/file"
	"github.com/corymhall/shlsp/lsp"
	"github.com/corymhall/shlsp/rpc"
)

// DidChange replaces the document content. Only full document sync is
// offered, so the last change holds the whole text.
func (s *server) DidChange(ctx context.Context, params *lsp.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	change := params.ContentChanges[len(params.ContentChanges)-1]
	if change.Range != nil {
		return fmt.Errorf("%w: incremental changes are not supported", rpc.ErrInvalidParams)
	}
	return s.didModifyFiles(ctx, []file.Modification{{
		URI:     params.TextDocument.URI,
		Action:  file.Change,
		Version: params.TextDocument.Version,
		Text:    []byte(change.Text),
	}}, FromDidChange)
}
