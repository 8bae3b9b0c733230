package server

import (
	"github.com/corymhall/shlsp/file"
	"github.com/corymhall/shlsp/lsp"
)

// An overlay is the content of a document open in the editor.
type overlay struct {
	uri      lsp.DocumentURI
	kind     file.Kind
	version  int32
	revision uint64
	content  []byte
	hash     file.Hash
}

var _ file.Handle = (*overlay)(nil)

func newOverlay(uri lsp.DocumentURI, kind file.Kind, version int32, revision uint64, content []byte) *overlay {
	return &overlay{
		uri:      uri,
		kind:     kind,
		version:  version,
		revision: revision,
		content:  content,
		hash:     file.HashOf(content),
	}
}

func (o *overlay) URI() lsp.DocumentURI     { return o.uri }
func (o *overlay) Kind() file.Kind          { return o.kind }
func (o *overlay) Version() int32           { return o.version }
func (o *overlay) Revision() uint64         { return o.revision }
func (o *overlay) Content() ([]byte, error) { return o.content, nil }
func (o *overlay) Hash() file.Hash          { return o.hash }
