package file

import (
	"context"
	"crypto/sha256"

	"github.com/corymhall/shlsp/lsp"
)

type Handle interface {
	URI() lsp.DocumentURI
	Kind() Kind
	// Version is the client's document version, or -1 for content read
	// from disk.
	Version() int32
	// Revision increases with every modification the server sees.
	Revision() uint64
	Content() ([]byte, error)
	Hash() Hash
}

type Source interface {
	ReadFile(ctx context.Context, uri lsp.DocumentURI) (Handle, error)
}

type Hash [sha256.Size]byte

func HashOf(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// Modification represents a modification to a file.
type Modification struct {
	URI    lsp.DocumentURI
	Action Action

	// Version will be -1 and Text will be nil when they are not supplied,
	// specifically on textDocument/didClose.
	Version int32
	Text    []byte

	// LanguageID is only sent from the language client on textDocument/didOpen.
	LanguageID lsp.LanguageKind
}

// An Action is a type of file state change.
type Action int

const (
	UnknownAction = Action(iota)
	Open
	Change
	Close
	Save
)

func (a Action) String() string {
	switch a {
	case Open:
		return "Open"
	case Change:
		return "Change"
	case Close:
		return "Close"
	case Save:
		return "Save"
	default:
		return "Unknown"
	}
}
