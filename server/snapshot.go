package server

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/corymhall/shlsp/file"
	"github.com/corymhall/shlsp/lsp"
	"github.com/pulumi/pulumi/sdk/v3/go/common/util/contract"
)

// ErrNotOpen is returned for documents the client has not opened.
var ErrNotOpen = errors.New("document is not open")

type Snapshot struct {
	refMu sync.Mutex

	// files maps document URIs to the overlays of open documents.
	files fileMap

	sequenceID uint64

	// refcount holds the number of outstanding references to the current
	// Snapshot. When refcount is decremented to 0, the done function is
	// called.
	refcount int
	done     func() // for implementing Session.Shutdown

	// mu guards files.
	mu sync.Mutex
}

var _ file.Source = (*Snapshot)(nil)

func (s *Snapshot) SequenceID() uint64 {
	return s.sequenceID
}

// Acquire prevents the snapshot from being destroyed until the returned
// function is called.
func (s *Snapshot) Acquire() func() {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	contract.Assertf(s.refcount > 0, "non-positive refs")
	s.refcount++

	return s.decref
}

// decref should only be referenced by Acquire, and by View when it frees its
// reference to View.snapshot.
func (s *Snapshot) decref() {
	s.refMu.Lock()
	defer s.refMu.Unlock()

	contract.Assertf(s.refcount > 0, "non-positive refs")
	s.refcount--
	if s.refcount == 0 {
		s.done()
	}
}

// A fileMap maps open documents to their overlays.
type fileMap map[lsp.DocumentURI]*overlay

func (s *Snapshot) ReadFile(ctx context.Context, uri lsp.DocumentURI) (file.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fh, ok := s.files[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	return fh, nil
}

// Open lists the open documents in URI order.
func (s *Snapshot) Open() []lsp.DocumentURI {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.files))
}

// clone applies changed on top of s. Every overlay whose content changes
// gets the sequence ID of the new snapshot as its revision.
func (s *Snapshot) clone(changed StateChange, done func()) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &Snapshot{
		sequenceID: s.sequenceID + 1,
		refcount:   1,
		done:       done,
		files:      maps.Clone(s.files),
	}
	for _, mod := range changed.Modifications {
		prev := s.files[mod.URI]
		switch mod.Action {
		case file.Open:
			result.files[mod.URI] = newOverlay(mod.URI, file.Resolve(mod.LanguageID, mod.URI.Path()), mod.Version, result.sequenceID, mod.Text)
		case file.Change:
			if prev == nil {
				continue
			}
			result.files[mod.URI] = newOverlay(mod.URI, prev.kind, mod.Version, result.sequenceID, mod.Text)
		case file.Save:
			if prev == nil || mod.Text == nil || prev.hash == file.HashOf(mod.Text) {
				continue
			}
			result.files[mod.URI] = newOverlay(mod.URI, prev.kind, prev.version, result.sequenceID, mod.Text)
		case file.Close:
			delete(result.files, mod.URI)
		}
	}
	return result
}
