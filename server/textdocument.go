package server

import (
	"context"
	"time"

	"github.com/corymhall/shlsp/debug"
	"github.com/corymhall/shlsp/file"
)

// ModificationSource identifies the origin of a change.
type ModificationSource int

const (
	// FromDidOpen is from a didOpen notification.
	FromDidOpen = ModificationSource(iota)

	// FromDidChange is from a didChange notification.
	FromDidChange

	// FromDidSave is from a didSave notification.
	FromDidSave

	// FromDidClose is from a didClose notification.
	FromDidClose
)

func (m ModificationSource) String() string {
	switch m {
	case FromDidOpen:
		return "didOpen"
	case FromDidChange:
		return "didChange"
	case FromDidSave:
		return "didSave"
	case FromDidClose:
		return "didClose"
	}
	return "unknown"
}

func (s *server) didModifyFiles(ctx context.Context, modifications []file.Modification, cause ModificationSource) error {
	if err := s.checkInitialized(); err != nil {
		return err
	}
	ctx, done := debug.Start(ctx, "textdocument.didModifyFiles", "cause", cause)
	defer done()

	snapshot, release, err := s.view.invalidate(StateChange{Modifications: modifications})
	if err != nil {
		return err
	}
	defer release()
	ctx, _ = debug.With(ctx, "snapshotSequenceID", snapshot.SequenceID())

	for _, mod := range modifications {
		if mod.Action == file.Close {
			s.clearDiagnostics(ctx, mod.URI)
			continue
		}
		fh, err := snapshot.ReadFile(ctx, mod.URI)
		if err != nil {
			// a change or save of a document that was never opened
			debug.Debug.Log(ctx, "ignoring modification", "uri", mod.URI, "err", err)
			continue
		}
		if fh.Kind() == file.UnknownKind {
			debug.Debug.Log(ctx, "not a shell script", "uri", mod.URI)
			continue
		}
		if cause == FromDidSave && s.upToDate(mod.URI, fh.Hash()) {
			continue
		}
		s.scheduleDiagnosis(ctx, mod.URI, s.debounce(cause))
	}
	return nil
}

// debounce is how long a modification waits for the next one before the
// document is linted.
func (s *server) debounce(cause ModificationSource) time.Duration {
	if cause != FromDidChange {
		return 0
	}
	cfg, _ := s.currentConfig()
	return cfg.Server.Debounce.Duration
}
