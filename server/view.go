package server

import (
	"errors"
	"sync"

	"github.com/corymhall/shlsp/file"
)

var errViewShutdown = errors.New("view is shutdown")

type StateChange struct {
	Modifications []file.Modification
}

// A View holds the open documents of the session as a sequence of
// immutable snapshots.
type View struct {
	snapshotMu sync.Mutex
	snapshot   *Snapshot // latest snapshot; nil after shutdown has been called

	// snapshotWG is shared with the server and counts live snapshots.
	snapshotWG *sync.WaitGroup
}

func newView(wg *sync.WaitGroup) *View {
	v := &View{snapshotWG: wg}
	wg.Add(1)
	v.snapshot = &Snapshot{
		files:    make(fileMap),
		refcount: 1,
		done:     wg.Done,
	}
	return v
}

// shutdown releases resources associated with the view.
func (v *View) shutdown() {
	v.snapshotMu.Lock()
	if v.snapshot != nil {
		v.snapshot.decref()
		v.snapshot = nil
	}
	v.snapshotMu.Unlock()
}

// Snapshot returns the current snapshot for the view, and a
// release function that must be called when the Snapshot is
// no longer needed.
//
// The resulting error is non-nil if and only if the view is shut down, in
// which case the resulting release function will also be nil.
func (v *View) Snapshot() (*Snapshot, func(), error) {
	v.snapshotMu.Lock()
	defer v.snapshotMu.Unlock()
	if v.snapshot == nil {
		return nil, nil, errViewShutdown
	}
	return v.snapshot, v.snapshot.Acquire(), nil
}

// invalidate replaces the current snapshot with one that reflects changed
// and returns it acquired.
func (v *View) invalidate(changed StateChange) (*Snapshot, func(), error) {
	v.snapshotMu.Lock()
	defer v.snapshotMu.Unlock()
	prev := v.snapshot
	if prev == nil {
		return nil, nil, errViewShutdown
	}
	v.snapshotWG.Add(1)
	v.snapshot = prev.clone(changed, v.snapshotWG.Done)
	prev.decref()
	return v.snapshot, v.snapshot.Acquire(), nil
}
