package scheduler

import (
	"github.com/gofrs/flock"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
)

// crossProcessLease is a non-blocking, released-on-demand lock shared
// by every Scheduler instance pointed at the same path. Grounded on
// the teacher's pkg/lockfile registry-of-flocks idiom, scaled down to
// the single lock this component needs.
type crossProcessLease interface {
	// TryAcquire attempts to take the lease without blocking. ok is
	// false, with a nil release func and nil error, when another
	// holder currently owns it.
	TryAcquire() (release func(), ok bool, err error)
}

// noopLease is the default when no cross-process coordination is
// configured: the engine's own in-process mutex lease is sufficient.
type noopLease struct{}

func (noopLease) TryAcquire() (func(), bool, error) { return func() {}, true, nil }

type flockLease struct {
	lock *flock.Flock
}

func newFlockLease(path string) *flockLease {
	return &flockLease{lock: flock.New(path)}
}

func (f *flockLease) TryAcquire() (func(), bool, error) {
	ok, err := f.lock.TryLock()
	if err != nil {
		return nil, false, apperrors.NewTransientError("acquiring ingest lease file", err)
	}
	if !ok {
		return nil, false, nil
	}
	return func() { _ = f.lock.Unlock() }, true, nil
}
