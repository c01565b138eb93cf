// Package lock implements the inter-process synchronization component
// (§4.C). The resolver's native lock is a process-shared pthread mutex and
// condition variable embedded in the "lock" shared-memory segment; Go has no
// portable cgo-free binding for those primitives operating on
// externally-owned memory. Design Notes §9 explicitly sanctions a
// substitute when process-shared pthread primitives aren't available: "a
// file-advisory-lock scheme with equivalent writer-priority semantics."
// This package takes that path, grounded on github.com/gofrs/flock.
package lock

import (
	"math/rand/v2"
	"time"

	"github.com/gofrs/flock"

	"github.com/pihole/pihole-api/internal/apierror"
)

// waitingOffset is the byte offset of the `resolver_waiting` flag within the
// mapped lock segment (mirrors FtlLock.ftl_waiting_for_lock in
// original_source/src/ftl/memory_model/lock.rs). This substitute reads the
// flag from the segment's first byte and does not use any mutex/condvar
// storage.
const waitingOffset = 0

// pollInterval bounds how often a reader re-checks resolver_waiting while
// backing off, jittered to avoid readers synchronizing on the resolver.
const pollInterval = 2 * time.Millisecond

// Lock acquires the resolver's inter-process lock via an flock(2)-based
// sidecar file, honoring writer priority by polling a byte mapped
// read-write from the lock segment before attempting the flock.
type Lock struct {
	fl      *flock.Flock
	waiting []byte // aliases the lock segment's resolver_waiting byte
}

// New builds a Lock given the path to the advisory-lock sidecar file and the
// mapped bytes of the "lock" shared-memory segment (opened read-write).
func New(sidecarPath string, lockSegment []byte) *Lock {
	return &Lock{
		fl:      flock.New(sidecarPath),
		waiting: lockSegment,
	}
}

// Guard is the scoped handle returned by Acquire. It is non-reentrant and
// must not be shared across goroutines; Release must be called exactly
// once, on every exit path.
type Guard struct {
	fl *flock.Flock
}

// Acquire implements the three-step protocol from §4.C:
//  1. Lock the mutex (here: the advisory flock).
//  2. While resolver_waiting is true, back off instead of racing the
//     resolver for the lock — this yields priority to the writer.
//  3. Return a scoped guard.
//
// Failure to acquire is fatal for the request and reported as
// SharedMemoryLockError; timeouts are not used (§5): the resolver holds the
// lock only for short critical sections.
func (l *Lock) Acquire() (*Guard, error) {
	for l.resolverWaiting() {
		jitter := time.Duration(rand.Int64N(int64(pollInterval)))
		time.Sleep(pollInterval/2 + jitter)
	}

	locked, err := l.fl.TryLock()
	if err != nil {
		return nil, apierror.Wrap(apierror.KindSharedMemoryLockError, "acquiring advisory lock", err)
	}
	if !locked {
		// The resolver (or another reader) holds the lock; wait for it,
		// re-checking writer priority each time we regain it.
		if err := l.fl.Lock(); err != nil {
			return nil, apierror.Wrap(apierror.KindSharedMemoryLockError, "acquiring advisory lock", err)
		}
	}
	for l.resolverWaiting() {
		if err := l.fl.Unlock(); err != nil {
			return nil, apierror.Wrap(apierror.KindSharedMemoryLockError, "releasing advisory lock", err)
		}
		time.Sleep(pollInterval/2 + time.Duration(rand.Int64N(int64(pollInterval))))
		if err := l.fl.Lock(); err != nil {
			return nil, apierror.Wrap(apierror.KindSharedMemoryLockError, "acquiring advisory lock", err)
		}
	}

	return &Guard{fl: l.fl}, nil
}

// Rebind points the lock at a freshly-mapped lock segment, called after
// Facade.remap replaces the underlying mmap on an epoch change — the old
// waiting slice would otherwise alias unmapped memory.
func (l *Lock) Rebind(lockSegment []byte) {
	l.waiting = lockSegment
}

func (l *Lock) resolverWaiting() bool {
	if len(l.waiting) == 0 {
		return false
	}
	return l.waiting[waitingOffset] != 0
}

// Release unlocks the mutex. It is safe to call once per Guard; callers
// should defer it immediately after a successful Acquire so every exit path
// — including error paths — releases the lock. Leaking the lock would block
// the resolver indefinitely and is classified as a fatal bug (§5).
func (g *Guard) Release() error {
	if g == nil || g.fl == nil {
		return nil
	}
	if err := g.fl.Unlock(); err != nil {
		return apierror.Wrap(apierror.KindSharedMemoryLockError, "releasing advisory lock", err)
	}
	return nil
}
