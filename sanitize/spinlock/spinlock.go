// Package spinlock provides a minimal spin-based mutual exclusion
// primitive for the sanitizer's internal tables.
//
// A blocking mutex from the host runtime is unsuitable here: the
// sanitizer may be invoked from inside an allocation made by that very
// runtime during its own startup, and the critical sections it guards
// are a handful of array writes, never worth a futex round trip.
package spinlock

import (
	"runtime"
	"sync/atomic"
)

// Lock is a test-and-test-and-set spin lock guarding a value of type T.
// The zero value is an unlocked Lock wrapping the zero value of T.
type Lock[T any] struct {
	locked atomic.Bool
	data   T
}

// New returns a Lock already initialized with data. Safe for use as a
// package-level var with a const-like initializer, since it performs no
// allocation beyond the struct itself.
func New[T any](data T) *Lock[T] {
	return &Lock[T]{data: data}
}

// Guard grants exclusive access to the protected value for the lifetime
// of the critical section. Release unlocks; a Guard must not be used
// after Release.
type Guard[T any] struct {
	lock *Lock[T]
}

// Acquire blocks (by spinning) until the lock is held and returns a
// Guard granting exclusive read/write access to the protected datum.
func (l *Lock[T]) Acquire() Guard[T] {
	for {
		if l.locked.CompareAndSwap(false, true) {
			return Guard[T]{lock: l}
		}
		// Spin on a relaxed load before retrying the more expensive CAS,
		// so contended waiters don't hammer the cache line holding state.
		for l.locked.Load() {
			runtime.Gosched()
		}
	}
}

// Value returns a pointer to the protected datum. Valid only while the
// Guard that produced it is held.
func (g Guard[T]) Value() *T {
	return &g.lock.data
}

// Release drops the lock, making it available to the next Acquire.
func (g Guard[T]) Release() {
	g.lock.locked.Store(false)
}
