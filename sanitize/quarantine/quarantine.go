// Package quarantine implements the bounded ring buffer of recently
// freed blocks: holding a block back from the platform allocator for a
// while turns most double-frees and short-distance use-after-frees
// into a reliable diagnostic instead of silent corruption.
//
// The API shape (Len, a bounded ring advancing a write position) is
// grounded in the standard library's container/ring package, but the
// implementation can't reuse it: container/ring allocates one node per
// element on the Go heap, which is exactly what this ring must not do
// (spec.md §9: "no heap allocation through the sanitized path"). This
// is a fixed array instead, addressed by index.
package quarantine

import "github.com/pegasusheavy/libcxxsan-go/sanitize/spinlock"

// Capacity is the fixed number of entries the ring holds.
const Capacity = 256

type entry struct {
	userAddr uintptr
	baseAddr uintptr
	userSize uintptr
}

type ring struct {
	slots [Capacity]entry
	pos   int
	len   int
}

func (r *ring) push(userAddr, baseAddr, userSize uintptr) (evictedBase uintptr, evicted bool) {
	if r.len == Capacity {
		evictedBase, evicted = r.slots[r.pos].baseAddr, true
	} else {
		r.len++
	}

	r.slots[r.pos] = entry{userAddr: userAddr, baseAddr: baseAddr, userSize: userSize}
	r.pos = (r.pos + 1) % Capacity

	return evictedBase, evicted
}

func (r *ring) contains(userAddr uintptr) bool {
	for i := 0; i < r.len; i++ {
		if r.slots[i].userAddr == userAddr {
			return true
		}
	}
	return false
}

// q is the process-wide quarantine singleton. Its zero value is
// already a valid empty ring.
var q spinlock.Lock[ring]

// Push quarantines a freed block. If the ring was already full, the
// oldest entry is evicted and its base address returned so the caller
// can hand it back to the real platform allocator.
func Push(userAddr, baseAddr, userSize uintptr) (evictedBase uintptr, evicted bool) {
	g := q.Acquire()
	evictedBase, evicted = g.Value().push(userAddr, baseAddr, userSize)
	g.Release()
	return evictedBase, evicted
}

// Contains reports whether userAddr is currently held in quarantine.
func Contains(userAddr uintptr) bool {
	g := q.Acquire()
	ok := g.Value().contains(userAddr)
	g.Release()
	return ok
}

// Len returns the number of entries currently in quarantine.
func Len() int {
	g := q.Acquire()
	n := g.Value().len
	g.Release()
	return n
}
