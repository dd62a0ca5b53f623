// Package tracker implements the bounded live-allocation table: an
// open-addressed hash map from a user address to its (size, kind),
// keyed by address, with a fixed compile-time capacity.
//
// The table is a process-wide singleton, exactly like the original's
// `static TRACKER: SpinLock<TrackerInner>` — there is exactly one
// tracker per process, reachable only through the package functions
// below, never through a constructed value a caller could copy.
package tracker

import (
	"github.com/pegasusheavy/libcxxsan-go/sanitize/allockind"
	"github.com/pegasusheavy/libcxxsan-go/sanitize/diagnostic"
	"github.com/pegasusheavy/libcxxsan-go/sanitize/spinlock"
)

// Capacity is the fixed number of slots in the table. There is no
// dynamic resizing: a full table silently drops new insertions (see
// Insert).
const Capacity = 16384

type slotState uint8

const (
	empty slotState = iota
	occupied
	tombstone
)

type entry struct {
	addr  uintptr
	size  uintptr
	state slotState
	kind  allockind.Kind
}

// table is the protected payload. Its zero value — every slot Empty,
// count 0 — is already a valid, fully-initialized tracker: there is no
// construction step that could itself allocate.
type table struct {
	entries [Capacity]entry
	count   int
}

// hash applies Fibonacci multiplicative hashing to addr: addresses are
// already machine words but heavily biased in their low bits
// (alignment) and high bits (address-space layout), so multiplying by
// the odd constant nearest 2^64/φ and keeping the top 14 bits mixes
// both extremes into the retained window.
func hash(addr uintptr) uintptr {
	const fib64 = 0x9E3779B97F4A7C15
	return (addr * fib64) >> (64 - 14)
}

func (t *table) insert(addr, size uintptr, kind allockind.Kind) {
	idx := hash(addr) % Capacity
	for i := 0; i < Capacity; i++ {
		switch t.entries[idx].state {
		case empty, tombstone:
			t.entries[idx] = entry{addr: addr, size: size, state: occupied, kind: kind}
			t.count++
			return
		default:
			idx = (idx + 1) % Capacity
		}
	}
	// Table full: drop the record silently. The sanitizer degrades
	// gracefully — a later free of addr reports as invalid_free rather
	// than corrupting the table or panicking.
}

func (t *table) remove(addr uintptr) (size uintptr, kind allockind.Kind, ok bool) {
	idx := hash(addr) % Capacity
	for i := 0; i < Capacity; i++ {
		e := &t.entries[idx]
		switch {
		case e.state == occupied && e.addr == addr:
			size, kind = e.size, e.kind
			e.state = tombstone
			t.count--
			return size, kind, true
		case e.state == empty:
			return 0, 0, false
		default:
			idx = (idx + 1) % Capacity
		}
	}
	return 0, 0, false
}

func (t *table) lookup(addr uintptr) (size uintptr, kind allockind.Kind, ok bool) {
	idx := hash(addr) % Capacity
	for i := 0; i < Capacity; i++ {
		e := &t.entries[idx]
		switch {
		case e.state == occupied && e.addr == addr:
			return e.size, e.kind, true
		case e.state == empty:
			return 0, 0, false
		default:
			idx = (idx + 1) % Capacity
		}
	}
	return 0, 0, false
}

func (t *table) forEachLive(fn func(addr, size uintptr, kind allockind.Kind)) {
	for i := range t.entries {
		if t.entries[i].state == occupied {
			fn(t.entries[i].addr, t.entries[i].size, t.entries[i].kind)
		}
	}
}

// tbl is the process-wide tracker. Its zero value is immediately
// valid, so this needs no init() and allocates nothing at startup:
// the 16384-entry array lives in the program's data segment.
var tbl spinlock.Lock[table]

// Insert records a new live allocation. If the table is saturated (all
// Capacity slots occupied along the probe sequence), the insertion is
// dropped silently; see Capacity's doc comment.
func Insert(addr, size uintptr, kind allockind.Kind) {
	g := tbl.Acquire()
	g.Value().insert(addr, size, kind)
	g.Release()
}

// Remove removes and returns the tracked (size, kind) for addr, or
// ok=false if addr was never tracked (or was already removed).
func Remove(addr uintptr) (size uintptr, kind allockind.Kind, ok bool) {
	g := tbl.Acquire()
	size, kind, ok = g.Value().remove(addr)
	g.Release()
	return size, kind, ok
}

// Lookup is Remove without mutation.
func Lookup(addr uintptr) (size uintptr, kind allockind.Kind, ok bool) {
	g := tbl.Acquire()
	size, kind, ok = g.Value().lookup(addr)
	g.Release()
	return size, kind, ok
}

// Count returns the number of currently Occupied slots.
func Count() int {
	g := tbl.Acquire()
	n := g.Value().count
	g.Release()
	return n
}

// ForEachLive invokes fn for every currently live allocation, in
// unspecified order, while holding the tracker's lock.
func ForEachLive(fn func(addr, size uintptr, kind allockind.Kind)) {
	g := tbl.Acquire()
	g.Value().forEachLive(fn)
	g.Release()
}

// ReportLeaks writes the tracker's own leak report: a yellow banner,
// one LEAK line per still-live allocation, and a total-count trailer.
// It writes nothing when nothing is live — a clean run produces no
// stderr output at all. Matches the original's tracker::report_leaks,
// which calls directly into its sibling diagnostic module.
func ReportLeaks() {
	g := tbl.Acquire()
	count := g.Value().count
	if count == 0 {
		g.Release()
		return
	}
	diagnostic.LeakBanner()
	g.Value().forEachLive(diagnostic.LeakDetected)
	g.Release()
	diagnostic.LeakTotal(count)
}
