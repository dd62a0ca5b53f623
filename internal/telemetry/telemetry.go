// Package telemetry is a trimmed adaptation of the standard library's
// expvar package, scoped down to exactly what a freestanding sanitizer
// can use: no HTTP handler (there is no network surface here), no
// Float/String/Func variants (nothing fractional or text-valued to
// publish), just atomic counters a pipeline can bump on every
// allocate/free and a demo harness can read back.
//
// Var, Int and the atomic-counter pattern below are ported from
// expvar.Var / expvar.Int; see DESIGN.md for what was cut and why.
package telemetry

import (
	"strconv"
	"sync/atomic"
)

// Var is anything telemetry can report a value for.
type Var interface {
	String() string
}

// Int is a Var backed by an atomic 64-bit counter.
type Int struct {
	i atomic.Int64
}

// Value returns the counter's current value.
func (v *Int) Value() int64 {
	return v.i.Load()
}

func (v *Int) String() string {
	return strconv.FormatInt(v.i.Load(), 10)
}

// Add adds delta to the counter.
func (v *Int) Add(delta int64) {
	v.i.Add(delta)
}

// Set stores value into the counter, discarding whatever was there.
func (v *Int) Set(value int64) {
	v.i.Store(value)
}

// Package-level counters the sanitized pipeline updates on every
// allocate/free so a demo or debug harness can observe live occupancy
// without reaching into sanitize/tracker or sanitize/quarantine
// directly.
var (
	// TrackerLive tracks the number of currently-live allocations.
	TrackerLive Int
	// QuarantineLen tracks the current quarantine ring occupancy.
	QuarantineLen Int
)

// Snapshot is a point-in-time read of every published counter.
type Snapshot struct {
	TrackerLive   int64
	QuarantineLen int64
}

// Read takes a Snapshot of the current counters.
func Read() Snapshot {
	return Snapshot{
		TrackerLive:   TrackerLive.Value(),
		QuarantineLen: QuarantineLen.Value(),
	}
}
