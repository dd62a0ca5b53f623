// Package epoch provides a monotonic generation counter reserved for
// future iterator-invalidation checks.
//
// No caller in this module reads it. The original project carries the
// same counter with the same caveat — its comments describe an
// intended "iterator invalidation" use that the current pipeline never
// realizes. We expose the primitive and do not invent a call site for
// it, per the spec's explicit instruction not to speculate here.
package epoch

import "sync/atomic"

var counter atomic.Uint64

// Get reads the current generation.
func Get() uint64 {
	return counter.Load()
}

// Bump increments the generation and returns the value prior to the
// increment.
func Bump() uint64 {
	return counter.Add(1) - 1
}
