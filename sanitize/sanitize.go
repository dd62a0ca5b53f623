// Package sanitize composes the spin lock, redzone, tracker, and
// quarantine components into the sanitized allocation pipeline: the
// three operations a global-allocator collaborator routes requests
// through (Alloc, Dealloc, Realloc), plus the process-exit leak
// report.
package sanitize

import (
	"unsafe"

	"github.com/pegasusheavy/libcxxsan-go/internal/telemetry"
	"github.com/pegasusheavy/libcxxsan-go/platform"
	"github.com/pegasusheavy/libcxxsan-go/sanitize/allockind"
	"github.com/pegasusheavy/libcxxsan-go/sanitize/diagnostic"
	"github.com/pegasusheavy/libcxxsan-go/sanitize/quarantine"
	"github.com/pegasusheavy/libcxxsan-go/sanitize/redzone"
	"github.com/pegasusheavy/libcxxsan-go/sanitize/tracker"
)

// Kind re-exports allockind.Kind so callers need not import the
// allockind package directly for the common case.
type Kind = allockind.Kind

const (
	Rust      = allockind.Rust
	ScalarNew = allockind.ScalarNew
	ArrayNew  = allockind.ArrayNew
)

// Layout mirrors the size+alignment pair a GlobalAlloc-style
// collaborator would carry. The sanitizer relies on the platform
// allocator to honor Align and does not separately enforce it —
// Alignment is never stored in the tracker; the raw base is always at
// userPtr-redzone.Size because redzone.Size equals the maximum
// alignment the design targets.
type Layout struct {
	Size  uintptr
	Align uintptr
}

func userPtr(base unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(base, redzone.Size)
}

func basePtr(user unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(user, -redzone.Size)
}

// Alloc performs a sanitized allocation: requests a redzone-padded
// block from the platform, fills both canaries, records the
// allocation as kind Rust, and returns the user pointer. Returns nil
// if the platform allocator itself returns nil.
func Alloc(layout Layout) unsafe.Pointer {
	return allocAs(layout, allockind.Rust)
}

func allocAs(layout Layout, kind allockind.Kind) unsafe.Pointer {
	total := redzone.TotalSize(layout.Size)

	base := platform.Default().Malloc(total)
	if base == nil {
		return nil
	}

	redzone.FillCanaries(base, layout.Size)

	user := userPtr(base)
	tracker.Insert(uintptr(user), layout.Size, kind)
	telemetry.TrackerLive.Add(1)

	return user
}

// Dealloc performs a sanitized deallocation of a block allocated by
// Alloc (kind Rust). ptr may be nil, in which case this is a no-op.
func Dealloc(ptr unsafe.Pointer, _ Layout) {
	DeallocAs(ptr, allockind.Rust)
}

// DeallocAs is the kernel deallocation routine shared between the
// plain Dealloc entry point and any future operator-delete /
// operator-delete[] exports, each supplying the kind it expects the
// block to have been allocated with.
func DeallocAs(ptr unsafe.Pointer, expectedKind allockind.Kind) {
	if ptr == nil {
		return
	}

	userAddr := uintptr(ptr)

	size, trackedKind, ok := tracker.Remove(userAddr)
	if !ok {
		if quarantine.Contains(userAddr) {
			diagnostic.DoubleFree(userAddr)
		} else {
			diagnostic.InvalidFree(userAddr)
		}
		return
	}
	telemetry.TrackerLive.Add(-1)

	if !allockind.Compatible(trackedKind, expectedKind) {
		diagnostic.MismatchedDealloc(userAddr, trackedKind, expectedKind)
		return
	}

	base := basePtr(ptr)
	redzone.CheckCanaries(base, size, userAddr)

	redzone.PoisonRegion(ptr, size)

	evictedBase, evicted := quarantine.Push(userAddr, uintptr(base), size)
	telemetry.QuarantineLen.Set(int64(quarantine.Len()))

	if evicted {
		platform.Default().Free(unsafe.Pointer(evictedBase))
	}
}

// Realloc performs a sanitized reallocation: a fresh sanitized
// allocation of newSize, a copy of min(oldSize, newSize) bytes, and a
// sanitized deallocation of the old block. Cannot delegate to the
// platform's own realloc because of the redzone geometry. Returns nil
// (leaving the old block untouched) if the new allocation fails.
func Realloc(ptr unsafe.Pointer, layout Layout, newSize uintptr) unsafe.Pointer {
	newLayout := Layout{Size: newSize, Align: layout.Align}
	newPtr := Alloc(newLayout)
	if newPtr == nil {
		return nil
	}

	copySize := layout.Size
	if newSize < copySize {
		copySize = newSize
	}
	if copySize > 0 {
		src := unsafe.Slice((*byte)(ptr), copySize)
		dst := unsafe.Slice((*byte)(newPtr), copySize)
		copy(dst, src)
	}

	Dealloc(ptr, layout)

	return newPtr
}

// ReportLeaks is the process-exit entry point: it reports every
// allocation still live, then a total count. A zero-leak run emits
// nothing to stderr.
func ReportLeaks() {
	tracker.ReportLeaks()
}
