// Package redzone implements the canary/poison machinery that detects
// buffer overflow, underflow, and use-after-free at the byte level.
//
// Redzones are inline (no shadow-memory byte map): a fixed-size band of
// canary bytes sits immediately before and after every user region.
package redzone

import (
	"unsafe"

	"github.com/pegasusheavy/libcxxsan-go/sanitize/diagnostic"
)

const (
	// Size is the width, in bytes, of each redzone. 16 matches the
	// maximum fundamental alignment on common 64-bit platforms, so the
	// user pointer keeps the same alignment as the raw base.
	Size = 16

	// Canary is the byte pattern written into both redzones.
	Canary = 0xAB

	// Poison is the byte pattern written over freed user data.
	Poison = 0xFE
)

// TotalSize returns the number of bytes to request from the platform
// allocator to hold a user region of userSize bytes plus both redzones.
func TotalSize(userSize uintptr) uintptr {
	return Size + userSize + Size
}

func byteAt(base unsafe.Pointer, off uintptr) *byte {
	return (*byte)(unsafe.Add(base, off))
}

// FillCanaries writes the prefix and suffix redzones with Canary bytes.
// base must point to at least TotalSize(userSize) writable bytes.
func FillCanaries(base unsafe.Pointer, userSize uintptr) {
	for i := uintptr(0); i < Size; i++ {
		*byteAt(base, i) = Canary
	}
	suffix := unsafe.Add(base, Size+userSize)
	for i := uintptr(0); i < Size; i++ {
		*byteAt(suffix, i) = Canary
	}
}

// CheckCanaries scans both redzones. If either has been corrupted, it
// invokes diagnostic.OverflowDetected, which aborts the process and
// never returns.
func CheckCanaries(base unsafe.Pointer, userSize, userAddr uintptr) {
	prefixCorrupt := false
	for i := uintptr(0); i < Size; i++ {
		if *byteAt(base, i) != Canary {
			prefixCorrupt = true
			break
		}
	}

	suffixCorrupt := false
	suffix := unsafe.Add(base, Size+userSize)
	for i := uintptr(0); i < Size; i++ {
		if *byteAt(suffix, i) != Canary {
			suffixCorrupt = true
			break
		}
	}

	if prefixCorrupt || suffixCorrupt {
		diagnostic.OverflowDetected(userAddr, userSize, prefixCorrupt, suffixCorrupt)
	}
}

// PoisonRegion overwrites the user region with the Poison byte so a
// subsequent read after free stands a good chance of being caught.
func PoisonRegion(userPtr unsafe.Pointer, userSize uintptr) {
	for i := uintptr(0); i < userSize; i++ {
		*byteAt(userPtr, i) = Poison
	}
}
