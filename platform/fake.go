package platform

import (
	"sync"
	"unsafe"
)

// Fake is a Platform backed by ordinary Go-heap byte slices, pinned in
// a map so the garbage collector can't reclaim them out from under a
// live uintptr. It never calls the real abort, recording the would-be
// abort instead — tests need to observe "the sanitizer tried to
// abort" without killing the test binary.
//
// This mirrors how the original project's own test harness supplies
// its own global allocator and panic handler instead of CAllocator
// (see original_source/src/lib.rs): the sanitized pipeline is exactly
// the same code either way, only the platform boundary changes.
type Fake struct {
	mu      sync.Mutex
	owned   map[uintptr][]byte
	out     []byte
	Aborted bool
	// AbortCh, if set, is sent on (non-blocking) just before Abort
	// panics, so a test can synchronize on the abort point.
	AbortCh chan struct{}
}

// NewFake returns a ready-to-use Fake.
func NewFake() *Fake {
	return &Fake{owned: make(map[uintptr][]byte)}
}

func (f *Fake) Malloc(size uintptr) unsafe.Pointer {
	if size == 0 {
		size = 1
	}
	mem := make([]byte, size)
	base := unsafe.Pointer(&mem[0])

	f.mu.Lock()
	f.owned[uintptr(base)] = mem
	f.mu.Unlock()

	return base
}

func (f *Fake) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	f.mu.Lock()
	delete(f.owned, uintptr(ptr))
	f.mu.Unlock()
}

// AbortSignal is the value Fake.Abort panics with. A test that calls
// into the sanitized pipeline with a Fake platform should recover
// around the call and type-assert for AbortSignal, the same way one
// tests a function that would otherwise call log.Fatal/os.Exit.
type AbortSignal struct{}

// Abort records that an abort happened and panics with AbortSignal
// instead of terminating the process, preserving the real
// implementation's "never returns (normally)" contract without taking
// the whole test binary down with it.
func (f *Fake) Abort() {
	f.mu.Lock()
	f.Aborted = true
	f.mu.Unlock()

	if f.AbortCh != nil {
		select {
		case f.AbortCh <- struct{}{}:
		default:
		}
	}
	panic(AbortSignal{})
}

// WasAborted reports whether Abort has been called.
func (f *Fake) WasAborted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Aborted
}

func (f *Fake) Write(fd int, buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, buf...)
	return len(buf), nil
}

// Output returns everything written to any file descriptor so far.
func (f *Fake) Output() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, len(f.out))
	copy(out, f.out)
	return out
}
