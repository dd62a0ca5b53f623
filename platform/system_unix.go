//go:build unix

package platform

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

const pageSize = 4096

// system is the production Platform: a page-granular mmap/munmap
// allocator, SIGABRT-based abort, and a raw write(2). golang.org/x/sys
// is the ecosystem's direct-syscall library — the same role the
// original's hand-written `asm!("syscall")` wrappers play in
// platform/syscall.rs — so every method here goes straight to the
// kernel: one system call each, except Abort, which issues getpid and
// kill.
type system struct {
	mu   sync.Mutex
	lens map[uintptr]uintptr
}

func newSystem() Platform {
	return &system{lens: make(map[uintptr]uintptr)}
}

func roundUpPage(size uintptr) uintptr {
	if size == 0 {
		size = 1
	}
	return (size + pageSize - 1) &^ (pageSize - 1)
}

func (s *system) Malloc(size uintptr) unsafe.Pointer {
	n := roundUpPage(size)
	mem, err := unix.Mmap(-1, 0, int(n), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil
	}
	base := unsafe.Pointer(&mem[0])
	addr := uintptr(base)

	s.mu.Lock()
	s.lens[addr] = n
	s.mu.Unlock()

	return base
}

func (s *system) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	addr := uintptr(ptr)

	s.mu.Lock()
	n, ok := s.lens[addr]
	if ok {
		delete(s.lens, addr)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	mem := unsafe.Slice((*byte)(ptr), n)
	_ = unix.Munmap(mem)
}

// Abort sends the calling process SIGABRT, mirroring the C runtime's
// abort(). Signal delivery is asynchronous, so this blocks afterward —
// the contract is "never returns", not "returns immediately after
// signaling".
func (s *system) Abort() {
	_ = unix.Kill(unix.Getpid(), unix.SIGABRT)
	select {}
}

func (s *system) Write(fd int, buf []byte) (int, error) {
	return unix.Write(fd, buf)
}
