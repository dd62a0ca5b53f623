package platform

import (
	"testing"
	"unsafe"
)

func TestFakeMallocFreeRoundTrip(t *testing.T) {
	f := NewFake()
	p := f.Malloc(16)
	if p == nil {
		t.Fatal("Malloc returned nil")
	}
	buf := unsafe.Slice((*byte)(p), 16)
	buf[0] = 0x42
	if buf[0] != 0x42 {
		t.Fatal("write to Malloc'd memory did not stick")
	}
	f.Free(p)
}

func TestFakeMallocZeroSizeReturnsUsablePointer(t *testing.T) {
	f := NewFake()
	p := f.Malloc(0)
	if p == nil {
		t.Fatal("Malloc(0) returned nil")
	}
}

func TestFakeAbortPanicsWithSignalAndRecordsAborted(t *testing.T) {
	f := NewFake()
	if f.WasAborted() {
		t.Fatal("WasAborted() true before Abort was ever called")
	}

	defer func() {
		r := recover()
		if _, ok := r.(AbortSignal); !ok {
			t.Fatalf("Abort panicked with %v, want AbortSignal", r)
		}
		if !f.WasAborted() {
			t.Fatal("WasAborted() false after Abort panicked")
		}
	}()
	f.Abort()
}

func TestFakeWriteAccumulatesOutput(t *testing.T) {
	f := NewFake()
	n, err := f.Write(2, []byte("hello "))
	if err != nil || n != 6 {
		t.Fatalf("Write = (%d, %v), want (6, nil)", n, err)
	}
	f.Write(1, []byte("world"))

	if got, want := string(f.Output()), "hello world"; got != want {
		t.Fatalf("Output() = %q, want %q", got, want)
	}
}

func TestSetForTestRestoresPrevious(t *testing.T) {
	prev := Default()
	fake := NewFake()
	restore := SetForTest(fake)
	if Default() != Platform(fake) {
		t.Fatal("SetForTest did not install the fake as Default")
	}
	restore()
	if Default() != prev {
		t.Fatal("restore did not put back the previous Platform")
	}
}
