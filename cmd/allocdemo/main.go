// Command allocdemo exercises the sanitized allocation pipeline
// end-to-end: a clean allocate/free round-trip, a reallocate that
// preserves content, and (when asked) a deliberate corruption that
// demonstrates the fatal-report-then-abort path. It plays the role the
// original project's CAllocator + panic handler play when wired into a
// real program, without Go having an equivalent "replace the global
// allocator" hook to reproduce literally.
package main

import (
	"flag"
	"os"
	"unsafe"

	"github.com/pegasusheavy/libcxxsan-go/internal/diaglog"
	"github.com/pegasusheavy/libcxxsan-go/internal/telemetry"
	"github.com/pegasusheavy/libcxxsan-go/sanitize"
)

func main() {
	corrupt := flag.Bool("corrupt", false, "deliberately overflow a buffer to demonstrate the fatal report")
	leak := flag.Bool("leak", false, "deliberately leave allocations live to demonstrate the leak report")
	flag.Parse()

	diaglog.Default.Info("starting sanitized allocation demo")

	p := sanitize.Alloc(sanitize.Layout{Size: 64, Align: 8})
	if p == nil {
		diaglog.Default.Info("allocation failed")
		os.Exit(1)
	}
	buf := unsafe.Slice((*byte)(p), 64)
	for i := range buf {
		buf[i] = 0x11
	}
	diaglog.Default.Infof("allocated 64 bytes, tracker live=%d", telemetry.Read().TrackerLive)

	if *corrupt {
		diaglog.Default.Info("writing one byte past the buffer — the next free will abort")
		overflowing := unsafe.Slice((*byte)(p), 65)
		overflowing[64] = 0x00
	}

	q := sanitize.Realloc(p, sanitize.Layout{Size: 64, Align: 8}, 128)
	if q == nil {
		diaglog.Default.Info("reallocation failed")
		os.Exit(1)
	}
	grown := unsafe.Slice((*byte)(q), 128)
	diaglog.Default.Infof("reallocated to 128 bytes, first byte preserved = %#x", grown[0])

	if *leak {
		diaglog.Default.Info("intentionally leaking the reallocated block")
	} else {
		sanitize.Dealloc(q, sanitize.Layout{Size: 128, Align: 8})
		diaglog.Default.Info("freed cleanly")
	}

	diaglog.Default.Info("reporting leaks")
	sanitize.ReportLeaks()
}
