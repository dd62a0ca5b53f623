// Package diagnostic formats and emits the sanitizer's fatal and
// non-fatal reports. Every formatter writes into a caller-supplied fixed
// array — nothing here allocates, because these routines must still
// work when the process is already in a failing state.
package diagnostic

import (
	"os"

	"github.com/pegasusheavy/libcxxsan-go/platform"
	"github.com/pegasusheavy/libcxxsan-go/sanitize/allockind"
)

// header is written before every fatal report: a newline, a red "start
// banner" escape, the banner text, a reset escape, and a trailing
// newline. Exact bytes matter: tests assert on this output.
var header = []byte("\n\x1b[1;31m=== libcplusplus sanitizer ===\x1b[0m\n")

var leakHeader = []byte("\n\x1b[1;33m=== libcplusplus sanitizer: leak report ===\x1b[0m\n")

// noColor disables the ANSI escapes above when set, following the
// common NO_COLOR convention; read once at package init so output
// formatting never depends on live environment state mid-run.
var noColor bool

func init() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		noColor = true
	}
	if noColor {
		header = []byte("\n=== libcplusplus sanitizer ===\n")
		leakHeader = []byte("\n=== libcplusplus sanitizer: leak report ===\n")
	}
}

// WriteStderr performs a best-effort write to file descriptor 2 through
// the platform's raw write primitive, ignoring short writes and errors:
// there is nothing sensible to do about a failed diagnostic write.
func WriteStderr(msg []byte) {
	_, _ = platform.Default().Write(2, msg)
}

// FormatHex populates an 18-byte buffer with "0x" followed by 16
// lowercase zero-padded hex digits and returns the populated slice.
func FormatHex(value uintptr, buf *[18]byte) []byte {
	buf[0] = '0'
	buf[1] = 'x'
	v := value
	for i := 17; i >= 2; i-- {
		digit := byte(v & 0xF)
		if digit < 10 {
			buf[i] = '0' + digit
		} else {
			buf[i] = 'a' + digit - 10
		}
		v >>= 4
	}
	return buf[:]
}

// FormatDec right-aligns the decimal representation of value inside a
// 20-byte buffer (no leading zeros; 0 renders as a single '0') and
// returns the populated tail slice.
func FormatDec(value uintptr, buf *[20]byte) []byte {
	if value == 0 {
		buf[19] = '0'
		return buf[19:]
	}
	v := value
	i := 20
	for v > 0 {
		i--
		buf[i] = '0' + byte(v%10)
		v /= 10
	}
	return buf[i:]
}

func kindName(kind allockind.Kind) []byte {
	switch kind {
	case allockind.ScalarNew:
		return []byte("operator new")
	case allockind.ArrayNew:
		return []byte("operator new[]")
	default:
		return []byte("rust alloc")
	}
}

func reportAbort() {
	WriteStderr([]byte("aborting.\n\n"))
	platform.Default().Abort()
}

// DoubleFree reports a free of an address still held in quarantine and
// aborts the process. It never returns.
func DoubleFree(addr uintptr) {
	WriteStderr(header)
	WriteStderr([]byte("ERROR: double-free\n"))
	WriteStderr([]byte("  address: "))
	var buf [18]byte
	WriteStderr(FormatHex(addr, &buf))
	WriteStderr([]byte("\n  This address was already freed and is still in quarantine.\n"))
	reportAbort()
}

// InvalidFree reports a free of an address neither tracked nor
// quarantined and aborts the process. It never returns.
func InvalidFree(addr uintptr) {
	WriteStderr(header)
	WriteStderr([]byte("ERROR: invalid free\n"))
	WriteStderr([]byte("  address: "))
	var buf [18]byte
	WriteStderr(FormatHex(addr, &buf))
	WriteStderr([]byte("\n  This address was not returned by any tracked allocation.\n"))
	reportAbort()
}

// MismatchedDealloc reports a free whose kind doesn't match the
// tracked allocation kind and aborts the process. It never returns.
func MismatchedDealloc(addr uintptr, expected, actual allockind.Kind) {
	WriteStderr(header)
	WriteStderr([]byte("ERROR: mismatched deallocation\n"))
	WriteStderr([]byte("  address:        "))
	var buf [18]byte
	WriteStderr(FormatHex(addr, &buf))
	WriteStderr([]byte("\n  allocated with: "))
	WriteStderr(kindName(expected))
	WriteStderr([]byte("\n  freed with:     "))
	WriteStderr(kindName(actual))
	WriteStderr([]byte("\n"))
	reportAbort()
}

// OverflowDetected reports redzone corruption (underflow and/or
// overflow, possibly both at once) and aborts the process. It never
// returns.
func OverflowDetected(addr, size uintptr, prefixCorrupt, suffixCorrupt bool) {
	WriteStderr(header)
	WriteStderr([]byte("ERROR: buffer overflow detected (red zone corruption)\n"))
	WriteStderr([]byte("  address: "))
	var hexBuf [18]byte
	WriteStderr(FormatHex(addr, &hexBuf))
	WriteStderr([]byte("\n  size:    "))
	var decBuf [20]byte
	WriteStderr(FormatDec(size, &decBuf))
	WriteStderr([]byte(" bytes\n"))
	if prefixCorrupt {
		WriteStderr([]byte("  -> underflow: prefix red zone corrupted\n"))
	}
	if suffixCorrupt {
		WriteStderr([]byte("  -> overflow: suffix red zone corrupted\n"))
	}
	reportAbort()
}

// LeakDetected writes a single non-fatal "still live at exit" line.
func LeakDetected(addr, size uintptr, kind allockind.Kind) {
	WriteStderr([]byte("  LEAK: "))
	var hexBuf [18]byte
	WriteStderr(FormatHex(addr, &hexBuf))
	WriteStderr([]byte("  size="))
	var decBuf [20]byte
	WriteStderr(FormatDec(size, &decBuf))
	WriteStderr([]byte("  via="))
	WriteStderr(kindName(kind))
	WriteStderr([]byte("\n"))
}

// LeakBanner writes the yellow leak-report banner.
func LeakBanner() {
	WriteStderr(leakHeader)
}

// LeakTotal writes the "total leaks: N" trailer.
func LeakTotal(count int) {
	WriteStderr([]byte("  total leaks: "))
	var decBuf [20]byte
	WriteStderr(FormatDec(uintptr(count), &decBuf))
	WriteStderr([]byte("\n\n"))
}
