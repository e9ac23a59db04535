package bzip2

import "errors"

// Code identifies the outcome of a decompression attempt. The numeric
// values match the exit-status table of the bzip2 wire format
// specification; a CLI wraps these directly as process exit codes.
type Code int

const (
	OK                  Code = 0
	LastBlock           Code = -1
	NotBzipData         Code = -2
	UnexpectedInputEOF  Code = -3
	UnexpectedOutputEOF Code = -4
	DataErrorCode       Code = -5
	OutOfMemory         Code = -6
	ObsoleteInput       Code = -7
)

// Error is returned by every failing operation in this package. It
// carries the exit Code alongside a human-readable reason so that
// callers can either inspect Code or treat Error as an ordinary error.
type Error struct {
	Code   Code
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

// ExitCode returns the process exit status this error corresponds to.
func (e *Error) ExitCode() int {
	return int(e.Code)
}

func newError(code Code, reason string) *Error {
	return &Error{Code: code, Reason: reason}
}

// Sentinel errors so callers can use errors.Is without depending on the
// Code field directly.
var (
	ErrNotBzipData         = newError(NotBzipData, "bzip2: not bzip2 data")
	ErrUnexpectedInputEOF  = newError(UnexpectedInputEOF, "bzip2: unexpected end of compressed input")
	ErrUnexpectedOutputEOF = newError(UnexpectedOutputEOF, "bzip2: short write to output")
	ErrObsoleteInput       = newError(ObsoleteInput, "bzip2: randomized blocks are not supported")
	ErrOutOfMemory         = newError(OutOfMemory, "bzip2: failed to allocate decode buffers")
)

// DataError reports a structural violation detected while decoding a
// block or verifying a checksum; each call site supplies its own reason.
func DataError(reason string) *Error {
	return newError(DataErrorCode, reason)
}

// Is allows errors.Is(err, bzip2.ErrNotBzipData) (and friends) to match
// any *Error sharing the same Code, not just the exact sentinel value.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// asError unwraps err to *Error if possible, used internally to avoid
// re-wrapping an error this package already produced.
func asError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
