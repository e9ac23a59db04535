// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bz2dec

import (
	"errors"

	ibzip2 "github.com/cosnicolaou/bz2dec/internal/bzip2"
)

// Error is returned by Reader.Read (and NewReader) for every
// decompression failure, generalizing the teacher's flat
// pbzip2.StructuralError into a code the CLI can map onto a process
// exit status (§6, §7).
type Error struct {
	code   ibzip2.Code
	reason string
}

func (e *Error) Error() string { return e.reason }

// ExitCode returns the process exit status this error corresponds to.
func (e *Error) ExitCode() int { return int(e.code) }

// Is reports whether target is one of this package's sentinel errors
// sharing the same code, so callers can use errors.Is(err,
// bz2dec.ErrNotBzipData) without a type assertion.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

var (
	ErrNotBzipData        = &Error{ibzip2.NotBzipData, "bz2dec: not bzip2 data"}
	ErrUnexpectedInputEOF = &Error{ibzip2.UnexpectedInputEOF, "bz2dec: unexpected end of compressed input"}
	ErrObsoleteInput      = &Error{ibzip2.ObsoleteInput, "bz2dec: randomized blocks are not supported"}
	ErrData               = &Error{ibzip2.DataErrorCode, "bz2dec: corrupt data"}
)

// wrapError translates an internal/bzip2 error into a public *Error,
// leaving any other error (e.g. one from the underlying io.Reader)
// untouched.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var ie *ibzip2.Error
	if errors.As(err, &ie) {
		return &Error{code: ie.Code, reason: "bz2dec: " + ie.Reason}
	}
	return err
}
