// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package flatbin

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Kinds of decoding errors. Use errors.Is(err, flatbin.ErrUnsupportedVersion) to test for them.
var (
	ErrTruncated          = errors.New("buffer truncated")
	ErrInvalidIdentifier  = errors.New("invalid file identifier")
	ErrUnsupportedVersion = errors.New("unsupported schema version")
	ErrOutOfBounds        = errors.New("offset out of bounds")
	ErrMalformed          = errors.New("malformed record")
)

// DecodeError is returned (or thrown, by the Table and Vector accessors) when a buffer can't be read.
type DecodeError struct {
	// Kind is one of the Err* sentinel errors of this package.
	Kind error

	// Offset in the buffer where the problem was detected.
	Offset int

	// Details is a human-readable description.
	Details string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("flatbin: %v at offset %d: %s", e.Kind, e.Offset, e.Details)
}

// Unwrap returns the Kind, so errors.Is works with the sentinel errors.
func (e *DecodeError) Unwrap() error {
	return e.Kind
}

// throwf panics with a *DecodeError.
func throwf(kind error, offset int, format string, args ...any) {
	panic(&DecodeError{Kind: kind, Offset: offset, Details: fmt.Sprintf(format, args...)})
}

// Decode calls fn and converts any *DecodeError thrown by the Table and Vector accessors into
// a returned error. Other panics are not caught.
//
// Example:
//
//	err := flatbin.Decode(func() {
//		name = root.String(0)
//		values = flatbin.ReadScalarVector[int64](root, 1)
//	})
func Decode(fn func()) error {
	if decodeErr := exceptions.TryCatch[*DecodeError](fn); decodeErr != nil {
		return decodeErr
	}
	return nil
}
