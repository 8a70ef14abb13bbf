// SPDX-License-Identifier: MPL-2.0

package aggregate

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInputFiles is returned when discovery yields no candidate modules.
	// Nothing is written in that case.
	ErrNoInputFiles = errors.New("no input files found")

	// ErrWriteFailure is the sentinel wrapped by WriteFailureError.
	ErrWriteFailure = errors.New("failed to write merged module")
)

// WriteFailureError is returned when the merged module cannot be written.
// The destination is left untouched.
type WriteFailureError struct {
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *WriteFailureError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrWriteFailure.Error(), e.Path, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *WriteFailureError) Unwrap() error { return e.Cause }

// Is reports ErrWriteFailure as matching every WriteFailureError.
func (e *WriteFailureError) Is(target error) bool { return target == ErrWriteFailure }
