// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/toolmerge/toolmerge/internal/aggregate"
)

const (
	// ExitGeneric is returned for every failure without a dedicated code.
	ExitGeneric = 1
	// ExitNoInputFiles is returned when the tools directory holds no modules.
	ExitNoInputFiles = 2
	// ExitWriteFailure is returned when the merged module cannot be written.
	ExitWriteFailure = 3
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps engine errors to process exit codes.
func exitCodeFor(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, aggregate.ErrNoInputFiles):
		return ExitNoInputFiles
	case errors.Is(err, aggregate.ErrWriteFailure):
		return ExitWriteFailure
	default:
		return ExitGeneric
	}
}
