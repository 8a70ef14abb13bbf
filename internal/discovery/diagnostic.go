// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
)

const (
	// SeverityWarning indicates a recoverable condition; the run continues.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a per-file failure; the file was skipped.
	SeverityError Severity = "error"

	// CodeWalkSkipped marks a directory entry that could not be read.
	CodeWalkSkipped DiagnosticCode = "walk_skipped"
	// CodeReadFailed marks a module that could not be read.
	CodeReadFailed DiagnosticCode = "read_failed"
	// CodeParseSkipped marks a module that is not valid Python.
	CodeParseSkipped DiagnosticCode = "parse_skipped"
	// CodeRelativeImportRejected marks an import that cannot be merged.
	CodeRelativeImportRejected DiagnosticCode = "relative_import_rejected"
	// CodeDuplicateExposedFunction marks a later tool definition that lost to
	// an earlier one with the same name.
	CodeDuplicateExposedFunction DiagnosticCode = "duplicate_exposed_function"
	// CodeEmptyDeclarationSpan marks a declaration without source text.
	CodeEmptyDeclarationSpan DiagnosticCode = "empty_declaration_span"
)

var (
	// ErrInvalidSeverity is returned when a Severity value is not recognized.
	ErrInvalidSeverity = errors.New("invalid diagnostic severity")
	// ErrInvalidDiagnosticCode is returned when a DiagnosticCode value is not recognized.
	ErrInvalidDiagnosticCode = errors.New("invalid diagnostic code")
)

type (
	// Severity represents diagnostic severity.
	Severity string

	// InvalidSeverityError is returned when a Severity value is not recognized.
	// It wraps ErrInvalidSeverity for errors.Is() compatibility.
	InvalidSeverityError struct {
		Value Severity
	}

	// DiagnosticCode is a machine-readable diagnostic identifier.
	DiagnosticCode string

	// InvalidDiagnosticCodeError is returned when a DiagnosticCode value is not recognized.
	// It wraps ErrInvalidDiagnosticCode for errors.Is() compatibility.
	InvalidDiagnosticCodeError struct {
		Value DiagnosticCode
	}

	// Diagnostic is a structured, non-fatal observation returned to callers
	// (rather than written to stderr) so the CLI decides how to render it.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "parse_skipped").
		Code DiagnosticCode
		// Message is the human-readable description.
		Message string
		// Path is the file path associated with this diagnostic (optional).
		Path string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}
)

// Error implements the error interface.
func (e *InvalidSeverityError) Error() string {
	return fmt.Sprintf("invalid severity %q (valid: warning, error)", e.Value)
}

// Unwrap returns ErrInvalidSeverity for errors.Is() compatibility.
func (e *InvalidSeverityError) Unwrap() error { return ErrInvalidSeverity }

// IsValid returns whether the Severity is one of the defined levels,
// and a list of validation errors if it is not.
func (s Severity) IsValid() (bool, []error) {
	switch s {
	case SeverityWarning, SeverityError:
		return true, nil
	default:
		return false, []error{&InvalidSeverityError{Value: s}}
	}
}

// Error implements the error interface.
func (e *InvalidDiagnosticCodeError) Error() string {
	return fmt.Sprintf("invalid diagnostic code %q", e.Value)
}

// Unwrap returns ErrInvalidDiagnosticCode for errors.Is() compatibility.
func (e *InvalidDiagnosticCodeError) Unwrap() error { return ErrInvalidDiagnosticCode }

// IsValid returns whether the DiagnosticCode is one of the defined codes,
// and a list of validation errors if it is not.
func (c DiagnosticCode) IsValid() (bool, []error) {
	switch c {
	case CodeWalkSkipped, CodeReadFailed, CodeParseSkipped, CodeRelativeImportRejected,
		CodeDuplicateExposedFunction, CodeEmptyDeclarationSpan:
		return true, nil
	default:
		return false, []error{&InvalidDiagnosticCodeError{Value: c}}
	}
}

// NewDiagnostic creates a diagnostic without a cause.
func NewDiagnostic(severity Severity, code DiagnosticCode, path, message string) Diagnostic {
	return Diagnostic{Severity: severity, Code: code, Path: path, Message: message}
}

// WithCause returns a copy of d carrying cause.
func (d Diagnostic) WithCause(cause error) Diagnostic {
	d.Cause = cause
	return d
}

// String renders the diagnostic on one line: "warning[code] path: message".
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s[%s]", d.Severity, d.Code)
	if d.Path != "" {
		s += " " + d.Path
	}
	return s + ": " + d.Message
}

// CountBySeverity returns how many diagnostics have the given severity.
func CountBySeverity(diags []Diagnostic, severity Severity) int {
	n := 0
	for _, d := range diags {
		if d.Severity == severity {
			n++
		}
	}
	return n
}
