// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"testing"
)

func TestSeverity_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		severity Severity
		want     bool
		wantErr  bool
	}{
		{SeverityWarning, true, false},
		{SeverityError, true, false},
		{"", false, true},
		{"invalid", false, true},
		{"WARNING", false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.severity.IsValid()
			if isValid != tt.want {
				t.Errorf("Severity(%q).IsValid() = %v, want %v", tt.severity, isValid, tt.want)
			}
			if tt.wantErr {
				if len(errs) == 0 {
					t.Fatalf("Severity(%q).IsValid() returned no errors, want error", tt.severity)
				}
				if !errors.Is(errs[0], ErrInvalidSeverity) {
					t.Errorf("error should wrap ErrInvalidSeverity, got: %v", errs[0])
				}
			} else if len(errs) > 0 {
				t.Errorf("Severity(%q).IsValid() returned unexpected errors: %v", tt.severity, errs)
			}
		})
	}
}

func TestDiagnosticCode_IsValid(t *testing.T) {
	t.Parallel()

	validCodes := []DiagnosticCode{
		CodeWalkSkipped, CodeReadFailed, CodeParseSkipped, CodeRelativeImportRejected,
		CodeDuplicateExposedFunction, CodeEmptyDeclarationSpan,
	}

	for _, code := range validCodes {
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			if ok, errs := code.IsValid(); !ok || len(errs) != 0 {
				t.Errorf("DiagnosticCode(%q).IsValid() = %v, %v", code, ok, errs)
			}
		})
	}

	ok, errs := DiagnosticCode("bogus").IsValid()
	if ok || len(errs) == 0 || !errors.Is(errs[0], ErrInvalidDiagnosticCode) {
		t.Errorf("bogus code: IsValid() = %v, %v", ok, errs)
	}
}

func TestDiagnostic_String(t *testing.T) {
	t.Parallel()

	d := NewDiagnostic(SeverityError, CodeParseSkipped, "weather/server.py", "invalid syntax")
	if got, want := d.String(), "error[parse_skipped] weather/server.py: invalid syntax"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	noPath := NewDiagnostic(SeverityWarning, CodeWalkSkipped, "", "skipped")
	if got, want := noPath.String(), "warning[walk_skipped]: skipped"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestDiagnostic_WithCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	d := NewDiagnostic(SeverityError, CodeReadFailed, "a.py", "unreadable")
	withCause := d.WithCause(cause)
	if d.Cause != nil {
		t.Error("WithCause should not mutate the receiver")
	}
	if !errors.Is(withCause.Cause, cause) {
		t.Error("WithCause should set the cause")
	}
}

func TestCountBySeverity(t *testing.T) {
	t.Parallel()

	diags := []Diagnostic{
		{Severity: SeverityWarning},
		{Severity: SeverityError},
		{Severity: SeverityWarning},
	}
	if got := CountBySeverity(diags, SeverityWarning); got != 2 {
		t.Errorf("warnings = %d, want 2", got)
	}
	if got := CountBySeverity(diags, SeverityError); got != 1 {
		t.Errorf("errors = %d, want 1", got)
	}
}
