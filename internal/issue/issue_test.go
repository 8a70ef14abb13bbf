// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestValues_CoversEveryId(t *testing.T) {
	t.Parallel()

	values := Values()
	if len(values) != int(CloneFailedId) {
		t.Fatalf("len(Values()) = %d, want %d", len(values), CloneFailedId)
	}
	for i, is := range values {
		if is.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, is.Id(), i+1)
		}
		if strings.TrimSpace(string(is.MarkdownMsg())) == "" {
			t.Errorf("issue %d has an empty message", is.Id())
		}
	}
}

func TestGet_Unknown(t *testing.T) {
	t.Parallel()

	if Get(Id(999)) != nil {
		t.Error("Get(999) should return nil")
	}
}

func TestIssue_Render(t *testing.T) {
	t.Parallel()

	out, err := Get(NoInputFilesId).Render("notty")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "No Python modules found") {
		t.Errorf("rendered output missing heading:\n%s", out)
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	cause := errors.New("permission denied")
	err := NewErrorContext().
		WithOperation("write merged module").
		WithResource("/out/server.py").
		WithSuggestion("Check permissions").
		Wrap(cause).
		Build()

	if got, want := err.Error(), "failed to write merged module: /out/server.py: permission denied"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("ActionableError should unwrap to its cause")
	}

	formatted := err.Format(false)
	if !strings.Contains(formatted, "• Check permissions") {
		t.Errorf("Format(false) missing suggestion:\n%s", formatted)
	}
	if strings.Contains(formatted, "Error chain") {
		t.Error("Format(false) should not include the error chain")
	}
	if !strings.Contains(err.Format(true), "Error chain:\n  1. permission denied") {
		t.Errorf("Format(true) missing chain:\n%s", err.Format(true))
	}
}

func TestErrorContext_BuildWithoutOperation(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() = %v, want nil", err)
	}
}

func TestWrapWithContext(t *testing.T) {
	t.Parallel()

	if WrapWithContext(nil, "op", "res") != nil {
		t.Error("WrapWithContext(nil) should return nil")
	}
	err := WrapWithContext(errors.New("boom"), "clone repository", "weather")
	if got, want := err.Error(), "failed to clone repository: weather: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
