// SPDX-License-Identifier: MPL-2.0

package pysource

import (
	"errors"
	"fmt"
)

const (
	// UtilityFunction is a top-level function without a tool marker.
	UtilityFunction UtilityKind = "function"
	// UtilityClass is a top-level class definition.
	UtilityClass UtilityKind = "class"
	// UtilityAssignment is a module-level variable binding.
	UtilityAssignment UtilityKind = "assignment"

	// FutureModule is the module name of compiler directive imports.
	FutureModule = "__future__"
)

var (
	// ErrParse is the sentinel error wrapped by ParseError.
	ErrParse = errors.New("invalid python source")
	// ErrFileTooLarge is returned (wrapped in a ParseError) for oversize modules.
	ErrFileTooLarge = errors.New("file exceeds maximum size")
	// ErrInvalidEncoding is returned (wrapped in a ParseError) for non UTF-8 modules.
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
	// ErrLegacySyntax is returned (wrapped in a ParseError) for Python 2 statements.
	ErrLegacySyntax = errors.New("python 2 statement")
)

type (
	// UtilityKind identifies which kind of declaration a UtilityDeclaration holds.
	UtilityKind string

	// ImportDeclaration is a normalized absolute import.
	// Name is empty for whole-module imports ("import os"). Two declarations are
	// equal iff all three fields match, so the struct is usable as a map key.
	ImportDeclaration struct {
		Module string
		Name   string
		Alias  string
	}

	// RelativeImport is an import addressed relative to the importing module.
	// It cannot be carried into a merged module and is reported instead.
	RelativeImport struct {
		// Source is the verbatim import statement.
		Source string
		// Path is the file the import was found in.
		Path string
		// Line is the 1-based line of the statement.
		Line int
	}

	// ExposedFunction is a function carrying a tool marker.
	ExposedFunction struct {
		// Name is the function name; it is the conflict key across a run.
		Name string
		// Markers holds the decorator lines directly preceding the signature,
		// top to bottom.
		Markers []string
		// Source is the full text: decorators, signature and body.
		Source string
		// Path is the origin file.
		Path string
		// StartLine and EndLine are 1-based and inclusive.
		StartLine int
		EndLine   int
	}

	// UtilityDeclaration is any other top-level function, class or assignment.
	UtilityDeclaration struct {
		Kind UtilityKind
		// Name is the declared name; empty for assignments with complex targets.
		Name      string
		Source    string
		Path      string
		StartLine int
		EndLine   int
	}

	// Warning is a non-fatal observation made while classifying a file.
	Warning struct {
		Line    int
		Message string
	}

	// FileResult is the classification of one module.
	FileResult struct {
		Path      string
		Imports   []ImportDeclaration
		Exposed   []ExposedFunction
		Utilities []UtilityDeclaration
		Rejected  []RelativeImport
		Warnings  []Warning
	}

	// ParseError is returned when a module is not valid Python source.
	// It wraps ErrParse for errors.Is() compatibility.
	ParseError struct {
		Path string
		// Line and Column are 1-based; zero when the failure has no position.
		Line   int
		Column int
		Cause  error
	}
)

// Line renders the declaration as a single Python import statement.
func (d ImportDeclaration) Line() string {
	if d.Name == "" {
		if d.Alias != "" {
			return "import " + d.Module + " as " + d.Alias
		}
		return "import " + d.Module
	}
	line := "from " + d.Module + " import " + d.Name
	if d.Alias != "" {
		line += " as " + d.Alias
	}
	return line
}

// IsFuture reports whether the declaration is a __future__ directive.
func (d ImportDeclaration) IsFuture() bool {
	return d.Module == FutureModule
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := "parse " + e.Path
	if e.Line > 0 {
		msg += fmt.Sprintf(":%d:%d", e.Line, e.Column)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg + ": " + ErrParse.Error()
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error { return e.Cause }

// Is reports ErrParse as matching every ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrParse }
