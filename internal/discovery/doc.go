// SPDX-License-Identifier: MPL-2.0

// Package discovery locates the Python modules of tool repositories and defines
// the diagnostics shared by the aggregation pipeline.
//
// A tools directory holds one folder per tool repository. Discovery walks it
// recursively in lexical order, so repeated runs over the same tree yield the
// same file sequence; the aggregator relies on that order for first-occurrence-wins
// conflict resolution.
//
// File organization:
//   - discovery.go: Discovery, options and the directory walk
//   - diagnostic.go: Severity, DiagnosticCode and Diagnostic
package discovery
