// SPDX-License-Identifier: MPL-2.0

// Package pysource classifies the top-level declarations of a Python tool module.
//
// Each module is parsed with tree-sitter and every top-level node is bucketed into
// one of:
//   - ImportDeclaration: absolute imports, one record per imported name
//   - RelativeImport: imports addressed relative to the module (rejected, kept verbatim)
//   - ExposedFunction: functions carrying a tool marker decorator
//   - UtilityDeclaration: other functions, classes and module-level assignments
//
// Everything else at module level (expression statements, conditionals, loops) is
// ignored because it does not serialize meaningfully outside its original module.
//
// File organization:
//   - types.go: record types and errors
//   - nodekind.go: closed dispatch over tree-sitter node types
//   - marker.go: tool marker detection on decorators
//   - classifier.go: Classifier, options and the per-file classification pass
//   - imports.go: import statement normalization
//   - span.go: line-based source span extraction
package pysource
