// SPDX-License-Identifier: MPL-2.0

// Package aggregate merges the classified declarations of many tool modules
// into one runnable server module.
//
// The pipeline is single-pass: discover candidate files, classify each one,
// compute name conflicts, filter duplicate tools (first occurrence wins),
// serialize the five output sections and write the result atomically.
// Every invocation reprocesses the full module set.
package aggregate
