// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// suggestions for a fix. Issue holds Markdown guidance for the failures a user
// is most likely to hit (no tool modules found, unwritable output, bad config),
// rendered with glamour by the CLI.
package issue
