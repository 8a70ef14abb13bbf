// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for toolmerge.
//
// Command handlers receive an *App and delegate to the engine packages;
// they own rendering (lipgloss styles, glamour issue pages) and the mapping
// from engine errors to process exit codes.
package cmd
