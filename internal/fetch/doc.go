// SPDX-License-Identifier: MPL-2.0

// Package fetch clones tool repositories listed in a manifest into the tools
// directory, one folder per repository.
//
// Manifests are JSON (a list of {"tool_name", "tool_git_link"} objects, the
// format produced by tool search), TOML ([[repos]] tables) or YAML (a repos
// list). Existing folders are never touched, so fetching is re-runnable.
package fetch
