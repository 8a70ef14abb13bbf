// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/toolmerge/config.cue (or the XDG/platform
// equivalent), falling back to toolmerge.cue in the working directory. Values are
// validated against the embedded #Config schema (config_schema.cue) and can be
// overridden with TOOLMERGE_* environment variables, e.g. TOOLMERGE_SERVER_TRANSPORT=sse.
package config
