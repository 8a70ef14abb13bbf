// SPDX-License-Identifier: MPL-2.0

// Package mcpserve exposes the aggregation engine itself as MCP tools, so an
// agent can inspect a tools directory and build the merged server on demand.
package mcpserve
