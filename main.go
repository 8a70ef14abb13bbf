// SPDX-License-Identifier: MPL-2.0

// Command toolmerge merges Python MCP tool repositories into one FastMCP server.
package main

import "github.com/toolmerge/toolmerge/cmd/toolmerge"

func main() {
	cmd.Execute()
}
