// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/toolmerge/toolmerge/internal/mcpserve"
)

func newServeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Expose check and build as MCP tools over stdio",
		Long: `Run an MCP server on standard input/output offering two tools:

  inspect_tools_dir      report what a build would merge
  build_unified_server   write the merged server module

Logs go to stderr; stdout carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			app.logger.Debug("serving MCP over stdio", "tools_dir", app.cfg.ToolsDir)
			return mcpserve.ServeStdio(mcpserve.NewServer(app.newAggregator(), app.cfg, Version))
		},
	}
}
