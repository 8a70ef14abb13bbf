// SPDX-License-Identifier: MPL-2.0

package mcpserve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/toolmerge/toolmerge/internal/aggregate"
	"github.com/toolmerge/toolmerge/internal/config"
	"github.com/toolmerge/toolmerge/internal/discovery"
)

const (
	// ServerName is the name advertised during MCP initialization.
	ServerName = "toolmerge"

	// InspectToolName plans a merge without writing anything.
	InspectToolName = "inspect_tools_dir"
	// BuildToolName runs a full merge and writes the server module.
	BuildToolName = "build_unified_server"
)

type (
	// Engine is the subset of *aggregate.Aggregator used by the tools.
	Engine interface {
		Plan(ctx context.Context, root string) (*aggregate.MergedModule, []discovery.Diagnostic, error)
		Aggregate(ctx context.Context, root, dest string) (*aggregate.Result, error)
	}

	handlers struct {
		engine Engine
		cfg    *config.Config
	}
)

// NewServer creates an MCP server exposing inspect_tools_dir and
// build_unified_server. Arguments default to the values in cfg.
func NewServer(engine Engine, cfg *config.Config, version string) *server.MCPServer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	h := &handlers{engine: engine, cfg: cfg}

	s := server.NewMCPServer(ServerName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.AddTool(inspectTool(cfg), h.inspect)
	s.AddTool(buildTool(cfg), h.build)
	return s
}

// ServeStdio runs s over standard input/output until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func inspectTool(cfg *config.Config) mcp.Tool {
	return mcp.NewTool(InspectToolName,
		mcp.WithDescription("Classify every Python module under a tools directory and report the tools that would be merged, name conflicts and rejected relative imports. Nothing is written."),
		mcp.WithString("tools_dir",
			mcp.Description(fmt.Sprintf("Directory holding one folder per tool repository (default %q)", cfg.ToolsDir)),
		),
	)
}

func buildTool(cfg *config.Config) mcp.Tool {
	return mcp.NewTool(BuildToolName,
		mcp.WithDescription("Merge every tool module under a tools directory into one FastMCP server module and write it."),
		mcp.WithString("tools_dir",
			mcp.Description(fmt.Sprintf("Directory holding one folder per tool repository (default %q)", cfg.ToolsDir)),
		),
		mcp.WithString("output",
			mcp.Description(fmt.Sprintf("Destination of the merged module (default %q)", cfg.Output)),
		),
	)
}

func (h *handlers) inspect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root := req.GetString("tools_dir", h.cfg.ToolsDir)

	m, diags, err := h.engine.Plan(ctx, root)
	if err != nil {
		return toolError(err), nil
	}

	var b strings.Builder
	if err := aggregate.WriteReport(&b, m, diags); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *handlers) build(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root := req.GetString("tools_dir", h.cfg.ToolsDir)
	dest := req.GetString("output", h.cfg.Output)

	res, err := h.engine.Aggregate(ctx, root, dest)
	if err != nil {
		return toolError(err), nil
	}

	msg := fmt.Sprintf("wrote %s: %d tools from %d files", res.Output, len(res.Module.Exposed), res.Files)
	if n := len(res.Diagnostics); n > 0 {
		msg += fmt.Sprintf(" (%d warnings, %d errors)",
			discovery.CountBySeverity(res.Diagnostics, discovery.SeverityWarning),
			discovery.CountBySeverity(res.Diagnostics, discovery.SeverityError))
	}
	return mcp.NewToolResultText(msg), nil
}

// toolError reports engine failures as tool results, not protocol errors.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, aggregate.ErrNoInputFiles):
		return mcp.NewToolResultError("no Python modules found: " + err.Error())
	case errors.Is(err, aggregate.ErrWriteFailure):
		return mcp.NewToolResultError("could not write merged module: " + err.Error())
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
