// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/toolmerge/toolmerge/internal/aggregate"
	"github.com/toolmerge/toolmerge/internal/config"
	"github.com/toolmerge/toolmerge/internal/discovery"
	"github.com/toolmerge/toolmerge/internal/issue"
	"github.com/toolmerge/toolmerge/internal/watch"
)

type buildFlags struct {
	toolsDir   string
	output     string
	workers    int
	serverName string
	transport  string
	watch      bool
}

func newBuildCommand(app *App) *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Merge every tool module into one FastMCP server",
		Long: `Discover every Python module under the tools directory, keep the functions
decorated with @tool or @mcp.tool, and write a single FastMCP server module.

When two modules expose a function with the same name, the first one in
discovery order wins and the others are reported.`,
		Example: `  toolmerge build
  toolmerge build --tools-dir ./tools --output server.py
  toolmerge build --server-name Weather --transport sse
  toolmerge build --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.apply(cmd, app.cfg); err != nil {
				return err
			}
			if flags.watch {
				return runWatch(cmd, app)
			}
			return runBuild(cmd, app)
		},
	}

	cmd.Flags().StringVar(&flags.toolsDir, "tools-dir", "", "directory holding one folder per tool repository")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "destination of the merged module")
	cmd.Flags().IntVarP(&flags.workers, "workers", "j", 0, "concurrent classification workers (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&flags.serverName, "server-name", "", "name passed to FastMCP() in the generated module")
	cmd.Flags().StringVar(&flags.transport, "transport", "", "transport passed to mcp.run() (stdio, sse, streamable-http)")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "rebuild whenever a tool module changes")

	return cmd
}

// apply overrides configuration values with the flags the user set.
func (f *buildFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("tools-dir") {
		cfg.ToolsDir = f.toolsDir
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = f.output
	}
	if cmd.Flags().Changed("workers") {
		workers := config.WorkerCount(f.workers)
		if ok, errs := workers.IsValid(); !ok {
			return errs[0]
		}
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("server-name") {
		cfg.Server.Name = f.serverName
	}
	if cmd.Flags().Changed("transport") {
		transport := config.Transport(f.transport)
		if ok, errs := transport.IsValid(); !ok {
			return errs[0]
		}
		cfg.Server.Transport = transport
	}
	return nil
}

func runBuild(cmd *cobra.Command, app *App) error {
	cfg := app.cfg
	res, err := app.newAggregator().Aggregate(cmd.Context(), cfg.ToolsDir, cfg.Output)
	if err != nil {
		return engineError(app, err)
	}

	renderDiagnostics(app.stderr, res.Diagnostics, cfg.UI.Verbose)

	fmt.Fprintf(app.stdout, "%s Wrote %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(res.Output))
	fmt.Fprintf(app.stdout, "  %d tools, %d utilities, %d imports from %d files\n",
		len(res.Module.Exposed), len(res.Module.Utilities), len(res.Module.Imports), res.Files)
	if n := len(res.Module.Dropped); n > 0 {
		fmt.Fprintf(app.stdout, "  %s\n", WarningStyle.Render(fmt.Sprintf("%d duplicate tool definitions dropped", n)))
	}
	return nil
}

// runWatch builds once and then rebuilds on every module change until the
// command context is canceled. Failed rebuilds are reported and watching
// continues.
func runWatch(cmd *cobra.Command, app *App) error {
	cfg := app.cfg
	if err := runBuild(cmd, app); err != nil && !errors.Is(err, aggregate.ErrNoInputFiles) {
		return err
	}

	ignore := append([]string{}, cfg.Excludes...)
	if rel, ok := outputWithin(cfg.ToolsDir, cfg.Output); ok {
		ignore = append(ignore, rel)
	}

	w, err := watch.New(watch.Config{
		ToolsDir: cfg.ToolsDir,
		Ignore:   ignore,
		Logger:   app.logger.WithPrefix("watch"),
		OnChange: func(_ context.Context, changed []string) error {
			app.logger.Info("rebuilding", "changed", strings.Join(changed, ", "))
			if err := runBuild(cmd, app); err != nil && !errors.Is(err, aggregate.ErrNoInputFiles) {
				return err
			}
			return nil
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "%s %s\n", SubtitleStyle.Render("Watching"), CmdStyle.Render(cfg.ToolsDir))
	return w.Run(cmd.Context())
}

// outputWithin returns the slash-separated path of output relative to
// toolsDir when output lies inside it.
func outputWithin(toolsDir, output string) (string, bool) {
	absTools, err := filepath.Abs(toolsDir)
	if err != nil {
		return "", false
	}
	absOut, err := filepath.Abs(output)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absTools, absOut)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// engineError renders the issue page matching err and wraps it with the exit
// code the CLI reports for it.
func engineError(app *App, err error) error {
	switch {
	case errors.Is(err, aggregate.ErrNoInputFiles):
		renderIssue(app.stderr, issue.NoInputFilesId)
	case errors.Is(err, aggregate.ErrWriteFailure):
		renderIssue(app.stderr, issue.WriteFailureId)
	case errors.Is(err, os.ErrNotExist):
		renderIssue(app.stderr, issue.ToolsDirNotFoundId)
		fmt.Fprintln(app.stderr, formatErrorForDisplay(err, app.cfg.UI.Verbose))
	}
	return &ExitError{Code: exitCodeFor(err), Err: err}
}

// renderDiagnostics prints one styled line per diagnostic plus the issue page
// for each category that occurred. Warnings are listed only in verbose mode.
func renderDiagnostics(w io.Writer, diags []discovery.Diagnostic, verbose bool) {
	var parseSkipped, relativeRejected bool
	for _, d := range diags {
		switch d.Code {
		case discovery.CodeParseSkipped, discovery.CodeReadFailed:
			parseSkipped = true
		case discovery.CodeRelativeImportRejected:
			relativeRejected = true
		}

		switch {
		case d.Severity == discovery.SeverityError:
			fmt.Fprintln(w, ErrorStyle.Render("✗ ")+d.String())
		case verbose:
			fmt.Fprintln(w, WarningStyle.Render("! ")+d.String())
		}
	}

	if parseSkipped {
		renderIssue(w, issue.ParseFailuresId)
	}
	if relativeRejected && verbose {
		renderIssue(w, issue.RelativeImportsId)
	}

	if n := discovery.CountBySeverity(diags, discovery.SeverityWarning); n > 0 && !verbose {
		fmt.Fprintln(w, VerboseStyle.Render(fmt.Sprintf("%d warnings (run with --verbose or 'toolmerge check' for details)", n)))
	}
}
