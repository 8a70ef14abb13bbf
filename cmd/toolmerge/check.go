// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/toolmerge/toolmerge/internal/aggregate"
	"github.com/toolmerge/toolmerge/internal/discovery"
)

type checkFlags struct {
	toolsDir string
	markdown bool
	strict   bool
}

func newCheckCommand(app *App) *cobra.Command {
	flags := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show what a build would merge without writing anything",
		Long: `Classify every module under the tools directory and list the tools that
would be merged, name conflicts, rejected relative imports and skipped files.

With --strict, any conflict or skipped file makes the command fail.`,
		Example: `  toolmerge check
  toolmerge check --markdown
  toolmerge check --strict --tools-dir ./tools`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("tools-dir") {
				app.cfg.ToolsDir = flags.toolsDir
			}
			return runCheck(cmd, app, flags)
		},
	}

	cmd.Flags().StringVar(&flags.toolsDir, "tools-dir", "", "directory holding one folder per tool repository")
	cmd.Flags().BoolVar(&flags.markdown, "markdown", false, "render the report as Markdown")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "fail when conflicts or skipped files are found")

	return cmd
}

func runCheck(cmd *cobra.Command, app *App, flags *checkFlags) error {
	m, diags, err := app.newAggregator().Plan(cmd.Context(), app.cfg.ToolsDir)
	if err != nil {
		return engineError(app, err)
	}

	if flags.markdown {
		var b strings.Builder
		if err := aggregate.WriteReport(&b, m, diags); err != nil {
			return err
		}
		out, err := glamour.Render(b.String(), issueStyle())
		if err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}
		fmt.Fprint(app.stdout, out)
	} else {
		printInventory(app.stdout, m, diags)
	}

	if flags.strict && (m.Conflicts.HasConflicts() || discovery.CountBySeverity(diags, discovery.SeverityError) > 0) {
		return &ExitError{Code: ExitGeneric, Err: fmt.Errorf("check found %d diagnostics", len(diags))}
	}
	return nil
}

func printInventory(w io.Writer, m *aggregate.MergedModule, diags []discovery.Diagnostic) {
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Tools (%d)", len(m.Exposed))))
	if len(m.Exposed) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("  none"))
	}
	for _, fn := range m.Exposed {
		fmt.Fprintf(w, "  %s %s %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(fn.Name),
			VerboseStyle.Render(fmt.Sprintf("%s:%d-%d", fn.Path, fn.StartLine, fn.EndLine)))
	}

	if len(m.Conflicts.DuplicateNames) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, TitleStyle.Render("Conflicts"))
		for _, name := range m.Conflicts.DuplicateNames {
			paths := m.Conflicts.Occurrences[name]
			fmt.Fprintf(w, "  %s %s defined in %s (kept %s)\n", WarningStyle.Render("!"), CmdStyle.Render(name),
				strings.Join(paths, ", "), paths[0])
		}
	}

	if len(m.Conflicts.RelativeImports) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, TitleStyle.Render("Rejected relative imports"))
		for _, rel := range m.Conflicts.RelativeImports {
			fmt.Fprintf(w, "  %s %s:%d %s\n", WarningStyle.Render("!"), rel.Path, rel.Line, rel.Source)
		}
	}

	var skipped []discovery.Diagnostic
	for _, d := range diags {
		if d.Severity == discovery.SeverityError {
			skipped = append(skipped, d)
		}
	}
	if len(skipped) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, TitleStyle.Render("Skipped files"))
		for _, d := range skipped {
			fmt.Fprintf(w, "  %s %s\n", ErrorStyle.Render("✗"), d.String())
		}
	}
}
