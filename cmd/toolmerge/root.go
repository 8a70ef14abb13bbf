// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/toolmerge/toolmerge/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type rootFlags struct {
	verbose  bool
	cfgFile  string
	envFiles []string
}

// NewRootCommand creates the toolmerge command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "toolmerge",
		Short: "Merge many Python MCP tool repositories into one server",
		Long: TitleStyle.Render("toolmerge") + SubtitleStyle.Render(" - Merge many Python MCP tool repositories into one server") + `

toolmerge scans a directory of cloned tool repositories, keeps every
function decorated with @tool or @mcp.tool, carries along imports and
helpers, and writes a single FastMCP server module.

` + SubtitleStyle.Render("Examples:") + `
  toolmerge fetch --manifest repos.toml   Clone the listed repositories
  toolmerge check                         Show what would be merged
  toolmerge build                         Write the merged server
  toolmerge serve                         Expose the build over MCP stdio
  toolmerge config show                   Show current configuration`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFiles(flags.envFiles, cmd.Flags().Changed("env-file")); err != nil {
				return err
			}
			if err := app.loadConfig(cmd.Context(), flags.cfgFile, flags.verbose); err != nil {
				renderIssue(app.stderr, issue.ConfigLoadFailedId)
				fmt.Fprintln(app.stderr, formatErrorForDisplay(err, flags.verbose))
				return &ExitError{Code: ExitGeneric, Err: err}
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.cfgFile, "config", "", "config file (default is $HOME/.config/toolmerge/config.cue)")
	rootCmd.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", []string{".env"}, "dotenv files loaded before running")

	rootCmd.AddCommand(
		newBuildCommand(app),
		newCheckCommand(app),
		newFetchCommand(app),
		newServeCommand(app),
		newConfigCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Run executes the CLI and returns the process exit code.
func Run() int {
	app := NewApp(Dependencies{})
	err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	return exitCodeFor(err)
}

// Execute runs the CLI and exits the process. It is called by main.main().
func Execute() {
	os.Exit(Run())
}

// loadEnvFiles loads dotenv files without overriding variables already set.
// Missing files are only an error when requested explicitly.
func loadEnvFiles(files []string, explicit bool) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) && !explicit {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// issueStyle picks the glamour style for issue pages; plain terminals and
// pipes get the unstyled rendering.
func issueStyle() string {
	if os.Getenv("NO_COLOR") != "" {
		return "notty"
	}
	switch os.Getenv("TERM") {
	case "", "dumb":
		return "notty"
	default:
		return "dark"
	}
}

// renderIssue writes the issue page for id to w. Rendering failures fall back
// to the raw Markdown.
func renderIssue(w io.Writer, id issue.Id) {
	is := issue.Get(id)
	if is == nil {
		return
	}
	out, err := is.Render(issueStyle())
	if err != nil {
		out = string(is.MarkdownMsg())
	}
	fmt.Fprint(w, out)
}
