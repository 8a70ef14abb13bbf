// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toolmerge/toolmerge/internal/fetch"
	"github.com/toolmerge/toolmerge/internal/issue"
)

type fetchFlags struct {
	manifest string
	toolsDir string
	depth    int
}

func newFetchCommand(app *App) *cobra.Command {
	flags := &fetchFlags{}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Clone the tool repositories listed in a manifest",
		Long: `Clone every repository listed in a TOML, JSON or YAML manifest into the
tools directory, one folder per repository.

Folders that already exist are left untouched, so fetch can be re-run
after adding entries. Private repositories authenticate with the SSH agent
or with GITHUB_TOKEN, GITLAB_TOKEN or GIT_TOKEN (a .env file works too).`,
		Example: `  toolmerge fetch --manifest repos.toml
  toolmerge fetch --manifest repos.json --tools-dir ./tools`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("tools-dir") {
				app.cfg.ToolsDir = flags.toolsDir
			}
			return runFetch(cmd, app, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.manifest, "manifest", "m", "", "manifest listing the repositories (.toml, .json, .yaml)")
	cmd.Flags().StringVar(&flags.toolsDir, "tools-dir", "", "directory the repositories are cloned into")
	cmd.Flags().IntVar(&flags.depth, "depth", 1, "clone depth (0 = full history)")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func runFetch(cmd *cobra.Command, app *App, flags *fetchFlags) error {
	m, err := fetch.LoadManifest(flags.manifest)
	if err != nil {
		renderIssue(app.stderr, issue.ManifestInvalidId)
		return &ExitError{Code: ExitGeneric, Err: err}
	}

	f := fetch.NewFetcher(app.cfg.ToolsDir,
		fetch.WithDepth(flags.depth),
		fetch.WithLogger(app.logger.WithPrefix("fetch")),
	)
	outcomes, err := f.FetchAll(cmd.Context(), m.Repos)
	if err != nil {
		return err
	}

	for _, o := range outcomes {
		fmt.Fprintln(app.stdout, outcomeLine(o))
	}

	cloned := fetch.CountByStatus(outcomes, fetch.StatusCloned)
	existing := fetch.CountByStatus(outcomes, fetch.StatusExists)
	failed := fetch.CountByStatus(outcomes, fetch.StatusFailed) + fetch.CountByStatus(outcomes, fetch.StatusInvalidURL)
	fmt.Fprintf(app.stdout, "\n%d cloned, %d already present, %d failed\n", cloned, existing, failed)

	if failed > 0 {
		renderIssue(app.stderr, issue.CloneFailedId)
		return &ExitError{Code: ExitGeneric, Err: fmt.Errorf("%d of %d repositories could not be fetched", failed, len(outcomes))}
	}
	return nil
}

func outcomeLine(o fetch.Outcome) string {
	folder := o.Folder
	if folder == "" {
		folder = o.Entry.Name
	}
	name := CmdStyle.Render(folder)
	switch o.Status {
	case fetch.StatusCloned:
		return fmt.Sprintf("%s %s cloned from %s", SuccessStyle.Render("✓"), name, o.Entry.URL)
	case fetch.StatusExists:
		return fmt.Sprintf("%s %s already present", SubtitleStyle.Render("•"), name)
	case fetch.StatusDuplicate:
		return fmt.Sprintf("%s %s duplicate of an earlier entry (%s)", WarningStyle.Render("!"), name, o.Entry.URL)
	case fetch.StatusInvalidURL:
		return fmt.Sprintf("%s %s unsupported URL %q", ErrorStyle.Render("✗"), name, o.Entry.URL)
	default:
		return fmt.Sprintf("%s %s %v", ErrorStyle.Render("✗"), name, o.Err)
	}
}
