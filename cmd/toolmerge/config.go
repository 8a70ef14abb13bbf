// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/toolmerge/toolmerge/internal/config"
)

// newConfigCommand creates the `toolmerge config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage toolmerge configuration",
		Long: `Manage toolmerge configuration.

Configuration is read, in order of precedence, from:
  - the file passed with --config
  - ~/.config/toolmerge/config.cue (Linux; platform equivalents elsewhere)
  - toolmerge.cue in the working directory

Environment variables prefixed with TOOLMERGE_ override file values,
e.g. TOOLMERGE_SERVER_TRANSPORT=sse.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			showConfig(app)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Fprint(app.stdout, config.GenerateCUE(app.cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
			fmt.Fprintf(app.stdout, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(app, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func showConfig(app *App) {
	cfg := app.cfg
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(app.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(app.stdout)

	if app.cfgSource != "" {
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("Config file"), app.cfgSource)
	} else {
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(app.stdout)

	workers := fmt.Sprintf("%d", cfg.Workers)
	if cfg.Workers == 0 {
		workers += " (GOMAXPROCS)"
	}
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("tools_dir"), valueStyle.Render(cfg.ToolsDir))
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("output"), valueStyle.Render(cfg.Output))
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("workers"), valueStyle.Render(workers))
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("marker"), valueStyle.Render("@"+cfg.Marker))
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("server_marker"), valueStyle.Render(cfg.ServerMarker))

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("excludes"))
	if len(cfg.Excludes) == 0 {
		fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, pattern := range cfg.Excludes {
		fmt.Fprintf(app.stdout, "  - %s\n", valueStyle.Render(pattern))
	}

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("server"))
	fmt.Fprintf(app.stdout, "  name: %s\n", valueStyle.Render(cfg.Server.Name))
	fmt.Fprintf(app.stdout, "  transport: %s\n", valueStyle.Render(string(cfg.Server.Transport)))

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(app.stdout, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))
}

func initConfig(app *App, force bool) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	cfgPath := filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", cfgPath)
	}

	path, err := config.Save(config.DefaultConfig(), cfgDir)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
