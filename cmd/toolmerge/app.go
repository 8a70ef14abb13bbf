// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/toolmerge/toolmerge/internal/aggregate"
	"github.com/toolmerge/toolmerge/internal/config"
	"github.com/toolmerge/toolmerge/internal/discovery"
	"github.com/toolmerge/toolmerge/internal/pysource"
)

type (
	// Dependencies holds the services injected into App.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// App is the CLI composition root. Command handlers read the loaded
	// configuration and logger from it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer

		// Populated by the root command before any subcommand runs.
		cfg       *config.Config
		cfgSource string
		logger    *log.Logger
	}
)

// NewApp creates an App, filling unset dependencies with process defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// loadConfig loads the configuration and builds the logger for this run.
func (a *App) loadConfig(ctx context.Context, configPath string, verbose bool) error {
	cfg, source, err := a.Config.LoadWithSource(ctx, config.LoadOptions{ConfigFilePath: configPath})
	if err != nil {
		return err
	}
	if verbose {
		cfg.UI.Verbose = true
	}
	a.cfg = cfg
	a.cfgSource = source
	a.logger = newLogger(a.stderr, "toolmerge", cfg.UI.Verbose)
	return nil
}

// newAggregator builds the merge engine from the loaded configuration.
func (a *App) newAggregator() *aggregate.Aggregator {
	cfg := a.cfg
	return aggregate.New(
		aggregate.WithDiscovery(discovery.New(discovery.WithExcludes(cfg.Excludes))),
		aggregate.WithClassifier(pysource.NewClassifier(
			pysource.WithMarkerName(cfg.Marker),
			pysource.WithServerMarker(cfg.ServerMarker),
		)),
		aggregate.WithWorkers(int(cfg.Workers)),
		aggregate.WithTemplate(aggregate.Template{
			ServerName: cfg.Server.Name,
			Transport:  string(cfg.Server.Transport),
		}),
		aggregate.WithLogger(a.logger.WithPrefix("aggregate")),
	)
}

func newLogger(w io.Writer, prefix string, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: prefix,
		Level:  level,
	})
}
