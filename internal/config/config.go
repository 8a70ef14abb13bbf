// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/toolmerge/toolmerge/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "toolmerge"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// LocalConfigFile is the project-level config file looked up in the
	// working directory when the user config file does not exist.
	LocalConfigFile = AppName + "." + ConfigFileExt
	// EnvPrefix prefixes environment overrides (TOOLMERGE_TOOLS_DIR, ...).
	EnvPrefix = "TOOLMERGE"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the toolmerge configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions performs option-driven config loading. It returns the
// resolved config file path, or "" when only defaults and environment apply.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("tools_dir", defaults.ToolsDir)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("server.name", defaults.Server.Name)
	v.SetDefault("server.transport", string(defaults.Server.Transport))
	v.SetDefault("workers", int(defaults.Workers))
	v.SetDefault("excludes", defaults.Excludes)
	v.SetDefault("marker", defaults.Marker)
	v.SetDefault("server_marker", defaults.ServerMarker)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := resolveConfigFile(opts)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Use 'toolmerge config show' to see the effective configuration").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Environment overrides bypass the CUE schema, so typed values are
	// checked again after merging.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check TOOLMERGE_* environment variables for typos").
			WithSuggestion("Valid transports are stdio, sse and streamable-http").
			Wrap(joinFieldErrors(errs)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// resolveConfigFile picks the config file to load: the explicit path, the
// user config file, then the local project file.
func resolveConfigFile(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		cfgDir = dir
	}

	if cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(cuePath) {
		return cuePath, nil
	}
	localPath := LocalConfigFile
	if opts.BaseDir != "" {
		localPath = filepath.Join(opts.BaseDir, LocalConfigFile)
	}
	if fileExists(localPath) {
		return localPath, nil
	}
	return "", nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Config decodes to map[string]any (not a struct) for Viper integration and
// uses Concrete(false) because every field is optional.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxConfigFileSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

func joinFieldErrors(errs []error) error {
	var msgs []string
	for _, err := range errs {
		if ice, ok := err.(*InvalidConfigError); ok {
			for _, fe := range ice.FieldErrors {
				msgs = append(msgs, fe.Error())
			}
			continue
		}
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// GenerateCUE generates a CUE representation of the configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// toolmerge configuration\n\n")
	fmt.Fprintf(&sb, "tools_dir: %q\n", cfg.ToolsDir)
	fmt.Fprintf(&sb, "output:    %q\n", cfg.Output)
	fmt.Fprintf(&sb, "workers:   %d\n", cfg.Workers)
	fmt.Fprintf(&sb, "marker:    %q\n", cfg.Marker)
	fmt.Fprintf(&sb, "server_marker: %q\n", cfg.ServerMarker)

	sb.WriteString("\nserver: {\n")
	fmt.Fprintf(&sb, "\tname:      %q\n", cfg.Server.Name)
	fmt.Fprintf(&sb, "\ttransport: %q\n", cfg.Server.Transport)
	sb.WriteString("}\n")

	if len(cfg.Excludes) > 0 {
		sb.WriteString("\nexcludes: [\n")
		for _, pattern := range cfg.Excludes {
			fmt.Fprintf(&sb, "\t%q,\n", pattern)
		}
		sb.WriteString("]\n")
	}

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %t\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

// Save writes cfg to the user config file, creating the directory if needed.
func Save(cfg *Config, configDirPath string) (string, error) {
	cfgDir := configDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		cfgDir = dir
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, nil
}
