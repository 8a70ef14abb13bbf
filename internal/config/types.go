// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// TransportStdio serves the merged module over standard input/output.
	TransportStdio Transport = "stdio"
	// TransportSSE serves the merged module over server-sent events.
	TransportSSE Transport = "sse"
	// TransportStreamableHTTP serves the merged module over streamable HTTP.
	TransportStreamableHTTP Transport = "streamable-http"

	// MaxWorkers bounds the classification worker pool.
	MaxWorkers WorkerCount = 256
)

var (
	// ErrInvalidTransport is returned when a Transport value is not recognized.
	ErrInvalidTransport = errors.New("invalid transport")
	// ErrInvalidWorkerCount is returned when a WorkerCount is out of range.
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// Transport names the transport the generated server starts with.
	Transport string

	// InvalidTransportError is returned when a Transport value is not recognized.
	// It wraps ErrInvalidTransport for errors.Is() compatibility.
	InvalidTransportError struct {
		Value Transport
	}

	// WorkerCount is the size of the classification worker pool.
	// Zero selects GOMAXPROCS.
	WorkerCount int

	// InvalidWorkerCountError is returned when a WorkerCount is negative or
	// exceeds MaxWorkers.
	InvalidWorkerCountError struct {
		Value WorkerCount
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// ToolsDir holds one folder per tool repository.
		ToolsDir string `json:"tools_dir" mapstructure:"tools_dir"`
		// Output is the merged module destination.
		Output string `json:"output" mapstructure:"output"`
		// Server configures the generated header and footer.
		Server ServerConfig `json:"server" mapstructure:"server"`
		// Workers bounds concurrent classification.
		Workers WorkerCount `json:"workers" mapstructure:"workers"`
		// Excludes lists doublestar globs skipped during discovery.
		Excludes []string `json:"excludes" mapstructure:"excludes"`
		// Marker is the decorator name that exposes a tool.
		Marker string `json:"marker" mapstructure:"marker"`
		// ServerMarker identifies server construction bindings to drop.
		ServerMarker string `json:"server_marker" mapstructure:"server_marker"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// ServerConfig configures the generated server.
	ServerConfig struct {
		Name      string    `json:"name" mapstructure:"name"`
		Transport Transport `json:"transport" mapstructure:"transport"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging and error chains.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// Error implements the error interface.
func (e *InvalidTransportError) Error() string {
	return fmt.Sprintf("invalid transport %q (valid: stdio, sse, streamable-http)", e.Value)
}

// Unwrap returns ErrInvalidTransport for errors.Is() compatibility.
func (e *InvalidTransportError) Unwrap() error { return ErrInvalidTransport }

// IsValid returns whether the Transport is one of the defined transports,
// and a list of validation errors if it is not.
func (t Transport) IsValid() (bool, []error) {
	switch t {
	case TransportStdio, TransportSSE, TransportStreamableHTTP:
		return true, nil
	default:
		return false, []error{&InvalidTransportError{Value: t}}
	}
}

// String returns the string representation of the Transport.
func (t Transport) String() string { return string(t) }

// Error implements the error interface.
func (e *InvalidWorkerCountError) Error() string {
	return fmt.Sprintf("invalid worker count %d (valid: 0-%d)", e.Value, MaxWorkers)
}

// Unwrap returns ErrInvalidWorkerCount for errors.Is() compatibility.
func (e *InvalidWorkerCountError) Unwrap() error { return ErrInvalidWorkerCount }

// IsValid returns whether the WorkerCount is within range,
// and a list of validation errors if it is not.
func (w WorkerCount) IsValid() (bool, []error) {
	if w < 0 || w > MaxWorkers {
		return false, []error{&InvalidWorkerCountError{Value: w}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// IsValid returns whether the Config has valid fields.
// It collects errors from the typed fields and the required strings.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.ToolsDir) == "" {
		errs = append(errs, errors.New("tools_dir must not be empty"))
	}
	if strings.TrimSpace(c.Output) == "" {
		errs = append(errs, errors.New("output must not be empty"))
	}
	if strings.TrimSpace(c.Server.Name) == "" {
		errs = append(errs, errors.New("server.name must not be empty"))
	}
	if valid, fieldErrs := c.Server.Transport.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Workers.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if strings.TrimSpace(c.Marker) == "" {
		errs = append(errs, errors.New("marker must not be empty"))
	}
	if strings.TrimSpace(c.ServerMarker) == "" {
		errs = append(errs, errors.New("server_marker must not be empty"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ToolsDir: "toolmerge_workspace/tools",
		Output:   "toolmerge_workspace/mcp_unified_server.py",
		Server: ServerConfig{
			Name:      "UtilityTools",
			Transport: TransportStreamableHTTP,
		},
		Workers:      0,
		Excludes:     []string{},
		Marker:       "tool",
		ServerMarker: "FastMCP",
		UI: UIConfig{
			Verbose: false,
		},
	}
}
