// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	// FormatJSON is a JSON array of {"tool_name", "tool_git_link"} objects.
	FormatJSON ManifestFormat = "json"
	// FormatTOML is a document of [[repos]] tables with name and url keys.
	FormatTOML ManifestFormat = "toml"
	// FormatYAML is a document with a repos list of name/url mappings.
	FormatYAML ManifestFormat = "yaml"

	// maxManifestSize bounds manifest files read from disk (1MB).
	maxManifestSize = 1 << 20
)

var (
	// ErrInvalidManifest is returned when a manifest cannot be decoded.
	ErrInvalidManifest = errors.New("invalid manifest")
	// ErrUnsupportedFormat is returned for manifest files with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported manifest format")
)

type (
	// ManifestFormat identifies the encoding of a manifest file.
	ManifestFormat string

	// RepoEntry is one repository to fetch.
	RepoEntry struct {
		// Name is the preferred folder name; derived from URL when empty.
		Name string `json:"tool_name" toml:"name" yaml:"name"`
		// URL is the clone URL (https://, ssh:// or git@host:path).
		URL string `json:"tool_git_link" toml:"url" yaml:"url"`
	}

	// Manifest lists the repositories to fetch, in order.
	Manifest struct {
		Repos []RepoEntry `json:"repos" toml:"repos" yaml:"repos"`
	}
)

// FormatFromPath infers the manifest format from the file extension.
func FormatFromPath(path string) (ManifestFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s (use .json, .toml or .yaml)", ErrUnsupportedFormat, path)
	}
}

// LoadManifest reads and decodes the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if len(data) > maxManifestSize {
		return nil, fmt.Errorf("%w: %s: file size %d bytes exceeds maximum %d bytes",
			ErrInvalidManifest, path, len(data), maxManifestSize)
	}
	m, err := ParseManifest(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes data in the given format. A JSON manifest may be a
// bare array of entries or an object with a "repos" key.
func ParseManifest(data []byte, format ManifestFormat) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &m.Repos); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
			}
			break
		}
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	for i := range m.Repos {
		m.Repos[i].Name = strings.TrimSpace(m.Repos[i].Name)
		m.Repos[i].URL = strings.TrimSpace(m.Repos[i].URL)
	}
	return &m, nil
}

// ValidURL reports whether url uses a supported clone scheme.
func ValidURL(url string) bool {
	switch {
	case strings.HasPrefix(url, "https://"):
		return len(url) > len("https://")
	case strings.HasPrefix(url, "ssh://"):
		return len(url) > len("ssh://")
	case strings.HasPrefix(url, "git@"):
		return strings.Contains(url, ":")
	default:
		return false
	}
}

// FolderName returns the tools directory folder for an entry: the sanitized
// Name when it has any usable characters, otherwise the last URL segment
// without its .git suffix.
func FolderName(e RepoEntry) string {
	if name := sanitizeFolderName(e.Name); name != "" {
		return name
	}
	return folderFromURL(e.URL)
}

// sanitizeFolderName keeps letters, digits, spaces, underscores and dashes.
func sanitizeFolderName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func folderFromURL(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if i := strings.LastIndexAny(trimmed, "/:"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return sanitizeFolderName(strings.TrimSuffix(trimmed, ".git"))
}
