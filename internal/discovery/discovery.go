// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/toolmerge/toolmerge/internal/issue"
)

// RootRepo is the Repo value of modules placed directly in the tools directory.
const RootRepo = "."

// DefaultExcludes skips caches, virtual environments and vendored trees that
// never hold tool modules.
var DefaultExcludes = []string{
	"**/__pycache__/**",
	"**/.venv/**",
	"**/venv/**",
	"**/site-packages/**",
	"**/node_modules/**",
}

type (
	// DiscoveredFile is a candidate module found below the tools directory.
	DiscoveredFile struct {
		// Path is the absolute path to the module.
		Path string
		// RelPath is the slash-separated path relative to the tools directory.
		RelPath string
		// Repo is the tool repository folder the module belongs to
		// (the first RelPath segment), or RootRepo.
		Repo string
	}

	// Result bundles discovered files with the diagnostics produced while walking.
	Result struct {
		Files       []DiscoveredFile
		Diagnostics []Diagnostic
	}

	// Option configures a Discovery.
	Option func(*Discovery)

	// Discovery enumerates module files under a tools directory.
	Discovery struct {
		excludes   []string
		extensions []string
		skipHidden bool
	}
)

// WithExcludes adds doublestar glob patterns, matched against slash-separated
// paths relative to the tools directory. Defaults are kept.
func WithExcludes(patterns []string) Option {
	return func(d *Discovery) {
		d.excludes = append(d.excludes, patterns...)
	}
}

// WithExtensions replaces the accepted file extensions (default ".py").
func WithExtensions(exts []string) Option {
	return func(d *Discovery) {
		if len(exts) > 0 {
			d.extensions = slices.Clone(exts)
		}
	}
}

// WithSkipHidden controls whether dot-files and dot-directories are skipped
// (default true).
func WithSkipHidden(skip bool) Option {
	return func(d *Discovery) {
		d.skipHidden = skip
	}
}

// New creates a Discovery.
func New(opts ...Option) *Discovery {
	d := &Discovery{
		excludes:   slices.Clone(DefaultExcludes),
		extensions: []string{".py"},
		skipHidden: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover walks root and returns every candidate module in lexical walk order.
// An empty result is not an error; a missing or non-directory root is.
// Unreadable subdirectories are skipped with a walk_skipped diagnostic.
func (d *Discovery) Discover(ctx context.Context, root string) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tools directory: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("discover tool modules").
			WithResource(absRoot).
			WithSuggestion("Run 'toolmerge fetch --manifest <file>' to clone tool repositories").
			WithSuggestion("Pass an existing directory with --tools-dir").
			Wrap(err).
			BuildError()
	}
	if !info.IsDir() {
		return nil, issue.NewErrorContext().
			WithOperation("discover tool modules").
			WithResource(absRoot).
			WithSuggestion("--tools-dir must point to a directory containing tool repositories").
			Wrap(fmt.Errorf("not a directory")).
			BuildError()
	}

	result := &Result{}
	err = filepath.WalkDir(absRoot, func(path string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == absRoot {
				return walkErr
			}
			result.Diagnostics = append(result.Diagnostics,
				NewDiagnostic(SeverityWarning, CodeWalkSkipped, path, "skipped unreadable entry").WithCause(walkErr))
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == absRoot {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if d.hidden(entry.Name()) || d.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() && entry.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if d.hidden(entry.Name()) || !d.accepts(entry.Name()) || d.excluded(rel) {
			return nil
		}

		result.Files = append(result.Files, DiscoveredFile{
			Path:    path,
			RelPath: rel,
			Repo:    repoOf(rel),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk tools directory %s: %w", absRoot, err)
	}

	return result, nil
}

func (d *Discovery) hidden(name string) bool {
	return d.skipHidden && strings.HasPrefix(name, ".")
}

func (d *Discovery) accepts(name string) bool {
	return slices.Contains(d.extensions, filepath.Ext(name))
}

// excluded reports whether rel matches any exclude pattern. Invalid patterns
// never match.
func (d *Discovery) excluded(rel string) bool {
	for _, pattern := range d.excludes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// repoOf returns the first segment of a slash-separated relative path.
func repoOf(rel string) string {
	repo, _, found := strings.Cut(rel, "/")
	if !found {
		return RootRepo
	}
	return repo
}
