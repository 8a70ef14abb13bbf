// SPDX-License-Identifier: MPL-2.0

// Package watch rebuilds the merged server when tool modules change.
//
// A Watcher monitors the tools directory recursively and invokes a callback
// once per quiet period with the set of changed module paths. Events within
// the debounce window are coalesced, and a callback that is still running when
// the next window closes is retried rather than run concurrently.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/toolmerge/toolmerge/internal/discovery"
)

// DefaultDebounce is the quiet period before a rebuild. Editors that write a
// temp file and rename it produce several events per save.
const DefaultDebounce = 300 * time.Millisecond

// ErrAlreadyRunning is returned when Run is called twice on one Watcher.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

// defaultIgnores never trigger a rebuild: VCS metadata, editor swap files and
// the temp files of an atomic write.
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
	"**/.*.tmp-*",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// ToolsDir is the directory watched recursively.
		ToolsDir string

		// Patterns select which files trigger a rebuild (default "**/*.py").
		Patterns []string

		// Ignore are extra doublestar patterns, relative to ToolsDir, that
		// never trigger a rebuild. Discovery excludes and the built-in ignores
		// always apply.
		Ignore []string

		// Debounce is the quiet period; zero selects DefaultDebounce.
		Debounce time.Duration

		// OnChange receives the sorted, slash-separated paths that changed.
		OnChange func(ctx context.Context, changed []string) error

		Logger *log.Logger
	}

	// Watcher monitors a tools directory. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		patterns []string
		ignores  []string
		debounce time.Duration
		root     string
		logger   *log.Logger
		started  atomic.Bool
	}
)

// New creates a Watcher and registers every non-ignored directory below
// cfg.ToolsDir.
func New(cfg Config) (*Watcher, error) {
	root, err := filepath.Abs(cfg.ToolsDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve tools directory: %w", err)
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", root)
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{"**/*.py"}
	}
	if err := validatePatterns(patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	ignores := slices.Concat(defaultIgnores, discovery.DefaultExcludes, cfg.Ignore)

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "watch"})
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		patterns: patterns,
		ignores:  ignores,
		debounce: debounce,
		root:     root,
		logger:   logger,
	}
	if err := w.addDirectories(); err != nil {
		_ = fsw.Close() // Best-effort cleanup
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is done. It returns nil on cancellation and
// an error when the underlying watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("rebuild still running, retrying after debounce")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange == nil {
			return
		}
		if err := w.cfg.OnChange(ctx, changed); err != nil {
			w.logger.Error("rebuild failed", "err", err)
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close watcher", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed unexpectedly")
			}
			var changed []string
			if evt.Has(fsnotify.Create) {
				changed = w.maybeAddDir(evt.Name)
			}
			if rel, ok := w.relevant(evt.Name); ok {
				changed = append(changed, rel)
			}
			if len(changed) == 0 {
				continue
			}
			w.logger.Debug("modules changed", "paths", changed, "op", evt.Op.String())

			mu.Lock()
			for _, rel := range changed {
				pending[rel] = struct{}{}
			}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed unexpectedly")
			}
			if fatal := fatalError(err); fatal != nil {
				return fatal
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// relevant returns the slash-separated path of name relative to the tools
// directory and whether it should trigger a rebuild.
func (w *Watcher) relevant(name string) (string, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if matchAny(w.ignores, rel) {
		return "", false
	}
	return rel, matchAny(w.patterns, rel)
}

func (w *Watcher) addDirectories() error {
	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("not watching inaccessible path", "path", path, "err", walkErr)
			return nil //nolint:nilerr // Inaccessible directories are skipped
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignoredDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk tools directory: %w", err)
	}
	return nil
}

// maybeAddDir extends the watch to a directory created after startup, such
// as a freshly cloned repository, and to every directory below it. Modules
// already written into the tree produced no events, so their relative paths
// are returned as changes.
func (w *Watcher) maybeAddDir(path string) []string {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.ignoredDir(path) {
		return nil
	}
	var found []string
	_ = filepath.WalkDir(path, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Inaccessible entries are skipped
		}
		if !d.IsDir() {
			if rel, ok := w.relevant(p); ok {
				found = append(found, rel)
			}
			return nil
		}
		if w.ignoredDir(p) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			w.logger.Warn("cannot watch new directory", "path", p, "err", err)
		}
		return nil
	})
	return found
}

// fatalError wraps err when the watcher cannot continue, or returns nil
// when err is only worth a warning.
func fatalError(err error) error {
	if isFatalFsnotifyError(err) {
		return fmt.Errorf("watch: fatal fsnotify error: %w", err)
	}
	return nil
}

func (w *Watcher) ignoredDir(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return true
	}
	if rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	return matchAny(w.ignores, rel) || matchAny(w.ignores, rel+"/")
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q", label, pat)
		}
	}
	return nil
}
