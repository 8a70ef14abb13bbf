// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/toolmerge/toolmerge/internal/testutil"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
	fired chan struct{}
}

func newRecorder() *recorder {
	return &recorder{fired: make(chan struct{}, 16)}
}

func (r *recorder) onChange(_ context.Context, changed []string) error {
	r.mu.Lock()
	r.calls = append(r.calls, changed)
	r.mu.Unlock()
	r.fired <- struct{}{}
	return nil
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// startWatcher runs a watcher over dir until the test ends.
func startWatcher(t *testing.T, cfg Config) {
	t.Helper()

	cfg.Logger = log.New(io.Discard)
	if cfg.Debounce == 0 {
		cfg.Debounce = 50 * time.Millisecond
	}
	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})
}

func waitFired(t *testing.T, r *recorder) {
	t.Helper()
	select {
	case <-r.fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for rebuild callback")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_Debounce(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteTree(t, t.TempDir(), "-- weather/server.py --\nx = 1\n-- search/server.py --\ny = 2\n")
	r := newRecorder()
	startWatcher(t, Config{ToolsDir: dir, Debounce: 150 * time.Millisecond, OnChange: r.onChange})

	for _, rel := range []string{"weather/server.py", "search/server.py", "weather/server.py"} {
		writeFile(t, filepath.Join(dir, rel), "changed = True\n")
		time.Sleep(10 * time.Millisecond)
	}

	waitFired(t, r)
	time.Sleep(300 * time.Millisecond)

	calls := r.snapshot()
	if len(calls) != 1 {
		t.Fatalf("callbacks = %d, want 1: %v", len(calls), calls)
	}
	want := []string{"search/server.py", "weather/server.py"}
	if !slices.Equal(calls[0], want) {
		t.Errorf("changed = %v, want %v", calls[0], want)
	}
}

func TestWatcher_OnlyModules(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteTree(t, t.TempDir(), "-- weather/server.py --\nx = 1\n")
	r := newRecorder()
	startWatcher(t, Config{ToolsDir: dir, OnChange: r.onChange})

	writeFile(t, filepath.Join(dir, "weather", "README.md"), "docs\n")
	writeFile(t, filepath.Join(dir, "weather", "__pycache__", "server.py"), "cached\n")
	writeFile(t, filepath.Join(dir, "weather", ".server.py.tmp-123"), "tmp\n")
	time.Sleep(200 * time.Millisecond)
	if calls := r.snapshot(); len(calls) != 0 {
		t.Fatalf("ignored files triggered a rebuild: %v", calls)
	}

	writeFile(t, filepath.Join(dir, "weather", "server.py"), "x = 2\n")
	waitFired(t, r)
	if calls := r.snapshot(); !slices.Equal(calls[0], []string{"weather/server.py"}) {
		t.Errorf("changed = %v", calls[0])
	}
}

func TestWatcher_IgnorePatterns(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteTree(t, t.TempDir(), "-- weather/server.py --\nx = 1\n-- weather/tests/test_x.py --\nt = 1\n")
	r := newRecorder()
	startWatcher(t, Config{ToolsDir: dir, Ignore: []string{"**/tests/**"}, OnChange: r.onChange})

	writeFile(t, filepath.Join(dir, "weather", "tests", "test_x.py"), "t = 2\n")
	time.Sleep(200 * time.Millisecond)
	if calls := r.snapshot(); len(calls) != 0 {
		t.Fatalf("ignored path triggered a rebuild: %v", calls)
	}
}

func TestWatcher_NewRepository(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := newRecorder()
	startWatcher(t, Config{ToolsDir: dir, OnChange: r.onChange})

	if err := os.Mkdir(filepath.Join(dir, "fresh"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the event loop time to register the new directory.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "fresh", "main.py"), "@tool\ndef f():\n    pass\n")

	waitFired(t, r)
	found := false
	for _, call := range r.snapshot() {
		if slices.Contains(call, "fresh/main.py") {
			found = true
		}
	}
	if !found {
		t.Errorf("fresh/main.py not reported: %v", r.snapshot())
	}
}

func TestWatcher_MovedInRepository(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := newRecorder()
	startWatcher(t, Config{ToolsDir: dir, OnChange: r.onChange})

	staged := testutil.WriteTree(t, t.TempDir(), "-- server.py --\nx = 1\n-- lib/helpers.py --\ny = 2\n")
	if err := os.Rename(staged, filepath.Join(dir, "cloned")); err != nil {
		t.Fatal(err)
	}

	waitFired(t, r)
	want := []string{"cloned/lib/helpers.py", "cloned/server.py"}
	if calls := r.snapshot(); !slices.Equal(calls[0], want) {
		t.Errorf("changed = %v, want %v", calls[0], want)
	}
}

func TestMaybeAddDir_ReportsExistingModules(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := New(Config{ToolsDir: dir, Logger: log.New(io.Discard)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = w.fsw.Close() })

	testutil.WriteTree(t, dir, `
-- weather/server.py --
x = 1
-- weather/README.md --
docs
-- weather/pkg/api.py --
y = 2
-- weather/__pycache__/server.py --
cached
`)

	got := w.maybeAddDir(filepath.Join(dir, "weather"))
	want := []string{"weather/pkg/api.py", "weather/server.py"}
	if !slices.Equal(got, want) {
		t.Errorf("maybeAddDir() = %v, want %v", got, want)
	}
	if got := w.maybeAddDir(filepath.Join(dir, "weather", "server.py")); got != nil {
		t.Errorf("maybeAddDir(file) = %v, want nil", got)
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "file.py")
	writeFile(t, file, "x = 1\n")

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing directory", Config{ToolsDir: filepath.Join(dir, "missing")}},
		{"not a directory", Config{ToolsDir: file}},
		{"invalid pattern", Config{ToolsDir: dir, Patterns: []string{"[unclosed"}}},
		{"invalid ignore", Config{ToolsDir: dir, Ignore: []string{"[unclosed"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.cfg); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

func TestRun_Twice(t *testing.T) {
	t.Parallel()

	w, err := New(Config{ToolsDir: t.TempDir(), Logger: log.New(io.Discard)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if err := w.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}
}
