// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// recordingCloner creates the destination directory instead of cloning.
type recordingCloner struct {
	mu    sync.Mutex
	urls  []string
	fail  map[string]error
	dests []string
}

func (r *recordingCloner) clone(_ context.Context, url, dest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, url)
	r.dests = append(r.dests, dest)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	if err := r.fail[url]; err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dest, "server.py"), []byte("X = 1\n"), 0o644)
}

func newTestFetcher(t *testing.T, cloner *recordingCloner) (*Fetcher, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "tools")
	f := NewFetcher(dir, WithLogger(log.New(io.Discard)))
	f.clone = cloner.clone
	return f, dir
}

func TestFetchAll_Statuses(t *testing.T) {
	t.Parallel()

	cloner := &recordingCloner{fail: map[string]error{
		"https://github.com/acme/broken.git": errors.New("repository not found"),
	}}
	f, dir := newTestFetcher(t, cloner)
	if err := os.MkdirAll(filepath.Join(dir, "existing"), 0o755); err != nil {
		t.Fatal(err)
	}

	entries := []RepoEntry{
		{URL: "https://github.com/acme/weather.git"},
		{URL: "http://insecure.example.com/tool.git"},
		{URL: "https://github.com/acme/weather"},
		{Name: "existing", URL: "https://github.com/acme/existing.git"},
		{URL: "https://github.com/acme/broken.git"},
		{Name: "Search Tool", URL: "git@github.com:acme/search.git"},
	}

	outcomes, err := f.FetchAll(context.Background(), entries)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	want := []Status{StatusCloned, StatusInvalidURL, StatusDuplicate, StatusExists, StatusFailed, StatusCloned}
	if len(outcomes) != len(want) {
		t.Fatalf("len(outcomes) = %d, want %d", len(outcomes), len(want))
	}
	for i, o := range outcomes {
		if o.Status != want[i] {
			t.Errorf("outcomes[%d].Status = %s, want %s (%+v)", i, o.Status, want[i], o)
		}
	}

	if outcomes[0].Folder != "weather" || outcomes[5].Folder != "Search Tool" {
		t.Errorf("folders = %q, %q", outcomes[0].Folder, outcomes[5].Folder)
	}
	if outcomes[4].Err == nil {
		t.Error("failed outcome should carry an error")
	}
	if _, err := os.Stat(filepath.Join(dir, "broken")); !errors.Is(err, os.ErrNotExist) {
		t.Error("failed clone should be cleaned up")
	}
	if len(cloner.urls) != 3 {
		t.Errorf("clone called for %v, want 3 URLs", cloner.urls)
	}
	if CountByStatus(outcomes, StatusCloned) != 2 {
		t.Errorf("CountByStatus(cloned) = %d, want 2", CountByStatus(outcomes, StatusCloned))
	}
}

func TestFetchAll_RerunSkipsExisting(t *testing.T) {
	t.Parallel()

	cloner := &recordingCloner{}
	f, _ := newTestFetcher(t, cloner)
	entries := []RepoEntry{{URL: "https://github.com/acme/weather.git"}}

	if _, err := f.FetchAll(context.Background(), entries); err != nil {
		t.Fatalf("first FetchAll() error = %v", err)
	}
	outcomes, err := f.FetchAll(context.Background(), entries)
	if err != nil {
		t.Fatalf("second FetchAll() error = %v", err)
	}
	if outcomes[0].Status != StatusExists {
		t.Errorf("Status = %s, want %s", outcomes[0].Status, StatusExists)
	}
	if len(cloner.urls) != 1 {
		t.Errorf("clone called %d times, want 1", len(cloner.urls))
	}
}

func TestFetchAll_CanceledContext(t *testing.T) {
	t.Parallel()

	cloner := &recordingCloner{}
	f, _ := newTestFetcher(t, cloner)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.FetchAll(ctx, []RepoEntry{{URL: "https://github.com/acme/weather.git"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(cloner.urls) != 0 {
		t.Error("no clone should start after cancellation")
	}
}

func TestAuthFor(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("GITLAB_TOKEN", "")
	t.Setenv("GIT_TOKEN", "")

	f := NewFetcher(t.TempDir(), WithLogger(log.New(io.Discard)))
	auth, ok := f.authFor("https://github.com/acme/tool.git").(*http.BasicAuth)
	if !ok {
		t.Fatalf("authFor(https) = %T, want *http.BasicAuth", auth)
	}
	if auth.Username != "x-access-token" || auth.Password != "ghp_test" {
		t.Errorf("auth = %+v", auth)
	}

	forced := &http.BasicAuth{Username: "u", Password: "p"}
	f = NewFetcher(t.TempDir(), WithAuth(forced))
	if f.authFor("git@github.com:acme/tool.git") != forced {
		t.Error("WithAuth should override scheme-based selection")
	}
}

func TestTryHTTPAuth_NoToken(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITLAB_TOKEN", "")
	t.Setenv("GIT_TOKEN", "")

	if auth := tryHTTPAuth(); auth != nil {
		t.Errorf("tryHTTPAuth() = %v, want nil", auth)
	}
}
