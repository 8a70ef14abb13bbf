// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/toolmerge/toolmerge/internal/issue"
)

const (
	// StatusCloned means the repository was cloned.
	StatusCloned Status = "cloned"
	// StatusExists means the target folder already existed and was left alone.
	StatusExists Status = "exists"
	// StatusDuplicate means an earlier entry already listed the same URL.
	StatusDuplicate Status = "duplicate"
	// StatusInvalidURL means the URL scheme is not supported.
	StatusInvalidURL Status = "invalid_url"
	// StatusFailed means the clone failed; Outcome.Err holds the cause.
	StatusFailed Status = "failed"
)

type (
	// Status is the result of fetching one manifest entry.
	Status string

	// Outcome reports what happened to one manifest entry.
	Outcome struct {
		Entry  RepoEntry
		Folder string
		// Path is the absolute target directory; empty for invalid entries.
		Path   string
		Status Status
		Err    error
	}

	// cloneFunc clones url into dest.
	cloneFunc func(ctx context.Context, url, dest string) error

	// Option configures a Fetcher.
	Option func(*Fetcher)

	// Fetcher clones repositories into a tools directory.
	Fetcher struct {
		toolsDir string
		depth    int
		auth     transport.AuthMethod
		logger   *log.Logger
		clone    cloneFunc
	}
)

// WithLogger sets the logger used for progress reports.
func WithLogger(l *log.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithDepth sets the clone depth; 0 fetches full history (default 1).
func WithDepth(depth int) Option {
	return func(f *Fetcher) {
		if depth >= 0 {
			f.depth = depth
		}
	}
}

// WithAuth forces an authentication method for every clone.
func WithAuth(auth transport.AuthMethod) Option {
	return func(f *Fetcher) {
		f.auth = auth
	}
}

// NewFetcher creates a Fetcher that clones into toolsDir.
func NewFetcher(toolsDir string, opts ...Option) *Fetcher {
	f := &Fetcher{
		toolsDir: toolsDir,
		depth:    1,
		logger:   log.NewWithOptions(os.Stderr, log.Options{Prefix: "fetch"}),
	}
	f.clone = f.gitClone
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll clones every entry in order. Per-entry problems are reported in the
// returned outcomes; the error is non-nil only when the tools directory cannot
// be created or ctx is done.
func (f *Fetcher) FetchAll(ctx context.Context, entries []RepoEntry) ([]Outcome, error) {
	absDir, err := filepath.Abs(f.toolsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tools directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("create tools directory").
			WithResource(absDir).
			WithSuggestion("Check that the parent directory is writable").
			Wrap(err).
			BuildError()
	}

	seen := make(map[string]struct{}, len(entries))
	outcomes := make([]Outcome, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		out := Outcome{Entry: entry}
		switch {
		case !ValidURL(entry.URL):
			out.Status = StatusInvalidURL
			f.logger.Warn("skipping entry with unsupported URL", "name", entry.Name, "url", entry.URL)
		case isSeen(seen, entry.URL):
			out.Status = StatusDuplicate
			f.logger.Debug("skipping duplicate URL", "url", entry.URL)
		default:
			out.Folder = FolderName(entry)
			out.Path = filepath.Join(absDir, out.Folder)
			f.fetchOne(ctx, &out)
		}
		if errors.Is(out.Err, context.Canceled) || errors.Is(out.Err, context.DeadlineExceeded) {
			return outcomes, out.Err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func isSeen(seen map[string]struct{}, url string) bool {
	key := strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	if _, ok := seen[key]; ok {
		return true
	}
	seen[key] = struct{}{}
	return false
}

func (f *Fetcher) fetchOne(ctx context.Context, out *Outcome) {
	if out.Folder == "" {
		out.Status = StatusInvalidURL
		f.logger.Warn("cannot derive a folder name", "url", out.Entry.URL)
		return
	}
	if _, err := os.Stat(out.Path); err == nil {
		out.Status = StatusExists
		f.logger.Info("folder already exists, skipping clone", "path", out.Path)
		return
	}

	f.logger.Info("cloning repository", "url", out.Entry.URL, "path", out.Path)
	if err := f.clone(ctx, out.Entry.URL, out.Path); err != nil {
		_ = os.RemoveAll(out.Path) // Clean up failed attempt (best-effort)
		out.Status = StatusFailed
		if ctxErr := ctx.Err(); ctxErr != nil {
			out.Err = ctxErr
			return
		}
		out.Err = issue.WrapWithContext(err, "clone repository", out.Entry.URL)
		f.logger.Error("clone failed", "url", out.Entry.URL, "err", err)
		return
	}
	out.Status = StatusCloned
}

// gitClone performs a shallow single-branch clone with go-git.
func (f *Fetcher) gitClone(ctx context.Context, url, dest string) error {
	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:          url,
		Auth:         f.authFor(url),
		Depth:        f.depth,
		SingleBranch: true,
	})
	return err
}

// authFor picks credentials matching the URL scheme: SSH keys for ssh and
// scp-style URLs, token basic auth for https.
func (f *Fetcher) authFor(url string) transport.AuthMethod {
	if f.auth != nil {
		return f.auth
	}
	if strings.HasPrefix(url, "ssh://") || strings.HasPrefix(url, "git@") {
		return trySSHAuth()
	}
	return tryHTTPAuth()
}

// trySSHAuth loads the first usable key from the common SSH key locations.
func trySSHAuth() transport.AuthMethod {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	keyPaths := []string{
		filepath.Join(homeDir, ".ssh", "id_ed25519"),
		filepath.Join(homeDir, ".ssh", "id_rsa"),
		filepath.Join(homeDir, ".ssh", "id_ecdsa"),
	}
	for _, keyPath := range keyPaths {
		if _, err := os.Stat(keyPath); err == nil {
			auth, err := ssh.NewPublicKeysFromFile("git", keyPath, "")
			if err == nil {
				return auth
			}
		}
	}
	return nil
}

// tryHTTPAuth builds basic auth from GITHUB_TOKEN, GITLAB_TOKEN or GIT_TOKEN.
func tryHTTPAuth() transport.AuthMethod {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "x-access-token", Password: token}
	}
	if token := os.Getenv("GITLAB_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "gitlab-ci-token", Password: token}
	}
	if token := os.Getenv("GIT_TOKEN"); token != "" {
		return &http.BasicAuth{Username: "git", Password: token}
	}
	return nil
}

// CountByStatus returns how many outcomes have the given status.
func CountByStatus(outcomes []Outcome, status Status) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
