// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/txtar"
)

// WriteTree writes every file of a txtar archive below dir and returns dir.
// File names are slash-separated paths relative to dir.
//
//	root := testutil.WriteTree(t, t.TempDir(), `
//	-- weather/server.py --
//	@mcp.tool()
//	def forecast(city): ...
//	`)
func WriteTree(t testing.TB, dir, archive string) string {
	t.Helper()
	ar := txtar.Parse([]byte(archive))
	if len(ar.Files) == 0 {
		t.Fatalf("txtar archive contains no files")
	}
	for _, f := range ar.Files {
		path := filepath.Join(dir, filepath.FromSlash(f.Name))
		MustMkdirAll(t, filepath.Dir(path), 0o755)
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	return dir
}

// MustMkdirAll creates a directory and all parents.
// The test fails immediately if the operation fails.
func MustMkdirAll(t testing.TB, path string, perm os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(path, perm); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// MustReadFile returns the content of path as a string.
// The test fails immediately if the file cannot be read.
func MustReadFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
