// SPDX-License-Identifier: MPL-2.0

package aggregate

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/toolmerge/toolmerge/internal/discovery"
	"github.com/toolmerge/toolmerge/internal/testutil"
)

const mixedTree = `
-- alpha/server.py --
import os
from mcp.server.fastmcp import FastMCP

mcp = FastMCP("alpha")

LIMIT = 10


@mcp.tool()
def search(q: str) -> str:
    return q[:LIMIT]


if __name__ == "__main__":
    mcp.run()
-- beta/server.py --
from __future__ import annotations
import os
from .helpers import fmt

class Box:
    pass

@mcp.tool()
def search(q: str) -> str:
    return "beta"

@mcp.tool()
def ping() -> str:
    return "pong"
`

const mixedWant = `from __future__ import annotations

from mcp.server.fastmcp import FastMCP
mcp = FastMCP("UtilityTools")

# === IMPORTS ===
from mcp.server.fastmcp import FastMCP
import os

# === UTILITIES ===

LIMIT = 10

class Box:
    pass

# === MCP TOOL FUNCTIONS ===

@mcp.tool()
def search(q: str) -> str:
    return q[:LIMIT]

@mcp.tool()
def ping() -> str:
    return "pong"

if __name__ == "__main__":
    mcp.run(transport="streamable-http")
`

func quietAggregator(opts ...Option) *Aggregator {
	return New(append([]Option{WithLogger(log.New(io.Discard))}, opts...)...)
}

// orderedDiscoverer returns a fixed file sequence regardless of root.
type orderedDiscoverer struct {
	files []discovery.DiscoveredFile
}

func (d orderedDiscoverer) Discover(context.Context, string) (*discovery.Result, error) {
	return &discovery.Result{Files: d.files}, nil
}

func diagnosticCodes(diags []discovery.Diagnostic) []discovery.DiagnosticCode {
	codes := make([]discovery.DiagnosticCode, 0, len(diags))
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	return codes
}

func TestAggregate_MergedOutput(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), mixedTree)
	dest := filepath.Join(t.TempDir(), "out", "mcp_unified_server.py")

	res, err := quietAggregator().Aggregate(context.Background(), root, dest)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if res.Output != dest || res.Files != 2 {
		t.Errorf("Result = %+v", res)
	}

	if got := string(testutil.MustReadFile(t, dest)); got != mixedWant {
		t.Errorf("merged module mismatch\ngot:\n%s\nwant:\n%s", got, mixedWant)
	}

	codes := diagnosticCodes(res.Diagnostics)
	want := []discovery.DiagnosticCode{discovery.CodeRelativeImportRejected, discovery.CodeDuplicateExposedFunction}
	if len(codes) != len(want) || codes[0] != want[0] || codes[1] != want[1] {
		t.Errorf("diagnostic codes = %v, want %v", codes, want)
	}
	for _, d := range res.Diagnostics {
		if d.Path != "beta/server.py" {
			t.Errorf("diagnostic path = %q, want beta/server.py", d.Path)
		}
	}
	if len(res.Module.Dropped) != 1 || res.Module.Dropped[0].Path != "beta/server.py" {
		t.Errorf("Dropped = %+v", res.Module.Dropped)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), mixedTree)
	out := t.TempDir()
	first := filepath.Join(out, "first.py")
	second := filepath.Join(out, "second.py")

	agg := quietAggregator(WithWorkers(4))
	if _, err := agg.Aggregate(context.Background(), root, first); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := agg.Aggregate(context.Background(), root, second); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if string(testutil.MustReadFile(t, first)) != string(testutil.MustReadFile(t, second)) {
		t.Error("identical inputs produced different output")
	}
}

func TestAggregate_DestinationInsideRoot(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), `
-- limits/server.py --
LIMIT = 10

@mcp.tool()
def limit() -> int:
    return LIMIT
`)
	dest := filepath.Join(root, "mcp_unified_server.py")

	agg := quietAggregator()
	var outputs []string
	for run := range 2 {
		res, err := agg.Aggregate(context.Background(), root, dest)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if res.Files != 1 || len(res.Module.Utilities) != 1 {
			t.Errorf("run %d: files = %d, utilities = %d, want 1 and 1", run, res.Files, len(res.Module.Utilities))
		}
		outputs = append(outputs, string(testutil.MustReadFile(t, dest)))
	}
	if outputs[0] != outputs[1] {
		t.Errorf("second run re-ingested the merged module\nfirst:\n%s\nsecond:\n%s", outputs[0], outputs[1])
	}
	if n := strings.Count(outputs[1], "LIMIT = 10"); n != 1 {
		t.Errorf("LIMIT bound %d times, want 1", n)
	}
}

func TestAggregate_FirstDiscoveredWins(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), `
-- a/tools.py --
@tool
def search(q):
    return "from A"
-- b/tools.py --
@mcp.tool
def search(q):
    return "from B"
`)
	fileA := discovery.DiscoveredFile{Path: filepath.Join(root, "a", "tools.py"), RelPath: "a/tools.py", Repo: "a"}
	fileB := discovery.DiscoveredFile{Path: filepath.Join(root, "b", "tools.py"), RelPath: "b/tools.py", Repo: "b"}

	tests := []struct {
		name  string
		order []discovery.DiscoveredFile
		want  string
		lose  string
	}{
		{"A then B", []discovery.DiscoveredFile{fileA, fileB}, `"from A"`, `"from B"`},
		{"B then A", []discovery.DiscoveredFile{fileB, fileA}, `"from B"`, `"from A"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			agg := quietAggregator(WithDiscovery(orderedDiscoverer{files: tt.order}))
			m, _, err := agg.Plan(context.Background(), root)
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			var b strings.Builder
			if err := Render(&b, m, DefaultTemplate()); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			out := b.String()
			if !strings.Contains(out, tt.want) || strings.Contains(out, tt.lose) {
				t.Errorf("output should contain %s only:\n%s", tt.want, out)
			}
			if strings.Count(out, "def search(") != 1 {
				t.Errorf("search should be emitted once:\n%s", out)
			}
		})
	}
}

func TestAggregate_RelativeImportRejected(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), `
-- weather/server.py --
import json
from ..shared import client

@mcp.tool()
def forecast(city: str) -> str:
    return json.dumps({"city": city})
`)
	m, diags, err := quietAggregator().Plan(context.Background(), root)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(m.Imports) != 1 || m.Imports[0].Line() != "import json" {
		t.Errorf("Imports = %v, want [import json]", m.Imports)
	}
	if len(m.Conflicts.RelativeImports) != 1 {
		t.Fatalf("RelativeImports = %v, want one entry", m.Conflicts.RelativeImports)
	}
	if got := m.Conflicts.RelativeImports[0]; got.Source != "from ..shared import client" || got.Line != 2 {
		t.Errorf("rejected import = %+v", got)
	}
	if len(diags) != 1 || diags[0].Code != discovery.CodeRelativeImportRejected {
		t.Errorf("diagnostics = %v", diags)
	}
}

func TestAggregate_ServerConstructionSuppressed(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), `
-- one/server.py --
mcp = FastMCP("one")
-- two/server.py --
mcp = FastMCP("two")
-- three/server.py --
server: FastMCP = FastMCP("three", debug=True)
KEEP = 1
-- four/server.py --
mcp = FastMCP ("four")
`)
	dest := filepath.Join(t.TempDir(), "merged.py")
	if _, err := quietAggregator().Aggregate(context.Background(), root, dest); err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	out := string(testutil.MustReadFile(t, dest))
	if n := strings.Count(out, "FastMCP("); n != 1 {
		t.Errorf("server constructed %d times, want 1:\n%s", n, out)
	}
	if strings.Contains(out, `"four"`) {
		t.Errorf("spaced server construction leaked:\n%s", out)
	}
	if !strings.Contains(out, "KEEP = 1") {
		t.Errorf("unrelated assignment missing:\n%s", out)
	}
}

func TestAggregate_NoInputFiles(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), "-- README.md --\nnothing here\n")
	dest := filepath.Join(t.TempDir(), "merged.py")

	res, err := quietAggregator().Aggregate(context.Background(), root, dest)
	if !errors.Is(err, ErrNoInputFiles) {
		t.Fatalf("error = %v, want ErrNoInputFiles", err)
	}
	if res != nil {
		t.Errorf("Result = %+v, want nil", res)
	}
	if _, statErr := os.Stat(dest); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("destination should not be created, stat error = %v", statErr)
	}
}

func TestAggregate_WriteFailure(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), "-- a/tools.py --\nX = 1\n")
	out := testutil.WriteTree(t, t.TempDir(), "-- blocker --\nnot a directory\n")
	dest := filepath.Join(out, "blocker", "merged.py")

	_, err := quietAggregator().Aggregate(context.Background(), root, dest)
	if !errors.Is(err, ErrWriteFailure) {
		t.Fatalf("error = %v, want ErrWriteFailure", err)
	}
	var wfe *WriteFailureError
	if !errors.As(err, &wfe) || wfe.Path != dest {
		t.Errorf("error = %#v, want *WriteFailureError for %s", err, dest)
	}
	if got := string(testutil.MustReadFile(t, filepath.Join(out, "blocker"))); got != "not a directory\n" {
		t.Errorf("blocking file modified: %q", got)
	}
}

func TestAggregate_DestinationIsDirectory(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), "-- a/tools.py --\nX = 1\n")
	dest := t.TempDir()

	_, err := quietAggregator().Aggregate(context.Background(), root, dest)
	if !errors.Is(err, ErrWriteFailure) {
		t.Fatalf("error = %v, want ErrWriteFailure", err)
	}
	entries, readErr := os.ReadDir(filepath.Dir(dest))
	if readErr != nil {
		t.Fatal(readErr)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestAggregate_OverwritesDestination(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), "-- a/tools.py --\nX = 1\n")
	out := testutil.WriteTree(t, t.TempDir(), "-- merged.py --\nstale content\n")
	dest := filepath.Join(out, "merged.py")

	if _, err := quietAggregator().Aggregate(context.Background(), root, dest); err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	got := string(testutil.MustReadFile(t, dest))
	if strings.Contains(got, "stale content") || !strings.Contains(got, "X = 1") {
		t.Errorf("destination not overwritten:\n%s", got)
	}
}

func TestAggregate_ParseErrorSkipsFile(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), `
-- broken/server.py --
def broken(:
    pass
-- good/server.py --
@mcp.tool()
def ok() -> str:
    return "ok"
`)
	dest := filepath.Join(t.TempDir(), "merged.py")
	res, err := quietAggregator().Aggregate(context.Background(), root, dest)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %v, want one", res.Diagnostics)
	}
	d := res.Diagnostics[0]
	if d.Code != discovery.CodeParseSkipped || d.Path != "broken/server.py" || d.Severity != discovery.SeverityError {
		t.Errorf("diagnostic = %v", d)
	}
	out := string(testutil.MustReadFile(t, dest))
	if !strings.Contains(out, "def ok()") || strings.Contains(out, "broken") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestAggregate_LegacySyntaxSkipsFile(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), `
-- a/legacy.py --
def helper():
    print 'hi'

@mcp.tool()
def legacy_tool() -> str:
    return helper()
-- b/ok.py --
@mcp.tool()
def ok() -> str:
    return "ok"
`)
	dest := filepath.Join(t.TempDir(), "merged.py")
	res, err := quietAggregator().Aggregate(context.Background(), root, dest)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != discovery.CodeParseSkipped || res.Diagnostics[0].Path != "a/legacy.py" {
		t.Fatalf("diagnostics = %v, want parse_skipped for a/legacy.py", res.Diagnostics)
	}
	out := string(testutil.MustReadFile(t, dest))
	if strings.Contains(out, "print 'hi'") || strings.Contains(out, "legacy_tool") {
		t.Errorf("legacy module leaked into output:\n%s", out)
	}
	if !strings.Contains(out, "def ok()") {
		t.Errorf("valid module missing:\n%s", out)
	}
}

func TestAggregate_Template(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), "-- a/tools.py --\nX = 1\n")
	dest := filepath.Join(t.TempDir(), "merged.py")
	agg := quietAggregator(WithTemplate(Template{ServerName: "Weather", Transport: "streamable-http"}))
	if _, err := agg.Aggregate(context.Background(), root, dest); err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	out := string(testutil.MustReadFile(t, dest))
	if !strings.Contains(out, `mcp = FastMCP("Weather")`) || !strings.Contains(out, `mcp.run(transport="streamable-http")`) {
		t.Errorf("template not applied:\n%s", out)
	}
}

func TestAggregate_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := quietAggregator().Aggregate(context.Background(), filepath.Join(t.TempDir(), "nope"), "out.py")
	if err == nil || errors.Is(err, ErrNoInputFiles) {
		t.Errorf("error = %v, want discovery failure", err)
	}
}

func TestAggregate_CanceledContext(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, t.TempDir(), mixedTree)
	files := []discovery.DiscoveredFile{
		{Path: filepath.Join(root, "alpha", "server.py"), RelPath: "alpha/server.py", Repo: "alpha"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := quietAggregator(WithDiscovery(orderedDiscoverer{files: files}))
	dest := filepath.Join(t.TempDir(), "merged.py")
	if _, err := agg.Aggregate(ctx, root, dest); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
		t.Error("canceled run should not write")
	}
}
