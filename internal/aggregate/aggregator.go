// SPDX-License-Identifier: MPL-2.0

package aggregate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/toolmerge/toolmerge/internal/discovery"
	"github.com/toolmerge/toolmerge/internal/pysource"
)

type (
	// Discoverer enumerates candidate modules below a tools directory.
	Discoverer interface {
		Discover(ctx context.Context, root string) (*discovery.Result, error)
	}

	// Result describes a completed aggregation run.
	Result struct {
		// Output is the destination path of the merged module.
		Output string
		// Module is the merged content that was written.
		Module *MergedModule
		// Diagnostics lists every non-fatal observation of the run.
		Diagnostics []discovery.Diagnostic
		// Files is the number of discovered candidate modules.
		Files int
	}

	// Option configures an Aggregator.
	Option func(*Aggregator)

	// Aggregator runs the discover, classify, merge and write pipeline.
	// It holds no state between runs.
	Aggregator struct {
		classifier *pysource.Classifier
		discoverer Discoverer
		workers    int
		tmpl       Template
		logger     *log.Logger
	}

	// plan is the outcome of everything before serialization.
	plan struct {
		module      *MergedModule
		diagnostics []discovery.Diagnostic
		files       int
	}
)

// WithClassifier sets the declaration classifier.
func WithClassifier(c *pysource.Classifier) Option {
	return func(a *Aggregator) {
		if c != nil {
			a.classifier = c
		}
	}
}

// WithDiscovery sets the module discoverer.
func WithDiscovery(d Discoverer) Option {
	return func(a *Aggregator) {
		if d != nil {
			a.discoverer = d
		}
	}
}

// WithWorkers bounds the number of files classified concurrently.
// Values <= 0 select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(a *Aggregator) {
		a.workers = n
	}
}

// WithTemplate sets the header and footer values.
func WithTemplate(t Template) Option {
	return func(a *Aggregator) {
		a.tmpl = t
	}
}

// WithLogger sets the logger used for progress and skip reports.
func WithLogger(l *log.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		classifier: pysource.NewClassifier(),
		discoverer: discovery.New(),
		tmpl:       DefaultTemplate(),
		logger:     log.NewWithOptions(os.Stderr, log.Options{Prefix: "aggregate"}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.workers <= 0 {
		a.workers = runtime.GOMAXPROCS(0)
	}
	return a
}

// Aggregate merges every module under root into one file at dest.
//
// It fails with ErrNoInputFiles when root holds no candidate modules and with
// a *WriteFailureError when dest cannot be written; in both cases dest is not
// modified. Per-file failures are reported in Result.Diagnostics. When dest
// lies under root, the previously merged module is not an input.
func (a *Aggregator) Aggregate(ctx context.Context, root, dest string) (*Result, error) {
	p, err := a.plan(ctx, root, dest)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := Render(&buf, p.module, a.tmpl); err != nil {
		return nil, fmt.Errorf("failed to render merged module: %w", err)
	}
	if err := writeAtomic(dest, buf.Bytes()); err != nil {
		return nil, &WriteFailureError{Path: dest, Cause: err}
	}

	a.logger.Info("merged module written",
		"path", dest,
		"files", p.files,
		"tools", len(p.module.Exposed),
		"utilities", len(p.module.Utilities),
	)
	return &Result{
		Output:      dest,
		Module:      p.module,
		Diagnostics: p.diagnostics,
		Files:       p.files,
	}, nil
}

// Plan runs every stage except the write.
func (a *Aggregator) Plan(ctx context.Context, root string) (*MergedModule, []discovery.Diagnostic, error) {
	p, err := a.plan(ctx, root, "")
	if err != nil {
		return nil, nil, err
	}
	return p.module, p.diagnostics, nil
}

func (a *Aggregator) plan(ctx context.Context, root, dest string) (*plan, error) {
	found, err := a.discoverer.Discover(ctx, root)
	if err != nil {
		return nil, err
	}
	found.Files = withoutOutput(found.Files, dest)
	if len(found.Files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputFiles, root)
	}
	a.logger.Debug("discovered modules", "root", root, "count", len(found.Files))

	results, diags, err := a.classifyAll(ctx, found.Files)
	if err != nil {
		return nil, err
	}

	module := Build(results)
	diags = append(found.Diagnostics, diags...)
	diags = append(diags, a.conflictDiagnostics(module)...)

	return &plan{module: module, diagnostics: diags, files: len(found.Files)}, nil
}

// withoutOutput drops the module at dest from files.
func withoutOutput(files []discovery.DiscoveredFile, dest string) []discovery.DiscoveredFile {
	if dest == "" {
		return files
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return files
	}
	return slices.DeleteFunc(files, func(f discovery.DiscoveredFile) bool {
		return filepath.Clean(f.Path) == abs
	})
}

// classifyAll classifies files concurrently. Each goroutine writes only its
// own slot, so results and diagnostics keep discovery order.
func (a *Aggregator) classifyAll(ctx context.Context, files []discovery.DiscoveredFile) ([]*pysource.FileResult, []discovery.Diagnostic, error) {
	results := make([]*pysource.FileResult, len(files))
	slotDiags := make([][]discovery.Diagnostic, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, f := range files {
		g.Go(func() error {
			res, diags, err := a.classifyOne(gctx, f)
			if err != nil {
				return err
			}
			results[i] = res
			slotDiags[i] = diags
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var diags []discovery.Diagnostic
	for _, d := range slotDiags {
		diags = append(diags, d...)
	}
	return results, diags, nil
}

// classifyOne returns an error only when ctx is done; per-file failures
// become diagnostics and a nil result.
func (a *Aggregator) classifyOne(ctx context.Context, f discovery.DiscoveredFile) (*pysource.FileResult, []discovery.Diagnostic, error) {
	src, err := os.ReadFile(f.Path)
	if err != nil {
		a.logger.Warn("skipping unreadable module", "path", f.RelPath, "err", err)
		return nil, []discovery.Diagnostic{
			discovery.NewDiagnostic(discovery.SeverityError, discovery.CodeReadFailed, f.RelPath,
				"module could not be read").WithCause(err),
		}, nil
	}

	res, err := a.classifier.Classify(ctx, f.RelPath, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		var pe *pysource.ParseError
		if !errors.As(err, &pe) {
			return nil, nil, err
		}
		a.logger.Warn("skipping module", "path", f.RelPath, "err", pe)
		return nil, []discovery.Diagnostic{
			discovery.NewDiagnostic(discovery.SeverityError, discovery.CodeParseSkipped, f.RelPath,
				"module is not valid Python and was skipped").WithCause(pe),
		}, nil
	}

	var diags []discovery.Diagnostic
	for _, w := range res.Warnings {
		diags = append(diags, discovery.NewDiagnostic(discovery.SeverityWarning, discovery.CodeEmptyDeclarationSpan,
			f.RelPath, fmt.Sprintf("line %d: %s", w.Line, w.Message)))
	}
	return res, diags, nil
}

func (a *Aggregator) conflictDiagnostics(m *MergedModule) []discovery.Diagnostic {
	var diags []discovery.Diagnostic
	for _, rel := range m.Conflicts.RelativeImports {
		a.logger.Warn("rejected relative import", "path", rel.Path, "line", rel.Line, "import", rel.Source)
		diags = append(diags, discovery.NewDiagnostic(discovery.SeverityWarning, discovery.CodeRelativeImportRejected,
			rel.Path, fmt.Sprintf("line %d: %s", rel.Line, rel.Source)))
	}
	for _, fn := range m.Dropped {
		winner := m.Conflicts.Occurrences[fn.Name][0]
		a.logger.Warn("duplicate tool dropped", "name", fn.Name, "path", fn.Path, "kept", winner)
		diags = append(diags, discovery.NewDiagnostic(discovery.SeverityWarning, discovery.CodeDuplicateExposedFunction,
			fn.Path, fmt.Sprintf("tool %q already defined in %s; this definition was dropped", fn.Name, winner)))
	}
	return diags
}
