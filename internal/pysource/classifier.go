// SPDX-License-Identifier: MPL-2.0

package pysource

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

const (
	// DefaultServerMarker identifies a binding that constructs the runtime server.
	// Such bindings are dropped: the merged module constructs exactly one server.
	DefaultServerMarker = "FastMCP"

	// DefaultMaxFileSize bounds the size of a single module (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024
)

type (
	// Options configures a Classifier.
	Options struct {
		// MarkerName is the decorator name that exposes a function.
		MarkerName string
		// ServerMarker is the substring identifying the server construction.
		ServerMarker string
		// MaxFileSize is the largest module accepted, in bytes.
		MaxFileSize int
	}

	// Option is a functional option for configuring a Classifier.
	Option func(*Options)

	// Classifier buckets the top-level declarations of Python modules.
	//
	// A Classifier is safe for concurrent use: every call creates its own
	// tree-sitter parser.
	Classifier struct {
		opts Options
	}

	// fileState accumulates the classification of one module.
	fileState struct {
		opts   Options
		src    []byte
		lines  []string
		result *FileResult
	}
)

// DefaultOptions returns the default classifier options.
func DefaultOptions() Options {
	return Options{
		MarkerName:   DefaultMarkerName,
		ServerMarker: DefaultServerMarker,
		MaxFileSize:  DefaultMaxFileSize,
	}
}

// WithMarkerName sets the decorator name that exposes a function.
func WithMarkerName(name string) Option {
	return func(o *Options) {
		if name != "" {
			o.MarkerName = name
		}
	}
}

// WithServerMarker sets the substring that identifies a server construction.
func WithServerMarker(marker string) Option {
	return func(o *Options) {
		if marker != "" {
			o.ServerMarker = marker
		}
	}
}

// WithMaxFileSize sets the maximum module size in bytes.
func WithMaxFileSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.MaxFileSize = size
		}
	}
}

// NewClassifier creates a Classifier with the given options.
func NewClassifier(opts ...Option) *Classifier {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Classifier{opts: options}
}

// ClassifyFile reads the module at path and classifies it.
// Read failures are returned as-is; invalid source yields a *ParseError.
func (c *Classifier) ClassifyFile(ctx context.Context, path string) (*FileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module: %w", err)
	}
	return c.Classify(ctx, path, data)
}

// Classify parses src and buckets each top-level node.
//
// The returned error is a *ParseError when src is not valid Python, or the
// context error when ctx is done. A ParseError is fatal for this module only.
func (c *Classifier) Classify(ctx context.Context, path string, src []byte) (*FileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(src) > c.opts.MaxFileSize {
		return nil, &ParseError{Path: path, Cause: ErrFileTooLarge}
	}
	if !utf8.Valid(src) {
		return nil, &ParseError{Path: path, Cause: ErrInvalidEncoding}
	}
	src = normalizeNewlines(src)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ParseError{Path: path, Cause: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line, col := firstErrorPoint(root)
		return nil, &ParseError{Path: path, Line: line, Column: col}
	}
	if n := firstLegacyStatement(root); n != nil {
		p := n.StartPoint()
		return nil, &ParseError{Path: path, Line: int(p.Row) + 1, Column: int(p.Column) + 1, Cause: ErrLegacySyntax}
	}

	st := &fileState{
		opts:   c.opts,
		src:    src,
		lines:  splitLines(string(src)),
		result: &FileResult{Path: path},
	}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		st.classify(root.NamedChild(i))
	}
	return st.result, nil
}

// classify dispatches one top-level node. The switch is exhaustive over NodeKind;
// KindOther nodes are not copied to the output.
func (s *fileState) classify(n *sitter.Node) {
	switch kindOf(n) {
	case KindImport:
		s.result.Imports = append(s.result.Imports, importNames(n, s.src)...)
	case KindFutureImport:
		s.result.Imports = append(s.result.Imports, fromImportNames(n, s.src, FutureModule)...)
	case KindImportFrom:
		if isRelativeImport(n) {
			s.result.Rejected = append(s.result.Rejected, RelativeImport{
				Source: n.Content(s.src),
				Path:   s.result.Path,
				Line:   int(n.StartPoint().Row) + 1,
			})
			return
		}
		s.result.Imports = append(s.result.Imports, fromImportNames(n, s.src, "")...)
	case KindFunction:
		s.function(n, nil)
	case KindDecorated:
		def := n.ChildByFieldName("definition")
		if def == nil {
			return
		}
		switch def.Type() {
		case "function_definition":
			s.function(def, n)
		case "class_definition":
			s.utility(UtilityClass, declName(def, s.src), n)
		}
	case KindClass:
		s.utility(UtilityClass, declName(n, s.src), n)
	case KindAssignment:
		s.assignment(n)
	case KindOther:
	}
}

// function classifies a function definition. decorated is the enclosing
// decorated_definition node, or nil.
func (s *fileState) function(fn, decorated *sitter.Node) {
	name := declName(fn, s.src)
	if decorated == nil || !s.hasToolMarker(decorated) {
		whole := fn
		if decorated != nil {
			whole = decorated
		}
		s.utility(UtilityFunction, name, whole)
		return
	}

	decoratedRow := int(decorated.StartPoint().Row)
	fnSpan := nodeSpan(fn)
	markers, source, start := exposedSource(s.lines, fnSpan, decoratedRow)
	s.result.Exposed = append(s.result.Exposed, ExposedFunction{
		Name:      name,
		Markers:   markers,
		Source:    source,
		Path:      s.result.Path,
		StartLine: start + 1,
		EndLine:   fnSpan.end + 1,
	})
}

// hasToolMarker reports whether any decorator directly attached to the
// definition exposes it.
func (s *fileState) hasToolMarker(decorated *sitter.Node) bool {
	for i := 0; i < int(decorated.NamedChildCount()); i++ {
		child := decorated.NamedChild(i)
		if child.Type() != "decorator" {
			continue
		}
		if parseMarker(child, s.src).Exposes(s.opts.MarkerName) {
			return true
		}
	}
	return false
}

// assignment keeps a module-level binding unless it constructs the server.
func (s *fileState) assignment(n *sitter.Node) {
	text := n.Content(s.src)
	if strings.Contains(text, s.opts.ServerMarker) {
		return
	}
	var name string
	if assign := n.NamedChild(0); assign != nil {
		if left := assign.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
			name = left.Content(s.src)
		}
	}
	s.utility(UtilityAssignment, name, n)
}

// utility records n verbatim. A node without source text is dropped with a
// warning rather than emitted as an empty block.
func (s *fileState) utility(kind UtilityKind, name string, n *sitter.Node) {
	sp := nodeSpan(n)
	text := n.Content(s.src)
	if strings.TrimSpace(text) == "" {
		s.result.Warnings = append(s.result.Warnings, Warning{
			Line:    sp.start + 1,
			Message: fmt.Sprintf("%s %q has no source text", kind, name),
		})
		return
	}
	s.result.Utilities = append(s.result.Utilities, UtilityDeclaration{
		Kind:      kind,
		Name:      name,
		Source:    text,
		Path:      s.result.Path,
		StartLine: sp.start + 1,
		EndLine:   sp.end + 1,
	})
}

// declName returns the "name" field of a function or class definition.
func declName(n *sitter.Node, src []byte) string {
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		return nameNode.Content(src)
	}
	return ""
}

// firstErrorPoint returns the 1-based position of the first ERROR or MISSING
// node in document order.
func firstErrorPoint(n *sitter.Node) (line, col int) {
	if n.IsError() || n.IsMissing() {
		p := n.StartPoint()
		return int(p.Row) + 1, int(p.Column) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if line, col = firstErrorPoint(child); line > 0 {
			return line, col
		}
	}
	return 0, 0
}

// legacyStatements are accepted by the grammar but rejected by Python 3.
var legacyStatements = map[string]bool{
	"print_statement": true,
	"exec_statement":  true,
}

// firstLegacyStatement returns the first Python 2 only statement in document
// order, or nil.
func firstLegacyStatement(n *sitter.Node) *sitter.Node {
	if legacyStatements[n.Type()] {
		return n
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if found := firstLegacyStatement(n.NamedChild(i)); found != nil {
			return found
		}
	}
	return nil
}
