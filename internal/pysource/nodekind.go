// SPDX-License-Identifier: MPL-2.0

package pysource

import sitter "github.com/smacker/go-tree-sitter"

const (
	// KindOther covers every top-level node the classifier does not copy.
	KindOther NodeKind = iota
	// KindImport is "import a, b as c".
	KindImport
	// KindImportFrom is "from a import b" (absolute or relative).
	KindImportFrom
	// KindFutureImport is "from __future__ import x".
	KindFutureImport
	// KindFunction is an undecorated "def" or "async def".
	KindFunction
	// KindDecorated is a function or class preceded by decorators.
	KindDecorated
	// KindClass is an undecorated class definition.
	KindClass
	// KindAssignment is a module-level binding ("x = 1", "x: int = 1", "a = b = 2").
	KindAssignment
)

// NodeKind is the closed set of top-level node kinds the classifier understands.
type NodeKind int

// String returns the node kind name.
func (k NodeKind) String() string {
	switch k {
	case KindImport:
		return "import"
	case KindImportFrom:
		return "import_from"
	case KindFutureImport:
		return "future_import"
	case KindFunction:
		return "function"
	case KindDecorated:
		return "decorated"
	case KindClass:
		return "class"
	case KindAssignment:
		return "assignment"
	default:
		return "other"
	}
}

// kindOf maps a tree-sitter node type onto a NodeKind.
func kindOf(n *sitter.Node) NodeKind {
	switch n.Type() {
	case "import_statement":
		return KindImport
	case "import_from_statement":
		return KindImportFrom
	case "future_import_statement":
		return KindFutureImport
	case "function_definition":
		return KindFunction
	case "decorated_definition":
		return KindDecorated
	case "class_definition":
		return KindClass
	case "expression_statement":
		// Bindings are wrapped in an expression statement; augmented
		// assignments and bare expressions are not bindings.
		if n.NamedChildCount() == 1 && n.NamedChild(0).Type() == "assignment" {
			return KindAssignment
		}
		return KindOther
	default:
		return KindOther
	}
}
