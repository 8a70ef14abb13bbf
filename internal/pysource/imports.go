// SPDX-License-Identifier: MPL-2.0

package pysource

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// importNames returns one ImportDeclaration per name of an "import a, b as c"
// statement.
func importNames(n *sitter.Node, src []byte) []ImportDeclaration {
	var decls []ImportDeclaration
	for _, child := range fieldChildren(n, "name") {
		module, alias := aliasedName(child, src)
		if module == "" {
			continue
		}
		decls = append(decls, ImportDeclaration{Module: module, Alias: alias})
	}
	return decls
}

// isRelativeImport reports whether a "from" import is addressed relative to the
// importing module ("from . import x", "from ..pkg import y").
func isRelativeImport(n *sitter.Node) bool {
	module := n.ChildByFieldName("module_name")
	return module != nil && module.Type() == "relative_import"
}

// fromImportNames returns one ImportDeclaration per imported symbol of an
// absolute "from m import a, b as c" statement. A wildcard import yields a single
// declaration named "*".
func fromImportNames(n *sitter.Node, src []byte, module string) []ImportDeclaration {
	if module == "" {
		module = normalizeDotted(n.ChildByFieldName("module_name").Content(src))
	}

	var decls []ImportDeclaration
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() == "wildcard_import" {
			decls = append(decls, ImportDeclaration{Module: module, Name: "*"})
		}
	}
	for _, child := range fieldChildren(n, "name") {
		name, alias := aliasedName(child, src)
		if name == "" {
			continue
		}
		decls = append(decls, ImportDeclaration{Module: module, Name: name, Alias: alias})
	}
	return decls
}

// aliasedName reads a "dotted_name" or "aliased_import" node.
func aliasedName(n *sitter.Node, src []byte) (name, alias string) {
	switch n.Type() {
	case "aliased_import":
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			name = normalizeDotted(nameNode.Content(src))
		}
		if aliasNode := n.ChildByFieldName("alias"); aliasNode != nil {
			alias = aliasNode.Content(src)
		}
		return name, alias
	case "dotted_name", "identifier":
		return normalizeDotted(n.Content(src)), ""
	default:
		return "", ""
	}
}

// fieldChildren returns every child stored under the given field name. Import
// statements repeat the "name" field once per imported symbol.
func fieldChildren(n *sitter.Node, field string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) == field {
			out = append(out, n.Child(i))
		}
	}
	return out
}

// normalizeDotted drops whitespace and line continuations inside a dotted path
// ("os . path" and "os.\\\n path" both become "os.path").
func normalizeDotted(s string) string {
	s = strings.ReplaceAll(s, "\\\n", "")
	return strings.Join(strings.Fields(s), "")
}
