// SPDX-License-Identifier: MPL-2.0

package pysource

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

const (
	// MarkerOther is any decorator expression the tool rule does not inspect
	// (subscripts, lambdas, calls on calls).
	MarkerOther MarkerKind = iota
	// MarkerName is a bare name: "@tool".
	MarkerName
	// MarkerAttribute is a member access: "@mcp.tool".
	MarkerAttribute
	// MarkerCall is a call whose callee is a name or member access:
	// "@tool(name=...)", "@mcp.tool()".
	MarkerCall
)

// DefaultMarkerName is the decorator name that exposes a function as a tool.
const DefaultMarkerName = "tool"

type (
	// MarkerKind classifies the shape of a decorator expression.
	MarkerKind int

	// Marker is a parsed decorator.
	Marker struct {
		Kind MarkerKind
		// Target is the last identifier of the (callee) expression: "tool" for
		// "@mcp.server.tool(x=1)". Empty for MarkerOther.
		Target string
		// Text is the decorator source without the leading "@".
		Text string
	}
)

// Exposes reports whether the marker exposes its function under markerName.
func (m Marker) Exposes(markerName string) bool {
	switch m.Kind {
	case MarkerName, MarkerAttribute, MarkerCall:
		return m.Target == markerName
	default:
		return false
	}
}

// parseMarker reads a "decorator" node.
func parseMarker(n *sitter.Node, src []byte) Marker {
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(n.Content(src)), "@"))
	if n.NamedChildCount() == 0 {
		return Marker{Kind: MarkerOther, Text: text}
	}
	expr := n.NamedChild(0)

	if expr.Type() == "call" {
		callee := expr.ChildByFieldName("function")
		if target, ok := referenceTarget(callee, src); ok {
			return Marker{Kind: MarkerCall, Target: target, Text: text}
		}
		return Marker{Kind: MarkerOther, Text: text}
	}

	switch expr.Type() {
	case "identifier":
		return Marker{Kind: MarkerName, Target: expr.Content(src), Text: text}
	case "attribute":
		target, _ := referenceTarget(expr, src)
		return Marker{Kind: MarkerAttribute, Target: target, Text: text}
	default:
		return Marker{Kind: MarkerOther, Text: text}
	}
}

// referenceTarget returns the final identifier of a name or member access.
func referenceTarget(n *sitter.Node, src []byte) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "identifier":
		return n.Content(src), true
	case "attribute":
		attr := n.ChildByFieldName("attribute")
		if attr == nil {
			return "", false
		}
		return attr.Content(src), true
	default:
		return "", false
	}
}
