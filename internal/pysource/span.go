// SPDX-License-Identifier: MPL-2.0

package pysource

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// markerSigil starts every decorator line.
const markerSigil = "@"

// span is a 0-based inclusive row range over the module's lines.
type span struct {
	start int
	end   int
}

// nodeSpan returns the rows covered by n. A node whose end point sits at column 0
// of the following row does not own that row.
func nodeSpan(n *sitter.Node) span {
	start := int(n.StartPoint().Row)
	end := int(n.EndPoint().Row)
	if n.EndPoint().Column == 0 && end > start {
		end--
	}
	return span{start: start, end: end}
}

// markerStart walks backward from the row above defRow while lines are non-empty
// and begin with the decorator sigil, and returns the first row of that run.
// When the decorated node starts even earlier (a decorator spanning several
// lines, or a comment between decorators), the node start wins so no part of a
// decorator is lost.
func markerStart(lines []string, defRow, decoratedRow int) int {
	idx := defRow - 1
	for idx >= 0 {
		trimmed := strings.TrimSpace(lines[idx])
		if trimmed == "" || !strings.HasPrefix(trimmed, markerSigil) {
			break
		}
		idx--
	}
	start := idx + 1
	if decoratedRow >= 0 && decoratedRow < start {
		start = decoratedRow
	}
	return start
}

// exposedSource cuts the decorator lines and the function text out of lines.
func exposedSource(lines []string, fn span, decoratedRow int) (markers []string, source string, start int) {
	start = markerStart(lines, fn.start, decoratedRow)
	end := min(fn.end, len(lines)-1)
	if start < fn.start {
		markers = append(markers, lines[start:fn.start]...)
	}
	return markers, strings.Join(lines[start:end+1], "\n"), start
}

// splitLines splits LF-normalized source into lines.
func splitLines(src string) []string {
	return strings.Split(src, "\n")
}

// normalizeNewlines converts CRLF and lone CR line endings to LF.
func normalizeNewlines(src []byte) []byte {
	s := strings.ReplaceAll(string(src), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return []byte(s)
}
