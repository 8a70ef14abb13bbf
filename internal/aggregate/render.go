// SPDX-License-Identifier: MPL-2.0

package aggregate

import (
	"fmt"
	"io"
	"strings"

	"github.com/toolmerge/toolmerge/internal/pysource"
)

const (
	// DefaultServerName is the name given to the merged server object.
	DefaultServerName = "UtilityTools"
	// DefaultTransport is the transport the merged server starts with.
	DefaultTransport = "streamable-http"

	importsBanner   = "# === IMPORTS ==="
	utilitiesBanner = "# === UTILITIES ==="
	toolsBanner     = "# === MCP TOOL FUNCTIONS ==="
)

// Template holds the values interpolated into the fixed header and footer.
type Template struct {
	ServerName string
	Transport  string
}

// DefaultTemplate returns the template used when none is configured.
func DefaultTemplate() Template {
	return Template{ServerName: DefaultServerName, Transport: DefaultTransport}
}

func (t Template) withDefaults() Template {
	if t.ServerName == "" {
		t.ServerName = DefaultServerName
	}
	if t.Transport == "" {
		t.Transport = DefaultTransport
	}
	return t
}

// Render serializes m as a Python module. The sections are, in order: the
// bootstrap header, sorted imports, utility blocks, tool blocks and the entry
// footer. Blocks are trimmed of leading and trailing blank lines and separated
// by exactly one blank line. Future imports precede the header.
func Render(w io.Writer, m *MergedModule, tmpl Template) error {
	tmpl = tmpl.withDefaults()

	var future, regular []pysource.ImportDeclaration
	for _, d := range m.Imports {
		if d.IsFuture() {
			future = append(future, d)
		} else {
			regular = append(regular, d)
		}
	}

	var b strings.Builder
	if len(future) > 0 {
		for _, d := range future {
			b.WriteString(d.Line())
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	b.WriteString("from mcp.server.fastmcp import FastMCP\n")
	fmt.Fprintf(&b, "mcp = FastMCP(%s)\n\n", pyString(tmpl.ServerName))

	b.WriteString(importsBanner + "\n")
	for _, d := range regular {
		b.WriteString(d.Line())
		b.WriteByte('\n')
	}

	b.WriteString("\n" + utilitiesBanner + "\n\n")
	for _, u := range m.Utilities {
		writeBlock(&b, u.Source)
	}

	b.WriteString(toolsBanner + "\n\n")
	for _, fn := range m.Exposed {
		writeBlock(&b, fn.Source)
	}

	b.WriteString("if __name__ == \"__main__\":\n")
	fmt.Fprintf(&b, "    mcp.run(transport=%s)\n", pyString(tmpl.Transport))

	_, err := io.WriteString(w, b.String())
	return err
}

func writeBlock(b *strings.Builder, src string) {
	block := trimBlankLines(src)
	if block == "" {
		return
	}
	b.WriteString(block)
	b.WriteString("\n\n")
}

// trimBlankLines drops whitespace-only lines from both ends of src.
// Indentation of the remaining lines is preserved.
func trimBlankLines(src string) string {
	lines := strings.Split(src, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// pyString quotes s as a double-quoted Python string literal.
func pyString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}
