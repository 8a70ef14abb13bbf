// SPDX-License-Identifier: MPL-2.0

package aggregate

import (
	"fmt"
	"io"
	"strings"

	"github.com/toolmerge/toolmerge/internal/discovery"
)

// WriteReport writes a Markdown summary of m: surviving tools, name
// conflicts, rejected relative imports and diagnostics.
func WriteReport(w io.Writer, m *MergedModule, diags []discovery.Diagnostic) error {
	var b strings.Builder

	b.WriteString("# Tool inventory\n\n")
	fmt.Fprintf(&b, "**%d** tools, **%d** utilities, **%d** imports.\n\n",
		len(m.Exposed), len(m.Utilities), len(m.Imports))

	b.WriteString("## Tools\n\n")
	if len(m.Exposed) == 0 {
		b.WriteString("_None._\n\n")
	} else {
		b.WriteString("| Tool | Source | Lines |\n| --- | --- | --- |\n")
		for _, fn := range m.Exposed {
			fmt.Fprintf(&b, "| `%s` | `%s` | %d-%d |\n", fn.Name, fn.Path, fn.StartLine, fn.EndLine)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Conflicts\n\n")
	if m.Conflicts == nil || len(m.Conflicts.DuplicateNames) == 0 {
		b.WriteString("_None._\n\n")
	} else {
		for _, name := range m.Conflicts.DuplicateNames {
			paths := m.Conflicts.Occurrences[name]
			fmt.Fprintf(&b, "- `%s` defined in %s; kept `%s`\n", name, codeList(paths), paths[0])
		}
		b.WriteString("\n")
	}

	b.WriteString("## Rejected relative imports\n\n")
	if m.Conflicts == nil || len(m.Conflicts.RelativeImports) == 0 {
		b.WriteString("_None._\n\n")
	} else {
		for _, rel := range m.Conflicts.RelativeImports {
			fmt.Fprintf(&b, "- `%s:%d` `%s`\n", rel.Path, rel.Line, rel.Source)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Diagnostics\n\n")
	if len(diags) == 0 {
		b.WriteString("_None._\n")
	} else {
		for _, d := range diags {
			fmt.Fprintf(&b, "- %s\n", d.String())
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func codeList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "`" + s + "`"
	}
	return strings.Join(quoted, ", ")
}
