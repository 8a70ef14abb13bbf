// SPDX-License-Identifier: MPL-2.0

package aggregate

import (
	"cmp"
	"slices"

	"github.com/toolmerge/toolmerge/internal/pysource"
)

// MergedModule is the filtered, ordered content of the output module.
type MergedModule struct {
	// Imports is deduplicated and sorted by rendered line.
	Imports []pysource.ImportDeclaration
	// Utilities keeps every utility in discovery order, duplicates included.
	Utilities []pysource.UtilityDeclaration
	// Exposed holds the surviving tool functions in discovery order.
	Exposed []pysource.ExposedFunction
	// Dropped holds the later definitions of duplicate tool names.
	Dropped   []pysource.ExposedFunction
	Conflicts *ConflictReport
}

// MergeImports removes exact duplicates and sorts by the rendered import line.
func MergeImports(decls []pysource.ImportDeclaration) []pysource.ImportDeclaration {
	seen := make(map[pysource.ImportDeclaration]struct{}, len(decls))
	out := make([]pysource.ImportDeclaration, 0, len(decls))
	for _, d := range decls {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b pysource.ImportDeclaration) int {
		return cmp.Compare(a.Line(), b.Line())
	})
	return out
}

// FilterExposed keeps the first occurrence of each duplicate name and every
// non-duplicate function. Discovery order is preserved in both slices.
func FilterExposed(exposed []pysource.ExposedFunction, report *ConflictReport) (kept, dropped []pysource.ExposedFunction) {
	emitted := make(map[string]struct{})
	for _, fn := range exposed {
		if !report.IsDuplicate(fn.Name) {
			kept = append(kept, fn)
			continue
		}
		if _, ok := emitted[fn.Name]; ok {
			dropped = append(dropped, fn)
			continue
		}
		emitted[fn.Name] = struct{}{}
		kept = append(kept, fn)
	}
	return kept, dropped
}

// Build flattens per-file results in the given order and applies the merge
// rules. Nil entries (skipped files) are ignored.
func Build(results []*pysource.FileResult) *MergedModule {
	var (
		imports   []pysource.ImportDeclaration
		utilities []pysource.UtilityDeclaration
		exposed   []pysource.ExposedFunction
		rejected  []pysource.RelativeImport
	)
	for _, res := range results {
		if res == nil {
			continue
		}
		imports = append(imports, res.Imports...)
		utilities = append(utilities, res.Utilities...)
		exposed = append(exposed, res.Exposed...)
		rejected = append(rejected, res.Rejected...)
	}

	report := ComputeConflicts(exposed, rejected)
	kept, dropped := FilterExposed(exposed, report)
	return &MergedModule{
		Imports:   MergeImports(imports),
		Utilities: utilities,
		Exposed:   kept,
		Dropped:   dropped,
		Conflicts: report,
	}
}
