// SPDX-License-Identifier: MPL-2.0

package aggregate

import (
	"slices"

	"github.com/toolmerge/toolmerge/internal/pysource"
)

// ConflictReport records the names exposed more than once and the relative
// imports rejected during one run. It is computed once and read-only afterwards.
type ConflictReport struct {
	// DuplicateNames is sorted ascending.
	DuplicateNames []string
	// Occurrences maps every exposed name to its origin paths in discovery order.
	Occurrences map[string][]string
	// RelativeImports holds every rejected import in discovery order.
	RelativeImports []pysource.RelativeImport

	duplicates map[string]struct{}
}

// ComputeConflicts builds a ConflictReport from the flattened exposed functions
// and rejected imports of a run.
func ComputeConflicts(exposed []pysource.ExposedFunction, rejected []pysource.RelativeImport) *ConflictReport {
	r := &ConflictReport{
		Occurrences: make(map[string][]string, len(exposed)),
		duplicates:  make(map[string]struct{}),
	}
	for _, fn := range exposed {
		r.Occurrences[fn.Name] = append(r.Occurrences[fn.Name], fn.Path)
	}
	for name, paths := range r.Occurrences {
		if len(paths) > 1 {
			r.DuplicateNames = append(r.DuplicateNames, name)
			r.duplicates[name] = struct{}{}
		}
	}
	slices.Sort(r.DuplicateNames)
	r.RelativeImports = slices.Clone(rejected)
	return r
}

// IsDuplicate reports whether name was exposed by more than one declaration.
func (r *ConflictReport) IsDuplicate(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.duplicates[name]
	return ok
}

// HasConflicts reports whether the run saw duplicates or rejected imports.
func (r *ConflictReport) HasConflicts() bool {
	return r != nil && (len(r.DuplicateNames) > 0 || len(r.RelativeImports) > 0)
}
