// Package reconcile computes which scanned annotations still need a tracked record.
package reconcile

import "github.com/opensdd/osdd-todosync/core/annotations"

// Reconcile returns the annotations whose identity is absent from existing, in scan order.
// Textually identical annotations in different files both survive because their identities
// differ by path. Repeats of one identity within the scan collapse to the first occurrence.
func Reconcile(scanned []annotations.Annotation, existing annotations.IdentitySet) []annotations.Annotation {
	var result []annotations.Annotation
	seen := annotations.NewIdentitySet()
	for _, a := range scanned {
		id := a.Identity()
		if existing.Has(id) || seen.Has(id) {
			continue
		}
		seen.Add(id)
		result = append(result, a)
	}
	return result
}
