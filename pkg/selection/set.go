package selection

import (
	"sort"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
)

// Set is a set of permission identifiers. Functions in this package never
// mutate a Set they receive; they return a new one.
type Set map[rbac.PermissionID]struct{}

// NewSet builds a set from identifiers, ignoring empty tokens
func NewSet(ids ...rbac.PermissionID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership
func (s Set) Has(id rbac.PermissionID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of identifiers
func (s Set) Len() int {
	return len(s)
}

// Clone returns an independent copy
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the identifiers in lexical order
func (s Set) Sorted() []rbac.PermissionID {
	out := make([]rbac.PermissionID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same identifiers
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Minus returns the identifiers of s that are not in other, sorted
func (s Set) Minus(other Set) []rbac.PermissionID {
	var out []rbac.PermissionID
	for id := range s {
		if !other.Has(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Known returns selected ∩ catalogue: the identifiers that may be submitted.
func Known(c *rbac.Catalogue, selected Set) Set {
	out := make(Set, len(selected))
	for id := range selected {
		if c.Contains(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Unknown returns the identifiers of selected that the catalogue does not
// know, sorted.
func Unknown(c *rbac.Catalogue, selected Set) []rbac.PermissionID {
	var out []rbac.PermissionID
	for id := range selected {
		if !c.Contains(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
