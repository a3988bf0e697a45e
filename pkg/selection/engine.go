package selection

import (
	"sort"
	"strings"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
)

// State is the derived selection state of a category
type State int

const (
	None State = iota
	Partial
	Full
)

func (s State) String() string {
	switch s {
	case Partial:
		return "partial"
	case Full:
		return "full"
	default:
		return "none"
	}
}

// CategoryState computes the tri-state of a category from the selected set.
// Singleton categories are either Full or None. Unknown categories are None.
func CategoryState(c *rbac.Catalogue, selected Set, category string) State {
	ids := c.IdentifiersOf(category)
	if len(ids) == 0 {
		return None
	}
	n := 0
	for _, id := range ids {
		if selected.Has(id) {
			n++
		}
	}
	switch {
	case n == 0:
		return None
	case n == len(ids):
		return Full
	default:
		return Partial
	}
}

// ToggleCategory selects (checked) or clears every identifier of a category.
// Identifiers of other categories, including ones unknown to the catalogue,
// are carried over unchanged.
func ToggleCategory(c *rbac.Catalogue, selected Set, category string, checked bool) Set {
	out := selected.Clone()
	for _, id := range c.IdentifiersOf(category) {
		if checked {
			out[id] = struct{}{}
		} else {
			delete(out, id)
		}
	}
	return out
}

// TogglePermission selects or clears a single identifier. Any identifier is
// accepted, known to the catalogue or not.
func TogglePermission(selected Set, id rbac.PermissionID, checked bool) Set {
	out := selected.Clone()
	if id == "" {
		return out
	}
	if checked {
		out[id] = struct{}{}
	} else {
		delete(out, id)
	}
	return out
}

// Filter returns the categories whose label, or any of whose action labels,
// contain the query (case-insensitive). An empty query returns every
// category. Filtering is display-only and never touches a selection.
func Filter(c *rbac.Catalogue, labels *rbac.Labels, query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	categories := c.Categories()
	if q == "" {
		return categories
	}

	visible := make([]string, 0, len(categories))
	for _, category := range categories {
		if matchesCategory(c, labels, category, q) {
			visible = append(visible, category)
		}
	}
	return visible
}

func matchesCategory(c *rbac.Catalogue, labels *rbac.Labels, category, q string) bool {
	if strings.Contains(strings.ToLower(labels.CategoryLabel(category)), q) {
		return true
	}
	actions, _, _ := c.ActionsOf(category)
	for _, a := range actions {
		if strings.Contains(strings.ToLower(labels.ActionLabel(a)), q) {
			return true
		}
	}
	return false
}

// Bucket groups identifiers under one category for display
type Bucket struct {
	Category string
	Entries  []rbac.Entry
}

// Classify groups identifiers (typically the list returned by the backend)
// by catalogue category, in catalogue order. Identifiers the catalogue does
// not know end up in a trailing OTHER bucket with no action.
func Classify(c *rbac.Catalogue, ids []rbac.PermissionID) []Bucket {
	grouped := make(map[string][]rbac.Entry)
	var other []rbac.Entry
	seen := make(map[rbac.PermissionID]struct{}, len(ids))

	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		if e, ok := c.Resolve(id); ok {
			grouped[e.Category] = append(grouped[e.Category], e)
			continue
		}
		other = append(other, rbac.Entry{Category: rbac.CategoryOther, ID: id})
	}

	var buckets []Bucket
	for _, category := range c.Categories() {
		entries, ok := grouped[category]
		if !ok {
			continue
		}
		order := make(map[rbac.PermissionID]int)
		for i, id := range c.IdentifiersOf(category) {
			order[id] = i
		}
		sort.Slice(entries, func(i, j int) bool { return order[entries[i].ID] < order[entries[j].ID] })
		buckets = append(buckets, Bucket{Category: category, Entries: entries})
	}
	if len(other) > 0 {
		sort.Slice(other, func(i, j int) bool { return other[i].ID < other[j].ID })
		buckets = append(buckets, Bucket{Category: rbac.CategoryOther, Entries: other})
	}
	return buckets
}

// CategorySummary is the render model of one category row
type CategorySummary struct {
	Category  string
	State     State
	Selected  int
	Total     int
	Singleton bool
}

// Summarize computes the state of every catalogue category
func Summarize(c *rbac.Catalogue, selected Set) []CategorySummary {
	categories := c.Categories()
	out := make([]CategorySummary, 0, len(categories))
	for _, category := range categories {
		ids := c.IdentifiersOf(category)
		n := 0
		for _, id := range ids {
			if selected.Has(id) {
				n++
			}
		}
		out = append(out, CategorySummary{
			Category:  category,
			State:     CategoryState(c, selected, category),
			Selected:  n,
			Total:     len(ids),
			Singleton: c.IsSingleton(category),
		})
	}
	return out
}
