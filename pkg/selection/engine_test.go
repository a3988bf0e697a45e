package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
)

func TestCategoryState(t *testing.T) {
	c := rbac.DefaultCatalogue()

	tests := []struct {
		name     string
		selected Set
		category string
		want     State
	}{
		{"empty selection", NewSet(), rbac.CategoryUser, None},
		{"one of five", NewSet("USER_READ"), rbac.CategoryUser, Partial},
		{"four of five", NewSet("USER_CREATE", "USER_WRITE", "USER_READ", "USER_DELETE"), rbac.CategoryUser, Partial},
		{"all five", NewSet("USER_CREATE", "USER_WRITE", "USER_READ", "USER_DELETE", "USER_ALL"), rbac.CategoryUser, Full},
		{"other category selected only", NewSet("ROLE_READ"), rbac.CategoryUser, None},
		{"unknown identifier ignored", NewSet("USER_LIST"), rbac.CategoryUser, None},
		{"singleton selected", NewSet("DASHBOARD_VIEW"), rbac.CategoryDashboard, Full},
		{"singleton not selected", NewSet("USER_READ"), rbac.CategoryDashboard, None},
		{"unknown category", NewSet("USER_READ"), "NOPE", None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryState(c, tt.selected, tt.category))
		})
	}
}

func TestCategoryState_SingletonNeverPartial(t *testing.T) {
	c := rbac.DefaultCatalogue()
	all := NewSet(c.AllIdentifiers()...)
	for _, category := range c.Categories() {
		if !c.IsSingleton(category) {
			continue
		}
		for _, s := range []Set{NewSet(), all, NewSet("USER_READ")} {
			assert.NotEqual(t, Partial, CategoryState(c, s, category))
		}
	}
}

func TestToggleCategory(t *testing.T) {
	c := rbac.DefaultCatalogue()
	start := NewSet("USER_READ", "ROLE_READ", "ROLE_WRITE", "LEGACY_TOKEN")

	for _, category := range c.Categories() {
		t.Run(category, func(t *testing.T) {
			before := Summarize(c, start)

			on := ToggleCategory(c, start, category, true)
			assert.Equal(t, Full, CategoryState(c, on, category))

			off := ToggleCategory(c, start, category, false)
			assert.Equal(t, None, CategoryState(c, off, category))

			// other categories are untouched
			for i, other := range c.Categories() {
				if other == category {
					continue
				}
				assert.Equal(t, before[i].State, CategoryState(c, on, other))
				assert.Equal(t, before[i].State, CategoryState(c, off, other))
			}

			// identifiers unknown to the catalogue survive bulk actions
			assert.True(t, on.Has("LEGACY_TOKEN"))
			assert.True(t, off.Has("LEGACY_TOKEN"))
		})
	}

	// input is never mutated
	assert.Equal(t, 4, start.Len())
}

func TestToggleCategory_Idempotent(t *testing.T) {
	c := rbac.DefaultCatalogue()
	once := ToggleCategory(c, NewSet("USER_READ"), rbac.CategoryUser, true)
	twice := ToggleCategory(c, once, rbac.CategoryUser, true)
	assert.True(t, once.Equal(twice))

	cleared := ToggleCategory(c, once, rbac.CategoryUser, false)
	assert.True(t, cleared.Equal(ToggleCategory(c, cleared, rbac.CategoryUser, false)))
}

func TestToggleCategory_ThenPermission(t *testing.T) {
	c := rbac.DefaultCatalogue()
	for _, x := range c.IdentifiersOf(rbac.CategoryFood) {
		got := TogglePermission(ToggleCategory(c, NewSet(), rbac.CategoryFood, true), x, false)

		want := NewSet(c.IdentifiersOf(rbac.CategoryFood)...)
		delete(want, x)

		assert.True(t, want.Equal(got), "removing %s", x)
		assert.Equal(t, Partial, CategoryState(c, got, rbac.CategoryFood))
	}
}

func TestTogglePermission(t *testing.T) {
	s := NewSet("USER_READ")

	added := TogglePermission(s, "USER_WRITE", true)
	assert.True(t, added.Has("USER_WRITE"))
	assert.False(t, s.Has("USER_WRITE"))

	removed := TogglePermission(added, "USER_READ", false)
	assert.False(t, removed.Has("USER_READ"))

	unknown := TogglePermission(s, "NOT_IN_CATALOGUE", true)
	assert.True(t, unknown.Has("NOT_IN_CATALOGUE"))

	assert.True(t, s.Equal(TogglePermission(s, "", true)))
}

func TestFilter(t *testing.T) {
	c := rbac.DefaultCatalogue()
	labels := rbac.DefaultLabels()

	assert.Equal(t, c.Categories(), Filter(c, labels, ""))
	assert.Equal(t, c.Categories(), Filter(c, labels, "   "))

	// category label match, case-insensitive
	assert.Equal(t, []string{rbac.CategoryPromotion}, Filter(c, labels, "PROMO"))

	// action label match shows every category carrying that action
	got := Filter(c, labels, "full access")
	assert.Contains(t, got, rbac.CategoryUser)
	assert.Contains(t, got, rbac.CategoryOrder)
	assert.NotContains(t, got, rbac.CategoryDashboard)

	// "Create" is missing from ORDER
	assert.NotContains(t, Filter(c, labels, "create"), rbac.CategoryOrder)

	assert.Empty(t, Filter(c, labels, "zzz"))
}

func TestFilter_DoesNotTouchSelection(t *testing.T) {
	c := rbac.DefaultCatalogue()
	s := ToggleCategory(c, NewSet(), rbac.CategoryUser, true)
	_ = Filter(c, rbac.DefaultLabels(), "promo")
	assert.Equal(t, Full, CategoryState(c, s, rbac.CategoryUser))
}

func TestClassify(t *testing.T) {
	c := rbac.DefaultCatalogue()
	buckets := Classify(c, []rbac.PermissionID{"ROLE_READ", "USER_ALL", "USER_READ", "MYSTERY", "DASHBOARD_VIEW", "USER_READ", "AAA"})

	require.Len(t, buckets, 4)
	assert.Equal(t, rbac.CategoryUser, buckets[0].Category)
	assert.Equal(t, "USER_READ", buckets[0].Entries[0].ID)
	assert.Equal(t, "USER_ALL", buckets[0].Entries[1].ID)
	assert.Equal(t, rbac.CategoryRole, buckets[1].Category)
	assert.Equal(t, rbac.CategoryDashboard, buckets[2].Category)

	other := buckets[3]
	assert.Equal(t, rbac.CategoryOther, other.Category)
	require.Len(t, other.Entries, 2)
	assert.Equal(t, "AAA", other.Entries[0].ID)
	assert.Equal(t, "MYSTERY", other.Entries[1].ID)
	assert.Empty(t, other.Entries[1].Action)
}

func TestKnownAndUnknown(t *testing.T) {
	c := rbac.DefaultCatalogue()
	s := NewSet("USER_READ", "USER_LIST", "ZZZ")

	assert.Equal(t, []rbac.PermissionID{"USER_READ"}, Known(c, s).Sorted())
	assert.Equal(t, []rbac.PermissionID{"USER_LIST", "ZZZ"}, Unknown(c, s))
	assert.Equal(t, []rbac.PermissionID{"USER_LIST", "ZZZ"}, s.Minus(Known(c, s)))
}

func TestSummarize(t *testing.T) {
	c := rbac.DefaultCatalogue()
	rows := Summarize(c, NewSet("USER_READ", "USER_ALL", "SETTINGS_MANAGE"))
	require.Len(t, rows, len(c.Categories()))

	assert.Equal(t, CategorySummary{Category: rbac.CategoryUser, State: Partial, Selected: 2, Total: 5}, rows[0])
	last := rows[len(rows)-1]
	assert.Equal(t, rbac.CategorySettings, last.Category)
	assert.Equal(t, Full, last.State)
	assert.True(t, last.Singleton)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "none", None.String())
	assert.Equal(t, "partial", Partial.String())
	assert.Equal(t, "full", Full.String())
}
