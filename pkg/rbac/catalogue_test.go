package rbac

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogue_Resolve(t *testing.T) {
	c := DefaultCatalogue()

	tests := []struct {
		id       PermissionID
		category string
		action   string
		found    bool
	}{
		{"USER_READ", CategoryUser, ActionRead, true},
		{"USER_ALL", CategoryUser, ActionAll, true},
		{"ORDER_WRITE", CategoryOrder, ActionWrite, true},
		{"DASHBOARD_VIEW", CategoryDashboard, "", true},
		{"USER_LIST", "", "", false},
		{"ORDER_CREATE", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			e, ok := c.Resolve(tt.id)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.category, e.Category)
				assert.Equal(t, tt.action, e.Action)
				assert.Equal(t, tt.id, e.ID)
			}
		})
	}
}

func TestDefaultCatalogue_Shape(t *testing.T) {
	c := DefaultCatalogue()

	assert.Equal(t, []string{
		CategoryUser, CategoryRole, CategoryCategory, CategoryFood,
		CategoryOrder, CategoryPromotion, CategoryDashboard, CategorySettings,
	}, c.Categories())

	actions, singleton, ok := c.ActionsOf(CategoryUser)
	require.True(t, ok)
	assert.False(t, singleton)
	assert.Equal(t, []string{ActionCreate, ActionWrite, ActionRead, ActionDelete, ActionAll}, actions)

	actions, singleton, ok = c.ActionsOf(CategoryDashboard)
	require.True(t, ok)
	assert.True(t, singleton)
	assert.Nil(t, actions)

	_, _, ok = c.ActionsOf("NOPE")
	assert.False(t, ok)

	assert.Equal(t, []PermissionID{"USER_CREATE", "USER_WRITE", "USER_READ", "USER_DELETE", "USER_ALL"}, c.IdentifiersOf(CategoryUser))
	assert.Equal(t, []PermissionID{"SETTINGS_MANAGE"}, c.IdentifiersOf(CategorySettings))
	assert.Len(t, c.AllIdentifiers(), 5*5+4+2)

	id, ok := c.Identifier(CategoryFood, ActionDelete)
	assert.True(t, ok)
	assert.Equal(t, "FOOD_DELETE", id)
	_, ok = c.Identifier(CategoryOrder, ActionCreate)
	assert.False(t, ok)
}

func TestAllIdentifiers_ReturnsCopy(t *testing.T) {
	c := DefaultCatalogue()
	ids := c.AllIdentifiers()
	ids[0] = "MUTATED"
	assert.NotContains(t, c.AllIdentifiers(), "MUTATED")
}

func TestNewCatalogue_Validation(t *testing.T) {
	tests := []struct {
		name string
		defs []CategoryDef
	}{
		{"empty name", []CategoryDef{{Name: " ", Singleton: "X"}}},
		{"duplicate category", []CategoryDef{{Name: "A", Singleton: "A1"}, {Name: "A", Singleton: "A2"}}},
		{"neither actions nor singleton", []CategoryDef{{Name: "A"}}},
		{"both actions and singleton", []CategoryDef{{Name: "A", Singleton: "A1", Actions: []ActionDef{{Action: "READ", ID: "A_READ"}}}}},
		{"duplicate identifier", []CategoryDef{{Name: "A", Singleton: "SAME"}, {Name: "B", Singleton: "SAME"}}},
		{"duplicate action", []CategoryDef{crud("A", "READ", "READ")}},
		{"empty action", []CategoryDef{{Name: "A", Actions: []ActionDef{{Action: "", ID: "A_"}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalogue(tt.defs)
			assert.Error(t, err)
		})
	}
}

func TestRole_IsProtected(t *testing.T) {
	assert.True(t, Role{Name: RoleSuperAdmin}.IsProtected())
	assert.False(t, Role{Name: "manager", DisplayName: "super_admin"}.IsProtected())
	assert.Equal(t, "manager", Role{Name: "manager"}.Label())
	assert.Equal(t, "Store manager", Role{Name: "manager", DisplayName: "Store manager"}.Label())
}

func TestLabels(t *testing.T) {
	l := DefaultLabels()
	c := DefaultCatalogue()

	assert.Equal(t, "Users", l.CategoryLabel(CategoryUser))
	assert.Equal(t, "UNTRANSLATED", l.CategoryLabel("UNTRANSLATED"))
	assert.Equal(t, "View", l.ActionLabel(ActionRead))
	assert.Equal(t, "FLY", l.ActionLabel("FLY"))

	assert.Equal(t, "Users: View", l.Describe(c, "USER_READ"))
	assert.Equal(t, "Dashboard", l.Describe(c, "DASHBOARD_VIEW"))
	assert.Equal(t, "Other: USER_LIST", l.Describe(c, "USER_LIST"))

	var nilLabels *Labels
	assert.Equal(t, CategoryUser, nilLabels.CategoryLabel(CategoryUser))
}

func TestLoadLabels_Override(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  USER: Người dùng\nactions:\n  READ: Xem\n"), 0o644))

	l, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, "Người dùng", l.CategoryLabel(CategoryUser))
	assert.Equal(t, "Xem", l.ActionLabel(ActionRead))
	// untouched keys keep the defaults
	assert.Equal(t, "Roles", l.CategoryLabel(CategoryRole))

	_, err = LoadLabels(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
