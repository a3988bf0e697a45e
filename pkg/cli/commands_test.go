package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/devserver"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/membership"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/roledetail"
)

func (ta *testApp) role(t *testing.T, name string) rbac.Role {
	t.Helper()
	roles, err := ta.store.ListRoles(context.Background())
	require.NoError(t, err)
	for _, r := range roles {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("role %s not found", name)
	return rbac.Role{}
}

func (ta *testApp) permissions(t *testing.T, name string) []rbac.PermissionID {
	t.Helper()
	perms, err := ta.store.GetRolePermissions(context.Background(), ta.role(t, name).ID)
	require.NoError(t, err)
	return perms
}

func (ta *testApp) members(t *testing.T, name string) []string {
	t.Helper()
	members, _, err := ta.store.ListMembers(context.Background(), ta.role(t, name).ID, devserver.MemberFilter{Page: 1, PageSize: 100})
	require.NoError(t, err)
	var names []string
	for _, m := range members {
		names = append(names, m.Username)
	}
	return names
}

func TestRoles(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.run("roles"))
	out := ta.stdout.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "store_manager")
	assert.Contains(t, out, "Store manager")
}

func TestRoleShow(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.run("role", "show", "--role", "store_manager"))
	out := ta.stdout.String()
	assert.Contains(t, out, "Store manager")
	assert.Contains(t, out, ta.role(t, "store_manager").ID)
	assert.NotContains(t, out, "read-only")

	require.NoError(t, ta.run("role", "show", "--role", "super_admin"))
	assert.Contains(t, ta.stdout.String(), "read-only")
}

func TestRoleCreate(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.run("role", "create", "--name", "shipper", "--permission", "ORDER_READ", "--permission", "DASHBOARD"))
	assert.Contains(t, ta.stdout.String(), "Created role shipper")
	assert.Equal(t, "shipper", ta.role(t, "shipper").DisplayName)
	assert.Equal(t, []rbac.PermissionID{"DASHBOARD_VIEW", "ORDER_READ"}, ta.permissions(t, "shipper"))

	err := ta.run("role", "create", "--name", "courier", "--permission", "ORDER_SHIP")
	assert.ErrorContains(t, err, `unknown permission or category "ORDER_SHIP"`)

	assert.ErrorContains(t, ta.run("role", "create"), "--name is required")
}

func TestRoleUpdate(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.run("role", "update", "--role", "support", "--display-name", "Support team"))
	assert.Contains(t, ta.stdout.String(), `"Support team"`)
	assert.Contains(t, ta.stderr.String(), "[success] Role updated")
	role := ta.role(t, "support")
	assert.Equal(t, "Support team", role.DisplayName)
	assert.NotEmpty(t, role.Description)

	err := ta.run("role", "update", "--role", "support", "--display-name", "  ")
	assert.ErrorIs(t, err, roledetail.ErrValidation)
	assert.Equal(t, "Support team", ta.role(t, "support").DisplayName)

	assert.ErrorIs(t, ta.run("role", "update", "--role", "super_admin", "--display-name", "x"), rbac.ErrProtectedRole)
	assert.ErrorContains(t, ta.run("role", "update", "--role", "support"), "nothing to update")
}

func TestRoleDelete(t *testing.T) {
	ta := newTestApp(t, "n\n")

	require.NoError(t, ta.run("role", "delete", "--role", "support"))
	assert.Contains(t, ta.stdout.String(), "Cancelled")
	assert.Contains(t, ta.stderr.String(), "Delete role Customer support? [y/N]")
	ta.role(t, "support")

	require.NoError(t, ta.run("role", "delete", "--role", "support", "--yes"))
	_, err := ta.resolveRole(context.Background(), "support")
	assert.Error(t, err)

	assert.ErrorIs(t, ta.run("role", "delete", "--role", "administrator", "--yes"), rbac.ErrSystemRole)
	assert.ErrorIs(t, ta.run("role", "delete", "--role", "super_admin", "--yes"), rbac.ErrProtectedRole)
}

func TestPermissionsShow(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.run("permissions", "show", "--role", "support"))
	out := ta.stdout.String()
	assert.Contains(t, out, "[-] Orders")
	assert.Contains(t, out, "2/4")
	assert.Contains(t, out, "[ ] Dishes")
	assert.Contains(t, out, "ORDER_WRITE")

	require.NoError(t, ta.run("permissions", "show", "--role", "support", "--search", "dish"))
	out = ta.stdout.String()
	assert.Contains(t, out, "Dishes")
	assert.NotContains(t, out, "Orders")
}

func TestPermissionsGrantRevoke(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.run("permissions", "grant", "--role", "support", "FOOD"))
	assert.Contains(t, ta.stdout.String(), "+ FOOD_CREATE (Dishes: Create)")
	perms := ta.permissions(t, "support")
	assert.Subset(t, perms, rbac.DefaultCatalogue().IdentifiersOf("FOOD"))
	assert.Contains(t, perms, "ORDER_READ")

	require.NoError(t, ta.run("permissions", "revoke", "--role", "support", "USER_READ", "ORDER"))
	assert.Contains(t, ta.stdout.String(), "- USER_READ")
	perms = ta.permissions(t, "support")
	assert.NotContains(t, perms, "USER_READ")
	assert.NotContains(t, perms, "ORDER_READ")

	before := ta.permissions(t, "support")
	require.NoError(t, ta.run("permissions", "grant", "--role", "support", "--dry-run", "DASHBOARD"))
	assert.Contains(t, ta.stdout.String(), "+ DASHBOARD_VIEW")
	assert.Equal(t, before, ta.permissions(t, "support"))
}

func TestPermissionsGrant_UnknownIdentifierDropped(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.run("permissions", "grant", "--role", "support", "ORDER_REFUND"))
	out := ta.stdout.String()
	assert.Contains(t, out, "! ORDER_REFUND is not in the catalogue")
	assert.Contains(t, out, "No changes")
}

func TestPermissions_Guards(t *testing.T) {
	ta := newTestApp(t, "")

	assert.ErrorIs(t, ta.run("permissions", "grant", "--role", "super_admin", "FOOD"), rbac.ErrProtectedRole)
	assert.ErrorContains(t, ta.run("permissions", "grant", "--role", "support"), "at least one")
}

func TestAssign(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.run("assign", "--role", "support", "--search", "dung"))
	out := ta.stdout.String()
	assert.Contains(t, out, "dung.pham")
	assert.NotContains(t, out, "hoa.dang")

	require.NoError(t, ta.run("assign", "--role", "support", "--user", "dung.pham", "--user", "HOA.DANG@fooddie.vn", "--user", "dung.pham"))
	assert.Contains(t, ta.stdout.String(), "Assigned 2 user(s) to Customer support")
	assert.ElementsMatch(t, []string{"dung.pham", "hoa.dang"}, ta.members(t, "support"))

	// members and protected-role holders are not candidates
	assert.ErrorContains(t, ta.run("assign", "--role", "support", "--user", "dung.pham"), `no assignable user matches "dung.pham"`)
	assert.ErrorContains(t, ta.run("assign", "--role", "support", "--user", "root"), `no assignable user matches "root"`)

	assert.ErrorIs(t, ta.run("assign", "--role", "super_admin", "--user", "chi.le"), rbac.ErrProtectedRole)
}

func TestAssign_ShortDebounce(t *testing.T) {
	ta := newTestApp(t, "")
	ta.Console.SearchDebounce = time.Nanosecond

	for i := 0; i < 5; i++ {
		require.NoError(t, ta.run("assign", "--role", "support", "--search", "dung"))
		assert.Contains(t, ta.stdout.String(), "dung.pham")
	}

	require.NoError(t, ta.run("assign", "--role", "support", "--user", "dung.pham", "--user", "hoa.dang"))
	assert.Contains(t, ta.stdout.String(), "Assigned 2 user(s) to Customer support")
	assert.ElementsMatch(t, []string{"dung.pham", "hoa.dang"}, ta.members(t, "support"))
}

func TestMembersList(t *testing.T) {
	ta := newTestApp(t, "")

	require.NoError(t, ta.run("members", "list", "--role", "store_manager", "--sort", "username", "--desc"))
	out := ta.stdout.String()
	assert.Less(t, strings.Index(out, "chi.le"), strings.Index(out, "binh.tran"))
	assert.Contains(t, out, "Page 1 of 1, 2 member(s)")

	require.NoError(t, ta.run("members", "list", "--role", "store_manager", "--search", "binh"))
	out = ta.stdout.String()
	assert.Contains(t, out, "binh.tran")
	assert.NotContains(t, out, "chi.le")

	require.NoError(t, ta.run("members", "list", "--role", "support"))
	assert.Contains(t, ta.stdout.String(), "Page 1 of 1, 0 member(s)")

	assert.Error(t, ta.run("members", "list", "--role", "store_manager", "--sort", "password"))
}

func TestMembersRemove(t *testing.T) {
	ta := newTestApp(t, "y\n")

	require.NoError(t, ta.run("members", "remove", "--role", "store_manager", "--user", "binh.tran"))
	assert.Contains(t, ta.stderr.String(), "Remove Tran Thi Binh from this role? [y/N]")
	assert.Contains(t, ta.stderr.String(), "[success] Removed Tran Thi Binh from role")
	assert.Equal(t, []string{"chi.le"}, ta.members(t, "store_manager"))
}

func TestMembersRemove_ByIDAndCancel(t *testing.T) {
	ta := newTestApp(t, "no\n")

	var chiID string
	members, _, err := ta.store.ListMembers(context.Background(), ta.role(t, "store_manager").ID, devserver.MemberFilter{Page: 1, PageSize: 10, Search: "chi"})
	require.NoError(t, err)
	require.Len(t, members, 1)
	chiID = members[0].ID

	require.NoError(t, ta.run("members", "remove", "--role", "store_manager", "--user", chiID))
	assert.Contains(t, ta.stdout.String(), "Cancelled")
	assert.Len(t, ta.members(t, "store_manager"), 2)

	require.NoError(t, ta.run("members", "remove", "--role", "store_manager", "--user", chiID, "--yes"))
	assert.Equal(t, []string{"binh.tran"}, ta.members(t, "store_manager"))
}

func TestMembersRemove_Guards(t *testing.T) {
	ta := newTestApp(t, "")

	assert.ErrorIs(t, ta.run("members", "remove", "--role", "store_manager", "--user", "dung.pham", "--yes"), membership.ErrUnknownMember)
	assert.ErrorIs(t, ta.run("members", "remove", "--role", "super_admin", "--user", "root", "--yes"), rbac.ErrProtectedRole)
	assert.ErrorContains(t, ta.run("members", "remove", "--role", "store_manager"), "--user is required")
}
