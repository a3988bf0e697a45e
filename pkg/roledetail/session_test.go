package roledetail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/adminapi"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/notify"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/selection"
)

type fakeAPI struct {
	mu sync.Mutex

	role        rbac.Role
	permissions []rbac.PermissionID
	all         []rbac.PermissionID

	getRoleErr error
	updateErr  error
	replaceErr error
	deleteErr  error
	listErr    error

	// permsGate, when set, blocks GetRolePermissions until closed
	permsGate chan struct{}

	calls     map[string]int
	submitted [][]rbac.PermissionID
	updates   []rbac.RoleUpdate
}

func newFakeAPI(role rbac.Role, perms ...rbac.PermissionID) *fakeAPI {
	return &fakeAPI{
		role:        role,
		permissions: perms,
		all:         append(rbac.DefaultCatalogue().AllIdentifiers(), "USER_LIST"),
		calls:       map[string]int{},
	}
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) GetRole(ctx context.Context, roleID string) (*rbac.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetRole"]++
	if f.getRoleErr != nil {
		return nil, f.getRoleErr
	}
	r := f.role
	return &r, nil
}

func (f *fakeAPI) UpdateRole(ctx context.Context, roleID string, u rbac.RoleUpdate) (*rbac.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateRole"]++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, u)
	f.role.DisplayName = u.DisplayName
	f.role.Description = u.Description
	r := f.role
	return &r, nil
}

func (f *fakeAPI) DeleteRole(ctx context.Context, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DeleteRole"]++
	return f.deleteErr
}

func (f *fakeAPI) ListPermissionIdentifiers(ctx context.Context) ([]rbac.PermissionID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListPermissionIdentifiers"]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]rbac.PermissionID(nil), f.all...), nil
}

func (f *fakeAPI) GetRolePermissions(ctx context.Context, roleID string) ([]rbac.PermissionID, error) {
	f.mu.Lock()
	gate := f.permsGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetRolePermissions"]++
	return append([]rbac.PermissionID(nil), f.permissions...), nil
}

func (f *fakeAPI) ReplaceRolePermissions(ctx context.Context, roleID string, ids []rbac.PermissionID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ReplaceRolePermissions"]++
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.submitted = append(f.submitted, append([]rbac.PermissionID(nil), ids...))
	f.permissions = append([]rbac.PermissionID(nil), ids...)
	return nil
}

var managerRole = rbac.Role{ID: "r1", Name: "manager", DisplayName: "Manager", Description: "Runs the shop"}
var superAdmin = rbac.Role{ID: "r0", Name: rbac.RoleSuperAdmin, DisplayName: "Super admin", IsSystem: true}

func newSession(t *testing.T, api *fakeAPI) (*Session, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	s := New(api, api.role.ID, Options{Notifier: rec})
	require.NoError(t, s.Load(context.Background()))
	return s, rec
}

func TestLoad(t *testing.T) {
	api := newFakeAPI(managerRole)
	s := New(api, "r1", Options{})
	assert.Equal(t, PhaseLoading, s.Snapshot().Phase)

	require.NoError(t, s.Load(context.Background()))
	snap := s.Snapshot()
	assert.Equal(t, PhaseReady, snap.Phase)
	assert.Equal(t, "Manager", snap.Form.DisplayName)
	assert.False(t, snap.Protected)

	// permissions are lazy
	assert.Equal(t, 0, api.count("GetRolePermissions"))
	assert.Equal(t, PermissionsIdle, snap.Editor.Phase)
}

func TestLoad_ErrorThenRetry(t *testing.T) {
	api := newFakeAPI(managerRole)
	api.getRoleErr = errors.New("boom")
	s := New(api, "r1", Options{})

	require.Error(t, s.Load(context.Background()))
	snap := s.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.EqualError(t, snap.RoleErr, "boom")
	assert.ErrorIs(t, s.OpenPermissionsEditor(context.Background()), ErrNotReady)

	api.getRoleErr = nil
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, PhaseReady, s.Snapshot().Phase)
}

func TestSaveMetadata_Validation(t *testing.T) {
	api := newFakeAPI(managerRole)
	s, rec := newSession(t, api)

	require.NoError(t, s.SetDisplayName("   "))
	err := s.SaveMetadata(context.Background())

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "displayName", fe.Field)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, api.count("UpdateRole"))
	assert.Contains(t, s.Snapshot().FormErrors, "displayName")
	assert.Empty(t, rec.All())

	// editing the field clears its error
	require.NoError(t, s.SetDisplayName("Ops"))
	assert.NotContains(t, s.Snapshot().FormErrors, "displayName")
}

func TestSaveMetadata_Success(t *testing.T) {
	api := newFakeAPI(managerRole)
	s, rec := newSession(t, api)

	require.NoError(t, s.SetDisplayName("  Operations "))
	require.NoError(t, s.SetDescription("Day shift"))
	require.NoError(t, s.SaveMetadata(context.Background()))

	assert.Equal(t, []rbac.RoleUpdate{{DisplayName: "Operations", Description: "Day shift"}}, api.updates)
	assert.Equal(t, 2, api.count("GetRole"))

	snap := s.Snapshot()
	assert.Equal(t, "Operations", snap.Role.DisplayName)
	assert.False(t, snap.FormDirty)

	last, _ := rec.Last()
	assert.Equal(t, notify.LevelSuccess, last.Level)
}

func TestSaveMetadata_FailureKeepsForm(t *testing.T) {
	api := newFakeAPI(managerRole)
	api.updateErr = &adminapi.APIError{StatusCode: 409, Message: "Display name already used"}
	s, rec := newSession(t, api)

	require.NoError(t, s.SetDisplayName("Owner"))
	require.Error(t, s.SaveMetadata(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, "Owner", snap.Form.DisplayName)
	assert.True(t, snap.FormDirty)
	assert.Equal(t, "Manager", snap.Role.DisplayName)
	assert.Equal(t, 1, api.count("GetRole"))

	last, _ := rec.Last()
	assert.Equal(t, notify.Notification{Level: notify.LevelError, Message: "Display name already used", At: last.At}, last)
}

func TestProtectedRole_RejectsEveryMutation(t *testing.T) {
	api := newFakeAPI(superAdmin, "USER_READ")
	s, _ := newSession(t, api)
	ctx := context.Background()

	assert.False(t, s.CanMutate())
	assert.False(t, s.CanAssign())
	assert.True(t, s.Snapshot().Protected)

	assert.ErrorIs(t, s.SetDisplayName("Root"), rbac.ErrProtectedRole)
	assert.ErrorIs(t, s.SetDescription("x"), rbac.ErrProtectedRole)
	assert.ErrorIs(t, s.SaveMetadata(ctx), rbac.ErrProtectedRole)
	assert.ErrorIs(t, s.DeleteRole(ctx), rbac.ErrProtectedRole)

	// the editor may be opened read-only, but never edited or saved
	require.NoError(t, s.OpenPermissionsEditor(ctx))
	assert.ErrorIs(t, s.ToggleCategory(rbac.CategoryUser, true), rbac.ErrProtectedRole)
	assert.ErrorIs(t, s.TogglePermission("ROLE_READ", true), rbac.ErrProtectedRole)
	_, err := s.SavePermissions(ctx)
	assert.ErrorIs(t, err, rbac.ErrProtectedRole)

	assert.Equal(t, 0, api.count("UpdateRole"))
	assert.Equal(t, 0, api.count("ReplaceRolePermissions"))
	assert.Equal(t, 0, api.count("DeleteRole"))
	assert.Equal(t, []rbac.PermissionID{"USER_READ"}, s.Snapshot().Editor.Selected)
}

func TestOpenPermissionsEditor_LazyAndReused(t *testing.T) {
	api := newFakeAPI(managerRole, "USER_READ")
	s, _ := newSession(t, api)
	ctx := context.Background()

	require.NoError(t, s.OpenPermissionsEditor(ctx))
	assert.Equal(t, 1, api.count("GetRolePermissions"))
	assert.Equal(t, 1, api.count("ListPermissionIdentifiers"))

	require.NoError(t, s.TogglePermission("ROLE_READ", true))
	s.ClosePermissionsEditor()

	// reopening reuses the load and restores the loaded selection
	require.NoError(t, s.OpenPermissionsEditor(ctx))
	assert.Equal(t, 1, api.count("GetRolePermissions"))
	assert.Equal(t, []rbac.PermissionID{"USER_READ"}, s.Snapshot().Editor.Selected)
}

func TestOpenPermissionsEditor_FailureThenRetry(t *testing.T) {
	api := newFakeAPI(managerRole, "USER_READ")
	api.listErr = errors.New("catalogue down")
	s, _ := newSession(t, api)
	ctx := context.Background()

	require.Error(t, s.OpenPermissionsEditor(ctx))
	snap := s.Snapshot()
	assert.Equal(t, PermissionsError, snap.Editor.Phase)
	assert.ErrorIs(t, s.ToggleCategory(rbac.CategoryUser, true), ErrNotReady)

	api.mu.Lock()
	api.listErr = nil
	api.mu.Unlock()

	require.NoError(t, s.OpenPermissionsEditor(ctx))
	assert.Equal(t, PermissionsReady, s.Snapshot().Editor.Phase)
}

func TestClosePermissionsEditor_DiscardsLateLoad(t *testing.T) {
	api := newFakeAPI(managerRole, "USER_READ")
	gate := make(chan struct{})
	api.permsGate = gate
	s, _ := newSession(t, api)

	done := make(chan error, 1)
	go func() { done <- s.OpenPermissionsEditor(context.Background()) }()

	require.Eventually(t, func() bool {
		return s.Snapshot().Editor.Phase == PermissionsLoading
	}, time.Second, time.Millisecond)

	s.ClosePermissionsEditor()
	close(gate)
	require.NoError(t, <-done)

	snap := s.Snapshot()
	assert.False(t, snap.Editor.Open)
	assert.Equal(t, PermissionsIdle, snap.Editor.Phase)
	assert.Nil(t, snap.Editor.Selected)
}

// Role holds {USER_READ, USER_LIST}; USER_LIST is not in the catalogue.
func TestSavePermissions_EndToEnd(t *testing.T) {
	api := newFakeAPI(managerRole, "USER_READ", "USER_LIST", "ROLE_READ", "DASHBOARD_VIEW")
	s, rec := newSession(t, api)
	ctx := context.Background()

	require.NoError(t, s.OpenPermissionsEditor(ctx))
	snap := s.Snapshot()
	assert.Equal(t, selection.Partial, snap.Editor.Categories[0].State)
	require.NotEmpty(t, snap.Editor.Other)
	assert.Equal(t, "USER_LIST", snap.Editor.Other[0].ID)

	require.NoError(t, s.ToggleCategory(rbac.CategoryUser, true))
	assert.Equal(t, selection.Full, s.Snapshot().Editor.Categories[0].State)

	pending, err := s.PendingDiff()
	require.NoError(t, err)
	assert.Equal(t, []rbac.PermissionID{"USER_ALL", "USER_CREATE", "USER_DELETE", "USER_WRITE"}, pending.Added)

	diff, err := s.SavePermissions(ctx)
	require.NoError(t, err)

	want := []rbac.PermissionID{
		"DASHBOARD_VIEW", "ROLE_READ",
		"USER_ALL", "USER_CREATE", "USER_DELETE", "USER_READ", "USER_WRITE",
	}
	require.Len(t, api.submitted, 1)
	assert.Equal(t, want, api.submitted[0])
	assert.Equal(t, want, diff.Submitted)
	assert.Equal(t, []rbac.PermissionID{"USER_LIST"}, diff.Dropped)
	assert.Equal(t, []rbac.PermissionID{"USER_LIST"}, diff.Removed)

	// editor closed, role refetched
	snap = s.Snapshot()
	assert.False(t, snap.Editor.Open)
	assert.Equal(t, 2, api.count("GetRole"))
	assert.Equal(t, want, snap.Role.Permissions)

	last, _ := rec.Last()
	assert.Equal(t, notify.LevelSuccess, last.Level)

	// round trip: reopening fetches again and the stale identifier is gone
	require.NoError(t, s.OpenPermissionsEditor(ctx))
	assert.Equal(t, 2, api.count("GetRolePermissions"))
	assert.NotContains(t, s.Snapshot().Editor.Selected, "USER_LIST")
}

func TestSavePermissions_FailureKeepsEditor(t *testing.T) {
	api := newFakeAPI(managerRole, "USER_READ")
	api.replaceErr = &adminapi.APIError{StatusCode: 500}
	s, rec := newSession(t, api)
	ctx := context.Background()

	require.NoError(t, s.OpenPermissionsEditor(ctx))
	require.NoError(t, s.ToggleCategory(rbac.CategoryFood, true))

	_, err := s.SavePermissions(ctx)
	require.Error(t, err)

	snap := s.Snapshot()
	assert.True(t, snap.Editor.Open)
	assert.Error(t, snap.Editor.SaveErr)
	assert.Equal(t, selection.Full, snap.Editor.Categories[3].State)
	assert.Equal(t, 1, api.count("GetRole"))

	last, _ := rec.Last()
	assert.Equal(t, "Failed to update permissions", last.Message)

	// retry without reselecting
	api.mu.Lock()
	api.replaceErr = nil
	api.mu.Unlock()
	_, err = s.SavePermissions(ctx)
	require.NoError(t, err)
	assert.Contains(t, api.submitted[0], "FOOD_ALL")
}

func TestPermissionQuery_DoesNotTouchSelection(t *testing.T) {
	api := newFakeAPI(managerRole, "USER_READ")
	s, _ := newSession(t, api)
	require.NoError(t, s.OpenPermissionsEditor(context.Background()))

	s.SetPermissionQuery("promo")
	snap := s.Snapshot()
	assert.Equal(t, []string{rbac.CategoryPromotion}, snap.Editor.Visible)
	assert.Equal(t, []rbac.PermissionID{"USER_READ"}, snap.Editor.Selected)
}

func TestDeleteRole(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		api := newFakeAPI(managerRole)
		s, _ := newSession(t, api)
		require.NoError(t, s.DeleteRole(context.Background()))
		assert.Equal(t, PhaseDeleted, s.Snapshot().Phase)
		assert.ErrorIs(t, s.Load(context.Background()), ErrNotReady)
	})

	t.Run("system role", func(t *testing.T) {
		role := managerRole
		role.IsSystem = true
		api := newFakeAPI(role)
		s, _ := newSession(t, api)
		assert.ErrorIs(t, s.DeleteRole(context.Background()), rbac.ErrSystemRole)
		assert.Equal(t, 0, api.count("DeleteRole"))
	})

	t.Run("failure", func(t *testing.T) {
		api := newFakeAPI(managerRole)
		api.deleteErr = errors.New("boom")
		s, rec := newSession(t, api)
		require.Error(t, s.DeleteRole(context.Background()))
		assert.Equal(t, PhaseReady, s.Snapshot().Phase)
		last, _ := rec.Last()
		assert.Equal(t, notify.LevelError, last.Level)
	})
}

func TestMetadataAndPermissionSaves_DoNotClobber(t *testing.T) {
	api := newFakeAPI(managerRole, "USER_READ")
	s, _ := newSession(t, api)
	ctx := context.Background()

	require.NoError(t, s.SetDisplayName("Draft name"))
	require.NoError(t, s.OpenPermissionsEditor(ctx))
	require.NoError(t, s.TogglePermission("ROLE_READ", true))
	_, err := s.SavePermissions(ctx)
	require.NoError(t, err)

	// the role refetch after the permission save keeps the unsaved form
	snap := s.Snapshot()
	assert.Equal(t, "Draft name", snap.Form.DisplayName)
	assert.True(t, snap.FormDirty)
}
