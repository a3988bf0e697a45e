// Package roledetail drives the role detail page: loading a role, editing
// its metadata, editing its permission set through the tri-state selection
// engine, and deleting it.
//
// A Session is safe for concurrent use. Each operation writes only the slice
// of state it owns (role, metadata form, permissions editor), so a metadata
// save and a permissions save may complete in either order.
package roledetail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/notify"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/observability"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/selection"
)

// API is the subset of the admin API a session uses
type API interface {
	GetRole(ctx context.Context, roleID string) (*rbac.Role, error)
	UpdateRole(ctx context.Context, roleID string, update rbac.RoleUpdate) (*rbac.Role, error)
	DeleteRole(ctx context.Context, roleID string) error
	ListPermissionIdentifiers(ctx context.Context) ([]rbac.PermissionID, error)
	GetRolePermissions(ctx context.Context, roleID string) ([]rbac.PermissionID, error)
	ReplaceRolePermissions(ctx context.Context, roleID string, ids []rbac.PermissionID) error
}

var (
	// ErrNotReady is returned when an operation needs state that is not loaded
	ErrNotReady = errors.New("role detail is not ready")

	// ErrValidation is wrapped by every FieldError
	ErrValidation = errors.New("validation failed")

	// ErrBusy is returned when the same save is already in flight
	ErrBusy = errors.New("save already in progress")
)

// FieldError reports an invalid form field
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// Phase of the role itself
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseError
	PhaseDeleted
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	case PhaseDeleted:
		return "deleted"
	default:
		return "loading"
	}
}

// PermissionsPhase of the lazily loaded permissions editor
type PermissionsPhase int

const (
	PermissionsIdle PermissionsPhase = iota
	PermissionsLoading
	PermissionsReady
	PermissionsError
)

func (p PermissionsPhase) String() string {
	switch p {
	case PermissionsLoading:
		return "loading"
	case PermissionsReady:
		return "ready"
	case PermissionsError:
		return "error"
	default:
		return "idle"
	}
}

// Options configures a Session. Zero values get defaults.
type Options struct {
	Catalogue *rbac.Catalogue
	Labels    *rbac.Labels
	Notifier  notify.Notifier
	Logger    *observability.Logger
	Metrics   *observability.Metrics
}

// Session is one role detail view
type Session struct {
	api     API
	roleID  string
	cat     *rbac.Catalogue
	labels  *rbac.Labels
	notify  notify.Notifier
	logger  *observability.Logger
	metrics *observability.Metrics

	mu sync.Mutex

	// role slice
	phase   Phase
	role    *rbac.Role
	roleErr error
	roleGen uint64

	// metadata form slice
	form       rbac.RoleUpdate
	formDirty  bool
	formErrors map[string]string
	savingMeta bool

	// permissions editor slice
	editor editorState
}

type editorState struct {
	open       bool
	phase      PermissionsPhase
	err        error
	gen        uint64
	backendIDs []rbac.PermissionID
	loaded     selection.Set
	selected   selection.Set
	query      string
	saving     bool
	saveErr    error
}

// New creates a session for roleID. Call Load to fetch the role.
func New(api API, roleID string, opts Options) *Session {
	if opts.Catalogue == nil {
		opts.Catalogue = rbac.DefaultCatalogue()
	}
	if opts.Labels == nil {
		opts.Labels = rbac.DefaultLabels()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	return &Session{
		api:        api,
		roleID:     roleID,
		cat:        opts.Catalogue,
		labels:     opts.Labels,
		notify:     opts.Notifier,
		logger:     opts.Logger.WithRole(roleID),
		metrics:    opts.Metrics,
		phase:      PhaseLoading,
		formErrors: map[string]string{},
	}
}

// RoleID returns the role the session is bound to
func (s *Session) RoleID() string {
	return s.roleID
}

// Load fetches the role. It is also the retry action after a failure.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.phase == PhaseDeleted {
		s.mu.Unlock()
		return ErrNotReady
	}
	s.roleGen++
	gen := s.roleGen
	if s.role == nil {
		s.phase = PhaseLoading
	}
	s.mu.Unlock()

	return s.fetchRole(ctx, gen)
}

// reload refetches the role after a successful mutation
func (s *Session) reload(ctx context.Context) error {
	s.mu.Lock()
	if s.phase == PhaseDeleted {
		s.mu.Unlock()
		return nil
	}
	s.roleGen++
	gen := s.roleGen
	s.mu.Unlock()

	return s.fetchRole(ctx, gen)
}

func (s *Session) fetchRole(ctx context.Context, gen uint64) error {
	role, err := s.api.GetRole(ctx, s.roleID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.roleGen || s.phase == PhaseDeleted {
		s.metrics.ObserveStale("role_detail")
		return nil
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to load role")
		s.phase = PhaseError
		s.roleErr = err
		return fmt.Errorf("failed to load role: %w", err)
	}

	if role.Permissions == nil && s.editor.loaded != nil {
		role.Permissions = s.editor.loaded.Sorted()
	}
	s.role = role
	s.roleErr = nil
	s.phase = PhaseReady
	if !s.formDirty {
		s.form = rbac.RoleUpdate{DisplayName: role.DisplayName, Description: role.Description}
	}
	return nil
}

// guardMutation checks the preconditions shared by every edit. Callers hold mu.
func (s *Session) guardMutation() error {
	if s.phase != PhaseReady || s.role == nil {
		return ErrNotReady
	}
	if s.role.IsProtected() {
		return rbac.ErrProtectedRole
	}
	return nil
}

// CanMutate reports whether edit controls should be enabled
func (s *Session) CanMutate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guardMutation() == nil
}

// CanAssign reports whether the assign-users trigger should be enabled
func (s *Session) CanAssign() bool {
	return s.CanMutate()
}

// Role returns a copy of the loaded role, or nil
func (s *Session) Role() *rbac.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role == nil {
		return nil
	}
	r := *s.role
	r.Permissions = append([]rbac.PermissionID(nil), s.role.Permissions...)
	return &r
}

// SetDisplayName edits the metadata form
func (s *Session) SetDisplayName(v string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardMutation(); err != nil {
		return err
	}
	s.form.DisplayName = v
	s.formDirty = true
	delete(s.formErrors, "displayName")
	return nil
}

// SetDescription edits the metadata form
func (s *Session) SetDescription(v string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardMutation(); err != nil {
		return err
	}
	s.form.Description = v
	s.formDirty = true
	return nil
}

// SaveMetadata submits the metadata form. An empty display name is reported
// as a FieldError without any network call. On failure the form is kept.
func (s *Session) SaveMetadata(ctx context.Context) error {
	s.mu.Lock()
	if err := s.guardMutation(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.savingMeta {
		s.mu.Unlock()
		return ErrBusy
	}
	update := rbac.RoleUpdate{
		DisplayName: strings.TrimSpace(s.form.DisplayName),
		Description: strings.TrimSpace(s.form.Description),
	}
	if update.DisplayName == "" {
		fe := &FieldError{Field: "displayName", Message: "Display name is required"}
		s.formErrors[fe.Field] = fe.Message
		s.mu.Unlock()
		return fe
	}
	s.formErrors = map[string]string{}
	s.savingMeta = true
	s.mu.Unlock()

	_, err := s.api.UpdateRole(ctx, s.roleID, update)

	s.mu.Lock()
	s.savingMeta = false
	if err != nil {
		s.mu.Unlock()
		s.logger.WithError(err).Error("Failed to update role")
		notify.Failure(s.notify, err, "Failed to update role")
		return fmt.Errorf("failed to update role: %w", err)
	}
	s.form = update
	s.formDirty = false
	s.mu.Unlock()

	notify.Success(s.notify, "Role updated")
	return s.reload(ctx)
}

// DeleteRole deletes the role. The protected role and system roles are
// rejected before any network call.
func (s *Session) DeleteRole(ctx context.Context) error {
	s.mu.Lock()
	if err := s.guardMutation(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.role.IsSystem {
		s.mu.Unlock()
		return rbac.ErrSystemRole
	}
	s.mu.Unlock()

	if err := s.api.DeleteRole(ctx, s.roleID); err != nil {
		s.logger.WithError(err).Error("Failed to delete role")
		notify.Failure(s.notify, err, "Failed to delete role")
		return fmt.Errorf("failed to delete role: %w", err)
	}

	s.mu.Lock()
	s.phase = PhaseDeleted
	s.roleGen++
	s.editor.open = false
	s.editor.gen++
	s.mu.Unlock()

	notify.Success(s.notify, "Role deleted")
	return nil
}

// OpenPermissionsEditor opens the editor, loading the backend identifier
// list and the role's permissions on first use or after a failed load.
// Reopening after a successful load restores the loaded selection.
func (s *Session) OpenPermissionsEditor(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != PhaseReady {
		s.mu.Unlock()
		return ErrNotReady
	}
	s.editor.open = true
	s.editor.saveErr = nil
	s.editor.query = ""
	switch s.editor.phase {
	case PermissionsReady:
		s.editor.selected = s.editor.loaded.Clone()
		s.mu.Unlock()
		return nil
	case PermissionsLoading:
		s.mu.Unlock()
		return nil
	}
	s.editor.phase = PermissionsLoading
	s.editor.err = nil
	s.editor.gen++
	gen := s.editor.gen
	s.mu.Unlock()

	return s.loadPermissions(ctx, gen)
}

func (s *Session) loadPermissions(ctx context.Context, gen uint64) error {
	var backendIDs, roleIDs []rbac.PermissionID

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := s.api.ListPermissionIdentifiers(gctx)
		if err != nil {
			return fmt.Errorf("failed to list permissions: %w", err)
		}
		backendIDs = ids
		return nil
	})
	g.Go(func() error {
		ids, err := s.api.GetRolePermissions(gctx, s.roleID)
		if err != nil {
			return fmt.Errorf("failed to load role permissions: %w", err)
		}
		roleIDs = ids
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.editor.gen || !s.editor.open {
		s.metrics.ObserveStale("permissions_editor")
		return nil
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to load permissions editor")
		s.editor.phase = PermissionsError
		s.editor.err = err
		return err
	}

	s.editor.backendIDs = backendIDs
	s.editor.loaded = selection.NewSet(roleIDs...)
	s.editor.selected = s.editor.loaded.Clone()
	s.editor.phase = PermissionsReady
	if s.role != nil {
		s.role.Permissions = s.editor.loaded.Sorted()
	}
	return nil
}

// ClosePermissionsEditor closes the editor. A load still in flight is
// discarded when it completes.
func (s *Session) ClosePermissionsEditor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editor.open = false
	s.editor.saveErr = nil
	if s.editor.phase == PermissionsLoading {
		s.editor.phase = PermissionsIdle
		s.editor.gen++
	}
}

// SetPermissionQuery sets the editor search query. It never changes the
// selection.
func (s *Session) SetPermissionQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editor.query = q
}

func (s *Session) guardEditor() error {
	if err := s.guardMutation(); err != nil {
		return err
	}
	if !s.editor.open || s.editor.phase != PermissionsReady {
		return ErrNotReady
	}
	return nil
}

// ToggleCategory checks or clears every identifier of a category
func (s *Session) ToggleCategory(category string, checked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardEditor(); err != nil {
		return err
	}
	s.editor.selected = selection.ToggleCategory(s.cat, s.editor.selected, category, checked)
	return nil
}

// TogglePermission checks or clears one identifier
func (s *Session) TogglePermission(id rbac.PermissionID, checked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardEditor(); err != nil {
		return err
	}
	s.editor.selected = selection.TogglePermission(s.editor.selected, id, checked)
	return nil
}

// Diff describes what a permission save would change
type Diff struct {
	// Added are catalogue identifiers selected but not currently granted
	Added []rbac.PermissionID
	// Removed are granted identifiers that will not be submitted
	Removed []rbac.PermissionID
	// Dropped are selected identifiers unknown to the catalogue
	Dropped []rbac.PermissionID
	// Submitted is the full replacement set, sorted
	Submitted []rbac.PermissionID
}

// Empty reports whether saving would change nothing
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

func (s *Session) diffLocked() Diff {
	submit := selection.Known(s.cat, s.editor.selected)
	return Diff{
		Added:     submit.Minus(s.editor.loaded),
		Removed:   s.editor.loaded.Minus(submit),
		Dropped:   selection.Unknown(s.cat, s.editor.selected),
		Submitted: submit.Sorted(),
	}
}

// PendingDiff returns the diff of the current selection against the loaded
// permissions
func (s *Session) PendingDiff() (Diff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.editor.open || s.editor.phase != PermissionsReady {
		return Diff{}, ErrNotReady
	}
	return s.diffLocked(), nil
}

// SavePermissions submits selected ∩ catalogue as a full replacement of the
// role's permission set. On success the editor closes and the role is
// refetched; on failure the editor stays open with its selection intact.
func (s *Session) SavePermissions(ctx context.Context) (Diff, error) {
	s.mu.Lock()
	if err := s.guardEditor(); err != nil {
		s.mu.Unlock()
		return Diff{}, err
	}
	if s.editor.saving {
		s.mu.Unlock()
		return Diff{}, ErrBusy
	}
	diff := s.diffLocked()
	s.editor.saving = true
	s.editor.saveErr = nil
	s.mu.Unlock()

	if len(diff.Dropped) > 0 {
		s.logger.WithField("dropped", diff.Dropped).Warn("Dropping identifiers unknown to the catalogue")
		s.metrics.ObserveDropped(len(diff.Dropped))
	}

	err := s.api.ReplaceRolePermissions(ctx, s.roleID, diff.Submitted)

	s.mu.Lock()
	s.editor.saving = false
	if err != nil {
		s.editor.saveErr = err
		s.mu.Unlock()
		s.logger.WithError(err).Error("Failed to update permissions")
		notify.Failure(s.notify, err, "Failed to update permissions")
		return diff, fmt.Errorf("failed to update permissions: %w", err)
	}
	s.editor.open = false
	s.editor.phase = PermissionsIdle
	s.editor.gen++
	s.editor.loaded = selection.NewSet(diff.Submitted...)
	s.editor.selected = s.editor.loaded.Clone()
	if s.role != nil {
		s.role.Permissions = diff.Submitted
	}
	s.mu.Unlock()

	notify.Success(s.notify, "Permissions updated")
	return diff, s.reload(ctx)
}
