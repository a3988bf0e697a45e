package devserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
)

var (
	// ErrNotFound is returned for an unknown role or user
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a role name is already taken
	ErrConflict = errors.New("already exists")
)

// User is a back-office account known to the dev backend
type User struct {
	rbac.UserProfile
	CreatedAt time.Time
}

// MemberFilter selects one page of a role's members
type MemberFilter struct {
	Page      int
	PageSize  int
	Search    string
	SortBy    string
	SortOrder string
}

// offset returns the row offset of the page
func (f MemberFilter) offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// memberSortColumns maps sortable member fields to their column
var memberSortColumns = map[string]string{
	"username":  "u.username",
	"email":     "u.email",
	"name":      "u.name",
	"isActive":  "u.is_active",
	"createdAt": "u.created_at",
}

// Store persists roles, users and memberships
type Store interface {
	CreateRole(ctx context.Context, in rbac.NewRole, system bool) (*rbac.Role, error)
	ListRoles(ctx context.Context) ([]rbac.Role, error)
	GetRole(ctx context.Context, roleID string) (*rbac.Role, error)
	UpdateRole(ctx context.Context, roleID string, update rbac.RoleUpdate) (*rbac.Role, error)
	// DeleteRole removes the role and every membership of it
	DeleteRole(ctx context.Context, roleID string) error

	GetRolePermissions(ctx context.Context, roleID string) ([]rbac.PermissionID, error)
	// ReplaceRolePermissions stores ids as the role's whole permission set
	ReplaceRolePermissions(ctx context.Context, roleID string, ids []rbac.PermissionID) error

	CreateUser(ctx context.Context, u rbac.UserProfile) (*User, error)
	ListMembers(ctx context.Context, roleID string, f MemberFilter) ([]rbac.Member, int, error)
	// ListCandidates returns users that are not members of roleID and do not
	// hold the protected role
	ListCandidates(ctx context.Context, roleID, search string, limit int) ([]rbac.UserProfile, error)
	// AssignUsers adds memberships, skipping existing ones. It returns the
	// number of memberships created.
	AssignUsers(ctx context.Context, roleID string, userIDs []string) (int, error)
	RemoveMember(ctx context.Context, roleID, userID string) error
}

func matchesSearch(u rbac.UserProfile, search string) bool {
	if search == "" {
		return true
	}
	s := strings.ToLower(search)
	return strings.Contains(strings.ToLower(u.Username), s) ||
		strings.Contains(strings.ToLower(u.Email), s) ||
		strings.Contains(strings.ToLower(u.Name), s)
}
