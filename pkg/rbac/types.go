package rbac

import (
	"errors"
	"time"
)

// RoleSuperAdmin is the system key of the protected role. Its metadata,
// permissions and membership cannot be changed from the console.
const RoleSuperAdmin = "super_admin"

var (
	// ErrProtectedRole is returned for any attempt to mutate the protected role
	ErrProtectedRole = errors.New("role is protected and cannot be modified")

	// ErrSystemRole is returned when deleting a system role
	ErrSystemRole = errors.New("system roles cannot be deleted")
)

// Role represents a role as returned by the backend
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Description string    `json:"description"`
	IsSystem    bool      `json:"isSystem"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	UserCount   int       `json:"userCount"`

	// Permissions is only populated by callers that fetched the role's
	// permission set separately; GET /role/{id} does not include it.
	Permissions []PermissionID `json:"permissions,omitempty"`
}

// IsProtected reports whether the role is the super-admin role.
// It is derived from the immutable system key, never from a stored flag.
func (r Role) IsProtected() bool {
	return IsProtectedName(r.Name)
}

// IsProtectedName reports whether a role name refers to the protected role.
func IsProtectedName(name string) bool {
	return name == RoleSuperAdmin
}

// Label returns the display name, falling back to the system key
func (r Role) Label() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.Name
}

// Member is the projection of a user shown in a role's membership list
type Member struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserProfile is a candidate user returned by the available-users query
type UserProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	IsActive bool   `json:"isActive"`
}

// RoleUpdate carries the editable metadata of a role
type RoleUpdate struct {
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

// NewRole is the payload used to create a role
type NewRole struct {
	Name        string         `json:"name"`
	DisplayName string         `json:"displayName"`
	Description string         `json:"description"`
	Permissions []PermissionID `json:"permissions,omitempty"`
}
