package adminapi

import (
	"context"
	"net/http"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
)

// GetRole fetches a role. The backend does not include permissions.
func (c *Client) GetRole(ctx context.Context, roleID string) (*rbac.Role, error) {
	var role rbac.Role
	if err := c.do(ctx, "get_role", http.MethodGet, rolePath(roleID), nil, nil, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// ListRoles fetches every role
func (c *Client) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	var out struct {
		Data []rbac.Role `json:"data"`
	}
	if err := c.do(ctx, "list_roles", http.MethodGet, "/role", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateRole creates a role and returns it as stored
func (c *Client) CreateRole(ctx context.Context, in rbac.NewRole) (*rbac.Role, error) {
	var role rbac.Role
	if err := c.do(ctx, "create_role", http.MethodPost, "/role", nil, in, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// UpdateRole changes a role's display name and description
func (c *Client) UpdateRole(ctx context.Context, roleID string, update rbac.RoleUpdate) (*rbac.Role, error) {
	var role rbac.Role
	if err := c.do(ctx, "update_role", http.MethodPut, rolePath(roleID), nil, update, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// DeleteRole deletes a role; the backend drops its memberships
func (c *Client) DeleteRole(ctx context.Context, roleID string) error {
	return c.do(ctx, "delete_role", http.MethodDelete, rolePath(roleID), nil, nil, nil)
}

// ListPermissionIdentifiers fetches every identifier the backend knows
func (c *Client) ListPermissionIdentifiers(ctx context.Context) ([]rbac.PermissionID, error) {
	var ids []rbac.PermissionID
	if err := c.do(ctx, "list_permissions", http.MethodGet, "/role/permissions/all", nil, nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

type permissionsBody struct {
	Permissions []rbac.PermissionID `json:"permissions"`
}

// GetRolePermissions fetches the identifiers granted to a role
func (c *Client) GetRolePermissions(ctx context.Context, roleID string) ([]rbac.PermissionID, error) {
	var out permissionsBody
	if err := c.do(ctx, "get_role_permissions", http.MethodGet, rolePath(roleID, "permissions"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Permissions, nil
}

// ReplaceRolePermissions replaces the whole permission set of a role
func (c *Client) ReplaceRolePermissions(ctx context.Context, roleID string, ids []rbac.PermissionID) error {
	if ids == nil {
		ids = []rbac.PermissionID{}
	}
	return c.do(ctx, "replace_role_permissions", http.MethodPut, rolePath(roleID, "permissions"), nil, permissionsBody{Permissions: ids}, nil)
}
