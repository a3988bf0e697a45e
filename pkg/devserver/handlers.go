package devserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/adminapi"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/httputil"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/observability"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
)

const (
	defaultPageSize       = 10
	maxPageSize           = 100
	defaultCandidateLimit = 20
	maxCandidateLimit     = 100
)

type messageResponse struct {
	Message string `json:"message"`
}

// ListRoles handles GET /role
func (s *Server) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.store.ListRoles(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err, "Role not found")
		return
	}
	httputil.WriteSuccess(w, map[string]any{"data": roles})
}

// CreateRole handles POST /role
func (s *Server) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req rbac.NewRole
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}
	if rbac.IsProtectedName(req.Name) {
		httputil.WriteForbidden(w, "Role name is reserved")
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Name
	}
	if unknown := s.unknownPermissions(req.Permissions); len(unknown) > 0 {
		httputil.WriteBadRequest(w, "Unknown permissions: "+strings.Join(unknown, ", "))
		return
	}

	role, err := s.store.CreateRole(r.Context(), req, false)
	if err != nil {
		s.writeStoreError(w, r, err, "Role not found")
		return
	}
	observability.FromContext(r.Context()).WithRole(role.ID).WithField("name", role.Name).Info("Role created")
	httputil.WriteCreated(w, role)
}

// ListPermissions handles GET /role/permissions/all
func (s *Server) ListPermissions(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, s.all)
}

// loadRole fetches the {id} role, writing a 404 when missing
func (s *Server) loadRole(w http.ResponseWriter, r *http.Request) (*rbac.Role, bool) {
	roleID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return nil, false
	}
	return s.roleByID(w, r, roleID)
}

func (s *Server) roleByID(w http.ResponseWriter, r *http.Request, roleID string) (*rbac.Role, bool) {
	role, err := s.store.GetRole(r.Context(), roleID)
	if err != nil {
		s.writeStoreError(w, r, err, "Role not found")
		return nil, false
	}
	return role, true
}

// loadMutableRole is loadRole plus the protected role guard
func (s *Server) loadMutableRole(w http.ResponseWriter, r *http.Request) (*rbac.Role, bool) {
	role, ok := s.loadRole(w, r)
	if !ok {
		return nil, false
	}
	if role.IsProtected() {
		httputil.WriteForbidden(w, "Cannot modify super_admin role")
		return nil, false
	}
	return role, true
}

// GetRole handles GET /role/{id}
func (s *Server) GetRole(w http.ResponseWriter, r *http.Request) {
	role, ok := s.loadRole(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, role)
}

// UpdateRole handles PUT /role/{id}
func (s *Server) UpdateRole(w http.ResponseWriter, r *http.Request) {
	role, ok := s.loadMutableRole(w, r)
	if !ok {
		return
	}
	var req rbac.RoleUpdate
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	req.Description = strings.TrimSpace(req.Description)
	if !httputil.RequireNonEmpty(w, req.DisplayName, "displayName") {
		return
	}

	updated, err := s.store.UpdateRole(r.Context(), role.ID, req)
	if err != nil {
		s.writeStoreError(w, r, err, "Role not found")
		return
	}
	httputil.WriteSuccess(w, updated)
}

// DeleteRole handles DELETE /role/{id}
func (s *Server) DeleteRole(w http.ResponseWriter, r *http.Request) {
	role, ok := s.loadMutableRole(w, r)
	if !ok {
		return
	}
	if role.IsSystem {
		httputil.WriteForbidden(w, "System roles cannot be deleted")
		return
	}
	if err := s.store.DeleteRole(r.Context(), role.ID); err != nil {
		s.writeStoreError(w, r, err, "Role not found")
		return
	}
	observability.FromContext(r.Context()).WithRole(role.ID).Info("Role deleted")
	httputil.WriteNoContent(w)
}

// GetRolePermissions handles GET /role/{id}/permissions
func (s *Server) GetRolePermissions(w http.ResponseWriter, r *http.Request) {
	role, ok := s.loadRole(w, r)
	if !ok {
		return
	}
	perms, err := s.store.GetRolePermissions(r.Context(), role.ID)
	if err != nil {
		s.writeStoreError(w, r, err, "Role not found")
		return
	}
	httputil.WriteSuccess(w, map[string]any{"permissions": perms})
}

type permissionsRequest struct {
	Permissions []rbac.PermissionID `json:"permissions"`
}

func (s *Server) unknownPermissions(ids []rbac.PermissionID) []string {
	var unknown []string
	for _, id := range ids {
		if _, ok := s.known[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	return unknown
}

// ReplaceRolePermissions handles PUT /role/{id}/permissions. The body is the
// complete new set.
func (s *Server) ReplaceRolePermissions(w http.ResponseWriter, r *http.Request) {
	role, ok := s.loadMutableRole(w, r)
	if !ok {
		return
	}
	var req permissionsRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Permissions == nil {
		httputil.WriteBadRequest(w, "permissions is required")
		return
	}
	if unknown := s.unknownPermissions(req.Permissions); len(unknown) > 0 {
		httputil.WriteBadRequest(w, "Unknown permissions: "+strings.Join(unknown, ", "))
		return
	}

	if err := s.store.ReplaceRolePermissions(r.Context(), role.ID, req.Permissions); err != nil {
		s.writeStoreError(w, r, err, "Role not found")
		return
	}
	observability.FromContext(r.Context()).WithRole(role.ID).WithField("count", len(req.Permissions)).Info("Role permissions replaced")
	httputil.WriteSuccess(w, messageResponse{Message: "Permissions updated"})
}

// ListMembers handles GET /role/{id}/users
func (s *Server) ListMembers(w http.ResponseWriter, r *http.Request) {
	role, ok := s.loadRole(w, r)
	if !ok {
		return
	}
	page, err := httputil.ParseQueryInt(r, "page", 1)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	pageSize, err := httputil.ParseQueryInt(r, "pageSize", defaultPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	page = max(page, 1)
	pageSize = min(max(pageSize, 1), maxPageSize)

	filter := MemberFilter{
		Page:      page,
		PageSize:  pageSize,
		Search:    httputil.ParseQueryString(r, "search", ""),
		SortBy:    httputil.ParseQueryString(r, "sortBy", ""),
		SortOrder: strings.ToLower(httputil.ParseQueryString(r, "sortOrder", adminapi.SortAsc)),
	}
	if filter.SortBy != "" {
		if _, ok := memberSortColumns[filter.SortBy]; !ok {
			httputil.WriteBadRequest(w, fmt.Sprintf("Cannot sort by %q", filter.SortBy))
			return
		}
	}

	members, total, err := s.store.ListMembers(r.Context(), role.ID, filter)
	if err != nil {
		s.writeStoreError(w, r, err, "Role not found")
		return
	}
	httputil.WriteSuccess(w, adminapi.MemberPage{Data: members, Total: total})
}

// ListCandidates handles GET /role/{id}/available-users
func (s *Server) ListCandidates(w http.ResponseWriter, r *http.Request) {
	role, ok := s.loadRole(w, r)
	if !ok {
		return
	}
	limit, err := httputil.ParseQueryInt(r, "limit", defaultCandidateLimit)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	limit = min(limit, maxCandidateLimit)

	users, err := s.store.ListCandidates(r.Context(), role.ID, httputil.ParseQueryString(r, "search", ""), limit)
	if err != nil {
		s.writeStoreError(w, r, err, "Role not found")
		return
	}
	httputil.WriteSuccess(w, map[string]any{"data": users})
}

// AssignUsers handles POST /role/assign
func (s *Server) AssignUsers(w http.ResponseWriter, r *http.Request) {
	var req adminapi.AssignRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.RoleID, "roleId") {
		return
	}
	if len(req.UserIDs) == 0 {
		httputil.WriteBadRequest(w, "userIds must not be empty")
		return
	}
	role, ok := s.roleByID(w, r, req.RoleID)
	if !ok {
		return
	}
	if role.IsProtected() {
		httputil.WriteForbidden(w, "Cannot assign users to super_admin role")
		return
	}

	n, err := s.store.AssignUsers(r.Context(), role.ID, req.UserIDs)
	if err != nil {
		s.writeStoreError(w, r, err, "User not found")
		return
	}
	logAssignment(r.Context(), role.ID, req.UserIDs, n)
	httputil.WriteSuccess(w, map[string]any{
		"message":  fmt.Sprintf("Assigned %d user(s) to role", n),
		"assigned": n,
	})
}

func logAssignment(ctx context.Context, roleID string, userIDs []string, created int) {
	observability.FromContext(ctx).WithRole(roleID).WithFields(map[string]any{
		"requested": len(userIDs),
		"created":   created,
	}).Info("Users assigned to role")
}

// RemoveMember handles DELETE /role/{id}/users/{userId}
func (s *Server) RemoveMember(w http.ResponseWriter, r *http.Request) {
	role, ok := s.loadMutableRole(w, r)
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathStringOrError(w, r, "userId")
	if !ok {
		return
	}
	if err := s.store.RemoveMember(r.Context(), role.ID, userID); err != nil {
		s.writeStoreError(w, r, err, "User is not a member of this role")
		return
	}
	observability.FromContext(r.Context()).WithRole(role.ID).WithField("user_id", userID).Info("User removed from role")
	httputil.WriteSuccess(w, messageResponse{Message: "User removed from role"})
}
