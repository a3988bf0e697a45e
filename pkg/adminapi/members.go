package adminapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
)

// Sort orders understood by the members endpoint
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// MemberQuery selects one page of a role's members. Zero Page/PageSize and
// empty strings are not sent.
type MemberQuery struct {
	Page      int
	PageSize  int
	Search    string
	SortBy    string
	SortOrder string
}

// Values encodes the query parameters
func (q MemberQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.SortBy != "" && q.SortOrder != "" {
		v.Set("sortBy", q.SortBy)
		v.Set("sortOrder", q.SortOrder)
	}
	return v
}

// MemberPage is one page of members plus the total across pages
type MemberPage struct {
	Data  []rbac.Member `json:"data"`
	Total int           `json:"total"`
}

// ListRoleMembers fetches one page of a role's members
func (c *Client) ListRoleMembers(ctx context.Context, roleID string, q MemberQuery) (*MemberPage, error) {
	var page MemberPage
	if err := c.do(ctx, "list_role_members", http.MethodGet, rolePath(roleID, "users"), q.Values(), nil, &page); err != nil {
		return nil, err
	}
	if page.Data == nil {
		page.Data = []rbac.Member{}
	}
	return &page, nil
}

// CandidateQuery selects assignment candidates
type CandidateQuery struct {
	Limit  int
	Search string
}

// Values encodes the query parameters. search is always sent, empty or
// not, so the backend sees the exact term.
func (q CandidateQuery) Values() url.Values {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	v.Set("search", q.Search)
	return v
}

// ListAvailableUsers fetches users that may be assigned to the role. The
// backend excludes current members and holders of the protected role.
func (c *Client) ListAvailableUsers(ctx context.Context, roleID string, q CandidateQuery) ([]rbac.UserProfile, error) {
	var out struct {
		Data []rbac.UserProfile `json:"data"`
	}
	if err := c.do(ctx, "list_available_users", http.MethodGet, rolePath(roleID, "available-users"), q.Values(), nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = []rbac.UserProfile{}
	}
	return out.Data, nil
}

// AssignRequest is the batch-assign body
type AssignRequest struct {
	UserIDs []string `json:"userIds"`
	RoleID  string   `json:"roleId"`
}

// AssignUsers adds every user to the role in one call
func (c *Client) AssignUsers(ctx context.Context, roleID string, userIDs []string) error {
	return c.do(ctx, "assign_users", http.MethodPost, "/role/assign", nil, AssignRequest{UserIDs: userIDs, RoleID: roleID}, nil)
}

// RemoveUserFromRole removes one membership
func (c *Client) RemoveUserFromRole(ctx context.Context, roleID, userID string) error {
	return c.do(ctx, "remove_user_from_role", http.MethodDelete, rolePath(roleID, "users", userID), nil, nil, nil)
}
