package devserver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
)

type memRole struct {
	role  rbac.Role
	perms []rbac.PermissionID
}

type membership struct {
	roleID, userID string
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu      sync.RWMutex
	roles   map[string]*memRole
	users   map[string]*User
	members map[membership]time.Time
	now     func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		roles:   map[string]*memRole{},
		users:   map[string]*User{},
		members: map[membership]time.Time{},
		now:     time.Now,
	}
}

func (s *MemoryStore) userCount(roleID string) int {
	n := 0
	for m := range s.members {
		if m.roleID == roleID {
			n++
		}
	}
	return n
}

func (s *MemoryStore) view(r *memRole) *rbac.Role {
	out := r.role
	out.UserCount = s.userCount(r.role.ID)
	out.Permissions = nil
	return &out
}

func (s *MemoryStore) CreateRole(ctx context.Context, in rbac.NewRole, system bool) (*rbac.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r.role.Name == in.Name {
			return nil, fmt.Errorf("role %q: %w", in.Name, ErrConflict)
		}
	}
	now := s.now().UTC()
	r := &memRole{
		role: rbac.Role{
			ID:          uuid.NewString(),
			Name:        in.Name,
			DisplayName: in.DisplayName,
			Description: in.Description,
			IsSystem:    system,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		perms: uniqueSorted(in.Permissions),
	}
	s.roles[r.role.ID] = r
	return s.view(r), nil
}

func (s *MemoryStore) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]rbac.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, *s.view(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetRole(ctx context.Context, roleID string) (*rbac.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, ErrNotFound)
	}
	return s.view(r), nil
}

func (s *MemoryStore) UpdateRole(ctx context.Context, roleID string, update rbac.RoleUpdate) (*rbac.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[roleID]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, ErrNotFound)
	}
	r.role.DisplayName = update.DisplayName
	r.role.Description = update.Description
	r.role.UpdatedAt = s.now().UTC()
	return s.view(r), nil
}

func (s *MemoryStore) DeleteRole(ctx context.Context, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[roleID]; !ok {
		return fmt.Errorf("role %s: %w", roleID, ErrNotFound)
	}
	delete(s.roles, roleID)
	for m := range s.members {
		if m.roleID == roleID {
			delete(s.members, m)
		}
	}
	return nil
}

func (s *MemoryStore) GetRolePermissions(ctx context.Context, roleID string) ([]rbac.PermissionID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, ErrNotFound)
	}
	return append([]rbac.PermissionID{}, r.perms...), nil
}

func (s *MemoryStore) ReplaceRolePermissions(ctx context.Context, roleID string, ids []rbac.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[roleID]
	if !ok {
		return fmt.Errorf("role %s: %w", roleID, ErrNotFound)
	}
	r.perms = uniqueSorted(ids)
	r.role.UpdatedAt = s.now().UTC()
	return nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, u rbac.UserProfile) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return nil, fmt.Errorf("user %q: %w", u.Username, ErrConflict)
		}
	}
	user := &User{UserProfile: u, CreatedAt: s.now().UTC()}
	s.users[u.ID] = user
	out := *user
	return &out, nil
}

func (s *MemoryStore) ListMembers(ctx context.Context, roleID string, f MemberFilter) ([]rbac.Member, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.roles[roleID]; !ok {
		return nil, 0, fmt.Errorf("role %s: %w", roleID, ErrNotFound)
	}

	var all []rbac.Member
	for m := range s.members {
		if m.roleID != roleID {
			continue
		}
		u := s.users[m.userID]
		if u == nil || !matchesSearch(u.UserProfile, f.Search) {
			continue
		}
		all = append(all, rbac.Member{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			Name:      u.Name,
			Avatar:    u.Avatar,
			IsActive:  u.IsActive,
			CreatedAt: u.CreatedAt,
		})
	}
	sortMembers(all, f.SortBy, f.SortOrder)

	total := len(all)
	start := f.offset()
	if start > total {
		start = total
	}
	end := total
	if f.PageSize > 0 && start+f.PageSize < total {
		end = start + f.PageSize
	}
	return append([]rbac.Member{}, all[start:end]...), total, nil
}

func sortMembers(ms []rbac.Member, field, order string) {
	key := func(m rbac.Member) string {
		switch field {
		case "email":
			return strings.ToLower(m.Email)
		case "name":
			return strings.ToLower(m.Name)
		case "isActive":
			if m.IsActive {
				return "1"
			}
			return "0"
		case "createdAt":
			return m.CreatedAt.Format(time.RFC3339Nano)
		default:
			return strings.ToLower(m.Username)
		}
	}
	if _, ok := memberSortColumns[field]; !ok {
		field = "username"
		order = "asc"
	}
	desc := strings.EqualFold(order, "desc")
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := key(ms[i]), key(ms[j])
		if a == b {
			return ms[i].ID < ms[j].ID
		}
		if desc {
			return a > b
		}
		return a < b
	})
}

func (s *MemoryStore) holdsProtectedRole(userID string) bool {
	for m := range s.members {
		if m.userID != userID {
			continue
		}
		if r, ok := s.roles[m.roleID]; ok && r.role.IsProtected() {
			return true
		}
	}
	return false
}

func (s *MemoryStore) ListCandidates(ctx context.Context, roleID, search string, limit int) ([]rbac.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.roles[roleID]; !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, ErrNotFound)
	}

	var out []rbac.UserProfile
	for _, u := range s.users {
		if _, member := s.members[membership{roleID, u.ID}]; member {
			continue
		}
		if s.holdsProtectedRole(u.ID) || !matchesSearch(u.UserProfile, search) {
			continue
		}
		out = append(out, u.UserProfile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) AssignUsers(ctx context.Context, roleID string, userIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[roleID]; !ok {
		return 0, fmt.Errorf("role %s: %w", roleID, ErrNotFound)
	}
	for _, id := range userIDs {
		if _, ok := s.users[id]; !ok {
			return 0, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
	}
	created := 0
	now := s.now().UTC()
	for _, id := range userIDs {
		key := membership{roleID, id}
		if _, ok := s.members[key]; ok {
			continue
		}
		s.members[key] = now
		created++
	}
	return created, nil
}

func (s *MemoryStore) RemoveMember(ctx context.Context, roleID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := membership{roleID, userID}
	if _, ok := s.members[key]; !ok {
		return fmt.Errorf("membership %s/%s: %w", roleID, userID, ErrNotFound)
	}
	delete(s.members, key)
	return nil
}

// uniqueSorted returns ids without blanks or duplicates, sorted, never nil
func uniqueSorted(ids []rbac.PermissionID) []rbac.PermissionID {
	seen := make(map[rbac.PermissionID]struct{}, len(ids))
	out := make([]rbac.PermissionID, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

var _ Store = (*MemoryStore)(nil)
