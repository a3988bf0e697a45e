package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
)

const uniqueViolation = "23505"

// PostgresStore is a Store on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps db. The schema must be migrated with RunMigrations.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens and pings a PostgreSQL database
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

const roleColumns = `r.id, r.name, r.display_name, r.description, r.is_system, r.created_at, r.updated_at,
	(SELECT COUNT(*) FROM user_roles ur WHERE ur.role_id = r.id)`

type scanner interface {
	Scan(dest ...any) error
}

func scanRole(row scanner) (*rbac.Role, error) {
	var r rbac.Role
	if err := row.Scan(&r.ID, &r.Name, &r.DisplayName, &r.Description, &r.IsSystem, &r.CreatedAt, &r.UpdatedAt, &r.UserCount); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRole inserts a role
func (s *PostgresStore) CreateRole(ctx context.Context, in rbac.NewRole, system bool) (*rbac.Role, error) {
	id := uuid.NewString()
	role := rbac.Role{ID: id, Name: in.Name, DisplayName: in.DisplayName, Description: in.Description, IsSystem: system}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO roles (id, name, display_name, description, is_system, permissions)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, id, in.Name, in.DisplayName, in.Description, system, pq.Array(uniqueSorted(in.Permissions)),
	).Scan(&role.CreatedAt, &role.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("role %q: %w", in.Name, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return &role, nil
}

// ListRoles returns every role ordered by name
func (s *PostgresStore) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+roleColumns+` FROM roles r ORDER BY r.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	roles := []rbac.Role{}
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, *r)
	}
	return roles, rows.Err()
}

// GetRole returns one role with its member count
func (s *PostgresStore) GetRole(ctx context.Context, roleID string) (*rbac.Role, error) {
	r, err := scanRole(s.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles r WHERE r.id = $1`, roleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("role %s: %w", roleID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return r, nil
}

// UpdateRole changes display name and description
func (s *PostgresStore) UpdateRole(ctx context.Context, roleID string, update rbac.RoleUpdate) (*rbac.Role, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE roles SET display_name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
	`, roleID, update.DisplayName, update.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	if err := requireRow(res, "role "+roleID); err != nil {
		return nil, err
	}
	return s.GetRole(ctx, roleID)
}

// DeleteRole deletes the role; memberships go with it through the foreign key
func (s *PostgresStore) DeleteRole(ctx context.Context, roleID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, roleID)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return requireRow(res, "role "+roleID)
}

// GetRolePermissions returns the stored permission set
func (s *PostgresStore) GetRolePermissions(ctx context.Context, roleID string) ([]rbac.PermissionID, error) {
	var perms []string
	err := s.db.QueryRowContext(ctx, `SELECT permissions FROM roles WHERE id = $1`, roleID).Scan(pq.Array(&perms))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("role %s: %w", roleID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}
	if perms == nil {
		perms = []string{}
	}
	return perms, nil
}

// ReplaceRolePermissions overwrites the permission set
func (s *PostgresStore) ReplaceRolePermissions(ctx context.Context, roleID string, ids []rbac.PermissionID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE roles SET permissions = $2, updated_at = NOW()
		WHERE id = $1
	`, roleID, pq.Array(uniqueSorted(ids)))
	if err != nil {
		return fmt.Errorf("failed to replace role permissions: %w", err)
	}
	return requireRow(res, "role "+roleID)
}

// CreateUser inserts a user, generating an ID when empty
func (s *PostgresStore) CreateUser(ctx context.Context, u rbac.UserProfile) (*User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	user := &User{UserProfile: u}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, email, name, avatar, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, u.ID, u.Username, u.Email, u.Name, u.Avatar, u.IsActive).Scan(&user.CreatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("user %q: %w", u.Username, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) roleExists(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, roleID string) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, roleID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check role: %w", err)
	}
	if !exists {
		return fmt.Errorf("role %s: %w", roleID, ErrNotFound)
	}
	return nil
}

// searchClause matches $2 as a literal case-insensitive substring, so % and _
// are not wildcards.
const searchClause = `($2 = '' OR strpos(lower(u.username), lower($2)) > 0 OR strpos(lower(u.email), lower($2)) > 0 OR strpos(lower(u.name), lower($2)) > 0)`

// ListMembers returns one page of a role's members and the total count
func (s *PostgresStore) ListMembers(ctx context.Context, roleID string, f MemberFilter) ([]rbac.Member, int, error) {
	if err := s.roleExists(ctx, s.db, roleID); err != nil {
		return nil, 0, err
	}

	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_roles ur JOIN users u ON u.id = ur.user_id
		WHERE ur.role_id = $1 AND `+searchClause,
		roleID, f.Search).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count members: %w", err)
	}

	column, ok := memberSortColumns[f.SortBy]
	if !ok {
		column = "u.username"
	}
	direction := "ASC"
	if ok && f.SortOrder == "desc" {
		direction = "DESC"
	}
	limit := f.PageSize
	if limit <= 0 {
		limit = total
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.email, u.name, u.avatar, u.is_active, u.created_at
		FROM user_roles ur JOIN users u ON u.id = ur.user_id
		WHERE ur.role_id = $1 AND `+searchClause+`
		ORDER BY `+column+` `+direction+`, u.id
		LIMIT $3 OFFSET $4`,
		roleID, f.Search, limit, f.offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []rbac.Member{}
	for rows.Next() {
		var m rbac.Member
		if err := rows.Scan(&m.ID, &m.Username, &m.Email, &m.Name, &m.Avatar, &m.IsActive, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, total, rows.Err()
}

// ListCandidates returns users assignable to roleID
func (s *PostgresStore) ListCandidates(ctx context.Context, roleID, search string, limit int) ([]rbac.UserProfile, error) {
	if err := s.roleExists(ctx, s.db, roleID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.email, u.name, u.avatar, u.is_active
		FROM users u
		WHERE NOT EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = u.id AND ur.role_id = $1)
		AND NOT EXISTS (
			SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = u.id AND r.name = $3
		)
		AND `+searchClause+`
		ORDER BY u.username
		LIMIT $4`,
		roleID, search, rbac.RoleSuperAdmin, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	users := []rbac.UserProfile{}
	for rows.Next() {
		var u rbac.UserProfile
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Name, &u.Avatar, &u.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// AssignUsers adds memberships in one transaction
func (s *PostgresStore) AssignUsers(ctx context.Context, roleID string, userIDs []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.roleExists(ctx, tx, roleID); err != nil {
		return 0, err
	}

	ids := uniqueSorted(userIDs)
	var found int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ANY($1)`, pq.Array(ids)).Scan(&found); err != nil {
		return 0, fmt.Errorf("failed to check users: %w", err)
	}
	if found != len(ids) {
		return 0, fmt.Errorf("%d of %d users: %w", len(ids)-found, len(ids), ErrNotFound)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT unnest($1::text[]), $2
		ON CONFLICT DO NOTHING
	`, pq.Array(ids), roleID)
	if err != nil {
		return 0, fmt.Errorf("failed to assign users: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit assignment: %w", err)
	}
	return int(n), nil
}

// RemoveMember deletes one membership
func (s *PostgresStore) RemoveMember(ctx context.Context, roleID, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_roles WHERE role_id = $1 AND user_id = $2`, roleID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return requireRow(res, "membership "+roleID+"/"+userID)
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
