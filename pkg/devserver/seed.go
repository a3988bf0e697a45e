package devserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
)

// SeedRole is a role created by Seed
type SeedRole struct {
	Role    rbac.NewRole
	System  bool
	Members []string // usernames
}

// SeedData is the initial content of a dev backend
type SeedData struct {
	Roles []SeedRole
	Users []rbac.UserProfile
}

// DefaultSeed returns a small back office: the protected super_admin, an
// administrator, a store manager and a support role, plus a few staff
// accounts.
func DefaultSeed() SeedData {
	cat := rbac.DefaultCatalogue()
	return SeedData{
		Roles: []SeedRole{
			{
				Role: rbac.NewRole{
					Name:        rbac.RoleSuperAdmin,
					DisplayName: "Super Admin",
					Description: "Full access to the back office",
					Permissions: cat.AllIdentifiers(),
				},
				System:  true,
				Members: []string{"root"},
			},
			{
				Role: rbac.NewRole{
					Name:        "administrator",
					DisplayName: "Administrator",
					Description: "Manages users, roles and settings",
					Permissions: append(append(cat.IdentifiersOf(rbac.CategoryUser), cat.IdentifiersOf(rbac.CategoryRole)...), "SETTINGS_MANAGE", "DASHBOARD_VIEW"),
				},
				System:  true,
				Members: []string{"an.nguyen"},
			},
			{
				Role: rbac.NewRole{
					Name:        "store_manager",
					DisplayName: "Store manager",
					Description: "Manages menus, categories and promotions",
					Permissions: append(append(cat.IdentifiersOf(rbac.CategoryFood), cat.IdentifiersOf(rbac.CategoryCategory)...), "PROMOTION_READ", "ORDER_READ"),
				},
				Members: []string{"binh.tran", "chi.le"},
			},
			{
				Role: rbac.NewRole{
					Name:        "support",
					DisplayName: "Customer support",
					Description: "Reads orders and users",
					Permissions: []rbac.PermissionID{"ORDER_READ", "ORDER_WRITE", "USER_READ"},
				},
			},
		},
		Users: []rbac.UserProfile{
			{Username: "root", Email: "root@fooddie.vn", Name: "Root", IsActive: true},
			{Username: "an.nguyen", Email: "an.nguyen@fooddie.vn", Name: "Nguyen Van An", IsActive: true},
			{Username: "binh.tran", Email: "binh.tran@fooddie.vn", Name: "Tran Thi Binh", IsActive: true},
			{Username: "chi.le", Email: "chi.le@fooddie.vn", Name: "Le Minh Chi", IsActive: true},
			{Username: "dung.pham", Email: "dung.pham@fooddie.vn", Name: "Pham Quoc Dung", IsActive: true},
			{Username: "giang.vo", Email: "giang.vo@fooddie.vn", Name: "Vo Thu Giang", IsActive: false},
			{Username: "hoa.dang", Email: "hoa.dang@fooddie.vn", Name: "Dang Hoa", IsActive: true},
		},
	}
}

// Seed loads data into store. Existing roles and users are left alone, so
// seeding a persistent store twice is harmless.
func Seed(ctx context.Context, store Store, data SeedData) error {
	userIDs := map[string]string{}
	for _, u := range data.Users {
		created, err := store.CreateUser(ctx, u)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Username, err)
		}
		userIDs[created.Username] = created.ID
	}

	for _, sr := range data.Roles {
		role, err := store.CreateRole(ctx, sr.Role, sr.System)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to seed role %s: %w", sr.Role.Name, err)
		}
		var ids []string
		for _, name := range sr.Members {
			if id, ok := userIDs[name]; ok {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}
		if _, err := store.AssignUsers(ctx, role.ID, ids); err != nil {
			return fmt.Errorf("failed to seed members of %s: %w", sr.Role.Name, err)
		}
	}
	return nil
}
