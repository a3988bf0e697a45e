package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/roledetail"
)

func newRolesCommand(app *App) *Command {
	return &Command{
		Name:        "roles",
		Description: "List roles",
		Run:         app.runRoles,
	}
}

func (a *App) runRoles(ctx context.Context, args []string) error {
	if err := a.flags("roles").Parse(args); err != nil {
		return err
	}
	roles, err := a.API.ListRoles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list roles: %w", err)
	}

	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tUSERS\tSYSTEM\tID")
	for _, r := range roles {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%s\n", r.Name, r.DisplayName, r.UserCount, r.IsSystem, r.ID)
	}
	return tw.Flush()
}

func newRoleCommand(app *App) *Command {
	cmd := &Command{
		Name:        "role",
		Description: "Show, create, update or delete a role",
		Subcommands: make(map[string]*Command),
	}
	cmd.Subcommands["show"] = &Command{Name: "show", Description: "Show a role", Run: app.runRoleShow}
	cmd.Subcommands["create"] = &Command{Name: "create", Description: "Create a role", Run: app.runRoleCreate}
	cmd.Subcommands["update"] = &Command{Name: "update", Description: "Update display name or description", Run: app.runRoleUpdate}
	cmd.Subcommands["delete"] = &Command{Name: "delete", Description: "Delete a role", Run: app.runRoleDelete}
	return cmd
}

// openSession resolves ref and loads it into a role detail session
func (a *App) openSession(ctx context.Context, ref string) (*roledetail.Session, error) {
	role, err := a.resolveRole(ctx, ref)
	if err != nil {
		return nil, err
	}
	s := roledetail.New(a.API, role.ID, roledetail.Options{
		Catalogue: a.Catalogue,
		Labels:    a.Labels,
		Notifier:  a.notifier(),
		Logger:    a.Logger,
		Metrics:   a.Metrics,
	})
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *App) runRoleShow(ctx context.Context, args []string) error {
	fs := a.flags("role show")
	ref := fs.String("role", "", "Role ID or name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.openSession(ctx, *ref)
	if err != nil {
		return err
	}
	r := s.Role()

	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", r.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", r.Name)
	fmt.Fprintf(tw, "Display name:\t%s\n", r.DisplayName)
	fmt.Fprintf(tw, "Description:\t%s\n", r.Description)
	fmt.Fprintf(tw, "System:\t%t\n", r.IsSystem)
	fmt.Fprintf(tw, "Users:\t%d\n", r.UserCount)
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(tw, "Created:\t%s\n", r.CreatedAt.Format("2006-01-02 15:04"))
	}
	if r.IsProtected() {
		fmt.Fprintf(tw, "Protected:\tread-only\n")
	}
	return tw.Flush()
}

func (a *App) runRoleCreate(ctx context.Context, args []string) error {
	fs := a.flags("role create")
	name := fs.String("name", "", "System key of the role")
	displayName := fs.String("display-name", "", "Display name (defaults to name)")
	description := fs.String("description", "", "Description")
	var perms stringList
	fs.Var(&perms, "permission", "Permission identifier or category, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return errors.New("--name is required")
	}

	ids, err := a.expandPermissions(perms)
	if err != nil {
		return err
	}
	role, err := a.API.CreateRole(ctx, rbac.NewRole{
		Name:        *name,
		DisplayName: *displayName,
		Description: *description,
		Permissions: ids,
	})
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	fmt.Fprintf(a.Out, "Created role %s (%s)\n", role.Name, role.ID)
	return nil
}

// expandPermissions turns categories into their identifiers and checks
// plain identifiers against the catalogue
func (a *App) expandPermissions(refs []string) ([]rbac.PermissionID, error) {
	var ids []rbac.PermissionID
	for _, ref := range refs {
		switch {
		case a.Catalogue.HasCategory(ref):
			ids = append(ids, a.Catalogue.IdentifiersOf(ref)...)
		case a.Catalogue.Contains(ref):
			ids = append(ids, ref)
		default:
			return nil, fmt.Errorf("unknown permission or category %q", ref)
		}
	}
	return ids, nil
}

func (a *App) runRoleUpdate(ctx context.Context, args []string) error {
	fs := a.flags("role update")
	ref := fs.String("role", "", "Role ID or name")
	displayName := fs.String("display-name", "", "New display name")
	description := fs.String("description", "", "New description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["display-name"] && !set["description"] {
		return errors.New("nothing to update: pass --display-name or --description")
	}

	s, err := a.openSession(ctx, *ref)
	if err != nil {
		return err
	}
	if set["display-name"] {
		if err := s.SetDisplayName(*displayName); err != nil {
			return err
		}
	}
	if set["description"] {
		if err := s.SetDescription(*description); err != nil {
			return err
		}
	}
	if err := s.SaveMetadata(ctx); err != nil {
		return err
	}

	r := s.Role()
	fmt.Fprintf(a.Out, "Updated role %s: %q\n", r.Name, r.DisplayName)
	return nil
}

func (a *App) runRoleDelete(ctx context.Context, args []string) error {
	fs := a.flags("role delete")
	ref := fs.String("role", "", "Role ID or name")
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.openSession(ctx, *ref)
	if err != nil {
		return err
	}
	r := s.Role()
	if !s.CanMutate() {
		return rbac.ErrProtectedRole
	}
	if r.IsSystem {
		return rbac.ErrSystemRole
	}

	ok, err := a.confirmer(*yes).Confirm(ctx, fmt.Sprintf("Delete role %s?", r.Label()))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.Out, "Cancelled")
		return nil
	}
	return s.DeleteRole(ctx)
}
