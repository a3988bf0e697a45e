package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/roledetail"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/selection"
)

func newPermissionsCommand(app *App) *Command {
	cmd := &Command{
		Name:        "permissions",
		Description: "Show or change the permissions of a role",
		Subcommands: make(map[string]*Command),
	}
	cmd.Subcommands["show"] = &Command{Name: "show", Description: "Show the permission matrix", Run: app.runPermissionsShow}
	cmd.Subcommands["grant"] = &Command{
		Name:        "grant",
		Description: "Grant categories or identifiers",
		Run: func(ctx context.Context, args []string) error {
			return app.runPermissionsChange(ctx, "permissions grant", args, true)
		},
	}
	cmd.Subcommands["revoke"] = &Command{
		Name:        "revoke",
		Description: "Revoke categories or identifiers",
		Run: func(ctx context.Context, args []string) error {
			return app.runPermissionsChange(ctx, "permissions revoke", args, false)
		},
	}
	return cmd
}

func (a *App) openEditor(ctx context.Context, ref string) (*roledetail.Session, error) {
	s, err := a.openSession(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.OpenPermissionsEditor(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func stateMark(st selection.State) string {
	switch st {
	case selection.Full:
		return "[x]"
	case selection.Partial:
		return "[-]"
	default:
		return "[ ]"
	}
}

func (a *App) runPermissionsShow(ctx context.Context, args []string) error {
	fs := a.flags("permissions show")
	ref := fs.String("role", "", "Role ID or name")
	search := fs.String("search", "", "Only show categories whose label or action labels match")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := a.openEditor(ctx, *ref)
	if err != nil {
		return err
	}
	s.SetPermissionQuery(*search)
	a.printMatrix(s.Snapshot().Editor)
	return nil
}

func (a *App) printMatrix(ed roledetail.EditorSnapshot) {
	selected := selection.NewSet(ed.Selected...)
	visible := map[string]bool{}
	for _, c := range ed.Visible {
		visible[c] = true
	}

	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	for _, row := range ed.Categories {
		if !visible[row.Category] {
			continue
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%d/%d\n", stateMark(row.State), a.Labels.CategoryLabel(row.Category), row.Category, row.Selected, row.Total)
		if row.Singleton {
			continue
		}
		actions, _, _ := a.Catalogue.ActionsOf(row.Category)
		for _, action := range actions {
			id, _ := a.Catalogue.Identifier(row.Category, action)
			mark := "[ ]"
			if selected.Has(id) {
				mark = "[x]"
			}
			fmt.Fprintf(tw, "    %s %s\t%s\t\n", mark, a.Labels.ActionLabel(action), id)
		}
	}
	if len(ed.Other) > 0 && strings.TrimSpace(ed.Query) == "" {
		fmt.Fprintf(tw, "%s\t\t\n", a.Labels.CategoryLabel(rbac.CategoryOther))
		for _, e := range ed.Other {
			mark := "[ ]"
			if selected.Has(e.ID) {
				mark = "[x]"
			}
			fmt.Fprintf(tw, "    %s %s\t\t\n", mark, e.ID)
		}
	}
	tw.Flush()
}

func (a *App) runPermissionsChange(ctx context.Context, name string, args []string, grant bool) error {
	fs := a.flags(name)
	ref := fs.String("role", "", "Role ID or name")
	dryRun := fs.Bool("dry-run", false, "Print the change without saving")
	if err := fs.Parse(args); err != nil {
		return err
	}
	targets := fs.Args()
	if len(targets) == 0 {
		return errors.New("pass at least one category or permission identifier")
	}

	s, err := a.openEditor(ctx, *ref)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if a.Catalogue.HasCategory(t) {
			err = s.ToggleCategory(t, grant)
		} else {
			err = s.TogglePermission(t, grant)
		}
		if err != nil {
			return err
		}
	}

	diff, err := s.PendingDiff()
	if err != nil {
		return err
	}
	if *dryRun || diff.Empty() {
		a.printDiff(diff)
		if diff.Empty() {
			fmt.Fprintln(a.Out, "No changes")
		}
		return nil
	}

	diff, err = s.SavePermissions(ctx)
	if err != nil {
		return err
	}
	a.printDiff(diff)
	return nil
}

func (a *App) printDiff(d roledetail.Diff) {
	for _, id := range d.Added {
		fmt.Fprintf(a.Out, "+ %s (%s)\n", id, a.Labels.Describe(a.Catalogue, id))
	}
	for _, id := range d.Removed {
		fmt.Fprintf(a.Out, "- %s (%s)\n", id, a.Labels.Describe(a.Catalogue, id))
	}
	for _, id := range d.Dropped {
		fmt.Fprintf(a.Out, "! %s is not in the catalogue and will not be saved\n", id)
	}
}
