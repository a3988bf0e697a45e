package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/adminapi"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/assignment"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/membership"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
)

const walkPageSize = 100

func newAssignCommand(app *App) *Command {
	return &Command{
		Name:        "assign",
		Description: "Assign users to a role",
		Run:         app.runAssign,
	}
}

func newMembersCommand(app *App) *Command {
	cmd := &Command{
		Name:        "members",
		Description: "List or remove role members",
		Subcommands: make(map[string]*Command),
	}
	cmd.Subcommands["list"] = &Command{Name: "list", Description: "List the members of a role", Run: app.runMembersList}
	cmd.Subcommands["remove"] = &Command{Name: "remove", Description: "Remove a user from a role", Run: app.runMembersRemove}
	return cmd
}

func matchesUser(ref, id, username, email string) bool {
	return ref == id || strings.EqualFold(ref, username) || strings.EqualFold(ref, email)
}

func (a *App) runAssign(ctx context.Context, args []string) error {
	fs := a.flags("assign")
	ref := fs.String("role", "", "Role ID or name")
	search := fs.String("search", "", "List candidates matching this term instead of assigning")
	var users stringList
	fs.Var(&users, "user", "Username, email or ID to assign, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	role, err := a.resolveRole(ctx, *ref)
	if err != nil {
		return err
	}
	w := assignment.New(a.API, assignment.Options{
		Debounce:       a.Console.SearchDebounce,
		Limit:          a.Console.CandidateLimit,
		RequestTimeout: a.Console.HTTPTimeout,
		Notifier:       a.notifier(),
		Logger:         a.Logger,
		Metrics:        a.Metrics,
	})
	defer w.Close()

	if err := w.Open(ctx, *role); err != nil {
		return err
	}

	if len(users) == 0 {
		candidates := w.Snapshot().Candidates
		if *search != "" {
			if candidates, err = w.Search(ctx, *search); err != nil {
				return err
			}
		}
		a.printCandidates(candidates)
		return nil
	}

	for _, u := range users {
		candidates, err := w.Search(ctx, u)
		if err != nil {
			return err
		}
		var match *rbac.UserProfile
		for i := range candidates {
			c := candidates[i]
			if matchesUser(u, c.ID, c.Username, c.Email) {
				match = &c
				break
			}
		}
		if match == nil {
			return fmt.Errorf("no assignable user matches %q", u)
		}
		if contains(w.Selected(), match.ID) {
			continue
		}
		if err := w.Toggle(match.ID); err != nil {
			return err
		}
	}

	n, err := w.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Assigned %d user(s) to %s\n", n, role.Label())
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (a *App) printCandidates(users []rbac.UserProfile) {
	if len(users) == 0 {
		fmt.Fprintln(a.Out, "No users available")
		return
	}
	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tNAME\tEMAIL\tID")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Username, u.Name, u.Email, u.ID)
	}
	tw.Flush()
}

func (a *App) newListing(role *rbac.Role) *membership.Listing {
	return membership.New(a.API, role.ID, membership.Options{
		PageSize: a.Console.PageSize,
		ReadOnly: role.IsProtected(),
		Notifier: a.notifier(),
		Logger:   a.Logger,
		Metrics:  a.Metrics,
	})
}

func (a *App) runMembersList(ctx context.Context, args []string) error {
	fs := a.flags("members list")
	ref := fs.String("role", "", "Role ID or name")
	page := fs.Int("page", 1, "Page number")
	pageSize := fs.Int("page-size", 0, "Members per page")
	search := fs.String("search", "", "Filter by username, email or name")
	sortBy := fs.String("sort", "", "Sort field: username, email, name, isActive, createdAt")
	desc := fs.Bool("desc", false, "Sort descending")
	if err := fs.Parse(args); err != nil {
		return err
	}

	role, err := a.resolveRole(ctx, *ref)
	if err != nil {
		return err
	}
	l := a.newListing(role)

	q := membership.Query{Page: *page, PageSize: *pageSize, Search: *search}
	if *sortBy != "" {
		q.Sort = membership.Sort{Field: *sortBy, Order: adminapi.SortAsc}
		if *desc {
			q.Sort.Order = adminapi.SortDesc
		}
	}
	if err := l.Apply(ctx, q); err != nil {
		return err
	}

	snap := l.Snapshot()
	tw := tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tNAME\tEMAIL\tACTIVE\tID")
	for _, m := range snap.Members {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", m.Username, m.Name, m.Email, m.IsActive, m.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Page %d of %d, %d member(s)\n", snap.Query.Page, max(snap.Pages, 1), snap.Total)
	return nil
}

// findMember puts the page holding ref on the listing and returns its ID.
// The search term matches usernames and emails; IDs need a walk over pages.
func findMember(ctx context.Context, l *membership.Listing, ref string) (string, error) {
	scan := func() string {
		for _, m := range l.Snapshot().Members {
			if matchesUser(ref, m.ID, m.Username, m.Email) {
				return m.ID
			}
		}
		return ""
	}

	if err := l.Apply(ctx, membership.Query{Search: ref, PageSize: walkPageSize}); err != nil {
		return "", err
	}
	if id := scan(); id != "" {
		return id, nil
	}

	for page := 1; ; page++ {
		if err := l.Apply(ctx, membership.Query{Page: page, PageSize: walkPageSize}); err != nil {
			return "", err
		}
		if id := scan(); id != "" {
			return id, nil
		}
		if page >= l.Snapshot().Pages {
			return "", membership.ErrUnknownMember
		}
	}
}

func (a *App) runMembersRemove(ctx context.Context, args []string) error {
	fs := a.flags("members remove")
	ref := fs.String("role", "", "Role ID or name")
	user := fs.String("user", "", "Username, email or ID of the member")
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("--user is required")
	}

	role, err := a.resolveRole(ctx, *ref)
	if err != nil {
		return err
	}
	if role.IsProtected() {
		return rbac.ErrProtectedRole
	}
	l := a.newListing(role)

	userID, err := findMember(ctx, l, *user)
	if err != nil {
		return fmt.Errorf("%s is not a member of %s: %w", *user, role.Label(), err)
	}
	err = l.Remove(ctx, userID, a.confirmer(*yes))
	if errors.Is(err, membership.ErrNotConfirmed) {
		fmt.Fprintln(a.Out, "Cancelled")
		return nil
	}
	return err
}
