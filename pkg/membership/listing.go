// Package membership lists the members of a role one server-side page at a
// time and removes single memberships after confirmation.
//
// Search, paging and sorting are all forwarded to the backend. A removal is
// never spliced out locally: the current page is fetched again so counts and
// page boundaries stay the server's.
package membership

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/adminapi"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/notify"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/observability"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
)

// API is the subset of the admin API the listing uses
type API interface {
	ListRoleMembers(ctx context.Context, roleID string, q adminapi.MemberQuery) (*adminapi.MemberPage, error)
	RemoveUserFromRole(ctx context.Context, roleID, userID string) error
}

var (
	// ErrNotConfirmed is returned by Remove when the confirmation is declined
	ErrNotConfirmed = errors.New("removal not confirmed")

	// ErrUnknownMember is returned when removing a user not on the current page
	ErrUnknownMember = errors.New("user is not on the current page")
)

// Confirmer asks the operator to confirm a destructive action
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// Sort is a single-field ordering. The zero value means unsorted.
type Sort struct {
	Field string
	Order string
}

// Active reports whether a sort is applied
func (s Sort) Active() bool { return s.Field != "" && s.Order != "" }

// Query is the page currently shown
type Query struct {
	Page     int
	PageSize int
	Search   string
	Sort     Sort
}

func (q Query) request() adminapi.MemberQuery {
	mq := adminapi.MemberQuery{Page: q.Page, PageSize: q.PageSize, Search: q.Search}
	if q.Sort.Active() {
		mq.SortBy = q.Sort.Field
		mq.SortOrder = q.Sort.Order
	}
	return mq
}

// Options configures a Listing
type Options struct {
	// PageSize defaults to 10
	PageSize int
	// ReadOnly rejects removals, set for the protected role
	ReadOnly bool

	Notifier notify.Notifier
	Logger   *observability.Logger
	Metrics  *observability.Metrics
}

// Listing is the member table of one role. It is safe for concurrent use.
type Listing struct {
	api    API
	roleID string
	opts   Options

	mu       sync.Mutex
	query    Query
	members  []rbac.Member
	total    int
	err      error
	loading  bool
	removing map[string]bool
	gen      uint64
}

// New creates a listing on page 1. Nothing is fetched until Fetch.
func New(api API, roleID string, opts Options) *Listing {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	return &Listing{
		api:      api,
		roleID:   roleID,
		opts:     opts,
		query:    Query{Page: 1, PageSize: opts.PageSize},
		removing: map[string]bool{},
	}
}

// RoleID returns the role whose members are listed
func (l *Listing) RoleID() string { return l.roleID }

// Query returns the current query
func (l *Listing) Query() Query {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

// Fetch loads the page described by the current query. Only the latest
// fetch may update the listing. On failure the page data is cleared and the
// error kept for display; calling Fetch again is the retry.
func (l *Listing) Fetch(ctx context.Context) error {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	q := l.query
	l.loading = true
	l.mu.Unlock()

	page, err := l.api.ListRoleMembers(ctx, l.roleID, q.request())

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		l.opts.Metrics.ObserveStale("membership")
		return nil
	}
	l.loading = false
	if err != nil {
		l.opts.Logger.WithRole(l.roleID).WithField("page", q.Page).WithError(err).Error("Failed to load role members")
		l.members = nil
		l.total = 0
		l.err = err
		return fmt.Errorf("failed to load members: %w", err)
	}
	l.members = page.Data
	l.total = page.Total
	l.err = nil
	return nil
}

// Refresh refetches the current page
func (l *Listing) Refresh(ctx context.Context) error {
	return l.Fetch(ctx)
}

// OnAssigned refreshes the listing after users were assigned to its role.
// Its signature matches the assignment workflow hook.
func (l *Listing) OnAssigned(ctx context.Context, roleID string, _ []string) error {
	if roleID != l.roleID {
		return nil
	}
	return l.Refresh(ctx)
}

func (l *Listing) update(ctx context.Context, fn func(q *Query)) error {
	l.mu.Lock()
	fn(&l.query)
	l.mu.Unlock()
	return l.Fetch(ctx)
}

// SetSearch changes the search term and returns to page 1
func (l *Listing) SetSearch(ctx context.Context, term string) error {
	return l.update(ctx, func(q *Query) {
		q.Search = term
		q.Page = 1
	})
}

// SetPage moves to page (1-based)
func (l *Listing) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	return l.update(ctx, func(q *Query) { q.Page = page })
}

// SetPageSize changes the page size and returns to page 1
func (l *Listing) SetPageSize(ctx context.Context, size int) error {
	if size <= 0 {
		size = l.opts.PageSize
	}
	return l.update(ctx, func(q *Query) {
		q.PageSize = size
		q.Page = 1
	})
}

// Apply replaces the whole query, as when restoring a saved view, and
// fetches once. An invalid page or page size falls back to 1 and the
// default page size; a sort without both field and order is cleared.
func (l *Listing) Apply(ctx context.Context, next Query) error {
	if next.Page < 1 {
		next.Page = 1
	}
	if next.PageSize <= 0 {
		next.PageSize = l.opts.PageSize
	}
	if !next.Sort.Active() {
		next.Sort = Sort{}
	}
	return l.update(ctx, func(q *Query) { *q = next })
}

// NextSort returns the sort after clicking field: a new field starts
// ascending, the same field goes asc, desc, then cleared.
func NextSort(current Sort, field string) Sort {
	if field == "" {
		return Sort{}
	}
	if current.Field != field || !current.Active() {
		return Sort{Field: field, Order: adminapi.SortAsc}
	}
	if current.Order == adminapi.SortAsc {
		return Sort{Field: field, Order: adminapi.SortDesc}
	}
	return Sort{}
}

// CycleSort applies NextSort for field and refetches from page 1
func (l *Listing) CycleSort(ctx context.Context, field string) error {
	return l.update(ctx, func(q *Query) {
		q.Sort = NextSort(q.Sort, field)
		q.Page = 1
	})
}

// Remove asks confirm, then removes the user from the role and refetches
// the current page. When that page is now empty past page 1 the listing
// steps back to the last page that has members. On failure an error
// notification is sent and the listing is left as it was.
func (l *Listing) Remove(ctx context.Context, userID string, confirm Confirmer) error {
	if l.opts.ReadOnly {
		return rbac.ErrProtectedRole
	}

	l.mu.Lock()
	var member *rbac.Member
	for i := range l.members {
		if l.members[i].ID == userID {
			m := l.members[i]
			member = &m
			break
		}
	}
	busy := l.removing[userID]
	l.mu.Unlock()
	if member == nil {
		return ErrUnknownMember
	}
	if busy {
		return nil
	}

	if confirm == nil {
		return ErrNotConfirmed
	}
	ok, err := confirm.Confirm(ctx, fmt.Sprintf("Remove %s from this role?", memberLabel(*member)))
	if err != nil {
		return fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		return ErrNotConfirmed
	}

	l.mu.Lock()
	l.removing[userID] = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.removing, userID)
		l.mu.Unlock()
	}()

	if err := l.api.RemoveUserFromRole(ctx, l.roleID, userID); err != nil {
		l.opts.Logger.WithRole(l.roleID).WithField("user_id", userID).WithError(err).Error("Failed to remove user from role")
		notify.Failure(l.opts.Notifier, err, "Failed to remove user from role")
		return fmt.Errorf("failed to remove user: %w", err)
	}
	notify.Success(l.opts.Notifier, fmt.Sprintf("Removed %s from role", memberLabel(*member)))

	if err := l.Fetch(ctx); err != nil {
		return err
	}
	return l.stepBack(ctx)
}

func (l *Listing) stepBack(ctx context.Context) error {
	l.mu.Lock()
	if len(l.members) > 0 || l.query.Page <= 1 {
		l.mu.Unlock()
		return nil
	}
	last := 1
	if l.total > 0 {
		last = (l.total + l.query.PageSize - 1) / l.query.PageSize
	}
	if last >= l.query.Page {
		last = l.query.Page - 1
	}
	l.query.Page = last
	l.mu.Unlock()
	return l.Fetch(ctx)
}

func memberLabel(m rbac.Member) string {
	switch {
	case m.Name != "":
		return m.Name
	case m.Username != "":
		return m.Username
	case m.Email != "":
		return m.Email
	}
	return m.ID
}

// Snapshot is a copy of the listing state
type Snapshot struct {
	Query    Query
	Members  []rbac.Member
	Total    int
	Pages    int
	Err      error
	Loading  bool
	Removing []string
	ReadOnly bool
}

// Snapshot returns the current state
func (l *Listing) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Snapshot{
		Query:    l.query,
		Members:  append([]rbac.Member(nil), l.members...),
		Total:    l.total,
		Err:      l.err,
		Loading:  l.loading,
		ReadOnly: l.opts.ReadOnly,
	}
	if l.query.PageSize > 0 {
		s.Pages = (l.total + l.query.PageSize - 1) / l.query.PageSize
	}
	for id := range l.removing {
		s.Removing = append(s.Removing, id)
	}
	return s
}
