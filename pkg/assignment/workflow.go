// Package assignment implements the assign-users-to-role modal: a debounced
// candidate search, a local multi-select and one batch-assign call.
//
// Candidates come from the backend, which excludes current members of the
// role and holders of the protected role. The workflow forwards the role and
// search term and does not filter the response again.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/adminapi"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/async"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/notify"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/observability"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
)

// API is the subset of the admin API the workflow uses
type API interface {
	ListAvailableUsers(ctx context.Context, roleID string, q adminapi.CandidateQuery) ([]rbac.UserProfile, error)
	AssignUsers(ctx context.Context, roleID string, userIDs []string) error
}

// State of the modal
type State int

const (
	StateClosed State = iota
	StateLoading
	StateReady
	StateSubmitting
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateError:
		return "error"
	default:
		return "closed"
	}
}

var (
	// ErrNoSelection is returned by Submit when no user is selected
	ErrNoSelection = errors.New("no users selected")

	// ErrClosed is returned by operations on a closed modal
	ErrClosed = errors.New("assignment modal is closed")

	// ErrBusy is returned while a submit is in flight
	ErrBusy = errors.New("assignment already in progress")
)

// AssignedHook is called after a successful batch assign
type AssignedHook func(ctx context.Context, roleID string, userIDs []string) error

// Options configures a Workflow. Zero values get defaults.
type Options struct {
	// Debounce is the quiet period before a search is sent (300ms)
	Debounce time.Duration
	// Limit caps the candidate list (20)
	Limit int
	// RequestTimeout bounds debounced fetches and hooks (15s). Debounced
	// fetches also end when the context given to Open is cancelled.
	RequestTimeout time.Duration

	Notifier notify.Notifier
	Logger   *observability.Logger
	Metrics  *observability.Metrics
}

// Workflow is one assignment modal. It is safe for concurrent use.
type Workflow struct {
	api       API
	opts      Options
	debouncer *async.Debouncer

	mu         sync.Mutex
	ctx        context.Context // from Open, parent of debounced fetches
	state      State
	role       rbac.Role
	query      string
	candidates []rbac.UserProfile
	selected   map[string]struct{}
	order      []string
	fetchErr   error
	submitErr  error
	gen        uint64 // bumped on Open and Close
	fetchGen   uint64 // bumped per candidate request
	hooks      []AssignedHook
}

// New creates a closed workflow
func New(api API, opts Options) *Workflow {
	if opts.Debounce == 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	return &Workflow{
		api:       api,
		opts:      opts,
		debouncer: async.NewDebouncer(opts.Debounce),
		selected:  map[string]struct{}{},
		ctx:       context.Background(),
	}
}

// OnAssigned registers a hook run in the background after every successful
// assign, typically a membership listing refresh.
func (w *Workflow) OnAssigned(hook AssignedHook) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hooks = append(w.hooks, hook)
}

// Open opens the modal for role, resetting selection, error and query, and
// fetches the first candidates with an empty search.
func (w *Workflow) Open(ctx context.Context, role rbac.Role) error {
	if role.IsProtected() {
		return rbac.ErrProtectedRole
	}
	w.debouncer.Stop()

	w.mu.Lock()
	w.gen++
	gen := w.gen
	w.ctx = ctx
	w.role = role
	w.resetLocked()
	w.state = StateLoading
	w.mu.Unlock()

	_, err := w.fetch(ctx, gen, "")
	return err
}

func (w *Workflow) resetLocked() {
	w.query = ""
	w.candidates = nil
	w.selected = map[string]struct{}{}
	w.order = nil
	w.fetchErr = nil
	w.submitErr = nil
}

// Close closes the modal. Responses still in flight are discarded and a
// pending search is cancelled.
func (w *Workflow) Close() {
	w.debouncer.Stop()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	w.state = StateClosed
	w.resetLocked()
}

// fetch loads candidates for query and records them unless a newer request
// or an Open/Close superseded it. The response is returned either way.
func (w *Workflow) fetch(ctx context.Context, gen uint64, query string) ([]rbac.UserProfile, error) {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return nil, nil
	}
	w.fetchGen++
	fetchGen := w.fetchGen
	roleID := w.role.ID
	if w.state != StateSubmitting {
		w.state = StateLoading
	}
	w.mu.Unlock()

	users, err := w.api.ListAvailableUsers(ctx, roleID, adminapi.CandidateQuery{Limit: w.opts.Limit, Search: query})

	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.gen || fetchGen != w.fetchGen {
		w.opts.Metrics.ObserveStale("assignment")
		return users, nil
	}
	if err != nil {
		w.opts.Logger.WithRole(roleID).WithField("search", query).WithError(err).Error("Failed to load assignment candidates")
		w.fetchErr = err
		if w.state != StateSubmitting {
			w.state = StateError
		}
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	w.candidates = users
	w.fetchErr = nil
	if w.state != StateSubmitting {
		w.state = StateReady
	}
	return users, nil
}

// SetQuery records the search input and schedules a candidate fetch after
// the debounce delay. Calls within the delay coalesce; the fetch uses the
// query current when the delay elapses.
func (w *Workflow) SetQuery(q string) error {
	w.mu.Lock()
	if w.state == StateClosed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.query = q
	gen := w.gen
	w.mu.Unlock()

	w.debouncer.Trigger(func() { w.fetchCurrent(gen) })
	return nil
}

func (w *Workflow) fetchCurrent(gen uint64) {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return
	}
	query, parent := w.query, w.ctx
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, w.opts.RequestTimeout)
	defer cancel()
	_, _ = w.fetch(ctx, gen, query)
}

// FlushSearch sends a pending debounced search immediately. It reports
// whether one was pending.
func (w *Workflow) FlushSearch() bool {
	return w.debouncer.Flush()
}

// Retry refetches candidates for the current query
func (w *Workflow) Retry(ctx context.Context) error {
	w.mu.Lock()
	if w.state == StateClosed {
		w.mu.Unlock()
		return ErrClosed
	}
	gen, query := w.gen, w.query
	w.mu.Unlock()

	w.debouncer.Stop()
	_, err := w.fetch(ctx, gen, query)
	return err
}

// Search sets the query and fetches its candidates right away with ctx,
// cancelling any pending debounced search. It returns the candidates of this
// request even when a concurrent debounced fetch lands after it.
func (w *Workflow) Search(ctx context.Context, q string) ([]rbac.UserProfile, error) {
	w.debouncer.Stop()

	w.mu.Lock()
	if w.state == StateClosed {
		w.mu.Unlock()
		return nil, ErrClosed
	}
	w.query = q
	gen := w.gen
	w.mu.Unlock()

	return w.fetch(ctx, gen, q)
}

// Toggle selects or deselects a user
func (w *Workflow) Toggle(userID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case StateClosed:
		return ErrClosed
	case StateSubmitting:
		return ErrBusy
	}
	if userID == "" {
		return nil
	}
	if _, ok := w.selected[userID]; ok {
		delete(w.selected, userID)
		for i, id := range w.order {
			if id == userID {
				w.order = append(w.order[:i], w.order[i+1:]...)
				break
			}
		}
		return nil
	}
	w.selected[userID] = struct{}{}
	w.order = append(w.order, userID)
	return nil
}

// Selected returns the selected user IDs in selection order
func (w *Workflow) Selected() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.order...)
}

// Submit assigns every selected user to the role in one call. With nothing
// selected it warns and returns ErrNoSelection without a network call. On
// failure the modal stays open with its selection.
func (w *Workflow) Submit(ctx context.Context) (int, error) {
	w.mu.Lock()
	switch w.state {
	case StateClosed:
		w.mu.Unlock()
		return 0, ErrClosed
	case StateSubmitting:
		w.mu.Unlock()
		return 0, ErrBusy
	}
	if len(w.order) == 0 {
		w.mu.Unlock()
		notify.Warning(w.opts.Notifier, "Select at least one user to assign")
		return 0, ErrNoSelection
	}
	w.state = StateSubmitting
	w.submitErr = nil
	gen := w.gen
	role := w.role
	ids := append([]string(nil), w.order...)
	hooks := append([]AssignedHook(nil), w.hooks...)
	w.mu.Unlock()

	err := w.api.AssignUsers(ctx, role.ID, ids)

	w.mu.Lock()
	stale := gen != w.gen
	if err != nil {
		if !stale {
			w.state = StateError
			w.submitErr = err
		}
		w.mu.Unlock()
		w.opts.Logger.WithRole(role.ID).WithField("user_ids", ids).WithError(err).Error("Failed to assign users")
		if !stale {
			notify.Failure(w.opts.Notifier, err, "Failed to assign users")
		}
		return 0, fmt.Errorf("failed to assign users: %w", err)
	}
	if !stale {
		w.gen++
		w.state = StateClosed
		w.resetLocked()
	}
	w.mu.Unlock()
	w.debouncer.Stop()

	if !stale {
		notify.Success(w.opts.Notifier, fmt.Sprintf("Assigned %d user(s) to %s", len(ids), role.Label()))
	}
	for _, hook := range hooks {
		async.SafeGo(context.Background(), w.opts.Logger, w.opts.RequestTimeout, "assignment hook", func(ctx context.Context) error {
			return hook(ctx, role.ID, ids)
		})
	}
	return len(ids), nil
}

// Snapshot is a copy of the observable modal state
type Snapshot struct {
	State      State
	Role       rbac.Role
	Query      string
	Candidates []rbac.UserProfile
	Selected   []string
	FetchErr   error
	SubmitErr  error
}

// Snapshot returns the current state
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{
		State:      w.state,
		Role:       w.role,
		Query:      w.query,
		Candidates: append([]rbac.UserProfile(nil), w.candidates...),
		Selected:   append([]string(nil), w.order...),
		FetchErr:   w.fetchErr,
		SubmitErr:  w.submitErr,
	}
}
