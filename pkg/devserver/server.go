// Package devserver is a self-contained implementation of the role
// administration API, backed by memory or PostgreSQL. It exists for local
// development of the console and for contract tests of the client.
//
// It guards the protected role the way the real backend does, excludes
// members and protected-role holders from assignment candidates, and treats
// a permission save as a whole-set replacement. It does not enforce
// permissions on callers beyond an optional bearer token.
package devserver

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/httputil"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/observability"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
)

// Options configures a Server
type Options struct {
	Store Store
	// Catalogue provides the identifiers the backend accepts
	Catalogue *rbac.Catalogue
	// ExtraPermissions are accepted and listed on top of the catalogue
	ExtraPermissions []rbac.PermissionID
	// Token, when set, is required as bearer token on every /role route
	Token string

	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
}

// Server serves the admin API
type Server struct {
	store  Store
	known  map[rbac.PermissionID]struct{}
	all    []rbac.PermissionID
	token  string
	logger *observability.Logger

	metrics  *observability.Metrics
	registry *prometheus.Registry
}

// New creates a server. A nil Store gets an empty MemoryStore and a nil
// Catalogue the default one.
func New(opts Options) *Server {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Catalogue == nil {
		opts.Catalogue = rbac.DefaultCatalogue()
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}

	known := map[rbac.PermissionID]struct{}{}
	for _, id := range opts.Catalogue.AllIdentifiers() {
		known[id] = struct{}{}
	}
	for _, id := range opts.ExtraPermissions {
		known[id] = struct{}{}
	}
	all := make([]rbac.PermissionID, 0, len(known))
	for id := range known {
		all = append(all, id)
	}
	sort.Strings(all)

	return &Server{
		store:    opts.Store,
		known:    known,
		all:      all,
		token:    opts.Token,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		registry: opts.Registry,
	}
}

// Store returns the backing store
func (s *Server) Store() Store { return s.store }

// RegisterRoutes registers the admin API routes. Fixed paths are registered
// before /role/{id} so they are not captured as IDs.
func (s *Server) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/role", s.ListRoles).Methods(http.MethodGet)
	router.HandleFunc("/role", s.CreateRole).Methods(http.MethodPost)
	router.HandleFunc("/role/permissions/all", s.ListPermissions).Methods(http.MethodGet)
	router.HandleFunc("/role/assign", s.AssignUsers).Methods(http.MethodPost)

	router.HandleFunc("/role/{id}", s.GetRole).Methods(http.MethodGet)
	router.HandleFunc("/role/{id}", s.UpdateRole).Methods(http.MethodPut)
	router.HandleFunc("/role/{id}", s.DeleteRole).Methods(http.MethodDelete)

	router.HandleFunc("/role/{id}/permissions", s.GetRolePermissions).Methods(http.MethodGet)
	router.HandleFunc("/role/{id}/permissions", s.ReplaceRolePermissions).Methods(http.MethodPut)

	router.HandleFunc("/role/{id}/users", s.ListMembers).Methods(http.MethodGet)
	router.HandleFunc("/role/{id}/users/{userId}", s.RemoveMember).Methods(http.MethodDelete)
	router.HandleFunc("/role/{id}/available-users", s.ListCandidates).Methods(http.MethodGet)
}

// Handler returns the complete HTTP handler: API routes behind the bearer
// check, /metrics when a registry is set, all traced with otelhttp.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(
		httputil.RequestIDMiddleware(s.logger),
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
	)
	if s.metrics != nil {
		router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "Cannot "+r.Method+" "+r.URL.Path)
	})

	if s.registry != nil {
		router.Handle("/metrics", observability.MetricsHandler(s.registry)).Methods(http.MethodGet)
	}

	api := router.NewRoute().Subrouter()
	api.Use(httputil.BearerAuthMiddleware(s.token))
	s.RegisterRoutes(api)

	return otelhttp.NewHandler(router, "roleadmin-devserver")
}

// writeStoreError maps store errors to responses
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFoundError(w, notFound)
	case errors.Is(err, ErrConflict):
		httputil.WriteConflict(w, err.Error())
	default:
		observability.FromContext(r.Context()).WithError(err).Error("Store operation failed")
		httputil.WriteErrorMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
