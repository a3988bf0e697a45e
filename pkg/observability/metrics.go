package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the console and the dev backend
type Metrics struct {
	// Admin API client
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Console workflows
	NotificationsTotal  *prometheus.CounterVec
	StaleResponsesTotal *prometheus.CounterVec
	DroppedPermissions  prometheus.Counter

	// Dev backend HTTP surface
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors on registry
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roleadmin_api_requests_total",
				Help: "Total number of admin API requests issued by the console",
			},
			[]string{"operation", "status"},
		),
		APIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "roleadmin_api_request_duration_seconds",
				Help:    "Admin API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roleadmin_notifications_total",
				Help: "Transient notifications shown to the admin",
			},
			[]string{"level"},
		),
		StaleResponsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roleadmin_stale_responses_total",
				Help: "Responses discarded because the requesting view had moved on",
			},
			[]string{"workflow"},
		),
		DroppedPermissions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "roleadmin_dropped_permissions_total",
				Help: "Identifiers unknown to the catalogue dropped on permission save",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roleadmin_dev_http_requests_total",
				Help: "Total number of HTTP requests served by the dev backend",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "roleadmin_dev_http_request_duration_seconds",
				Help:    "Dev backend request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		m.APIRequestsTotal,
		m.APIRequestDuration,
		m.NotificationsTotal,
		m.StaleResponsesTotal,
		m.DroppedPermissions,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// ObserveAPICall records one admin API round trip
func (m *Metrics) ObserveAPICall(operation string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.APIRequestsTotal.WithLabelValues(operation, label).Inc()
	m.APIRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveNotification counts a notification by level
func (m *Metrics) ObserveNotification(level string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(level).Inc()
}

// ObserveStale counts a discarded late response
func (m *Metrics) ObserveStale(workflow string) {
	if m == nil {
		return
	}
	m.StaleResponsesTotal.WithLabelValues(workflow).Inc()
}

// ObserveDropped counts identifiers dropped on save
func (m *Metrics) ObserveDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DroppedPermissions.Add(float64(n))
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments mux routes. The route template is used as
// label so that IDs do not explode cardinality.
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
