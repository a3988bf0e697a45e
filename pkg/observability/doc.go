// Package observability provides structured logging, Prometheus metrics and
// OpenTelemetry tracing for the role administration console and its dev
// backend.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.ParseLogLevel("debug"), os.Stderr)
//	logger.WithRole(roleID).WithError(err).Error("Failed to save permissions")
//
// Request-scoped logging:
//
//	ctx = observability.WithRequestID(ctx, uuid.NewString())
//	observability.FromContext(ctx).Info("Fetching members")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.ObserveAPICall("get_role", 200, elapsed)
//
// The dev backend wraps its router with HTTPMetricsMiddleware and exposes
// MetricsHandler on /metrics.
//
// # Tracing
//
// InitTracing installs an OTLP/gRPC tracer provider; otelhttp spans on the
// admin API client and the dev backend are exported through it.
package observability
