// Package middleware provides the net/http middleware wrapped around every
// Hubro router.
//
// This package includes:
//   - Request ids (RequestID, RequestIDFrom)
//   - Request logging with log/slog
//   - Prometheus metrics for requests and the route hierarchy
//   - OpenTelemetry server spans
//   - CORS and gzip compression from gorilla/handlers
//
// Middleware is an Adapter and adapters are composed with Chain:
//
//	h := middleware.Chain(mux,
//	    middleware.RequestID(),
//	    middleware.LogRequests(logger),
//	    metrics.Middleware(),
//	    middleware.OpenTelemetry(),
//	)
//
// # Prometheus Metrics
//
// NewMetrics registers the following collectors:
//   - hubro_http_requests_total: requests by route pattern, method and status
//   - hubro_http_request_duration_seconds: request duration histogram
//   - hubro_http_requests_in_flight: requests being served
//   - hubro_hierarchy_entries: entries of the current snapshot by kind
//   - hubro_route_failures_total: entries that could not be registered, by role
//   - hubro_hierarchy_rebuilds_total: rebuilds by result
//
// The route label is the chi pattern the request matched, never the raw
// path, so label cardinality is bounded by the number of routes.
//
// # OpenTelemetry
//
// OpenTelemetry starts a server span per request using the global tracer
// provider and passes it on in the request context. Configure the provider
// before serving:
//
//	otel.SetTracerProvider(tp)
package middleware
