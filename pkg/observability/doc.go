// Package observability provides structured logging, Prometheus metrics, and
// health checks.
//
// # Overview
//
// This package centralizes the ambient infrastructure shared by the binaries:
// JSON logging, HTTP metrics collection, health probes, and graceful
// shutdown.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, nil)
//	logger.WithField("group_id", groupID).Info("provider created")
//
// Request-scoped logging:
//
//	logger.FromContext(r.Context()).Warn("stale session")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//
// Instrument a handler chain:
//
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// # Related Packages
//
//   - pkg/config: observability configuration
//   - pkg/enforce: decision-engine metrics
package observability
