// Package observability provides structured logging, Prometheus metrics,
// health checks, and graceful shutdown for the grantway service.
//
// Create a logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, nil)
//	logger.WithField("port", 8080).Info("server started")
//
// Initialize metrics and instrument the router:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	handler := observability.HTTPMetricsMiddleware(metrics)(router)
//
// Expose health probes and /metrics on the health port:
//
//	checker := observability.NewHealthChecker(db)
//	healthMux.HandleFunc("/healthz", checker.Liveness)
//	healthMux.HandleFunc("/readyz", checker.Readiness)
//	observability.RegisterMetricsEndpoint(healthMux, registry)
package observability
