package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grantway/grantway/pkg/access"
	"github.com/grantway/grantway/pkg/api"
	"github.com/grantway/grantway/pkg/config"
	"github.com/grantway/grantway/pkg/httputil"
	"github.com/grantway/grantway/pkg/observability"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Error("Failed to open database")
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnLifetime)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		logger.WithError(err).Error("Failed to ping database")
		os.Exit(1)
	}

	if err := access.RunMigrations(context.Background(), db); err != nil {
		logger.WithError(err).Error("Failed to run migrations")
		os.Exit(1)
	}
	logger.Info("Database migrations applied")

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	store := access.NewStore(db)
	server := api.NewServer(store, logger, metrics)

	var handler http.Handler = server
	if metrics != nil {
		handler = observability.HTTPMetricsMiddleware(metrics)(handler)
	}
	handler = httputil.LoggingMiddleware(handler)
	handler = httputil.RecoveryMiddleware(handler)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics endpoints live on their own port so they are never
	// exposed alongside the API.
	healthChecker := observability.NewHealthChecker(db)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", healthChecker.Liveness)
	healthMux.HandleFunc("/readyz", healthChecker.Readiness)
	observability.RegisterMetricsEndpoint(healthMux, registry)

	healthServer := &http.Server{
		Addr:    cfg.Server.HealthAddr(),
		Handler: healthMux,
	}

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	if metrics != nil {
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				metrics.UpdateDBStats(db.Stats())

				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if n, err := store.CountUsers(ctx); err == nil {
					metrics.UsersTotal.Set(float64(n))
				}
				if n, err := store.CountResources(ctx); err == nil {
					metrics.ResourcesTotal.Set(float64(n))
				}
				cancel()
			}
		}()
	}

	sm := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		return db.Close()
	})

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("API server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API server failed")
			os.Exit(1)
		}
	}()

	if err := sm.WaitForShutdown(); err != nil {
		os.Exit(1)
	}
}
