package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/ssogate/pkg/config"
	"github.com/platinummonkey/ssogate/pkg/enforce"
	"github.com/platinummonkey/ssogate/pkg/hierarchy"
	"github.com/platinummonkey/ssogate/pkg/middleware"
	"github.com/platinummonkey/ssogate/pkg/observability"
	"github.com/platinummonkey/ssogate/pkg/session"
	"github.com/platinummonkey/ssogate/pkg/sso"
	"github.com/platinummonkey/ssogate/pkg/toggles"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting ssogated")

	db, err := sql.Open("postgres", cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	sessions, err := session.NewStore(cfg.Session)
	if err != nil {
		log.Fatalf("Failed to connect to session store: %v", err)
	}
	defer sessions.Close()

	modes, err := toggles.Load(cfg.Enforcement.TogglesPath)
	if err != nil {
		log.Fatalf("Failed to load expiry-mode toggles: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Enforcement.TogglesPath != "" {
		go func() {
			defer observability.RecoverPanic(logger, "toggle watcher")
			if err := modes.Watch(ctx, func(err error) {
				if err != nil {
					logger.WithError(err).Warn("toggle reload failed")
					return
				}
				logger.Info("expiry-mode toggles reloaded")
			}); err != nil && err != context.Canceled {
				logger.WithError(err).Error("toggle watcher stopped")
			}
		}()
	}

	registry := prometheus.NewRegistry()
	var serviceMetrics *observability.Metrics
	var decisionMetrics *enforce.Metrics
	if cfg.Observability.MetricsEnabled {
		serviceMetrics = observability.NewMetrics(registry)
		decisionMetrics = enforce.NewMetrics(registry)
	}

	hierarchyStore := hierarchy.NewStore(db, cfg.Enforcement.RootCacheTTL)
	providerStore := sso.NewStorage(db)

	svc := enforce.NewService(hierarchyStore, providerStore, modes, logger, decisionMetrics)
	scope := func(sessionID string) enforce.SessionState {
		return sessions.Scoped(sessionID)
	}

	router := mux.NewRouter()
	identity := middleware.NewIdentity(hierarchyStore, logger)
	router.Use(identity.Handler)
	if serviceMetrics != nil {
		router.Use(observability.HTTPMetricsMiddleware(serviceMetrics))
	}

	limiter := middleware.NewSignInRateLimiter(sessions.Client(), nil, logger)
	handlers := enforce.NewHandlers(svc, scope, logger)
	handlers.RegisterRoutes(router, limiter.Handler)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(router, "ssogated"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, sessions.Client()))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	go func() {
		logger.Infof("health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	if serviceMetrics != nil {
		go func() {
			defer observability.RecoverPanic(logger, "db stats collector")
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					serviceMetrics.ObserveDBStats(db)
				}
			}
		}()
	}

	go func() {
		logger.Infof("ssogated listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(shutdownCtx context.Context) error {
		return healthServer.Shutdown(shutdownCtx)
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		cancel()
		return nil
	})

	if err := shutdown.WaitForShutdown(); err != nil {
		log.Fatalf("Shutdown failed: %v", err)
	}
}
