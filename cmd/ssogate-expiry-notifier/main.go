package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ssogate/pkg/enforce"
	"github.com/platinummonkey/ssogate/pkg/hierarchy"
	"github.com/platinummonkey/ssogate/pkg/session"
	"github.com/platinummonkey/ssogate/pkg/sso"
	"github.com/platinummonkey/ssogate/pkg/toggles"
)

var (
	dbURL         = flag.String("db-url", getEnv("SSOGATE_POSTGRES_URL", "postgres://localhost/ssogate?sslmode=disable"), "PostgreSQL connection URL")
	redisURL      = flag.String("redis-url", getEnv("SSOGATE_REDIS_URL", "redis://localhost:6379"), "Redis connection URL")
	togglesPath   = flag.String("toggles-path", getEnv("SSOGATE_TOGGLES_PATH", ""), "Expiry-mode toggle file")
	schedule      = flag.String("schedule", "*/5 * * * *", "Cron schedule for expiry sweeps (default: every 5 minutes)")
	warnThreshold = flag.Duration("warn-threshold", time.Hour, "Log a warning for sessions expiring within this window")
	runOnce       = flag.Bool("run-once", false, "Run one sweep and exit (for testing)")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.WithError(err).Fatal("failed to ping database")
	}

	sessions, err := session.NewStore(session.Config{RedisURL: *redisURL})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to session store")
	}
	defer sessions.Close()

	modes, err := toggles.Load(*togglesPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load expiry-mode toggles")
	}

	svc := enforce.NewService(
		hierarchy.NewStore(db, 5*time.Minute),
		sso.NewStorage(db),
		modes,
		nil,
		nil,
	)

	sweep := func() {
		start := time.Now()
		swept, nearExpiry, expired := 0, 0, 0

		err := sessions.ForEachSession(context.Background(), func(sessionID string) error {
			results, err := svc.SessionsTimeRemainingForExpiry(context.Background(), sessions.Scoped(sessionID))
			if err != nil {
				return err
			}
			swept++

			for _, entry := range results {
				fields := logrus.Fields{
					"session_id":     sessionID,
					"provider_id":    entry.ProviderID,
					"time_remaining": entry.TimeRemaining.String(),
				}
				switch {
				case entry.TimeRemaining <= 0:
					expired++
					logger.WithFields(fields).Info("session already expired")
				case entry.TimeRemaining < *warnThreshold:
					nearExpiry++
					logger.WithFields(fields).Warn("session nearing expiry")
				}
			}
			return nil
		})
		if err != nil {
			logger.WithError(err).Error("expiry sweep failed")
			return
		}

		logger.WithFields(logrus.Fields{
			"sessions":    swept,
			"near_expiry": nearExpiry,
			"expired":     expired,
			"duration":    time.Since(start).String(),
		}).Info("expiry sweep completed")
	}

	if *runOnce {
		sweep()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(*schedule, sweep); err != nil {
		logger.WithError(err).Fatal("failed to schedule expiry sweep")
	}

	c.Start()
	logger.WithField("schedule", *schedule).Info("ssogate expiry notifier started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	<-c.Stop().Done()
	logger.Info("notifier stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
