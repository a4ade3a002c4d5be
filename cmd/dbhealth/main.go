// Package main pings the configured database and reports queue depth.
// Handy as a deploy smoke check.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joseph-ayodele/docpipeline/internal/common"
	"github.com/joseph-ayodele/docpipeline/internal/repository"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := common.LoadConfig()
	if cfg.Database.DSN == "" {
		logger.Error("DB_URL env var is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, 3*time.Second, logger); err != nil {
		logger.Error("db ping failed", "error", err)
		os.Exit(1)
	}

	var pending, running, failed int
	err = pool.QueryRow(ctx,
		`SELECT
		    count(*) FILTER (WHERE status = 'pending'),
		    count(*) FILTER (WHERE status = 'running'),
		    count(*) FILTER (WHERE status = 'failed')
		 FROM jobs`).Scan(&pending, &running, &failed)
	if err != nil {
		logger.Error("queue depth query failed", "error", err)
		os.Exit(1)
	}

	logger.Info("db healthy", "pending", pending, "running", running, "failed", failed)
}
