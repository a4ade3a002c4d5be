// Package main is the entrypoint for the document API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/docpipeline/internal/cache"
	"github.com/joseph-ayodele/docpipeline/internal/common"
	"github.com/joseph-ayodele/docpipeline/internal/export"
	"github.com/joseph-ayodele/docpipeline/internal/repository"
	"github.com/joseph-ayodele/docpipeline/internal/server"
	"github.com/joseph-ayodele/docpipeline/internal/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer repository.Close(pool, logger)

	if err := repository.RunMigrations(cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations applied")

	blobs, err := storage.NewGCSStorage(ctx, cfg.Storage.Bucket, logger)
	if err != nil {
		return fmt.Errorf("open blob storage: %w", err)
	}

	var apiCache cache.Cache = cache.Noop{}
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("redis connected")
		apiCache = redisCache
	}

	docs := repository.NewDocumentRepository(pool, logger)
	jobs := repository.NewJobRepository(pool, logger)
	results := repository.NewResultRepository(pool, logger)
	exporter := export.NewService(docs, results, logger)

	health := func(ctx context.Context) error {
		return repository.HealthCheck(ctx, pool, 3*time.Second, logger)
	}

	srv := server.New(logger, cfg, blobs, docs, jobs, results, apiCache, exporter, health)

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
