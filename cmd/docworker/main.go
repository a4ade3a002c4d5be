// Package main is the entrypoint for the document processing worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/docpipeline/internal/common"
	"github.com/joseph-ayodele/docpipeline/internal/ocr"
	"github.com/joseph-ayodele/docpipeline/internal/pipeline"
	"github.com/joseph-ayodele/docpipeline/internal/repository"
	"github.com/joseph-ayodele/docpipeline/internal/storage"
	"github.com/joseph-ayodele/docpipeline/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker failed", "error", err)
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

	extractor := ocr.NewExtractor(ocr.Config{
		Tesseract:     cfg.OCR.Tesseract,
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
		PDFFallback:   cfg.OCR.PDFFallback,
	}, logger)
	defer func() {
		if cerr := extractor.Close(); cerr != nil {
			logger.Warn("extractor cleanup failed", "error", cerr)
		}
	}()

	docs := repository.NewDocumentRepository(pool, logger)
	jobs := repository.NewJobRepository(pool, logger)
	results := repository.NewResultRepository(pool, logger)

	proc := pipeline.NewProcessor(logger, blobs, extractor, docs, jobs, results)
	w := worker.New(logger, jobs, proc, cfg.Worker)

	return w.Run(ctx)
}
