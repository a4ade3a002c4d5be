// Package main runs the extraction and classification stages over one local
// file without touching the database. Useful for tuning OCR flags and the
// pattern tables.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/docpipeline/constants"
	"github.com/joseph-ayodele/docpipeline/internal/classify"
	"github.com/joseph-ayodele/docpipeline/internal/common"
	"github.com/joseph-ayodele/docpipeline/internal/fields"
	"github.com/joseph-ayodele/docpipeline/internal/ocr"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runextract <file>")
		os.Exit(2)
	}
	path := os.Args[1]

	var kind constants.ContentKind
	switch constants.NormalizeExt(filepath.Ext(path)) {
	case "pdf":
		kind = constants.KindPDF
	case "jpg", "jpeg", "png":
		kind = constants.KindImage
	default:
		logger.Error("unsupported file extension", "path", path)
		os.Exit(2)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}

	cfg := common.LoadConfig()
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
	defer extractor.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	res, err := extractor.Extract(ctx, data, kind)
	if err != nil {
		logger.Error("text extraction failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	classification := classify.Classify(res.Text)
	detected := fields.Extract(res.Text, classification.Type)

	logger.Info("extraction OK",
		"method", res.Method,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"confidence", res.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	logger.Info("classification",
		"type", classification.Type,
		"confidence", classification.Confidence,
		"model", classification.Model,
	)
	for _, f := range detected {
		logger.Info("field", "name", f.Name, "value", f.Value, "confidence", f.Confidence)
	}
}
