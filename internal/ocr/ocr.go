// Package ocr turns raw document bytes into plain text with per-line
// confidence. Two backends: tesseract for raster images, pdftotext for PDFs
// with an embedded text layer. Both run as external processes behind a
// stubbable Runner.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/joseph-ayodele/docpipeline/constants"
	"github.com/joseph-ayodele/docpipeline/internal/common"
)

// Embedded PDF text carries no recognition uncertainty; it gets a fixed high
// confidence instead of a measured one.
const pdfTextConfidence = 95

type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for the PDF fallback, default 300
	MaxPages      int // 0 = no limit

	// PDFFallback rasterizes and OCRs PDFs whose text layer is empty.
	// Off by default: an empty text layer is a valid empty result.
	PDFFallback bool
}

// BBox is a bounding box in source-pixel coordinates.
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Unit is one recognized line of output.
type Unit struct {
	Text       string  `json:"text"`
	Confidence float32 `json:"confidence"`
	BBox       *BBox   `json:"bbox,omitempty"`
}

// Result is the full extraction output. Extraction never partially succeeds:
// callers get either a complete Result or an error.
type Result struct {
	Text       string
	Confidence float32 // 0..100
	Pages      int
	Units      []Unit
	Method     string // "image-ocr" | "pdf-text" | "pdf-ocr"
	Duration   time.Duration
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger

	// The exec backends are acquired lazily: binary availability is checked
	// once on first use for each kind, and the artifact dir on first write.
	imageOnce sync.Once
	imageErr  error
	pdfOnce   sync.Once
	pdfErr    error

	dirOnce sync.Once
	dirErr  error
	tmpDir  string
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Extract runs the backend matching kind over data.
func (e *Extractor) Extract(ctx context.Context, data []byte, kind constants.ContentKind) (Result, error) {
	start := time.Now()

	path, err := e.spill(data, kind)
	if err != nil {
		return Result{}, common.NewExtractionError("stage input", err)
	}
	defer os.Remove(path)

	var res Result
	switch kind {
	case constants.KindImage:
		res, err = e.extractImage(ctx, path)
	case constants.KindPDF:
		res, err = e.extractPDF(ctx, path)
	default:
		return Result{}, common.NewExtractionError(fmt.Sprintf("unsupported content kind %q", kind), nil)
	}
	if err != nil {
		return Result{}, err
	}
	res.Duration = time.Since(start)
	e.logger.Debug("extraction complete",
		"method", res.Method,
		"pages", res.Pages,
		"units", len(res.Units),
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// Close releases the extractor's on-disk artifacts. Safe to call once after
// the owner is done; the extractor must not be used afterwards.
func (e *Extractor) Close() error {
	if e.tmpDir != "" {
		return os.RemoveAll(e.tmpDir)
	}
	return nil
}

// spill writes data to a temp file so the exec backends can read it.
func (e *Extractor) spill(data []byte, kind constants.ContentKind) (string, error) {
	e.dirOnce.Do(func() {
		e.tmpDir, e.dirErr = os.MkdirTemp("", "docpipe-ocr-*")
	})
	if e.dirErr != nil {
		return "", e.dirErr
	}

	ext := ".img"
	if kind == constants.KindPDF {
		ext = ".pdf"
	}
	f, err := os.CreateTemp(e.tmpDir, "doc-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (e *Extractor) ensureImageBackend() error {
	e.imageOnce.Do(func() {
		if _, err := exec.LookPath(e.cfg.Tesseract); err != nil {
			e.imageErr = fmt.Errorf("tesseract unavailable: %w", err)
		}
	})
	return e.imageErr
}

func (e *Extractor) ensurePDFBackend() error {
	e.pdfOnce.Do(func() {
		if _, err := exec.LookPath(e.cfg.Pdftotext); err != nil {
			e.pdfErr = fmt.Errorf("pdftotext unavailable: %w", err)
		}
	})
	return e.pdfErr
}

func tmpPrefix(dir, name string) string {
	return filepath.Join(dir, name)
}
