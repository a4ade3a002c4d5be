package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docpipeline/internal/common"
)

func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	if err := e.ensurePDFBackend(); err != nil {
		return Result{}, common.NewExtractionError("pdf backend", err)
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext,
		"-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return Result{}, common.NewExtractionError("pdftotext: "+truncate(string(errb), 512), err)
	}

	text := string(out)
	if strings.TrimSpace(text) == "" && e.cfg.PDFFallback {
		return e.rasterizeAndOCR(ctx, path)
	}

	pages := e.pageCount(path, text)
	return Result{
		Text:       text,
		Confidence: pdfTextConfidence,
		Pages:      pages,
		Units:      syntheticUnits(text),
		Method:     "pdf-text",
	}, nil
}

// syntheticUnits splits embedded text on line breaks. There is no layout
// geometry to recover, so units get incrementing vertical positions.
func syntheticUnits(text string) []Unit {
	var units []Unit
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		units = append(units, Unit{
			Text:       line,
			Confidence: pdfTextConfidence,
			BBox:       &BBox{X: 0, Y: i * 20, Width: 800, Height: 20},
		})
	}
	return units
}

// pageCount prefers the pdftotext form-feed separators; when the text layer
// is empty it asks pdfcpu instead.
func (e *Extractor) pageCount(path, text string) int {
	if strings.TrimSpace(text) != "" {
		return 1 + strings.Count(text, "\f")
	}
	if n, err := api.PageCountFile(path); err == nil && n > 0 {
		return n
	}
	return 1
}

// rasterizeAndOCR renders each page to PNG with pdftoppm and OCRs the pages
// concurrently. Only used for PDFs with no embedded text layer, and only when
// the fallback is enabled.
func (e *Extractor) rasterizeAndOCR(ctx context.Context, path string) (Result, error) {
	if err := e.ensureImageBackend(); err != nil {
		return Result{}, common.NewExtractionError("pdf ocr fallback backend", err)
	}

	tmpDir, err := os.MkdirTemp(e.tmpDir, "pages-*")
	if err != nil {
		return Result{}, common.NewExtractionError("pdf ocr fallback", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := tmpPrefix(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return Result{}, common.NewExtractionError("pdftoppm: "+truncate(string(errb), 512), err)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return Result{}, common.NewExtractionError("pdftoppm produced no images", nil)
	}

	pageResults := make([]Result, len(matches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, img := range matches {
		g.Go(func() error {
			res, err := e.extractImage(gctx, img)
			if err != nil {
				return err
			}
			pageResults[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var b strings.Builder
	var units []Unit
	var confSum float64
	for _, pr := range pageResults {
		if b.Len() > 0 {
			b.WriteString("\n\f\n") // keep a clear page break marker
		}
		b.WriteString(pr.Text)
		units = append(units, pr.Units...)
		confSum += float64(pr.Confidence)
	}

	return Result{
		Text:       b.String(),
		Confidence: float32(confSum / float64(len(pageResults))),
		Pages:      len(matches),
		Units:      units,
		Method:     "pdf-ocr",
	}, nil
}
