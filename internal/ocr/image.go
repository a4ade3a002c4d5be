package ocr

import (
	"context"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docpipeline/internal/common"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (Result, error) {
	if err := e.ensureImageBackend(); err != nil {
		return Result{}, common.NewExtractionError("image backend", err)
	}

	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return Result{}, common.NewExtractionError("tesseract: "+truncate(string(errb), 512), err)
	}

	units, conf := parseTSVLines(string(out))
	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.Text
	}

	return Result{
		Text:       strings.Join(texts, "\n"),
		Confidence: conf,
		Pages:      1,
		Units:      units,
		Method:     "image-ocr",
	}, nil
}

// parseTSVLines groups tesseract TSV word rows (level 5) into line units.
// Each line gets the mean confidence of its words and a bbox spanning their
// extents; the overall confidence is the mean over all words.
func parseTSVLines(tsv string) ([]Unit, float32) {
	type lineAcc struct {
		words   []string
		sumConf float64
		n       int
		bbox    BBox
	}

	var order []string
	lines := map[string]*lineAcc{}
	var totalConf float64
	var totalWords int

	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || strings.TrimSpace(ln) == "" {
			continue // header or blank
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		level, _ := strconv.Atoi(cols[0])
		if level != 5 {
			continue // words only
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue // -1 marks non-text rows
		}

		left, _ := strconv.Atoi(cols[6])
		top, _ := strconv.Atoi(cols[7])
		width, _ := strconv.Atoi(cols[8])
		height, _ := strconv.Atoi(cols[9])

		// page:block:par:line identifies the source line
		key := cols[1] + ":" + cols[2] + ":" + cols[3] + ":" + cols[4]
		acc, ok := lines[key]
		if !ok {
			acc = &lineAcc{bbox: BBox{X: left, Y: top, Width: width, Height: height}}
			lines[key] = acc
			order = append(order, key)
		}

		acc.words = append(acc.words, word)
		acc.sumConf += conf
		acc.n++
		acc.bbox = extendBBox(acc.bbox, left, top, width, height)

		totalConf += conf
		totalWords++
	}

	units := make([]Unit, 0, len(order))
	for _, key := range order {
		acc := lines[key]
		bbox := acc.bbox
		units = append(units, Unit{
			Text:       strings.Join(acc.words, " "),
			Confidence: float32(acc.sumConf / float64(acc.n)),
			BBox:       &bbox,
		})
	}

	var overall float32
	if totalWords > 0 {
		overall = float32(totalConf / float64(totalWords))
	}
	return units, overall
}

func extendBBox(b BBox, left, top, width, height int) BBox {
	right := b.X + b.Width
	bottom := b.Y + b.Height
	if left < b.X {
		b.X = left
	}
	if top < b.Y {
		b.Y = top
	}
	if left+width > right {
		right = left + width
	}
	if top+height > bottom {
		bottom = top + height
	}
	b.Width = right - b.X
	b.Height = bottom - b.Y
	return b
}
