// Package pipeline runs one claimed job through the processing stages:
// download, text extraction, classification, field extraction, persistence.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/joseph-ayodele/docpipeline/constants"
	"github.com/joseph-ayodele/docpipeline/internal/classify"
	"github.com/joseph-ayodele/docpipeline/internal/common"
	"github.com/joseph-ayodele/docpipeline/internal/entity"
	"github.com/joseph-ayodele/docpipeline/internal/fields"
	"github.com/joseph-ayodele/docpipeline/internal/ocr"
	"github.com/joseph-ayodele/docpipeline/internal/repository"
	"github.com/joseph-ayodele/docpipeline/internal/storage"
)

// Persisted size bounds. Raw recognition output is never stored whole: the
// OCR text row is capped and marked, and the structured summary carries only
// a short preview.
const (
	MaxOCRTextLength = 50000
	TruncationMarker = "... [truncated]"
	PreviewLength    = 500
)

// TextExtractor is the extraction backend contract. *ocr.Extractor satisfies
// it; tests substitute fakes.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, kind constants.ContentKind) (ocr.Result, error)
}

// Processor coordinates the pipeline stages for one job at a time.
type Processor struct {
	logger    *slog.Logger
	blobs     storage.BlobStorage
	extractor TextExtractor
	docs      repository.DocumentRepository
	jobs      repository.JobRepository
	results   repository.ResultRepository

	classifyFn      func(string) classify.Result
	extractFieldsFn func(string, constants.Category) []fields.Field
}

func NewProcessor(
	logger *slog.Logger,
	blobs storage.BlobStorage,
	extractor TextExtractor,
	docs repository.DocumentRepository,
	jobs repository.JobRepository,
	results repository.ResultRepository,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:          logger,
		blobs:           blobs,
		extractor:       extractor,
		docs:            docs,
		jobs:            jobs,
		results:         results,
		classifyFn:      classify.Classify,
		extractFieldsFn: fields.Extract,
	}
}

// Process runs all stages for a claimed job. Any returned error means the
// attempt failed; the caller records it on the job. The document row is never
// modified on a failed attempt, so retries see the pre-attempt state.
func (p *Processor) Process(ctx context.Context, job *entity.Job) error {
	doc, err := p.docs.GetByID(ctx, job.DocumentID)
	if err != nil {
		return err
	}

	data, err := p.blobs.Download(ctx, doc.StoragePath)
	if err != nil {
		return common.NewDownloadError(fmt.Sprintf("failed to download file %s", doc.StoragePath), err)
	}

	p.progress(ctx, job, constants.ProgressExtracting)

	kind := contentKind(doc)
	if kind == "" {
		return common.NewExtractionError(fmt.Sprintf("unsupported content type %q", doc.MimeType), nil)
	}

	p.logger.Debug("extracting text", "job_id", job.ID, "document_id", doc.ID, "kind", kind)
	extracted, err := p.extractor.Extract(ctx, data, kind)
	if err != nil {
		return err
	}

	p.progress(ctx, job, constants.ProgressClassifying)

	classification := p.classifyFn(extracted.Text)
	p.logger.Debug("classified document",
		"document_id", doc.ID,
		"type", classification.Type,
		"confidence", classification.Confidence,
	)

	p.progress(ctx, job, constants.ProgressFields)

	detected := p.extractFieldsFn(extracted.Text, classification.Type)

	if err := p.persist(ctx, doc, extracted, classification, detected); err != nil {
		return err
	}

	p.logger.Info("document processed",
		"job_id", job.ID,
		"document_id", doc.ID,
		"document_type", classification.Type,
		"fields", len(detected),
		"pages", extracted.Pages,
	)
	return nil
}

// persist writes all pipeline outputs. Append-only tables first, then the
// document summary; a failure anywhere surfaces as a persistence error and
// leaves the document status unchanged.
func (p *Processor) persist(
	ctx context.Context,
	doc *entity.Document,
	extracted ocr.Result,
	classification classify.Result,
	detected []fields.Field,
) error {
	truncated := truncateText(extracted.Text)

	if err := p.results.InsertOCRText(ctx, &entity.OCRText{
		DocumentID: doc.ID,
		PageNumber: 1,
		Text:       truncated,
	}); err != nil {
		return common.NewPersistenceError("save ocr text", err)
	}

	if _, err := p.results.InsertClassification(ctx, &entity.Classification{
		DocumentID: doc.ID,
		Label:      classification.Type,
		Confidence: classification.Confidence,
		Model:      classification.Model,
	}); err != nil {
		return common.NewPersistenceError("save classification", err)
	}

	rows := make([]*entity.ExtractedField, len(detected))
	for i, f := range detected {
		rows[i] = &entity.ExtractedField{
			DocumentID: doc.ID,
			FieldName:  f.Name,
			FieldValue: f.Value,
			Confidence: f.Confidence,
			Normalized: f.Normalized,
		}
	}
	if err := p.results.InsertFields(ctx, rows); err != nil {
		return common.NewPersistenceError("save extracted fields", err)
	}

	result := buildStructuredResult(classification, truncated, detected)
	if err := validateStructuredResult(result); err != nil {
		return common.NewPersistenceError("structured result rejected", err)
	}

	if err := p.docs.MarkProcessed(ctx, doc.ID, classification.Type, result); err != nil {
		return common.NewPersistenceError("mark document processed", err)
	}
	return nil
}

// progress reports a checkpoint; write failures are logged, never fatal.
func (p *Processor) progress(ctx context.Context, job *entity.Job, value int) {
	if err := p.jobs.UpdateProgress(ctx, job.ID, value); err != nil {
		p.logger.Warn("progress checkpoint not recorded", "job_id", job.ID, "progress", value)
	}
}

func buildStructuredResult(classification classify.Result, truncated string, detected []fields.Field) *entity.StructuredResult {
	fieldMap := make(map[string]string, len(detected))
	for _, f := range detected {
		fieldMap[f.Name] = f.Value
	}
	return &entity.StructuredResult{
		Type:        classification.Type,
		Confidence:  classification.Confidence,
		TextPreview: previewText(truncated),
		Fields:      fieldMap,
	}
}

// truncateText bounds stored OCR text, appending the marker when cut.
func truncateText(text string) string {
	if len(text) <= MaxOCRTextLength {
		return text
	}
	return text[:MaxOCRTextLength] + TruncationMarker
}

// previewText keeps the first PreviewLength characters only.
func previewText(text string) string {
	if len(text) <= PreviewLength {
		return text
	}
	return text[:PreviewLength] + "..."
}

// contentKind resolves the extraction backend from the stored MIME type,
// falling back to the filename extension for legacy rows.
func contentKind(doc *entity.Document) constants.ContentKind {
	if kind := constants.MapMIMEToKind(doc.MimeType); kind != "" {
		return kind
	}
	switch constants.NormalizeExt(filepath.Ext(doc.Filename)) {
	case "pdf":
		return constants.KindPDF
	case "jpg", "jpeg", "png":
		return constants.KindImage
	}
	return ""
}
