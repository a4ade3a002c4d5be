package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/docpipeline/internal/entity"
)

// ResultRepository persists the append-only pipeline outputs: classification
// records, extracted fields, and truncated OCR text.
type ResultRepository interface {
	InsertClassification(ctx context.Context, c *entity.Classification) (*entity.Classification, error)
	InsertFields(ctx context.Context, fields []*entity.ExtractedField) error
	InsertOCRText(ctx context.Context, t *entity.OCRText) error
	ListClassifications(ctx context.Context, documentID uuid.UUID) ([]*entity.Classification, error)
	ListFields(ctx context.Context, documentID uuid.UUID) ([]*entity.ExtractedField, error)
}

type resultRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewResultRepository(pool *pgxpool.Pool, log *slog.Logger) ResultRepository {
	return &resultRepo{pool: pool, log: log}
}

func (r *resultRepo) InsertClassification(ctx context.Context, c *entity.Classification) (*entity.Classification, error) {
	out := *c
	err := r.pool.QueryRow(ctx,
		`INSERT INTO classifications (document_id, label, confidence, model)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		c.DocumentID, c.Label, c.Confidence, c.Model).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		r.log.Error("classification insert failed", "document_id", c.DocumentID, "err", err)
		return nil, fmt.Errorf("insert classification: %w", err)
	}
	return &out, nil
}

func (r *resultRepo) InsertFields(ctx context.Context, fields []*entity.ExtractedField) error {
	if len(fields) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, f := range fields {
		var normalized []byte
		if f.Normalized != nil {
			b, err := json.Marshal(f.Normalized)
			if err != nil {
				return fmt.Errorf("encode normalized value: %w", err)
			}
			normalized = b
		}
		batch.Queue(
			`INSERT INTO extracted_fields (document_id, field_name, field_value, confidence, normalized)
			 VALUES ($1, $2, $3, $4, $5)`,
			f.DocumentID, f.FieldName, f.FieldValue, f.Confidence, normalized)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range fields {
		if _, err := results.Exec(); err != nil {
			r.log.Error("field insert failed", "err", err)
			return fmt.Errorf("insert extracted fields: %w", err)
		}
	}
	return nil
}

func (r *resultRepo) InsertOCRText(ctx context.Context, t *entity.OCRText) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ocr_texts (document_id, page_number, text)
		 VALUES ($1, $2, $3)`,
		t.DocumentID, t.PageNumber, t.Text)
	if err != nil {
		r.log.Error("ocr text insert failed", "document_id", t.DocumentID, "err", err)
		return fmt.Errorf("insert ocr text: %w", err)
	}
	return nil
}

func (r *resultRepo) ListClassifications(ctx context.Context, documentID uuid.UUID) ([]*entity.Classification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, document_id, label, confidence, model, created_at
		 FROM classifications WHERE document_id = $1 ORDER BY created_at DESC`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("list classifications: %w", err)
	}
	defer rows.Close()

	var out []*entity.Classification
	for rows.Next() {
		var c entity.Classification
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Label, &c.Confidence, &c.Model, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *resultRepo) ListFields(ctx context.Context, documentID uuid.UUID) ([]*entity.ExtractedField, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, document_id, field_name, field_value, confidence, normalized, created_at
		 FROM extracted_fields WHERE document_id = $1 ORDER BY created_at ASC`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("list extracted fields: %w", err)
	}
	defer rows.Close()

	var out []*entity.ExtractedField
	for rows.Next() {
		var f entity.ExtractedField
		var normalized []byte
		if err := rows.Scan(&f.ID, &f.DocumentID, &f.FieldName, &f.FieldValue, &f.Confidence, &normalized, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan extracted field: %w", err)
		}
		if len(normalized) > 0 {
			var nv entity.NormalizedValue
			if err := json.Unmarshal(normalized, &nv); err != nil {
				return nil, fmt.Errorf("decode normalized value: %w", err)
			}
			f.Normalized = &nv
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
