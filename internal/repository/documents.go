package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/docpipeline/constants"
	"github.com/joseph-ayodele/docpipeline/internal/common"
	"github.com/joseph-ayodele/docpipeline/internal/entity"
)

// CreateDocumentRequest carries the fields the upload endpoint sets.
type CreateDocumentRequest struct {
	Filename    string
	StoragePath string
	MimeType    string
}

// DocumentFilter narrows List results.
type DocumentFilter struct {
	Status constants.DocumentStatus
	Limit  int
}

type DocumentRepository interface {
	Create(ctx context.Context, req CreateDocumentRequest) (*entity.Document, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	List(ctx context.Context, filter DocumentFilter) ([]*entity.Document, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, docType constants.Category, result *entity.StructuredResult) error
}

type documentRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewDocumentRepository(pool *pgxpool.Pool, log *slog.Logger) DocumentRepository {
	return &documentRepo{pool: pool, log: log}
}

const documentColumns = `id, filename, storage_path, mime_type, status, document_type, structured_result, created_at, processed_at`

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var d entity.Document
	var docType *string
	var structured []byte
	err := row.Scan(&d.ID, &d.Filename, &d.StoragePath, &d.MimeType, &d.Status,
		&docType, &structured, &d.CreatedAt, &d.ProcessedAt)
	if err != nil {
		return nil, err
	}
	if docType != nil {
		cat := constants.Category(*docType)
		d.DocumentType = &cat
	}
	if len(structured) > 0 {
		var sr entity.StructuredResult
		if err := json.Unmarshal(structured, &sr); err != nil {
			return nil, fmt.Errorf("decode structured_result: %w", err)
		}
		d.StructuredResult = &sr
	}
	return &d, nil
}

func (r *documentRepo) Create(ctx context.Context, req CreateDocumentRequest) (*entity.Document, error) {
	doc, err := scanDocument(r.pool.QueryRow(ctx,
		`INSERT INTO documents (filename, storage_path, mime_type, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+documentColumns,
		req.Filename, req.StoragePath, req.MimeType, constants.DocumentStatusUploaded))
	if err != nil {
		r.log.Error("document create failed", "filename", req.Filename, "err", err)
		return nil, fmt.Errorf("create document: %w", err)
	}
	r.log.Info("document created", "document_id", doc.ID, "filename", doc.Filename)
	return doc, nil
}

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	doc, err := scanDocument(r.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError(fmt.Sprintf("document %s", id))
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (r *documentRepo) List(ctx context.Context, filter DocumentFilter) ([]*entity.Document, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT ` + documentColumns + ` FROM documents`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, filter.Status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// MarkProcessed transitions the document to processed with its detected type
// and denormalized summary. Only the worker calls this, and only on success:
// a failed attempt leaves the document row untouched.
func (r *documentRepo) MarkProcessed(ctx context.Context, id uuid.UUID, docType constants.Category, result *entity.StructuredResult) error {
	structured, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode structured_result: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE documents SET status = $1, document_type = $2,
		        structured_result = $3, processed_at = now()
		 WHERE id = $4`,
		constants.DocumentStatusProcessed, docType, structured, id)
	if err != nil {
		r.log.Error("mark processed failed", "document_id", id, "err", err)
		return fmt.Errorf("mark processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError(fmt.Sprintf("document %s", id))
	}
	r.log.Info("document processed", "document_id", id, "document_type", docType)
	return nil
}
