package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docpipeline/constants"
)

// Document represents one uploaded document for data transfer between layers.
// Created by the upload endpoint; mutated only by the worker during/after
// processing; never deleted.
type Document struct {
	ID               uuid.UUID                `json:"id"`
	Filename         string                   `json:"filename"`
	StoragePath      string                   `json:"storage_path"`
	MimeType         string                   `json:"mime_type"`
	Status           constants.DocumentStatus `json:"status"`
	DocumentType     *constants.Category      `json:"document_type,omitempty"`
	StructuredResult *StructuredResult        `json:"structured_result,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
	ProcessedAt      *time.Time               `json:"processed_at,omitempty"`
}

// StructuredResult is the denormalized per-document summary stored on the
// documents row after a successful run. TextPreview holds at most the first
// 500 characters of the extracted text, never full recognition output.
type StructuredResult struct {
	Type        constants.Category `json:"type"`
	Confidence  float32            `json:"confidence"`
	TextPreview string             `json:"text_preview"`
	Fields      map[string]string  `json:"fields"`
}
