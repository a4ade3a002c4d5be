package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docpipeline/constants"
)

// Classification is one append-only classification record. Re-processing a
// document inserts additional rows; all are retained.
type Classification struct {
	ID         uuid.UUID          `json:"id"`
	DocumentID uuid.UUID          `json:"document_id"`
	Label      constants.Category `json:"label"`
	Confidence float32            `json:"confidence"`
	Model      string             `json:"model"`
	CreatedAt  time.Time          `json:"created_at"`
}

// ExtractedField is one named datum detected in a document's text, append-only
// per run. Normalized carries a typed value for numeric/currency fields.
type ExtractedField struct {
	ID         uuid.UUID        `json:"id"`
	DocumentID uuid.UUID        `json:"document_id"`
	FieldName  string           `json:"field_name"`
	FieldValue string           `json:"field_value"`
	Confidence float32          `json:"confidence"`
	Normalized *NormalizedValue `json:"normalized,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NormalizedValue is a parsed, typed rendition of a field value.
type NormalizedValue struct {
	Type     string  `json:"type"`
	Value    float64 `json:"value"`
	Currency string  `json:"currency,omitempty"`
}

// OCRText is the persisted extracted text for a document page. Text is
// truncated to a fixed maximum length; raw recognition detail is discarded.
type OCRText struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	PageNumber int       `json:"page_number"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}
