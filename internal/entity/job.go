package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docpipeline/constants"
)

// Job represents one queued processing attempt for a Document. A document gets
// exactly one job at upload time but may accumulate more across retries.
//
// Progress is a checkpoint schedule (10/30/50/70/100), monotonically
// non-decreasing within a single run. Error is set only on failed.
type Job struct {
	ID         uuid.UUID           `json:"id"`
	DocumentID uuid.UUID           `json:"document_id"`
	Status     constants.JobStatus `json:"status"`
	Progress   int                 `json:"progress"`
	Error      *string             `json:"error,omitempty"`
	StartedAt  *time.Time          `json:"started_at,omitempty"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}
