package constants

// JobStatus is the canonical status for rows in jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusPending JobStatus = "pending" // waiting to be claimed
	JobStatusRunning JobStatus = "running" // claimed by exactly one worker
	JobStatusDone    JobStatus = "done"    // terminal success
	JobStatusFailed  JobStatus = "failed"  // terminal failure, error message set
)

// DocumentStatus is the canonical lifecycle status for rows in documents.
type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusProcessed  DocumentStatus = "processed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Progress checkpoints written during a processing attempt. These are fixed
// milestones for external status visibility, not a continuous measure.
const (
	ProgressClaimed     = 10
	ProgressExtracting  = 30
	ProgressClassifying = 50
	ProgressFields      = 70
	ProgressDone        = 100
)
