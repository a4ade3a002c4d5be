package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/docpipeline/constants"
	"github.com/joseph-ayodele/docpipeline/internal/common"
	"github.com/joseph-ayodele/docpipeline/internal/entity"
)

// JobOutcome is the terminal result of one processing attempt.
type JobOutcome struct {
	Done         bool
	ErrorMessage string
}

// JobRepository is the narrow persistence surface the worker loop depends on.
//
// ClaimNext is the sole cross-process concurrency mechanism: it performs a
// conditional single-row update guarded by status='pending', so at most one
// caller can move any given job into running.
type JobRepository interface {
	Create(ctx context.Context, documentID uuid.UUID) (*entity.Job, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	LatestForDocument(ctx context.Context, documentID uuid.UUID) (*entity.Job, error)
	ClaimNext(ctx context.Context) (*entity.Job, error)
	UpdateProgress(ctx context.Context, jobID uuid.UUID, progress int) error
	Finish(ctx context.Context, jobID uuid.UUID, outcome JobOutcome) error
	ResetFailed(ctx context.Context, jobID uuid.UUID) error
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type jobRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewJobRepository(pool *pgxpool.Pool, log *slog.Logger) JobRepository {
	return &jobRepo{pool: pool, log: log}
}

const jobColumns = `id, document_id, status, progress, error, started_at, finished_at, created_at`

func scanJob(row pgx.Row) (*entity.Job, error) {
	var j entity.Job
	err := row.Scan(&j.ID, &j.DocumentID, &j.Status, &j.Progress, &j.Error,
		&j.StartedAt, &j.FinishedAt, &j.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *jobRepo) Create(ctx context.Context, documentID uuid.UUID) (*entity.Job, error) {
	job, err := scanJob(r.pool.QueryRow(ctx,
		`INSERT INTO jobs (document_id, status, progress) VALUES ($1, $2, 0)
		 RETURNING `+jobColumns,
		documentID, constants.JobStatusPending))
	if err != nil {
		r.log.Error("job create failed", "document_id", documentID, "err", err)
		return nil, fmt.Errorf("create job: %w", err)
	}
	r.log.Info("job created", "job_id", job.ID, "document_id", documentID)
	return job, nil
}

func (r *jobRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	job, err := scanJob(r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError(fmt.Sprintf("job %s", id))
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (r *jobRepo) LatestForDocument(ctx context.Context, documentID uuid.UUID) (*entity.Job, error) {
	job, err := scanJob(r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE document_id = $1
		 ORDER BY created_at DESC LIMIT 1`, documentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError(fmt.Sprintf("job for document %s", documentID))
	}
	if err != nil {
		return nil, fmt.Errorf("latest job for document: %w", err)
	}
	return job, nil
}

// ClaimNext selects the oldest pending job, then attempts the pending→running
// transition with a conditional update. A zero-row update means another worker
// won the race; that is reported as no job claimable, and the caller re-polls.
func (r *jobRepo) ClaimNext(ctx context.Context) (*entity.Job, error) {
	candidate, err := scanJob(r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = $1
		 ORDER BY created_at ASC LIMIT 1`, constants.JobStatusPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select claimable job: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, started_at = now(), progress = $2
		 WHERE id = $3 AND status = $4`,
		constants.JobStatusRunning, constants.ProgressClaimed,
		candidate.ID, constants.JobStatusPending)
	if err != nil {
		return nil, fmt.Errorf("claim job %s: %w", candidate.ID, err)
	}
	if tag.RowsAffected() == 0 {
		// Another instance claimed it first.
		r.log.Debug("claim lost", "job_id", candidate.ID)
		return nil, nil
	}

	r.log.Info("job claimed", "job_id", candidate.ID, "document_id", candidate.DocumentID)
	return r.GetByID(ctx, candidate.ID)
}

// UpdateProgress is best-effort progress reporting. The guard keeps progress
// monotonic within an attempt; write failures are non-fatal to the caller.
func (r *jobRepo) UpdateProgress(ctx context.Context, jobID uuid.UUID, progress int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE jobs SET progress = $1 WHERE id = $2 AND progress < $1`,
		progress, jobID)
	if err != nil {
		r.log.Warn("progress update failed", "job_id", jobID, "progress", progress, "err", err)
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// Finish writes the terminal state for one attempt. The status='running' guard
// keeps it to exactly one terminal write per attempt.
func (r *jobRepo) Finish(ctx context.Context, jobID uuid.UUID, outcome JobOutcome) error {
	var tag pgconn.CommandTag
	var err error
	if outcome.Done {
		tag, err = r.pool.Exec(ctx,
			`UPDATE jobs SET status = $1, progress = $2, finished_at = now()
			 WHERE id = $3 AND status = $4`,
			constants.JobStatusDone, constants.ProgressDone,
			jobID, constants.JobStatusRunning)
	} else {
		tag, err = r.pool.Exec(ctx,
			`UPDATE jobs SET status = $1, error = $2, finished_at = now()
			 WHERE id = $3 AND status = $4`,
			constants.JobStatusFailed, outcome.ErrorMessage,
			jobID, constants.JobStatusRunning)
	}
	if err != nil {
		r.log.Error("job finish failed", "job_id", jobID, "done", outcome.Done, "err", err)
		return fmt.Errorf("finish job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError(fmt.Sprintf("running job %s", jobID))
	}
	if outcome.Done {
		r.log.Info("job finished (done)", "job_id", jobID)
	} else {
		r.log.Warn("job finished (failed)", "job_id", jobID, "error", outcome.ErrorMessage)
	}
	return nil
}

// ResetFailed moves a failed job back to pending so a worker can retry it.
// This is the explicit out-of-band recovery action; the loop never does it.
func (r *jobRepo) ResetFailed(ctx context.Context, jobID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, progress = 0, error = NULL,
		        started_at = NULL, finished_at = NULL
		 WHERE id = $2 AND status = $3`,
		constants.JobStatusPending, jobID, constants.JobStatusFailed)
	if err != nil {
		return fmt.Errorf("reset job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError(fmt.Sprintf("failed job %s", jobID))
	}
	r.log.Info("job reset to pending", "job_id", jobID)
	return nil
}

// ReclaimStale returns running jobs older than the threshold to pending.
// Covers workers that died mid-job and left the row in running forever.
// The guarded update makes concurrent reclaims safe.
func (r *jobRepo) ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, progress = 0, started_at = NULL
		 WHERE status = $2 AND started_at < $3`,
		constants.JobStatusPending, constants.JobStatusRunning, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		r.log.Warn("reclaimed stale running jobs", "count", n, "older_than", olderThan)
		return n, nil
	}
	return 0, nil
}
