// Package worker runs the claim-process-finish loop against the job queue.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docpipeline/internal/common"
	"github.com/joseph-ayodele/docpipeline/internal/entity"
	"github.com/joseph-ayodele/docpipeline/internal/repository"
)

// Processor runs one claimed job to completion. *pipeline.Processor satisfies
// it; tests substitute fakes.
type Processor interface {
	Process(ctx context.Context, job *entity.Job) error
}

// Worker polls for pending jobs and processes them one at a time. Multiple
// instances may run against the same database; the conditional claim in the
// repository keeps each job on exactly one instance.
type Worker struct {
	logger    *slog.Logger
	jobs      repository.JobRepository
	processor Processor
	cfg       common.WorkerConfig
}

func New(logger *slog.Logger, jobs repository.JobRepository, processor Processor, cfg common.WorkerConfig) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		logger:    logger,
		jobs:      jobs,
		processor: processor,
		cfg:       cfg,
	}
}

// Run loops until ctx is cancelled. Each cycle reclaims stale running jobs,
// then claims and processes at most one job. An idle cycle sleeps
// PollInterval; a cycle that hit an infrastructure error sleeps ErrorBackoff.
// Job failures are recorded on the job and do not slow the loop down.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started",
		"poll_interval", w.cfg.PollInterval,
		"error_backoff", w.cfg.ErrorBackoff,
		"stale_after", w.cfg.StaleAfter,
	)
	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("worker stopping", "reason", context.Cause(ctx))
			return err
		}

		delay := w.cycle(ctx)

		if err := sleep(ctx, delay); err != nil {
			w.logger.Info("worker stopping", "reason", context.Cause(ctx))
			return err
		}
	}
}

// cycle performs one iteration and returns how long to sleep before the next.
func (w *Worker) cycle(ctx context.Context) time.Duration {
	if w.cfg.StaleAfter > 0 {
		if _, err := w.jobs.ReclaimStale(ctx, w.cfg.StaleAfter); err != nil {
			w.logger.Error("stale job reclaim failed", "err", err)
			return w.cfg.ErrorBackoff
		}
	}

	job, err := w.jobs.ClaimNext(ctx)
	if err != nil {
		w.logger.Error("claim failed", "err", err)
		return w.cfg.ErrorBackoff
	}
	if job == nil {
		// Queue empty, or another instance won the claim.
		return w.cfg.PollInterval
	}

	w.handle(ctx, job)

	// A job was available; check for more right away.
	return 0
}

// handle runs one job inside its own error boundary. Whatever Process does,
// the job leaves running state here, so a panic-free worker never wedges a
// job (crashed workers are covered by reclaim).
func (w *Worker) handle(ctx context.Context, job *entity.Job) {
	procCtx := ctx
	cancel := context.CancelFunc(func() {})
	if w.cfg.ProcessTimeout > 0 {
		procCtx, cancel = context.WithTimeout(ctx, w.cfg.ProcessTimeout)
	}
	defer cancel()

	start := time.Now()
	err := w.processor.Process(procCtx, job)
	if err == nil {
		if ferr := w.jobs.Finish(ctx, job.ID, repository.JobOutcome{Done: true}); ferr != nil {
			w.logger.Error("job done but terminal write failed", "job_id", job.ID, "err", ferr)
		}
		return
	}

	msg := err.Error()
	if errors.Is(procCtx.Err(), context.DeadlineExceeded) {
		msg = "processing timed out after " + w.cfg.ProcessTimeout.String()
	}
	w.logger.Error("job processing failed",
		"job_id", job.ID,
		"document_id", job.DocumentID,
		"duration", time.Since(start),
		"err", err,
	)
	// Finish on the parent context: the attempt's deadline must not block
	// recording its failure.
	if ferr := w.jobs.Finish(ctx, job.ID, repository.JobOutcome{Done: false, ErrorMessage: msg}); ferr != nil {
		w.logger.Error("failure not recorded on job", "job_id", job.ID, "err", ferr)
	}
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
