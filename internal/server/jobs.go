package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docpipeline/internal/cache"
)

type resetResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
}

// handleResetJob moves a failed job back to pending so the worker retries it.
// Only failed jobs are eligible; anything else is a 404 from the guard.
func (s *Server) handleResetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "jobID must be a UUID")
		return
	}

	if err := s.jobs.ResetFailed(r.Context(), id); err != nil {
		respondAppError(w, err)
		return
	}

	// Stale cached detail would keep showing the failed attempt.
	if job, err := s.jobs.GetByID(r.Context(), id); err == nil {
		if cerr := s.cache.Delete(r.Context(), cache.DocumentDetailKey(job.DocumentID)); cerr != nil {
			s.logger.Warn("detail cache invalidation failed", "job_id", id, "err", cerr)
		}
	}

	respondJSON(w, resetResponse{JobID: id, Status: "pending"})
}
