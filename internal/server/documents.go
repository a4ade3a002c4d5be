package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docpipeline/constants"
	"github.com/joseph-ayodele/docpipeline/internal/cache"
	"github.com/joseph-ayodele/docpipeline/internal/entity"
	"github.com/joseph-ayodele/docpipeline/internal/repository"
)

// maxUploadBytes bounds one multipart upload.
const maxUploadBytes = 25 << 20

type uploadResponse struct {
	DocumentID uuid.UUID `json:"document_id"`
	JobID      uuid.UUID `json:"job_id"`
	Status     string    `json:"status"`
}

// handleUpload accepts one multipart file, stores the bytes, and enqueues a
// processing job. The document row is created before the job row so a crash
// in between leaves an orphan document, never a job without its document.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "expected multipart form with a file part")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "file part is required")
		return
	}
	defer file.Close()

	contentType := detectContentType(header.Header.Get("Content-Type"), header.Filename)
	if _, ok := constants.AllowedMIMETypes[contentType]; !ok {
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE",
			fmt.Sprintf("content type %q is not supported", contentType))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "could not read uploaded file")
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "uploaded file is empty")
		return
	}

	storagePath := fmt.Sprintf("documents/%d_%s", time.Now().UnixMilli(), sanitizeFilename(header.Filename))
	if err := s.blobs.Upload(r.Context(), storagePath, data, contentType); err != nil {
		s.logger.Error("upload to blob storage failed", "path", storagePath, "err", err)
		respondError(w, http.StatusBadGateway, "STORAGE_ERROR", "could not store uploaded file")
		return
	}

	doc, err := s.docs.Create(r.Context(), repository.CreateDocumentRequest{
		Filename:    header.Filename,
		StoragePath: storagePath,
		MimeType:    contentType,
	})
	if err != nil {
		respondAppError(w, err)
		return
	}

	job, err := s.jobs.Create(r.Context(), doc.ID)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondCreated(w, uploadResponse{
		DocumentID: doc.ID,
		JobID:      job.ID,
		Status:     string(constants.JobStatusPending),
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	filter := repository.DocumentFilter{}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := constants.DocumentStatus(raw)
		switch status {
		case constants.DocumentStatusUploaded, constants.DocumentStatusProcessing,
			constants.DocumentStatusProcessed, constants.DocumentStatusFailed:
			filter.Status = status
		default:
			respondError(w, http.StatusBadRequest, "INVALID_INPUT", "unknown status filter")
			return
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "INVALID_INPUT", "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	docs, err := s.docs.List(r.Context(), filter)
	if err != nil {
		respondAppError(w, err)
		return
	}
	if docs == nil {
		docs = []*entity.Document{}
	}
	respondJSON(w, docs)
}

type documentDetail struct {
	Document        *entity.Document         `json:"document"`
	Job             *entity.Job              `json:"job,omitempty"`
	Classifications []*entity.Classification `json:"classifications"`
	Fields          []*entity.ExtractedField `json:"fields"`
	DownloadURL     string                   `json:"download_url,omitempty"`
}

// handleGetDocument returns the full detail payload for one document. The
// assembled payload is cached briefly; a hit skips four store reads and the
// URL signing call.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "documentID must be a UUID")
		return
	}

	key := cache.DocumentDetailKey(id)
	if cached, ok, cerr := s.cache.Get(r.Context(), key); cerr == nil && ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	doc, err := s.docs.GetByID(r.Context(), id)
	if err != nil {
		respondAppError(w, err)
		return
	}

	detail := documentDetail{Document: doc}

	if job, err := s.jobs.LatestForDocument(r.Context(), id); err == nil {
		detail.Job = job
	}
	detail.Classifications, err = s.results.ListClassifications(r.Context(), id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	detail.Fields, err = s.results.ListFields(r.Context(), id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	if detail.Classifications == nil {
		detail.Classifications = []*entity.Classification{}
	}
	if detail.Fields == nil {
		detail.Fields = []*entity.ExtractedField{}
	}

	if url, err := s.blobs.SignedURL(doc.StoragePath, s.cfg.Storage.SignedURLTTL); err == nil {
		detail.DownloadURL = url
	} else {
		s.logger.Warn("signed url unavailable", "document_id", id, "err", err)
	}

	body, err := json.Marshal(envelope{Data: detail})
	if err != nil {
		respondAppError(w, err)
		return
	}
	if err := s.cache.Set(r.Context(), key, body, s.cfg.Redis.DetailTTL); err != nil {
		s.logger.Warn("detail cache write failed", "document_id", id, "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// detectContentType prefers the declared part type; falls back to the file
// extension for clients that send application/octet-stream or nothing.
func detectContentType(declared, filename string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	switch constants.NormalizeExt(filepath.Ext(filename)) {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	}
	return declared
}

// sanitizeFilename keeps storage paths shell- and URL-safe.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "upload"
	}
	return b.String()
}
