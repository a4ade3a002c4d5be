package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/joseph-ayodele/docpipeline/internal/common"
)

type envelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondJSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

func respondCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, envelope{Data: data})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

// respondAppError maps domain errors onto HTTP statuses. Unknown errors get a
// generic 500 without leaking internals.
func respondAppError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	switch {
	case errors.Is(err, common.ErrNotFound):
		msg := "resource not found"
		if errors.As(err, &appErr) {
			msg = appErr.Message
		}
		respondError(w, http.StatusNotFound, "NOT_FOUND", msg)
	case errors.Is(err, common.ErrInvalidInput):
		msg := "invalid input"
		if errors.As(err, &appErr) {
			msg = appErr.Message
		}
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", msg)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
	}
}
