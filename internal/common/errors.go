package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors. Pipeline stage failures wrap exactly one of the
// stage sentinels so the worker boundary can report which stage broke.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrExtraction   = errors.New("text extraction failed")
	ErrDownload     = errors.New("storage download failed")
	ErrPersistence  = errors.New("store write failed")
)

// NewAppError constructs an AppError with the given code, message and cause.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Stage-specific constructors. The cause chain keeps both the sentinel and
// the underlying error reachable via errors.Is / errors.As.

func NewExtractionError(message string, cause error) *AppError {
	return &AppError{Code: "EXTRACTION_ERROR", Message: message, Cause: join(ErrExtraction, cause)}
}

func NewDownloadError(message string, cause error) *AppError {
	return &AppError{Code: "DOWNLOAD_ERROR", Message: message, Cause: join(ErrDownload, cause)}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: message, Cause: ErrNotFound}
}

func NewPersistenceError(message string, cause error) *AppError {
	return &AppError{Code: "PERSISTENCE_ERROR", Message: message, Cause: join(ErrPersistence, cause)}
}

func join(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return errors.Join(sentinel, cause)
}

// WrapError annotates err with a message, preserving the chain.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
