package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDownloadError("failed to download file documents/a.pdf", cause)

	assert.Contains(t, err.Error(), "DOWNLOAD_ERROR")
	assert.Contains(t, err.Error(), "documents/a.pdf")
	assert.ErrorIs(t, err, ErrDownload)
	assert.ErrorIs(t, err, cause)
}

func TestStageConstructors_Sentinels(t *testing.T) {
	assert.ErrorIs(t, NewExtractionError("x", nil), ErrExtraction)
	assert.ErrorIs(t, NewPersistenceError("x", errors.New("y")), ErrPersistence)
	assert.ErrorIs(t, NewNotFoundError("job 123"), ErrNotFound)
}

func TestErrorsAs(t *testing.T) {
	var appErr *AppError
	err := NewNotFoundError("document 42")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.Equal(t, "document 42", appErr.Message)
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "context"))

	base := errors.New("boom")
	wrapped := WrapError(base, "stage failed")
	assert.ErrorIs(t, wrapped, base)
	assert.Contains(t, wrapped.Error(), "stage failed")
}
