package repository_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/joseph-ayodele/docpipeline/constants"
	"github.com/joseph-ayodele/docpipeline/internal/common"
	"github.com/joseph-ayodele/docpipeline/internal/entity"
	"github.com/joseph-ayodele/docpipeline/internal/repository"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("docpipeline_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, repository.RunMigrations(connStr, migrationsDir()))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

type repos struct {
	docs    repository.DocumentRepository
	jobs    repository.JobRepository
	results repository.ResultRepository
}

func setupRepos(t *testing.T) repos {
	t.Helper()
	pool := setupTestDB(t)
	logger := slog.Default()
	return repos{
		docs:    repository.NewDocumentRepository(pool, logger),
		jobs:    repository.NewJobRepository(pool, logger),
		results: repository.NewResultRepository(pool, logger),
	}
}

func createDocument(t *testing.T, docs repository.DocumentRepository, name string) *entity.Document {
	t.Helper()
	doc, err := docs.Create(context.Background(), repository.CreateDocumentRequest{
		Filename:    name,
		StoragePath: "documents/" + name,
		MimeType:    "application/pdf",
	})
	require.NoError(t, err)
	return doc
}

// --- Documents ---

func TestDocumentLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	r := setupRepos(t)
	ctx := context.Background()

	doc := createDocument(t, r.docs, "a.pdf")
	assert.Equal(t, constants.DocumentStatusUploaded, doc.Status)
	assert.Nil(t, doc.DocumentType)
	assert.Nil(t, doc.ProcessedAt)

	got, err := r.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "a.pdf", got.Filename)

	result := &entity.StructuredResult{
		Type:        constants.Invoice,
		Confidence:  75,
		TextPreview: "INVOICE ...",
		Fields:      map[string]string{"invoice_number": "INV-1"},
	}
	require.NoError(t, r.docs.MarkProcessed(ctx, doc.ID, constants.Invoice, result))

	got, err = r.docs.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStatusProcessed, got.Status)
	require.NotNil(t, got.DocumentType)
	assert.Equal(t, constants.Invoice, *got.DocumentType)
	require.NotNil(t, got.StructuredResult)
	assert.Equal(t, "INV-1", got.StructuredResult.Fields["invoice_number"])
	assert.NotNil(t, got.ProcessedAt)
}

func TestDocumentGetByID_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	r := setupRepos(t)

	_, err := r.docs.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDocumentList_NewestFirstAndFiltered(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	r := setupRepos(t)
	ctx := context.Background()

	first := createDocument(t, r.docs, "first.pdf")
	second := createDocument(t, r.docs, "second.pdf")
	require.NoError(t, r.docs.MarkProcessed(ctx, second.ID, constants.Other, &entity.StructuredResult{
		Type: constants.Other, Fields: map[string]string{},
	}))

	all, err := r.docs.List(ctx, repository.DocumentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	processed, err := r.docs.List(ctx, repository.DocumentFilter{Status: constants.DocumentStatusProcessed})
	require.NoError(t, err)
	require.Len(t, processed, 1)
	assert.Equal(t, second.ID, processed[0].ID)
}

// --- Jobs ---

func TestJobClaim_FIFO(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	r := setupRepos(t)
	ctx := context.Background()

	docA := createDocument(t, r.docs, "a.pdf")
	docB := createDocument(t, r.docs, "b.pdf")

	jobA, err := r.jobs.Create(ctx, docA.ID)
	require.NoError(t, err)
	jobB, err := r.jobs.Create(ctx, docB.ID)
	require.NoError(t, err)

	claimed, err := r.jobs.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, jobA.ID, claimed.ID)
	assert.Equal(t, constants.JobStatusRunning, claimed.Status)
	assert.Equal(t, constants.ProgressClaimed, claimed.Progress)
	assert.NotNil(t, claimed.StartedAt)

	claimed2, err := r.jobs.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed2)
	assert.Equal(t, jobB.ID, claimed2.ID)

	// Queue drained.
	claimed3, err := r.jobs.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed3)
}

// Concurrent claimers must each get a distinct job; a contested job goes to
// exactly one of them.
func TestJobClaim_Exclusive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	r := setupRepos(t)
	ctx := context.Background()

	const jobCount = 5
	for i := 0; i < jobCount; i++ {
		doc := createDocument(t, r.docs, uuid.NewString()+".pdf")
		_, err := r.jobs.Create(ctx, doc.ID)
		require.NoError(t, err)
	}

	var mu sync.Mutex
	seen := map[uuid.UUID]int{}
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := r.jobs.ClaimNext(ctx)
				if err != nil || job == nil {
					return
				}
				mu.Lock()
				seen[job.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, jobCount)
	for id, n := range seen {
		assert.Equal(t, 1, n, "job %s claimed %d times", id, n)
	}
}

func TestJobProgressMonotonic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	r := setupRepos(t)
	ctx := context.Background()

	doc := createDocument(t, r.docs, "p.pdf")
	_, err := r.jobs.Create(ctx, doc.ID)
	require.NoError(t, err)
	job, err := r.jobs.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)

	require.NoError(t, r.jobs.UpdateProgress(ctx, job.ID, constants.ProgressClassifying))
	// A late lower checkpoint must not move progress backwards.
	require.NoError(t, r.jobs.UpdateProgress(ctx, job.ID, constants.ProgressExtracting))

	got, err := r.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ProgressClassifying, got.Progress)
}

func TestJobFinish(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	r := setupRepos(t)
	ctx := context.Background()

	doc := createDocument(t, r.docs, "f.pdf")
	_, err := r.jobs.Create(ctx, doc.ID)
	require.NoError(t, err)
	job, err := r.jobs.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)

	require.NoError(t, r.jobs.Finish(ctx, job.ID, repository.JobOutcome{Done: true}))

	got, err := r.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusDone, got.Status)
	assert.Equal(t, constants.ProgressDone, got.Progress)
	assert.Nil(t, got.Error)
	assert.NotNil(t, got.FinishedAt)

	// A second terminal write must not find a running row.
	err = r.jobs.Finish(ctx, job.ID, repository.JobOutcome{Done: false, ErrorMessage: "late"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestJobFinishFailedAndReset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	r := setupRepos(t)
	ctx := context.Background()

	doc := createDocument(t, r.docs, "r.pdf")
	created, err := r.jobs.Create(ctx, doc.ID)
	require.NoError(t, err)

	// Reset on a pending job is rejected.
	assert.ErrorIs(t, r.jobs.ResetFailed(ctx, created.ID), common.ErrNotFound)

	job, err := r.jobs.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.NoError(t, r.jobs.Finish(ctx, job.ID, repository.JobOutcome{Done: false, ErrorMessage: "EXTRACTION_ERROR: boom"}))

	got, err := r.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "boom")

	require.NoError(t, r.jobs.ResetFailed(ctx, job.ID))

	got, err = r.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusPending, got.Status)
	assert.Equal(t, 0, got.Progress)
	assert.Nil(t, got.Error)
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.FinishedAt)

	// The reset job is claimable again.
	reclaimed, err := r.jobs.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, reclaimed)
	assert.Equal(t, job.ID, reclaimed.ID)
}

func TestReclaimStale(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	r := setupRepos(t)
	ctx := context.Background()

	doc := createDocument(t, r.docs, "s.pdf")
	_, err := r.jobs.Create(ctx, doc.ID)
	require.NoError(t, err)
	job, err := r.jobs.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)

	// Fresh running jobs stay put.
	n, err := r.jobs.ReclaimStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// With a zero threshold the just-claimed job counts as stale.
	time.Sleep(50 * time.Millisecond)
	n, err = r.jobs.ReclaimStale(ctx, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := r.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusPending, got.Status)
	assert.Equal(t, 0, got.Progress)
}

func TestLatestForDocument(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	r := setupRepos(t)
	ctx := context.Background()

	doc := createDocument(t, r.docs, "l.pdf")
	_, err := r.jobs.LatestForDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	job, err := r.jobs.Create(ctx, doc.ID)
	require.NoError(t, err)

	got, err := r.jobs.LatestForDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
}

// --- Results ---

func TestResultsRoundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	r := setupRepos(t)
	ctx := context.Background()

	doc := createDocument(t, r.docs, "res.pdf")

	cls, err := r.results.InsertClassification(ctx, &entity.Classification{
		DocumentID: doc.ID,
		Label:      constants.Receipt,
		Confidence: 66.7,
		Model:      "pattern_matching_v1",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, cls.ID)
	assert.False(t, cls.CreatedAt.IsZero())

	fields := []*entity.ExtractedField{
		{
			DocumentID: doc.ID,
			FieldName:  "total",
			FieldValue: "42.50",
			Confidence: 90,
			Normalized: &entity.NormalizedValue{Type: "money", Value: 42.50, Currency: "USD"},
		},
		{
			DocumentID: doc.ID,
			FieldName:  "store",
			FieldValue: "Corner Grocery",
			Confidence: 75,
		},
	}
	require.NoError(t, r.results.InsertFields(ctx, fields))

	require.NoError(t, r.results.InsertOCRText(ctx, &entity.OCRText{
		DocumentID: doc.ID,
		PageNumber: 1,
		Text:       "RECEIPT total 42.50",
	}))

	gotCls, err := r.results.ListClassifications(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, gotCls, 1)
	assert.Equal(t, constants.Receipt, gotCls[0].Label)
	assert.InDelta(t, 66.7, float64(gotCls[0].Confidence), 0.01)

	gotFields, err := r.results.ListFields(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, gotFields, 2)
	assert.Equal(t, "total", gotFields[0].FieldName)
	require.NotNil(t, gotFields[0].Normalized)
	assert.InDelta(t, 42.50, gotFields[0].Normalized.Value, 0.001)
	assert.Nil(t, gotFields[1].Normalized)
}

func TestInsertFields_Empty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	r := setupRepos(t)
	assert.NoError(t, r.results.InsertFields(context.Background(), nil))
}
