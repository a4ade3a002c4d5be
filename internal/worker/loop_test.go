package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docpipeline/internal/common"
	"github.com/joseph-ayodele/docpipeline/internal/entity"
	"github.com/joseph-ayodele/docpipeline/internal/repository"
)

// fakeQueue is an in-memory JobRepository covering what the loop touches.
// onEmpty fires when ClaimNext finds no work, letting tests stop the loop.
type fakeQueue struct {
	mu       sync.Mutex
	pending  []*entity.Job
	finished map[uuid.UUID]repository.JobOutcome
	reclaims int
	claimErr error
	onEmpty  func()
}

func newFakeQueue(jobs ...*entity.Job) *fakeQueue {
	return &fakeQueue{pending: jobs, finished: map[uuid.UUID]repository.JobOutcome{}}
}

func (q *fakeQueue) Create(context.Context, uuid.UUID) (*entity.Job, error) {
	return nil, errors.New("not implemented")
}

func (q *fakeQueue) GetByID(context.Context, uuid.UUID) (*entity.Job, error) {
	return nil, errors.New("not implemented")
}

func (q *fakeQueue) LatestForDocument(context.Context, uuid.UUID) (*entity.Job, error) {
	return nil, errors.New("not implemented")
}

func (q *fakeQueue) ClaimNext(context.Context) (*entity.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.claimErr != nil {
		err := q.claimErr
		q.claimErr = nil
		return nil, err
	}
	if len(q.pending) == 0 {
		if q.onEmpty != nil {
			q.onEmpty()
		}
		return nil, nil
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	return job, nil
}

func (q *fakeQueue) UpdateProgress(context.Context, uuid.UUID, int) error { return nil }

func (q *fakeQueue) Finish(_ context.Context, jobID uuid.UUID, outcome repository.JobOutcome) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished[jobID] = outcome
	return nil
}

func (q *fakeQueue) ResetFailed(context.Context, uuid.UUID) error { return nil }

func (q *fakeQueue) ReclaimStale(context.Context, time.Duration) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reclaims++
	return 0, nil
}

func (q *fakeQueue) outcome(id uuid.UUID) (repository.JobOutcome, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	o, ok := q.finished[id]
	return o, ok
}

type fakeProcessor struct {
	mu   sync.Mutex
	errs map[uuid.UUID]error
	seen []uuid.UUID
}

func (p *fakeProcessor) Process(_ context.Context, job *entity.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, job.ID)
	if p.errs != nil {
		return p.errs[job.ID]
	}
	return nil
}

func testConfig() common.WorkerConfig {
	return common.WorkerConfig{
		PollInterval: time.Millisecond,
		ErrorBackoff: time.Millisecond,
		StaleAfter:   time.Minute,
	}
}

func runUntilIdle(t *testing.T, q *fakeQueue, p Processor, cfg common.WorkerConfig) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.onEmpty = cancel

	w := New(nil, q, p, cfg)
	err := w.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_ProcessesQueueInOrder(t *testing.T) {
	j1 := &entity.Job{ID: uuid.New(), DocumentID: uuid.New()}
	j2 := &entity.Job{ID: uuid.New(), DocumentID: uuid.New()}
	q := newFakeQueue(j1, j2)
	p := &fakeProcessor{}

	runUntilIdle(t, q, p, testConfig())

	assert.Equal(t, []uuid.UUID{j1.ID, j2.ID}, p.seen)

	o1, ok := q.outcome(j1.ID)
	require.True(t, ok)
	assert.True(t, o1.Done)
	o2, ok := q.outcome(j2.ID)
	require.True(t, ok)
	assert.True(t, o2.Done)
}

// One failing job must not stop the loop or affect the next job.
func TestRun_RecordsFailureAndContinues(t *testing.T) {
	bad := &entity.Job{ID: uuid.New(), DocumentID: uuid.New()}
	good := &entity.Job{ID: uuid.New(), DocumentID: uuid.New()}
	q := newFakeQueue(bad, good)
	p := &fakeProcessor{errs: map[uuid.UUID]error{
		bad.ID: common.NewExtractionError("tesseract ate the page", nil),
	}}

	runUntilIdle(t, q, p, testConfig())

	oBad, ok := q.outcome(bad.ID)
	require.True(t, ok)
	assert.False(t, oBad.Done)
	assert.Contains(t, oBad.ErrorMessage, "tesseract ate the page")

	oGood, ok := q.outcome(good.ID)
	require.True(t, ok)
	assert.True(t, oGood.Done)
}

func TestRun_SurvivesClaimError(t *testing.T) {
	job := &entity.Job{ID: uuid.New(), DocumentID: uuid.New()}
	q := newFakeQueue(job)
	q.claimErr = errors.New("connection refused")
	p := &fakeProcessor{}

	runUntilIdle(t, q, p, testConfig())

	// The transient claim failure cost one backoff, not the job.
	o, ok := q.outcome(job.ID)
	require.True(t, ok)
	assert.True(t, o.Done)
}

func TestRun_ReclaimsEachCycle(t *testing.T) {
	q := newFakeQueue()
	runUntilIdle(t, q, &fakeProcessor{}, testConfig())
	assert.GreaterOrEqual(t, q.reclaims, 1)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	q := newFakeQueue()
	w := New(nil, q, &fakeProcessor{}, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleep_ZeroDuration(t *testing.T) {
	assert.NoError(t, sleep(context.Background(), 0))
}
