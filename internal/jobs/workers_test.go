package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lannaguide/server/internal/domain/listings"
	"github.com/lannaguide/server/internal/thaidate"
)

type stubStore struct {
	unenriched []listings.Event
	saved      map[int64]listings.Enrichment
	saveErr    error
	endedWith  thaidate.Month
}

func (s *stubStore) ListUnenriched(ctx context.Context, limit int) ([]listings.Event, error) {
	return s.unenriched, nil
}

func (s *stubStore) SaveEnrichment(ctx context.Context, eventID int64, e listings.Enrichment) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	if s.saved == nil {
		s.saved = make(map[int64]listings.Enrichment)
	}
	s.saved[eventID] = e
	return nil
}

func (s *stubStore) MarkEnded(ctx context.Context, current thaidate.Month) (int64, error) {
	s.endedWith = current
	return 3, nil
}

type stubEnricher struct {
	enrichment listings.Enrichment
	err        error
	gotURL     string
}

func (e *stubEnricher) Enrich(ctx context.Context, sourceURL string) (listings.Enrichment, error) {
	e.gotURL = sourceURL
	return e.enrichment, e.err
}

func TestEnrichEventWorker(t *testing.T) {
	store := &stubStore{}
	enricher := &stubEnricher{enrichment: listings.Enrichment{TimeText: "18:00 น."}}
	worker := EnrichEventWorker{Store: store, Enricher: enricher}

	job := &river.Job[EnrichEventArgs]{
		JobRow: &rivertype.JobRow{},
		Args:   EnrichEventArgs{EventID: 7, SourceURL: "https://www.example.co.th/events/7"},
	}

	require.NoError(t, worker.Work(context.Background(), job))
	assert.Equal(t, "https://www.example.co.th/events/7", enricher.gotURL)
	assert.Equal(t, "18:00 น.", store.saved[7].TimeText)
}

func TestEnrichEventWorkerEnrichFailure(t *testing.T) {
	worker := EnrichEventWorker{Store: &stubStore{}, Enricher: &stubEnricher{err: assert.AnError}}
	job := &river.Job[EnrichEventArgs]{
		JobRow: &rivertype.JobRow{},
		Args:   EnrichEventArgs{EventID: 7, SourceURL: "https://www.example.co.th/events/7"},
	}
	assert.Error(t, worker.Work(context.Background(), job))
}

func TestEnrichEventWorkerSkipsDeletedEvent(t *testing.T) {
	store := &stubStore{saveErr: listings.ErrNotFound}
	worker := EnrichEventWorker{Store: store, Enricher: &stubEnricher{}}
	job := &river.Job[EnrichEventArgs]{
		JobRow: &rivertype.JobRow{},
		Args:   EnrichEventArgs{EventID: 7, SourceURL: "https://www.example.co.th/events/7"},
	}
	assert.NoError(t, worker.Work(context.Background(), job),
		"a vanished event is not a retryable failure")
}

func TestEnrichScanWorkerNothingPending(t *testing.T) {
	worker := EnrichScanWorker{Store: &stubStore{}}
	job := &river.Job[EnrichScanArgs]{JobRow: &rivertype.JobRow{}}
	assert.NoError(t, worker.Work(context.Background(), job))
}

func TestEndedSweepWorker(t *testing.T) {
	store := &stubStore{}
	worker := EndedSweepWorker{Store: store}
	job := &river.Job[EndedSweepArgs]{JobRow: &rivertype.JobRow{}}

	require.NoError(t, worker.Work(context.Background(), job))
	assert.Equal(t, thaidate.MonthOf(time.Now().In(thaidate.Bangkok)), store.endedWith)
}

func TestEnrichEventArgsQueue(t *testing.T) {
	assert.Equal(t, QueueEnrichment, EnrichEventArgs{}.InsertOpts().Queue)
	assert.Equal(t, JobKindEnrichEvent, EnrichEventArgs{}.Kind())
	assert.Equal(t, JobKindEnrichScan, EnrichScanArgs{}.Kind())
	assert.Equal(t, JobKindEndedSweep, EndedSweepArgs{}.Kind())
}

func TestRetryPolicyBackoff(t *testing.T) {
	policy := NewRetryPolicy()
	attemptedAt := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)

	job := &rivertype.JobRow{Kind: JobKindEnrichEvent, Attempt: 1, AttemptedAt: &attemptedAt}
	assert.Equal(t, attemptedAt.Add(time.Minute), policy.NextRetry(job))

	job.Attempt = 3
	assert.Equal(t, attemptedAt.Add(4*time.Minute), policy.NextRetry(job))

	// Backoff is capped.
	job.Attempt = 20
	assert.Equal(t, attemptedAt.Add(time.Hour), policy.NextRetry(job))
}
