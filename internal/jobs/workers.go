package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/lannaguide/server/internal/domain/listings"
	"github.com/lannaguide/server/internal/metrics"
	"github.com/lannaguide/server/internal/thaidate"
)

// EventStore is the slice of the persistence layer the workers need.
type EventStore interface {
	ListUnenriched(ctx context.Context, limit int) ([]listings.Event, error)
	SaveEnrichment(ctx context.Context, eventID int64, e listings.Enrichment) error
	MarkEnded(ctx context.Context, current thaidate.Month) (int64, error)
}

// Enricher scrapes one event's detail page.
type Enricher interface {
	Enrich(ctx context.Context, sourceURL string) (listings.Enrichment, error)
}

type EnrichEventArgs struct {
	EventID   int64  `json:"event_id"`
	SourceURL string `json:"source_url"`
}

func (EnrichEventArgs) Kind() string { return JobKindEnrichEvent }

func (EnrichEventArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueEnrichment}
}

type EnrichScanArgs struct{}

func (EnrichScanArgs) Kind() string { return JobKindEnrichScan }

func (EnrichScanArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: EnrichScanMaxAttempts}
}

type EndedSweepArgs struct{}

func (EndedSweepArgs) Kind() string { return JobKindEndedSweep }

func (EndedSweepArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: EndedSweepMaxAttempts}
}

// EnrichEventWorker fetches one event's detail page and persists the
// extracted fields.
type EnrichEventWorker struct {
	river.WorkerDefaults[EnrichEventArgs]
	Store    EventStore
	Enricher Enricher
}

func (EnrichEventWorker) Kind() string { return JobKindEnrichEvent }

func (w EnrichEventWorker) Work(ctx context.Context, job *river.Job[EnrichEventArgs]) error {
	if w.Store == nil || w.Enricher == nil {
		return fmt.Errorf("enrich event worker not configured")
	}
	if job.Args.SourceURL == "" {
		return fmt.Errorf("enrich event job missing source url")
	}

	enr, err := w.Enricher.Enrich(ctx, job.Args.SourceURL)
	if err != nil {
		metrics.EnrichmentJobs.WithLabelValues("failed").Inc()
		return fmt.Errorf("enrich %s: %w", job.Args.SourceURL, err)
	}

	if err := w.Store.SaveEnrichment(ctx, job.Args.EventID, enr); err != nil {
		if errors.Is(err, listings.ErrNotFound) {
			// The event was deleted between scan and enrichment; nothing to do.
			metrics.EnrichmentJobs.WithLabelValues("skipped").Inc()
			return nil
		}
		metrics.EnrichmentJobs.WithLabelValues("failed").Inc()
		return fmt.Errorf("save enrichment for event %d: %w", job.Args.EventID, err)
	}

	metrics.EnrichmentJobs.WithLabelValues("succeeded").Inc()
	return nil
}

// enrichScanBatchSize bounds one scan so a backlog drains across scans
// instead of flooding the single-worker enrichment queue.
const enrichScanBatchSize = 50

// EnrichScanWorker finds events that still lack detail fields and enqueues
// one enrichment job per event.
type EnrichScanWorker struct {
	river.WorkerDefaults[EnrichScanArgs]
	Store EventStore
}

func (EnrichScanWorker) Kind() string { return JobKindEnrichScan }

func (w EnrichScanWorker) Work(ctx context.Context, job *river.Job[EnrichScanArgs]) error {
	if w.Store == nil {
		return fmt.Errorf("enrich scan worker not configured")
	}

	pending, err := w.Store.ListUnenriched(ctx, enrichScanBatchSize)
	if err != nil {
		return fmt.Errorf("list unenriched events: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	client, err := river.ClientFromContextSafely[pgx.Tx](ctx)
	if err != nil {
		return fmt.Errorf("river client from context: %w", err)
	}

	params := make([]river.InsertManyParams, 0, len(pending))
	for _, ev := range pending {
		params = append(params, river.InsertManyParams{
			Args: EnrichEventArgs{EventID: ev.ID, SourceURL: ev.SourceURL},
		})
	}

	// Duplicate inserts for an event already queued are harmless: the
	// enrichment upsert is idempotent.
	if _, err := client.InsertMany(ctx, params); err != nil {
		return fmt.Errorf("enqueue enrichment jobs: %w", err)
	}
	return nil
}

// EndedSweepWorker marks events whose final month has passed.
type EndedSweepWorker struct {
	river.WorkerDefaults[EndedSweepArgs]
	Store EventStore
}

func (EndedSweepWorker) Kind() string { return JobKindEndedSweep }

func (w EndedSweepWorker) Work(ctx context.Context, job *river.Job[EndedSweepArgs]) error {
	if w.Store == nil {
		return fmt.Errorf("ended sweep worker not configured")
	}

	current := thaidate.MonthOf(time.Now().In(thaidate.Bangkok))
	if _, err := w.Store.MarkEnded(ctx, current); err != nil {
		return fmt.Errorf("mark ended events: %w", err)
	}
	return nil
}

// NewWorkers registers every worker the queue runs.
func NewWorkers(store EventStore, enricher Enricher) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker[EnrichEventArgs](workers, EnrichEventWorker{Store: store, Enricher: enricher})
	river.AddWorker[EnrichScanArgs](workers, EnrichScanWorker{Store: store})
	river.AddWorker[EndedSweepArgs](workers, EndedSweepWorker{Store: store})
	return workers
}
