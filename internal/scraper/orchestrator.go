package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lannaguide/server/internal/domain/listings"
	"github.com/lannaguide/server/internal/metrics"
	"github.com/lannaguide/server/internal/thaidate"
)

// ErrAlreadyRunning is returned by Trigger while a pass is in flight. It is
// a skip signal, not a failure: the caller gets a 409, nothing is queued.
var ErrAlreadyRunning = errors.New("scrape already running")

// scheduleHours are the local (Bangkok) hours the scheduler fires at.
var scheduleHours = []int{0, 12}

// runInterval is the fixed gap between scheduled passes, used to compute the
// next-run timestamp exposed on the status surface.
const runInterval = 12 * time.Hour

// PageFetcher retrieves raw listing HTML for one target. A failed fetch
// yields an empty body.
type PageFetcher interface {
	FetchMonth(ctx context.Context, month thaidate.Month) []byte
	FetchPage(ctx context.Context, page int) []byte
}

// Store is the persistence surface the orchestrator writes to.
type Store interface {
	// UpsertBatch writes one target's records in a single transaction and
	// returns how many were stored; individual record failures are logged
	// and skipped inside the batch.
	UpsertBatch(ctx context.Context, records []listings.Listing) (int, error)
	CountEvents(ctx context.Context) (int64, error)
}

// RunLog records scrape passes for the status endpoint. May be nil, in which
// case run tracking is skipped (tests, dry runs).
type RunLog interface {
	Started(ctx context.Context, id uuid.UUID, trigger string, at time.Time) error
	Completed(ctx context.Context, id uuid.UUID, found, stored int) error
	Failed(ctx context.Context, id uuid.UUID, errMsg string) error
}

// Status is the observability surface exposed to the API layer.
type Status struct {
	Running     bool      `json:"running"`
	LastRunAt   time.Time `json:"last_run_at"`
	NextRunAt   time.Time `json:"next_run_at"`
	LastScraped int       `json:"last_scraped"`
	TotalStored int64     `json:"total_stored"`
}

// Orchestrator drives the scrape loop: for each target month or page it
// fetches, extracts, assigns month buckets, and upserts, sleeping a
// politeness interval between targets. Exactly one pass runs at a time.
type Orchestrator struct {
	cfg       SourceConfig
	fetcher   PageFetcher
	extractor Extractor
	store     Store
	runs      RunLog
	logger    zerolog.Logger
	limiter   *rate.Limiter
	now       func() time.Time

	mu          sync.Mutex
	running     bool
	lastRunAt   time.Time
	lastScraped int
}

// NewOrchestrator wires the pipeline stages together. runs may be nil.
func NewOrchestrator(cfg SourceConfig, fetcher PageFetcher, extractor Extractor, store Store, runs RunLog, logger zerolog.Logger) *Orchestrator {
	delay := cfg.Delay
	if delay <= 0 {
		delay = time.Second
	}
	return &Orchestrator{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		runs:      runs,
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		now:       time.Now,
	}
}

// Trigger starts a pass in the background and returns its start timestamp.
// While a pass is already running it returns ErrAlreadyRunning and leaves
// the running pass untouched.
func (o *Orchestrator) Trigger(ctx context.Context, trigger string) (time.Time, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return time.Time{}, ErrAlreadyRunning
	}
	o.running = true
	o.mu.Unlock()

	startedAt := o.now()

	// The pass outlives the triggering request.
	runCtx := context.WithoutCancel(ctx)
	go o.run(runCtx, trigger, startedAt)

	return startedAt, nil
}

// Status reports the current run state. TotalStored is read live from the
// store so the count survives restarts.
func (o *Orchestrator) Status(ctx context.Context) Status {
	o.mu.Lock()
	s := Status{
		Running:     o.running,
		LastRunAt:   o.lastRunAt,
		LastScraped: o.lastScraped,
	}
	o.mu.Unlock()

	if !s.LastRunAt.IsZero() {
		s.NextRunAt = s.LastRunAt.Add(runInterval)
	}

	if total, err := o.store.CountEvents(ctx); err != nil {
		o.logger.Warn().Err(err).Msg("orchestrator: failed to count stored events")
	} else {
		s.TotalStored = total
	}
	return s
}

// RunScheduler blocks, checking the wall clock once a minute and triggering
// a pass at the fixed schedule hours. Returns when ctx is cancelled.
func (o *Orchestrator) RunScheduler(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastFired time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := o.now().In(thaidate.Bangkok)
			if !o.scheduledNow(now) {
				continue
			}
			// One firing per schedule slot even if the tick lands twice in
			// the same minute.
			if now.Sub(lastFired) < 2*time.Minute {
				continue
			}
			lastFired = now

			if _, err := o.Trigger(ctx, "schedule"); err != nil {
				if errors.Is(err, ErrAlreadyRunning) {
					o.logger.Info().Msg("orchestrator: scheduled run skipped, already running")
					continue
				}
				o.logger.Error().Err(err).Msg("orchestrator: scheduled trigger failed")
			}
		}
	}
}

func (o *Orchestrator) scheduledNow(now time.Time) bool {
	if now.Minute() != 0 {
		return false
	}
	for _, h := range scheduleHours {
		if now.Hour() == h {
			return true
		}
	}
	return false
}

// run executes one full pass. The running flag is cleared on every exit path
// including panics, so a crashed run never wedges the orchestrator.
func (o *Orchestrator) run(ctx context.Context, trigger string, startedAt time.Time) {
	runID := uuid.New()
	outcome := "completed"

	defer func() {
		if r := recover(); r != nil {
			outcome = "failed"
			o.logger.Error().Interface("panic", r).Str("run_id", runID.String()).
				Msg("orchestrator: run panicked")
			o.recordFailure(ctx, runID, "panic during scrape run")
		}
		metrics.ScrapeRuns.WithLabelValues(trigger, outcome).Inc()

		o.mu.Lock()
		o.running = false
		o.lastRunAt = o.now()
		o.mu.Unlock()
	}()

	if o.runs != nil {
		if err := o.runs.Started(ctx, runID, trigger, startedAt); err != nil {
			o.logger.Warn().Err(err).Msg("orchestrator: failed to record run start")
		}
	}

	o.logger.Info().
		Str("run_id", runID.String()).
		Str("trigger", trigger).
		Str("mode", o.cfg.Mode).
		Msg("orchestrator: scrape run starting")

	var found, stored int
	if o.cfg.Mode == "pages" {
		found, stored = o.runPages(ctx)
	} else {
		found, stored = o.runMonths(ctx)
	}

	metrics.ScrapeDuration.Observe(o.now().Sub(startedAt).Seconds())

	o.mu.Lock()
	o.lastScraped = found
	o.mu.Unlock()

	if o.runs != nil {
		if err := o.runs.Completed(ctx, runID, found, stored); err != nil {
			o.logger.Warn().Err(err).Msg("orchestrator: failed to record run completion")
		}
	}

	o.logger.Info().
		Str("run_id", runID.String()).
		Int("found", found).
		Int("stored", stored).
		Dur("elapsed", o.now().Sub(startedAt)).
		Msg("orchestrator: scrape run finished")
}

// runMonths walks the configured month window in chronological order.
func (o *Orchestrator) runMonths(ctx context.Context) (found, stored int) {
	current := thaidate.MonthOf(o.now().In(thaidate.Bangkok))

	start, err := current.Time()
	if err != nil {
		o.logger.Error().Err(err).Msg("orchestrator: invalid current month")
		return 0, 0
	}

	for i := -o.cfg.MonthsBefore; i <= o.cfg.MonthsAfter; i++ {
		if ctx.Err() != nil {
			return found, stored
		}
		target := thaidate.MonthOf(start.AddDate(0, i, 0))

		body := o.fetcher.FetchMonth(ctx, target)
		f, s := o.processTarget(ctx, body, target)
		found += f
		stored += s

		o.wait(ctx)
	}
	return found, stored
}

// runPages walks ascending page numbers until a page yields zero records or
// the hard cap is reached. Records are bucketed under the current month when
// their own date text does not parse.
func (o *Orchestrator) runPages(ctx context.Context) (found, stored int) {
	current := thaidate.MonthOf(o.now().In(thaidate.Bangkok))

	for page := 1; page <= o.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			return found, stored
		}

		body := o.fetcher.FetchPage(ctx, page)
		f, s := o.processTarget(ctx, body, current)
		found += f
		stored += s

		if f == 0 {
			o.logger.Debug().Int("page", page).Msg("orchestrator: empty page, stopping")
			return found, stored
		}

		o.wait(ctx)
	}
	return found, stored
}

// processTarget runs extract → month assignment → upsert for one fetched
// page. All failures are local: they contribute zero records and the loop
// moves on.
func (o *Orchestrator) processTarget(ctx context.Context, body []byte, target thaidate.Month) (found, stored int) {
	if len(body) == 0 {
		return 0, 0
	}

	records := o.extractor.Extract(body, o.cfg.BaseURL)
	if len(records) == 0 {
		return 0, 0
	}
	records = AttachMonths(records, target)
	metrics.ListingsScraped.Add(float64(len(records)))

	n, err := o.store.UpsertBatch(ctx, records)
	if err != nil {
		o.logger.Warn().Err(err).Str("target", string(target)).
			Msg("orchestrator: upsert batch failed")
		return len(records), 0
	}
	metrics.ListingsUpserted.Add(float64(n))
	return len(records), n
}

// wait applies the politeness delay between targets.
func (o *Orchestrator) wait(ctx context.Context) {
	if err := o.limiter.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		o.logger.Warn().Err(err).Msg("orchestrator: limiter wait failed")
	}
}

func (o *Orchestrator) recordFailure(ctx context.Context, runID uuid.UUID, msg string) {
	if o.runs == nil {
		return
	}
	if err := o.runs.Failed(ctx, runID, msg); err != nil {
		o.logger.Warn().Err(err).Msg("orchestrator: failed to record run failure")
	}
}
