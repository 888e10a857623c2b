package scraper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lannaguide/server/internal/domain/listings"
	"github.com/lannaguide/server/internal/thaidate"
)

type fakeFetcher struct {
	mu         sync.Mutex
	monthPages map[thaidate.Month][]byte
	pages      map[int][]byte
	monthCalls []thaidate.Month
	pageCalls  []int
	gate       chan struct{} // when set, FetchMonth blocks until closed
}

func (f *fakeFetcher) FetchMonth(ctx context.Context, month thaidate.Month) []byte {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monthCalls = append(f.monthCalls, month)
	return f.monthPages[month]
}

func (f *fakeFetcher) FetchPage(ctx context.Context, page int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls = append(f.pageCalls, page)
	return f.pages[page]
}

// fakeExtractor yields one listing per non-empty line of the body.
type fakeExtractor struct{}

func (fakeExtractor) Extract(html []byte, baseURL string) []listings.Listing {
	var out []listings.Listing
	for _, line := range splitLines(string(html)) {
		out = append(out, listings.Listing{
			Title:     line,
			SourceURL: baseURL + "/events/" + line,
		})
	}
	return out
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

type fakeStore struct {
	mu      sync.Mutex
	batches [][]listings.Listing
	panics  bool
}

func (s *fakeStore) UpsertBatch(ctx context.Context, records []listings.Listing) (int, error) {
	if s.panics {
		panic("store exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, records)
	return len(records), nil
}

func (s *fakeStore) CountEvents(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, b := range s.batches {
		total += int64(len(b))
	}
	return total, nil
}

type fakeRunLog struct {
	mu        sync.Mutex
	started   int
	completed int
	failed    []string
	found     int
	stored    int
}

func (r *fakeRunLog) Started(ctx context.Context, id uuid.UUID, trigger string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
	return nil
}

func (r *fakeRunLog) Completed(ctx context.Context, id uuid.UUID, found, stored int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
	r.found = found
	r.stored = stored
	return nil
}

func (r *fakeRunLog) Failed(ctx context.Context, id uuid.UUID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, errMsg)
	return nil
}

func testConfig() SourceConfig {
	cfg := DefaultSourceConfig()
	cfg.BaseURL = "https://www.example.co.th"
	cfg.Delay = time.Millisecond
	return cfg
}

func waitForIdle(t *testing.T, o *Orchestrator) Status {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("orchestrator did not finish in time")
		case <-time.After(5 * time.Millisecond):
		}
		if s := o.Status(context.Background()); !s.Running && !s.LastRunAt.IsZero() {
			return s
		}
	}
}

func TestOrchestratorRunMonths(t *testing.T) {
	cfg := testConfig()
	cfg.MonthsBefore = 1
	cfg.MonthsAfter = 1

	fetcher := &fakeFetcher{monthPages: map[thaidate.Month][]byte{
		"2025-09": []byte("a\nb"),
		"2025-10": []byte("c"),
		// 2025-11 missing: a failed fetch yields an empty body.
	}}
	store := &fakeStore{}
	runs := &fakeRunLog{}

	o := NewOrchestrator(cfg, fetcher, fakeExtractor{}, store, runs, zerolog.Nop())
	o.now = func() time.Time {
		return time.Date(2025, time.October, 15, 9, 0, 0, 0, thaidate.Bangkok)
	}

	_, err := o.Trigger(context.Background(), "manual")
	require.NoError(t, err)
	status := waitForIdle(t, o)

	assert.Equal(t, []thaidate.Month{"2025-09", "2025-10", "2025-11"}, fetcher.monthCalls)
	require.Len(t, store.batches, 2, "empty bodies must not reach the store")

	// Month buckets come from the target month when the listing itself has
	// no parseable date text.
	assert.Equal(t, []thaidate.Month{"2025-09"}, store.batches[0][0].Months)
	assert.Equal(t, []thaidate.Month{"2025-10"}, store.batches[1][0].Months)

	assert.Equal(t, 3, status.LastScraped)
	assert.EqualValues(t, 3, status.TotalStored)
	assert.Equal(t, 1, runs.started)
	assert.Equal(t, 1, runs.completed)
	assert.Equal(t, 3, runs.found)
	assert.Equal(t, 3, runs.stored)
	assert.Empty(t, runs.failed)
}

func TestOrchestratorRunPagesStopsOnEmptyPage(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = "pages"
	cfg.MaxPages = 10

	fetcher := &fakeFetcher{pages: map[int][]byte{
		1: []byte("a\nb"),
		2: []byte("c"),
		// page 3 empty: loop must stop there.
		4: []byte("never fetched"),
	}}
	store := &fakeStore{}

	o := NewOrchestrator(cfg, fetcher, fakeExtractor{}, store, nil, zerolog.Nop())

	_, err := o.Trigger(context.Background(), "manual")
	require.NoError(t, err)
	status := waitForIdle(t, o)

	assert.Equal(t, []int{1, 2, 3}, fetcher.pageCalls)
	assert.Equal(t, 3, status.LastScraped)
}

func TestOrchestratorTriggerConflict(t *testing.T) {
	cfg := testConfig()
	cfg.MonthsBefore = 0
	cfg.MonthsAfter = 0

	gate := make(chan struct{})
	fetcher := &fakeFetcher{gate: gate}
	store := &fakeStore{}

	o := NewOrchestrator(cfg, fetcher, fakeExtractor{}, store, nil, zerolog.Nop())

	_, err := o.Trigger(context.Background(), "manual")
	require.NoError(t, err)

	_, err = o.Trigger(context.Background(), "manual")
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(gate)
	waitForIdle(t, o)

	// The flag clears once the pass finishes.
	_, err = o.Trigger(context.Background(), "manual")
	assert.NoError(t, err)
	waitForIdle(t, o)
}

func TestOrchestratorPanicClearsRunningFlag(t *testing.T) {
	cfg := testConfig()
	cfg.MonthsBefore = 0
	cfg.MonthsAfter = 0

	fetcher := &fakeFetcher{monthPages: map[thaidate.Month][]byte{}}
	for _, m := range []thaidate.Month{thaidate.MonthOf(time.Now().In(thaidate.Bangkok))} {
		fetcher.monthPages[m] = []byte("a")
	}
	store := &fakeStore{panics: true}
	runs := &fakeRunLog{}

	o := NewOrchestrator(cfg, fetcher, fakeExtractor{}, store, runs, zerolog.Nop())

	_, err := o.Trigger(context.Background(), "manual")
	require.NoError(t, err)
	waitForIdle(t, o)

	runs.mu.Lock()
	failed := append([]string(nil), runs.failed...)
	runs.mu.Unlock()
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0], "panic")

	store.panics = false
	_, err = o.Trigger(context.Background(), "manual")
	assert.NoError(t, err, "a panicked run must not wedge the orchestrator")
	waitForIdle(t, o)
}

func TestScheduledNow(t *testing.T) {
	o := NewOrchestrator(testConfig(), &fakeFetcher{}, fakeExtractor{}, &fakeStore{}, nil, zerolog.Nop())

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"midnight bangkok", time.Date(2025, 10, 15, 0, 0, 30, 0, thaidate.Bangkok), true},
		{"noon bangkok", time.Date(2025, 10, 15, 12, 0, 0, 0, thaidate.Bangkok), true},
		{"one past midnight", time.Date(2025, 10, 15, 0, 1, 0, 0, thaidate.Bangkok), false},
		{"other hour", time.Date(2025, 10, 15, 9, 0, 0, 0, thaidate.Bangkok), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, o.scheduledNow(tt.at))
		})
	}
}
