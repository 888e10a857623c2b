package scraper

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"

	"github.com/lannaguide/server/internal/metrics"
	"github.com/lannaguide/server/internal/thaidate"
)

// userAgents is the fixed pool a fetch picks from at random. Rotating the
// User-Agent keeps the source site from pinning all traffic to one string.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
}

// Fetcher retrieves raw listing-page HTML from the source site. It never
// retries: a failed fetch is logged and surfaces as an empty body, which the
// orchestrator treats as zero events for that target.
type Fetcher struct {
	baseURL string
	timeout time.Duration
	delay   time.Duration
	logger  zerolog.Logger
}

// NewFetcher builds a Fetcher for the configured source site.
func NewFetcher(cfg SourceConfig, logger zerolog.Logger) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = time.Second
	}
	return &Fetcher{
		baseURL: cfg.BaseURL,
		timeout: timeout,
		delay:   delay,
		logger:  logger,
	}
}

// MonthURL returns the listing URL for one month page.
func (f *Fetcher) MonthURL(month thaidate.Month) string {
	return fmt.Sprintf("%s/events/%s/", f.baseURL, month)
}

// PageURL returns the listing URL for one numbered page.
func (f *Fetcher) PageURL(page int) string {
	return fmt.Sprintf("%s/events?page=%d", f.baseURL, page)
}

// FetchMonth retrieves the listing page for the given month.
func (f *Fetcher) FetchMonth(ctx context.Context, month thaidate.Month) []byte {
	return f.fetch(ctx, f.MonthURL(month))
}

// FetchPage retrieves the numbered listing page.
func (f *Fetcher) FetchPage(ctx context.Context, page int) []byte {
	return f.fetch(ctx, f.PageURL(page))
}

// FetchURL retrieves an arbitrary page on the source site, used by the
// detail enrichment stage.
func (f *Fetcher) FetchURL(ctx context.Context, rawURL string) []byte {
	return f.fetch(ctx, rawURL)
}

// fetch issues one GET through a fresh collector. Network errors and non-2xx
// statuses are logged and yield an empty body, never an error: retry policy
// belongs to the orchestrator loop, not here.
func (f *Fetcher) fetch(ctx context.Context, rawURL string) []byte {
	if ctx.Err() != nil {
		return nil
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		// robots.txt is respected by default; do NOT use IgnoreRobotsTxt.
	)
	c.SetRequestTimeout(f.timeout)

	// Per-domain delay as a second line of defence behind the orchestrator's
	// politeness limiter.
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Delay: f.delay}); err != nil {
		f.logger.Warn().Err(err).Msg("fetcher: failed to set rate limit rule")
	}

	var body []byte

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	})

	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	c.OnError(func(r *colly.Response, err error) {
		metrics.FetchFailures.Inc()
		f.logger.Warn().
			Str("url", rawURL).
			Int("status", r.StatusCode).
			Err(err).
			Msg("fetcher: request failed")
	})

	if err := c.Visit(rawURL); err != nil {
		f.logger.Warn().Str("url", rawURL).Err(err).Msg("fetcher: visit failed")
		return nil
	}
	c.Wait()

	return body
}
