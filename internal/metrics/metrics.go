// Package metrics holds the Prometheus registry and instruments for the
// scrape pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lannaguide"

// Registry is the registry all server metrics are registered with.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// ScrapeRuns counts orchestrator passes by trigger ("schedule", "manual")
// and outcome ("completed", "failed").
var ScrapeRuns = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scrape_runs_total",
		Help:      "Orchestrator passes by trigger and outcome",
	},
	[]string{"trigger", "outcome"},
)

// ListingsScraped counts records extracted from listing pages.
var ListingsScraped = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listings_scraped_total",
		Help:      "Listing records extracted across all runs",
	},
)

// ListingsUpserted counts records written to the store.
var ListingsUpserted = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listings_upserted_total",
		Help:      "Listing records upserted across all runs",
	},
)

// FetchFailures counts failed listing-page fetches.
var FetchFailures = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_failures_total",
		Help:      "Listing page fetches that returned an error or non-2xx status",
	},
)

// ScrapeDuration observes full-pass duration in seconds.
var ScrapeDuration = promauto.With(Registry).NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scrape_duration_seconds",
		Help:      "Duration of one full orchestrator pass",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	},
)

// EnrichmentJobs counts detail enrichment jobs by outcome.
var EnrichmentJobs = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enrichment_jobs_total",
		Help:      "Detail enrichment jobs by outcome",
	},
	[]string{"outcome"},
)
