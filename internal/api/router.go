// Package api assembles the HTTP surface: public event listings, manual
// scrape control, health, and Prometheus metrics.
package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lannaguide/server/internal/api/handlers"
	"github.com/lannaguide/server/internal/metrics"
)

// Deps carries the wired components the router exposes.
type Deps struct {
	Pool         *pgxpool.Pool
	Events       handlers.EventLister
	Orchestrator handlers.ScrapeController
	Logger       zerolog.Logger
}

func NewRouter(deps Deps) http.Handler {
	eventsHandler := handlers.NewEventsHandler(deps.Events, deps.Logger)
	scrapeHandler := handlers.NewScrapeHandler(deps.Orchestrator, deps.Logger)

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz(deps.Pool))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.Handle("/api/v1/events", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(eventsHandler.List),
	}))
	mux.Handle("/api/v1/scrape", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(scrapeHandler.Trigger),
	}))
	mux.Handle("/api/v1/scrape/status", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(scrapeHandler.Status),
	}))
	return mux
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
