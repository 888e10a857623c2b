package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/lannaguide/server/internal/scraper"
)

// ScrapeController is the orchestrator surface the API needs.
type ScrapeController interface {
	Trigger(ctx context.Context, trigger string) (time.Time, error)
	Status(ctx context.Context) scraper.Status
}

// ScrapeHandler exposes manual scrape control.
type ScrapeHandler struct {
	orchestrator ScrapeController
	logger       zerolog.Logger
}

func NewScrapeHandler(orchestrator ScrapeController, logger zerolog.Logger) *ScrapeHandler {
	return &ScrapeHandler{orchestrator: orchestrator, logger: logger}
}

type triggerResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// Trigger handles POST /api/v1/scrape. A pass already in flight answers 409
// so callers cannot stack runs.
func (h *ScrapeHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	startedAt, err := h.orchestrator.Trigger(r.Context(), "manual")
	if err != nil {
		if errors.Is(err, scraper.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "a scrape pass is already running")
			return
		}
		h.logger.Error().Err(err).Msg("api: scrape trigger failed")
		writeError(w, http.StatusInternalServerError, "failed to start scrape")
		return
	}

	writeJSON(w, http.StatusAccepted, triggerResponse{Status: "started", StartedAt: startedAt})
}

// Status handles GET /api/v1/scrape/status.
func (h *ScrapeHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orchestrator.Status(r.Context()))
}
