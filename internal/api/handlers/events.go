package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/lannaguide/server/internal/domain/listings"
	"github.com/lannaguide/server/internal/thaidate"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// EventLister is the read side of the events store.
type EventLister interface {
	ListByMonth(ctx context.Context, month thaidate.Month, limit, offset int) ([]listings.Event, error)
	GetBySourceURL(ctx context.Context, sourceURL string) (*listings.Event, error)
}

// EventsHandler serves the public events listing.
type EventsHandler struct {
	store  EventLister
	logger zerolog.Logger
}

func NewEventsHandler(store EventLister, logger zerolog.Logger) *EventsHandler {
	return &EventsHandler{store: store, logger: logger}
}

type listEventsResponse struct {
	Month  thaidate.Month   `json:"month"`
	Count  int              `json:"count"`
	Events []listings.Event `json:"events"`
}

// List handles GET /api/v1/events?month=YYYY-MM. The month defaults to the
// current month in Bangkok time.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	month := thaidate.Month(r.URL.Query().Get("month"))
	if month == "" {
		month = thaidate.MonthOf(time.Now().In(thaidate.Bangkok))
	}
	if !month.Valid() {
		writeError(w, http.StatusBadRequest, "month must be formatted YYYY-MM")
		return
	}

	limit := queryInt(r, "limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		writeError(w, http.StatusBadRequest, "limit out of range")
		return
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		writeError(w, http.StatusBadRequest, "offset out of range")
		return
	}

	events, err := h.store.ListByMonth(r.Context(), month, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Str("month", string(month)).Msg("api: list events failed")
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []listings.Event{}
	}

	writeJSON(w, http.StatusOK, listEventsResponse{
		Month:  month,
		Count:  len(events),
		Events: events,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return parsed
}
