// Package listings defines the event-listing domain types shared by the
// scraper pipeline, the persistence layer, and the API handlers.
package listings

import (
	"errors"
	"time"

	"github.com/lannaguide/server/internal/thaidate"
)

// ErrNotFound is returned when an event lookup by source URL fails.
var ErrNotFound = errors.New("event not found")

// Listing is one normalized record extracted from a listing page. SourceURL
// is the unique key; everything else is overwritten on re-scrape.
type Listing struct {
	SourceURL     string
	Title         string
	Location      string
	DateText      string
	CoverImageURL string
	// Months holds the derived year-month buckets. Never empty once the
	// extractor post-processing ran: a listing with no parseable date falls
	// back to the month it was scraped under.
	Months []thaidate.Month
}

// Event is a stored events row, serialized as-is on the API surface.
type Event struct {
	ID            int64            `json:"id"`
	SourceURL     string           `json:"source_url"`
	Title         string           `json:"title"`
	Description   string           `json:"description,omitempty"`
	Location      string           `json:"location,omitempty"`
	DateText      string           `json:"date_text,omitempty"`
	TimeText      string           `json:"time_text,omitempty"`
	Months        []thaidate.Month `json:"months"`
	CoverImageURL string           `json:"cover_image_url,omitempty"`

	Latitude            *float64 `json:"latitude,omitempty"`
	Longitude           *float64 `json:"longitude,omitempty"`
	GoogleMapsURL       string   `json:"google_maps_url,omitempty"`
	FacebookURL         string   `json:"facebook_url,omitempty"`
	DescriptionMarkdown string   `json:"description_markdown,omitempty"`

	IsEnded        bool `json:"is_ended"`
	IsFullyScraped bool `json:"is_fully_scraped"`

	FirstScrapedAt time.Time `json:"first_scraped_at"`
	LastUpdatedAt  time.Time `json:"last_updated_at"`
}

// Enrichment carries the detail-page fields filled in by the enrichment
// pipeline. Saving an Enrichment marks the event fully scraped.
type Enrichment struct {
	Description         string
	DescriptionMarkdown string
	TimeText            string
	Latitude            *float64
	Longitude           *float64
	GoogleMapsURL       string
	FacebookURL         string
	ImageURLs           []string
}
