// Package enrich fills in event detail fields the listing cards do not
// carry: full description, time text, coordinates, and outbound links. It is
// a secondary pipeline stage that shares the persistence layer with the
// listing scraper and runs from background jobs.
package enrich

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/lannaguide/server/internal/domain/listings"
	"github.com/lannaguide/server/internal/sanitize"
)

// PageFetcher retrieves one detail page; an empty body means the fetch
// failed and was already logged.
type PageFetcher interface {
	FetchURL(ctx context.Context, rawURL string) []byte
}

// Enricher scrapes a single event's detail page and optionally asks the
// summarizer for a markdown rendition of the description.
type Enricher struct {
	fetcher    PageFetcher
	summarizer Summarizer // may be nil; markdown left empty
	logger     zerolog.Logger
}

func NewEnricher(fetcher PageFetcher, summarizer Summarizer, logger zerolog.Logger) *Enricher {
	return &Enricher{fetcher: fetcher, summarizer: summarizer, logger: logger}
}

// Enrich fetches and parses the detail page for sourceURL. Missing fields
// stay empty; only an unfetchable or unparseable page is an error, so the
// job layer can retry it.
func (e *Enricher) Enrich(ctx context.Context, sourceURL string) (listings.Enrichment, error) {
	body := e.fetcher.FetchURL(ctx, sourceURL)
	if len(body) == 0 {
		return listings.Enrichment{}, fmt.Errorf("empty detail page for %s", sourceURL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return listings.Enrichment{}, fmt.Errorf("parse detail page for %s: %w", sourceURL, err)
	}

	enr := listings.Enrichment{
		Description: extractDescription(doc),
		TimeText:    collapse(doc.Find("span.event-time").First().Text()),
		FacebookURL: firstHref(doc, `a[href*="facebook.com"]`),
	}

	if mapsURL := firstHref(doc, `a[href*="google.com/maps"], a[href*="maps.google.com"], a[href*="goo.gl/maps"]`); mapsURL != "" {
		enr.GoogleMapsURL = mapsURL
		if lat, lng, ok := parseCoordinates(mapsURL); ok {
			enr.Latitude = &lat
			enr.Longitude = &lng
		}
	}

	doc.Find("div.event-gallery img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok {
			src = strings.TrimSpace(src)
			if src != "" {
				enr.ImageURLs = append(enr.ImageURLs, src)
			}
		}
	})

	if e.summarizer != nil && enr.Description != "" {
		md, err := e.summarizer.Summarize(ctx, enr.Description)
		if err != nil {
			// Summaries are best-effort: the enrichment still lands.
			e.logger.Warn().Err(err).Str("source_url", sourceURL).
				Msg("enrich: summarizer failed")
		} else {
			enr.DescriptionMarkdown = md
		}
	}

	return enr, nil
}

// extractDescription takes the description block as sanitized plain text.
func extractDescription(doc *goquery.Document) string {
	block := doc.Find("div.event-description").First()
	if block.Length() == 0 {
		return ""
	}
	html, err := block.Html()
	if err != nil {
		return collapse(block.Text())
	}
	return collapse(sanitize.Text(html))
}

func firstHref(doc *goquery.Document, selector string) string {
	href, _ := doc.Find(selector).First().Attr("href")
	return strings.TrimSpace(href)
}

// coordPattern matches the "@lat,lng" or "?q=lat,lng" forms Google Maps
// links embed.
var coordPattern = regexp.MustCompile(`[@=](-?\d{1,3}\.\d+),(-?\d{1,3}\.\d+)`)

func parseCoordinates(mapsURL string) (lat, lng float64, ok bool) {
	m := coordPattern.FindStringSubmatch(mapsURL)
	if m == nil {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lat, lng, true
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
