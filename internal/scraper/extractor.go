package scraper

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/lannaguide/server/internal/domain/listings"
	"github.com/lannaguide/server/internal/sanitize"
)

// Extractor turns raw listing-page HTML into normalized records. Two
// interchangeable strategies implement it: structured DOM selectors and a
// whole-document regex fallback, selectable by config.
type Extractor interface {
	Extract(html []byte, baseURL string) []listings.Listing
}

// NewExtractor returns the strategy named by cfg.Strategy.
func NewExtractor(cfg SourceConfig, logger zerolog.Logger) Extractor {
	if cfg.Strategy == "regex" {
		return NewRegexExtractor(logger)
	}
	return NewSelectorExtractor(cfg.Selectors, logger)
}

// SelectorExtractor is the primary strategy: select repeated card elements,
// then sub-select the title/link/image/location/date fields within each.
type SelectorExtractor struct {
	selectors SelectorConfig
	logger    zerolog.Logger
}

func NewSelectorExtractor(selectors SelectorConfig, logger zerolog.Logger) *SelectorExtractor {
	return &SelectorExtractor{selectors: selectors, logger: logger}
}

func (e *SelectorExtractor) Extract(html []byte, baseURL string) []listings.Listing {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		e.logger.Warn().Err(err).Msg("extractor: failed to parse HTML")
		return nil
	}

	var results []listings.Listing
	doc.Find(e.selectors.Card).Each(func(_ int, card *goquery.Selection) {
		l := listings.Listing{
			Title:    collapseWhitespace(card.Find(e.selectors.Title).First().Text()),
			Location: collapseWhitespace(card.Find(e.selectors.Location).First().Text()),
			DateText: collapseWhitespace(card.Find(e.selectors.DateText).First().Text()),
		}

		if href, ok := card.Find(e.selectors.Link).First().Attr("href"); ok {
			l.SourceURL = absoluteURL(baseURL, href)
		}
		if src, ok := card.Find(e.selectors.Image).First().Attr("src"); ok {
			l.CoverImageURL = absoluteURL(baseURL, src)
		}

		// Title is the only strictly required field.
		if l.Title == "" {
			return
		}
		results = append(results, l)
	})

	return results
}

// cardPattern matches one event card block in the raw document. Group order:
// link, image, title, location, date text. Fields may legitimately be absent
// from a card, hence the optional groups.
var cardPattern = regexp.MustCompile(`(?s)<div class="event-card"[^>]*>.*?` +
	`<a[^>]+href="([^"]*)"[^>]*>.*?` +
	`(?:<img[^>]+src="([^"]*)"[^>]*>.*?)?` +
	`<h3[^>]*>(.*?)</h3>.*?` +
	`(?:<span class="event-location"[^>]*>(.*?)</span>.*?)?` +
	`(?:<span class="event-date"[^>]*>(.*?)</span>.*?)?` +
	`</div>`)

// RegexExtractor is the fallback strategy: one global pattern over the whole
// document. Used when the site's markup breaks the structured selectors but
// the card blocks still follow the known shape.
type RegexExtractor struct {
	pattern *regexp.Regexp
	logger  zerolog.Logger
}

func NewRegexExtractor(logger zerolog.Logger) *RegexExtractor {
	return &RegexExtractor{pattern: cardPattern, logger: logger}
}

func (e *RegexExtractor) Extract(html []byte, baseURL string) []listings.Listing {
	matches := e.pattern.FindAllSubmatch(html, -1)
	if len(matches) == 0 {
		e.logger.Debug().Msg("extractor: regex strategy matched no cards")
		return nil
	}

	var results []listings.Listing
	for _, m := range matches {
		l := listings.Listing{
			SourceURL:     absoluteURL(baseURL, string(m[1])),
			CoverImageURL: absoluteURL(baseURL, string(m[2])),
			Title:         collapseWhitespace(sanitize.Text(string(m[3]))),
			Location:      collapseWhitespace(sanitize.Text(string(m[4]))),
			DateText:      collapseWhitespace(sanitize.Text(string(m[5]))),
		}
		if l.Title == "" {
			continue
		}
		results = append(results, l)
	}
	return results
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// collapseWhitespace trims s and squeezes internal whitespace runs to a
// single space, normalizing the ragged text nodes scraped from HTML.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// absoluteURL resolves ref against base, so relative links and images are
// stored as full URLs. Unresolvable input is returned trimmed as-is.
func absoluteURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
