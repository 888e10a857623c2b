package scraper

import (
	"time"

	"github.com/markusmobius/go-dateparser"

	"github.com/lannaguide/server/internal/domain/listings"
	"github.com/lannaguide/server/internal/thaidate"
)

// AssignMonths derives the month buckets for one raw date string. The
// pipeline runs three explicit stages:
//
//  1. extract every Thai date token and convert B.E. → C.E.;
//  2. if two or more months came back, fill the interval between the first
//     and last so a September–November event is indexed under October too;
//  3. if nothing parsed, try a generic (non-Thai) date parse, and finally
//     fall back to the month currently being scraped.
//
// The result is never empty.
func AssignMonths(dateText string, target thaidate.Month) []thaidate.Month {
	months := thaidate.ExtractMonths(dateText)
	switch {
	case len(months) >= 2:
		return thaidate.FillRange(months)
	case len(months) == 1:
		return months
	}

	if t, ok := parseGenericDate(dateText); ok {
		return []thaidate.Month{thaidate.MonthOf(t)}
	}

	return []thaidate.Month{target}
}

// AttachMonths runs AssignMonths over a batch of extracted listings.
func AttachMonths(records []listings.Listing, target thaidate.Month) []listings.Listing {
	for i := range records {
		records[i].Months = AssignMonths(records[i].DateText, target)
	}
	return records
}

var dateparserConfig = &dateparser.Configuration{
	Languages:       []string{"en"},
	DefaultTimezone: thaidate.Bangkok,
}

// parseGenericDate handles the occasional English or ISO date string the
// source mixes in. Thai Buddhist dates never reach here; they are caught by
// the first pipeline stage.
func parseGenericDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	dt, err := dateparser.Parse(dateparserConfig, s)
	if err != nil || dt.Time.IsZero() {
		return time.Time{}, false
	}
	return dt.Time, true
}
