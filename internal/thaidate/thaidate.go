// Package thaidate converts Thai Buddhist-calendar date strings scraped from
// listing pages into canonical Gregorian year-month buckets.
//
// Source strings look like "18 กันยายน 2568 - 30 ตุลาคม 2568": a 1-2 digit
// day, a Thai month name, and a 4-digit Buddhist Era year (B.E. = C.E. + 543).
// The package exposes three independently testable stages: ParseFirst for a
// single token, ExtractMonths for every token in a string, and FillRange to
// expand sparse endpoints into a contiguous month interval.
package thaidate

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BuddhistEraOffset is the fixed difference between Buddhist Era and Common
// Era year numbering (พ.ศ. 2568 == ค.ศ. 2025).
const BuddhistEraOffset = 543

// Bangkok is the timezone the source site publishes in (UTC+7, no DST).
var Bangkok = time.FixedZone("ICT", 7*60*60)

// monthNames maps full Thai month names to month numbers 1..12.
var monthNames = map[string]time.Month{
	"มกราคม":     time.January,
	"กุมภาพันธ์": time.February,
	"มีนาคม":     time.March,
	"เมษายน":     time.April,
	"พฤษภาคม":    time.May,
	"มิถุนายน":   time.June,
	"กรกฎาคม":    time.July,
	"สิงหาคม":    time.August,
	"กันยายน":    time.September,
	"ตุลาคม":     time.October,
	"พฤศจิกายน":  time.November,
	"ธันวาคม":    time.December,
}

// tokenPattern matches one "<day> <Thai month> <B.E. year>" token. Built once
// from the month table so the alternation stays in sync with it.
var tokenPattern = regexp.MustCompile(`(\d{1,2})\s*(` + monthAlternation() + `)\s*(\d{4})`)

func monthAlternation() string {
	names := make([]string, 0, len(monthNames))
	for name := range monthNames {
		names = append(names, name)
	}
	// Longest-first so shorter names can never shadow longer ones.
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	return strings.Join(names, "|")
}

// ParseFirst locates the first date token in s and returns it as a Gregorian
// calendar day in the Bangkok timezone. ok is false when s contains no
// recognizable token; malformed input never panics.
func ParseFirst(s string) (t time.Time, ok bool) {
	m := tokenPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	return tokenToTime(m)
}

// ExtractMonths scans the entire string for date tokens, converts each to a
// Gregorian month bucket, and returns the deduplicated set in chronological
// order. Zero tokens yields an empty (nil) slice; the caller decides the
// fallback.
func ExtractMonths(s string) []Month {
	matches := tokenPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[Month]struct{}, len(matches))
	var months []Month
	for _, m := range matches {
		t, ok := tokenToTime(m)
		if !ok {
			continue
		}
		month := MonthOf(t)
		if _, dup := seen[month]; dup {
			continue
		}
		seen[month] = struct{}{}
		months = append(months, month)
	}

	// Zero-padded YYYY-MM sorts chronologically as plain strings.
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })
	return months
}

// FillRange expands a sorted month list to the full contiguous interval
// between its first and last element, inclusive. Lists of fewer than two
// months are returned unchanged.
//
// The first and last elements are assumed to be endpoints of one continuous
// range; a hyphen in the source text is taken to mean "through", never "and
// also". See the package tests for the disjoint-range caveat.
func FillRange(months []Month) []Month {
	if len(months) < 2 {
		return months
	}

	start, err := months[0].Time()
	if err != nil {
		return months
	}
	end, err := months[len(months)-1].Time()
	if err != nil {
		return months
	}

	var filled []Month
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		filled = append(filled, MonthOf(cur))
	}
	return filled
}

// tokenToTime converts a tokenPattern submatch into a Gregorian time.
func tokenToTime(m []string) (time.Time, bool) {
	day, err := strconv.Atoi(m[1])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	month, ok := monthNames[m[2]]
	if !ok {
		return time.Time{}, false
	}
	beYear, err := strconv.Atoi(m[3])
	if err != nil {
		return time.Time{}, false
	}
	year := beYear - BuddhistEraOffset
	if year < 1 {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, Bangkok), true
}

// Month is a canonical "YYYY-MM" bucket. The year is always four digits and
// the month zero-padded, so lexicographic order equals chronological order.
type Month string

// MonthOf returns the bucket containing t.
func MonthOf(t time.Time) Month {
	return Month(t.Format("2006-01"))
}

// Valid reports whether m is a well-formed YYYY-MM token.
func (m Month) Valid() bool {
	_, err := m.Time()
	return err == nil
}

// Time returns the first instant of the month in the Bangkok timezone.
func (m Month) Time() (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", string(m), Bangkok)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month token %q: %w", m, err)
	}
	return t, nil
}

// Next returns the month after m, rolling the year over at December.
func (m Month) Next() Month {
	t, err := m.Time()
	if err != nil {
		return m
	}
	return MonthOf(t.AddDate(0, 1, 0))
}

// End returns the first instant after the month ends, used to decide whether
// an event whose last bucket is m is over.
func (m Month) End() (time.Time, error) {
	t, err := m.Time()
	if err != nil {
		return time.Time{}, err
	}
	return t.AddDate(0, 1, 0), nil
}
