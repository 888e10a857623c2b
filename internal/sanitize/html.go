// Package sanitize wraps the bluemonday policies used on scraped content.
package sanitize

import (
	"github.com/microcosm-cc/bluemonday"
)

var (
	// strictPolicy removes all HTML tags and attributes. Used for fields
	// that must be plain text (titles, locations, date strings).
	strictPolicy = bluemonday.StrictPolicy()

	// ugcPolicy allows safe basic formatting. Used for event descriptions
	// lifted from detail pages.
	ugcPolicy = bluemonday.UGCPolicy()
)

// Text strips all HTML tags and returns plain text.
func Text(input string) string {
	return strictPolicy.Sanitize(input)
}

// HTML sanitizes HTML content, keeping safe formatting tags and removing
// scripts, iframes, event handlers, and style attributes.
func HTML(input string) string {
	return ugcPolicy.Sanitize(input)
}
