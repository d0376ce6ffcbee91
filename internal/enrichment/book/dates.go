package book

import (
	"fmt"
	"strings"
	"time"
)

// OpenLibraryDateLayouts are tried in order after ISO when parsing the
// free-form publish dates found in Open Library editions.
var OpenLibraryDateLayouts = []string{
	"2006",
	"Jan, 2006",
	"2006-Jan-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"January 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02/01/2006",
}

// GoogleBooksDateLayouts are tried after ISO for Google Books publishedDate.
var GoogleBooksDateLayouts = []string{
	"2006",
	"2006-01",
}

// ParseDate parses raw as an ISO date, then each fallback layout in order.
// When every layout fails the error wraps the ISO parse error.
func ParseDate(raw string, fallbacks ...string) (time.Time, error) {
	raw = strings.TrimSpace(raw)

	t, isoErr := time.Parse(time.DateOnly, raw)
	if isoErr == nil {
		return t, nil
	}

	for _, layout := range fallbacks {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised date %q: %w", raw, isoErr)
}
