// Package dates normalizes the partial dates external catalogs return.
//
// MusicBrainz reports life spans and release dates at whatever precision it
// has: a bare year, a year-month, or a full date, and often nothing at all.
// Callers need a total date either way, so unknown begins collapse to the
// minimum representable date and unknown ends to the maximum, keeping date
// comparisons total-ordered without nullable columns.
package dates

import (
	"errors"
	"fmt"
	"time"
)

// Marker selects the sentinel used when no date string is available.
type Marker string

// Markers for the two ends of a life span.
const (
	MarkerNone  Marker = ""
	MarkerBegin Marker = "begin"
	MarkerEnd   Marker = "end"
)

// Sentinel dates standing in for unknown begin/end values.
var (
	Min = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	Max = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// Errors returned by ToDate.
var (
	ErrInvalidArgument = errors.New("dates: marker required when date string is empty")
	ErrInvalidFormat   = errors.New("dates: unrecognized date format")
)

// ToDate converts a partial date string into a concrete calendar date.
// An empty string requires a marker and yields the matching sentinel.
// Supported layouts: "2006", "2006-01", and "2006-01-02"; missing month
// and day components default to January and the 1st.
func ToDate(marker Marker, s string) (time.Time, error) {
	if s == "" {
		switch marker {
		case MarkerBegin:
			return Min, nil
		case MarkerEnd:
			return Max, nil
		default:
			return time.Time{}, ErrInvalidArgument
		}
	}

	var layout string
	switch len(s) {
	case 4:
		layout = "2006"
	case 7:
		layout = "2006-01"
	case 10:
		layout = "2006-01-02"
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return t, nil
}

// Format renders a date in the storage layout used throughout the database.
func Format(t time.Time) string {
	return t.Format("2006-01-02")
}

// Year extracts a year from a free-text catalog date, best effort.
// Returns an empty string when no leading year can be parsed.
func Year(s string) string {
	if len(s) < 4 {
		return ""
	}
	if _, err := time.Parse("2006", s[:4]); err != nil {
		return ""
	}
	return s[:4]
}
