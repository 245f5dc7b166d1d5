// Package datecalc holds the calendar arithmetic shared by the API server and
// the client store, so a value shown before saving matches the persisted one.
package datecalc

import (
	"fmt"
	"math"
	"time"
)

// Layout is the wire format of every date (ISO calendar date, no time).
const Layout = "2006-01-02"

const day = 24 * time.Hour

// Parse parses an ISO calendar date in UTC.
func Parse(s string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Valid reports whether s is a well formed ISO calendar date.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Format renders t as an ISO calendar date.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Today returns the calendar date of now in its own location.
func Today(now time.Time) string {
	return now.Format(Layout)
}

// AddDays shifts an ISO date by the given number of days.
func AddDays(date string, days int) (string, error) {
	t, err := Parse(date)
	if err != nil {
		return "", err
	}
	return Format(t.AddDate(0, 0, days)), nil
}

// DaysBetween returns to - from in whole days.
func DaysBetween(from, to string) (int, error) {
	f, err := Parse(from)
	if err != nil {
		return 0, err
	}
	t, err := Parse(to)
	if err != nil {
		return 0, err
	}
	return int(t.Sub(f) / day), nil
}

// ComputeEndDate returns the inclusive end date of a span: a one day span
// starting on D ends on D. It reports false when start is unparseable or
// duration is not positive.
func ComputeEndDate(start string, duration int) (string, bool) {
	if duration <= 0 {
		return "", false
	}
	end, err := AddDays(start, duration-1)
	if err != nil {
		return "", false
	}
	return end, true
}

// EndDateOf is ComputeEndDate over the nullable column representation.
func EndDateOf(start *string, duration *int) *string {
	if start == nil || duration == nil {
		return nil
	}
	end, ok := ComputeEndDate(*start, *duration)
	if !ok {
		return nil
	}
	return &end
}

// ComputeElapsedProgress is the linear elapsed-time estimate of completion in
// the range 0..100. It is display-only and never replaces a stored progress.
func ComputeElapsedProgress(start string, duration int, today time.Time) int {
	if duration <= 0 {
		return 0
	}
	s, err := Parse(start)
	if err != nil {
		return 0
	}
	t, err := Parse(Today(today))
	if err != nil {
		return 0
	}
	elapsed := int(t.Sub(s) / day)
	switch {
	case elapsed < 0:
		return 0
	case elapsed >= duration:
		return 100
	}
	return int(math.Round(float64(elapsed) / float64(duration) * 100))
}

// FormatForDisplay renders an ISO date as "M/d". Invalid input yields "".
func FormatForDisplay(date string) string {
	t, err := Parse(date)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
}

// FormatLong renders an ISO date as "y/m/d" without zero padding.
func FormatLong(date string) string {
	t, err := Parse(date)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d/%d/%d", t.Year(), int(t.Month()), t.Day())
}
