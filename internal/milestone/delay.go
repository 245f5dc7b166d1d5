// Package milestone derives schedule slip for milestone rows from a planned
// date and a user-entered estimate.
package milestone

import (
	"fmt"

	"progman-api/internal/datecalc"
)

// Status classifies a delay.
type Status string

const (
	StatusAhead  Status = "ahead"
	StatusBehind Status = "behind"
	StatusOnTime Status = "on_time"
)

// ComputeDelay returns the signed slip of estimate against planned in days.
// Positive means behind schedule and counts the estimate day itself, so an
// estimate four days after plan is five days late. Negative means ahead and
// is the plain calendar difference. It reports false when either date is
// missing or unparseable.
func ComputeDelay(planned, estimate string) (int, bool) {
	if planned == "" || estimate == "" {
		return 0, false
	}
	d, err := datecalc.DaysBetween(planned, estimate)
	if err != nil {
		return 0, false
	}
	if d > 0 {
		d++
	}
	return d, true
}

// ComputeDelayPtr is ComputeDelay over nullable columns.
func ComputeDelayPtr(planned, estimate *string) *int {
	if planned == nil || estimate == nil {
		return nil
	}
	d, ok := ComputeDelay(*planned, *estimate)
	if !ok {
		return nil
	}
	return &d
}

// Classify maps a delay to its status.
func Classify(delay int) Status {
	switch {
	case delay > 0:
		return StatusBehind
	case delay < 0:
		return StatusAhead
	default:
		return StatusOnTime
	}
}

// Label is the display text for a delay. An exact match has no label and is
// rendered with neutral styling only.
func Label(delay int) string {
	switch {
	case delay == 0:
		return ""
	case delay == -1:
		return "1 day early"
	case delay > 0:
		return fmt.Sprintf("%d days late", delay)
	default:
		return fmt.Sprintf("%d days early", -delay)
	}
}
