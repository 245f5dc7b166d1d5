package datecalc

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// For any start date and duration >= 1 the end date is start + (duration - 1) days.
func TestProperty_EndDateIsInclusive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("end = start + duration - 1", prop.ForAll(
		func(offset, duration int) bool {
			start := Format(epoch.AddDate(0, 0, offset))
			end, ok := ComputeEndDate(start, duration)
			if !ok {
				return false
			}
			diff, err := DaysBetween(start, end)
			return err == nil && diff == duration-1
		},
		gen.IntRange(0, 3650),
		gen.IntRange(1, 400),
	))

	properties.TestingRun(t)
}

// Elapsed progress never decreases as today advances and saturates at both ends.
func TestProperty_ElapsedProgressMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("monotonic non-decreasing in today", prop.ForAll(
		func(duration, first, step int) bool {
			start := Format(epoch)
			a := ComputeElapsedProgress(start, duration, epoch.AddDate(0, 0, first))
			b := ComputeElapsedProgress(start, duration, epoch.AddDate(0, 0, first+step))
			return a <= b && a >= 0 && b <= 100
		},
		gen.IntRange(1, 200),
		gen.IntRange(-50, 300),
		gen.IntRange(0, 100),
	))

	properties.Property("0 before start and 100 from start+duration", prop.ForAll(
		func(duration, before, after int) bool {
			start := Format(epoch)
			pre := ComputeElapsedProgress(start, duration, epoch.AddDate(0, 0, -before))
			post := ComputeElapsedProgress(start, duration, epoch.AddDate(0, 0, duration+after))
			return pre == 0 && post == 100
		},
		gen.IntRange(1, 200),
		gen.IntRange(1, 100),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
