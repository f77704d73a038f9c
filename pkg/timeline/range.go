package timeline

import (
	"math"

	"tableflip.dev/pomo/pkg/milestone"
)

const (
	// PaddingDays is added on both sides of the raw date range.
	PaddingDays = 3
	// MinSpanDays is the narrowest range the axis shows.
	MinSpanDays = 7
	// ProximityThreshold is the distance, in percentage points, under which
	// a marker counts as colliding with a milestone.
	ProximityThreshold = 5.0
)

// Range is the visible span of the axis.
type Range struct {
	Start milestone.Date `json:"start"`
	End   milestone.Date `json:"end"`
}

// NewRange pads the dates (plus today) and widens the result to the minimum
// span.
func NewRange(today milestone.Date, dates ...milestone.Date) Range {
	rawStart := milestone.MinDate(append(dates, today)...)
	rawEnd := milestone.MaxDate(append(dates, today)...)
	r := Range{Start: rawStart.AddDays(-PaddingDays), End: rawEnd.AddDays(PaddingDays)}
	if r.Days() < MinSpanDays {
		r.End = r.Start.AddDays(MinSpanDays)
	}
	return r
}

// Days is the length of the range.
func (r Range) Days() float64 {
	return r.Start.DaysUntil(r.End)
}

// Position maps d onto [0, 100]. Dates outside the range clamp to the ends; an
// empty range puts everything in the middle.
func (r Range) Position(d milestone.Date) float64 {
	span := r.Days()
	if span <= 0 {
		return 50
	}
	p := r.Start.DaysUntil(d) / span * 100
	return math.Max(0, math.Min(100, p))
}

// Ticks returns n dates spread evenly from Start to End, both included, for
// axis labels. Adjacent ticks that round to the same day are collapsed.
func (r Range) Ticks(n int) []milestone.Date {
	if n <= 0 {
		return nil
	}
	if n == 1 || r.Days() <= 0 {
		return []milestone.Date{r.Start}
	}
	step := r.Days() / float64(n-1)
	out := make([]milestone.Date, 0, n)
	for i := 0; i < n; i++ {
		d := r.Start.AddDays(int(math.Round(step * float64(i))))
		if len(out) > 0 && out[len(out)-1].Equal(d) {
			continue
		}
		out = append(out, d)
	}
	return out
}
