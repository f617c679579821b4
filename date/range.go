package date

import (
	"fmt"
	"iter"
)

// Range represents a range of dates, boundaries included.
type Range struct{ From, To Date }

// NewRange returns the period containing d.
func NewRange(d Date, period Period) Range {
	return Range{From: d.StartOf(period), To: d.EndOf(period)}
}

// Contains return true when date is in the range.
func (r Range) Contains(date Date) bool { return !date.Before(r.From) && !date.After(r.To) }

// Len returns the number of days in the range.
func (r Range) Len() int {
	if r.To.Before(r.From) {
		return 0
	}
	return r.To.Sub(r.From) + 1
}

// Days iterates over every day of the range.
func (r Range) Days() iter.Seq[Date] {
	return func(yield func(Date) bool) {
		for d := r.From; !d.After(r.To); d = d.Add(1) {
			if !yield(d) {
				return
			}
		}
	}
}

// Ends iterates over the last day of every period overlapping the range. The
// last one is clipped to r.To.
func (r Range) Ends(p Period) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		for d := r.From; !d.After(r.To); d = d.EndOf(p).Add(1) {
			end := d.EndOf(p)
			if end.After(r.To) {
				end = r.To
			}
			if !yield(end) {
				return
			}
		}
	}
}

func (r Range) String() string { return fmt.Sprintf("%s..%s", r.From, r.To) }
