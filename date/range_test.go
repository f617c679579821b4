package date

import (
	"slices"
	"testing"
	"time"
)

func TestNewWeeklyRange(t *testing.T) {
	got := NewRange(New(2025, time.September, 10), Weekly)
	want := Range{From: New(2025, time.September, 8), To: New(2025, time.September, 14)}
	if got != want {
		t.Errorf("NewRange(Weekly) = %v, want %v", got, want)
	}
	if !got.Contains(New(2025, time.September, 14)) {
		t.Errorf("%v.Contains(last day) = false", got)
	}
	if got.Contains(New(2025, time.September, 15)) {
		t.Errorf("%v.Contains(next monday) = true", got)
	}
}

func TestRangeDays(t *testing.T) {
	r := Range{From: New(2025, time.January, 30), To: New(2025, time.February, 2)}
	got := slices.Collect(r.Days())
	want := []Date{New(2025, 1, 30), New(2025, 1, 31), New(2025, 2, 1), New(2025, 2, 2)}
	if !slices.Equal(got, want) {
		t.Errorf("Days() = %v, want %v", got, want)
	}
	if r.Len() != 4 {
		t.Errorf("Len() = %d, want 4", r.Len())
	}
	if empty := (Range{From: r.To, To: r.From}); empty.Len() != 0 {
		t.Errorf("inverted Len() = %d, want 0", empty.Len())
	}
}

func TestRangeEnds(t *testing.T) {
	r := Range{From: New(2025, time.January, 15), To: New(2025, time.March, 10)}
	got := slices.Collect(r.Ends(Monthly))
	want := []Date{New(2025, 1, 31), New(2025, 2, 28), New(2025, 3, 10)}
	if !slices.Equal(got, want) {
		t.Errorf("Ends(Monthly) = %v, want %v", got, want)
	}
}
