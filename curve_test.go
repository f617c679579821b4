package costbasis

import (
	"testing"
	"time"

	"github.com/etnz/costbasis/date"
)

func TestEquityCurve(t *testing.T) {
	history := make(PriceHistory)
	history.Set("ABC", date.New(2025, time.January, 1), 10)
	history.Set("ABC", date.New(2025, time.January, 3), 12)
	history.Set("ABC", date.New(2025, time.January, 4), 8)

	in := CurveInput{
		Transactions: []Transaction{
			buy(day(time.January, 1), "ABC", 10, 10), // 100 out
			sell(day(time.January, 4), "ABC", 5, 8),  // 40 in, realized -10
			sell(day(time.January, 4), "ABC", 50, 8), // dropped
		},
		History:     history,
		CashBalance: EUR(940),
		AsOf:        date.New(2025, time.January, 5),
		Days:        30,
	}
	c := EquityCurve(in)

	if got, want := c.InitialCapital, EUR(1000); !got.Equal(want) {
		t.Errorf("InitialCapital = %v, want %v", got, want)
	}
	if got, want := c.Range, (date.Range{From: date.New(2025, time.January, 1), To: date.New(2025, time.January, 5)}); got != want {
		t.Errorf("Range = %v, want %v", got, want)
	}

	want := []struct {
		value, market, cash, realized float64
	}{
		{1000, 100, 900, 0},  // jan 1
		{1000, 100, 900, 0},  // jan 2, backfilled price
		{1020, 120, 900, 0},  // jan 3
		{980, 40, 940, -10},  // jan 4
		{980, 40, 940, -10},  // jan 5
	}
	if len(c.Points) != len(want) {
		t.Fatalf("len(Points) = %d, want %d", len(c.Points), len(want))
	}
	for i, w := range want {
		p := c.Points[i]
		if !p.Value.Equal(EUR(w.value)) || !p.MarketValue.Equal(EUR(w.market)) || !p.Cash.Equal(EUR(w.cash)) || !p.Realized.Equal(EUR(w.realized)) {
			t.Errorf("Points[%d] on %v = %v/%v/%v/%v, want %v", i, p.Date, p.Value, p.MarketValue, p.Cash, p.Realized, w)
		}
	}

	if got, want := c.MaxDrawdown, Percent(40.0/1020*100); !got.Equal(want) {
		t.Errorf("MaxDrawdown = %v, want %v", got, want)
	}
	if got, want := c.RealizedPnL, EUR(-10); !got.Equal(want) {
		t.Errorf("RealizedPnL = %v, want %v", got, want)
	}
	// 5 shares left at an average of 10, worth 8.
	if got, want := c.UnrealizedPnL, EUR(-10); !got.Equal(want) {
		t.Errorf("UnrealizedPnL = %v, want %v", got, want)
	}
	if !c.ROI.Valid || !c.ROI.Equal(-2) {
		t.Errorf("ROI = %v, want -2%%", c.ROI)
	}
}

func TestEquityCurve_Window(t *testing.T) {
	in := CurveInput{
		Transactions: []Transaction{buy(day(time.January, 1), "ABC", 1, 10)},
		Holdings:     []Holding{{Code: "ABC", Shares: Q(1), CurrentPrice: EUR(11)}},
		CashBalance:  EUR(0),
		AsOf:         date.New(2025, time.March, 1),
		Days:         10,
	}
	c := EquityCurve(in)
	if got, want := c.Range.From, date.New(2025, time.February, 19); got != want {
		t.Errorf("Range.From = %v, want %v", got, want)
	}
	if len(c.Points) != 11 {
		t.Fatalf("len(Points) = %d, want 11", len(c.Points))
	}
	// no history: the holding's current price is used.
	if got := c.Points[0].MarketValue; !got.Equal(EUR(11)) {
		t.Errorf("MarketValue = %v, want 11", got)
	}
}

func TestEquityCurve_Empty(t *testing.T) {
	e := New(WithClock(func() time.Time { return day(time.June, 30) }))
	c := e.EquityCurve(CurveInput{CashBalance: EUR(0)})
	if got, want := c.Range.To, date.New(2025, time.June, 30); got != want {
		t.Errorf("Range.To = %v, want %v", got, want)
	}
	if got := len(c.Points); got != DefaultCurveDays+1 {
		t.Errorf("len(Points) = %d, want %d", got, DefaultCurveDays+1)
	}
	if c.ROI.Valid {
		t.Errorf("ROI = %v, want not applicable without capital", c.ROI)
	}
}

func TestEquityCurve_Weekly(t *testing.T) {
	in := CurveInput{
		CashBalance: EUR(10),
		AsOf:        date.New(2025, time.September, 17), // a wednesday
		Days:        14,
		Period:      date.Weekly,
	}
	c := EquityCurve(in)
	var got []date.Date
	for _, p := range c.Points {
		got = append(got, p.Date)
	}
	want := []date.Date{date.New(2025, time.September, 7), date.New(2025, time.September, 14), date.New(2025, time.September, 17)}
	if len(got) != len(want) {
		t.Fatalf("dates = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dates[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEquityCurve_MaxDays(t *testing.T) {
	in := CurveInput{
		CashBalance: EUR(0),
		AsOf:        date.New(2025, time.June, 30),
		Days:        100_000_000,
	}
	c := EquityCurve(in)
	if got, want := c.Range.From, date.New(2025, time.June, 30).Add(-MaxCurveDays); got != want {
		t.Errorf("Range.From = %v, want %v", got, want)
	}
	if got, want := len(c.Points), MaxCurveDays+1; got != want {
		t.Errorf("len(Points) = %d, want %d", got, want)
	}
}
