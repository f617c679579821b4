package costbasis

import (
	"errors"
	"testing"
	"time"
)

func TestReplay_WeightedAverage(t *testing.T) {
	txs := []Transaction{
		buy(day(time.January, 1), "ABC", 100, 10),
		buy(day(time.January, 2), "ABC", 100, 20),
		sell(day(time.January, 3), "ABC", 50, 18),
		buy(day(time.January, 4), "ABC", 50, 30),
	}

	// step by step, checking the tracker after each transaction.
	steps := []struct {
		avg, realized      Money
		current, everShare Quantity
		everCost           Money
	}{
		{EUR(10), EUR(0), Q(100), Q(100), EUR(1000)},
		{EUR(15), EUR(0), Q(200), Q(200), EUR(3000)},
		{EUR(15), EUR(150), Q(150), Q(200), EUR(3000)},
		{EUR(18), EUR(150), Q(200), Q(250), EUR(4500)},
	}
	for i, want := range steps {
		tr := Replay(txs[:i+1]).Get("ABC")
		if tr == nil {
			t.Fatalf("step %d: no tracker for ABC", i+1)
		}
		if got := tr.AvgPurchasePrice; !got.Equal(want.avg) {
			t.Errorf("step %d: AvgPurchasePrice = %v, want %v", i+1, got, want.avg)
		}
		if got := tr.RealizedPnL; !got.Decimal().Equal(want.realized.Decimal()) {
			t.Errorf("step %d: RealizedPnL = %v, want %v", i+1, got, want.realized)
		}
		if got := tr.CurrentShares; !got.Equal(want.current) {
			t.Errorf("step %d: CurrentShares = %v, want %v", i+1, got, want.current)
		}
		if got := tr.TotalSharesEverBought; !got.Equal(want.everShare) {
			t.Errorf("step %d: TotalSharesEverBought = %v, want %v", i+1, got, want.everShare)
		}
		if got := tr.TotalCostBasisEverBought; !got.Equal(want.everCost) {
			t.Errorf("step %d: TotalCostBasisEverBought = %v, want %v", i+1, got, want.everCost)
		}
	}

	tr := Replay(txs).Get("ABC")
	if len(tr.Sales) != 1 {
		t.Fatalf("len(Sales) = %d, want 1", len(tr.Sales))
	}
	s := tr.Sales[0]
	if !s.AvgCost.Equal(EUR(15)) || !s.RealizedPnL.Equal(EUR(150)) || !s.Shares.Equal(Q(50)) || !s.Price.Equal(EUR(18)) {
		t.Errorf("Sales[0] = %+v, want 50 @ 18 with avg 15 and gain 150", s)
	}
	if !s.Date.Equal(day(time.January, 3)) {
		t.Errorf("Sales[0].Date = %v, want %v", s.Date, day(time.January, 3))
	}
}

func TestReplay_Fees(t *testing.T) {
	txs := []Transaction{
		NewBuy(day(time.March, 1), "ABC", Q(10), EUR(10), EUR(5)),  // cost 105
		NewSell(day(time.March, 2), "ABC", Q(5), EUR(12), EUR(2)), // proceeds 58, cost 52.5
	}
	tr := Replay(txs).Get("ABC")
	if got, want := tr.AvgPurchasePrice, EUR(10.5); !got.Equal(want) {
		t.Errorf("AvgPurchasePrice = %v, want %v", got, want)
	}
	if got, want := tr.RealizedPnL, EUR(5.5); !got.Equal(want) {
		t.Errorf("RealizedPnL = %v, want %v", got, want)
	}
	if got, want := tr.Sales[0].Fees, EUR(2); !got.Equal(want) {
		t.Errorf("Sales[0].Fees = %v, want %v", got, want)
	}
}

// TestReplay_BreakEvenWithUnevenFees sells back at exactly the cost, with a
// fee that leaves a repeating average.
func TestReplay_BreakEvenWithUnevenFees(t *testing.T) {
	txs := []Transaction{
		NewBuy(day(time.March, 1), "ABC", Q(3), EUR(10), EUR(1)),  // cost 31
		NewSell(day(time.March, 2), "ABC", Q(3), EUR(11), EUR(2)), // proceeds 31
	}
	tr := Replay(txs).Get("ABC")
	if got := tr.RealizedPnL; !got.IsZero() {
		t.Errorf("RealizedPnL = %v (%s), want 0", got, got.Decimal())
	}
	if tr.Closed() {
		t.Errorf("Closed() = true for a break even round trip")
	}

	m := Compute(Input{Transactions: txs})
	if got := len(m.Positions()); got != 0 {
		t.Errorf("len(Positions()) = %d, want 0", got)
	}
	if got := m.RealizedPnL; !got.IsZero() {
		t.Errorf("Metrics.RealizedPnL = %v, want 0", got)
	}
}

// TestReplay_PartialSalesAddUp sells a repeating average in thirds: the
// realized total is the same as one sale of every share.
func TestReplay_PartialSalesAddUp(t *testing.T) {
	buys := []Transaction{NewBuy(day(time.March, 1), "ABC", Q(3), EUR(10), EUR(1))}
	whole := Replay(append(buys, NewSell(day(time.March, 2), "ABC", Q(3), EUR(12), EUR(0)))).Get("ABC")
	thirds := Replay(append(buys,
		NewSell(day(time.March, 2), "ABC", Q(1), EUR(12), EUR(0)),
		NewSell(day(time.March, 3), "ABC", Q(1), EUR(12), EUR(0)),
		NewSell(day(time.March, 4), "ABC", Q(1), EUR(12), EUR(0)),
	)).Get("ABC")
	if got, want := whole.RealizedPnL, EUR(5); !got.Equal(want) {
		t.Errorf("one sale: RealizedPnL = %v, want %v", got, want)
	}
	if got, want := thirds.RealizedPnL.String(), whole.RealizedPnL.String(); got != want {
		t.Errorf("three sales: RealizedPnL = %v, want %v", got, want)
	}
	if !thirds.Closed() {
		t.Errorf("Closed() = false after selling every share at a gain")
	}
}

// TestReplay_AverageUnchangedBySale checks that selling never moves the average.
func TestReplay_AverageUnchangedBySale(t *testing.T) {
	for _, shares := range []float64{1, 33.3, 99, 100} {
		txs := []Transaction{
			buy(day(time.May, 1), "ABC", 60, 7),
			buy(day(time.May, 2), "ABC", 40, 12),
			sell(day(time.May, 3), "ABC", shares, 50),
		}
		before := Replay(txs[:2]).Get("ABC").AvgPurchasePrice
		after := Replay(txs).Get("ABC").AvgPurchasePrice
		if !before.Equal(after) {
			t.Errorf("sell %v: AvgPurchasePrice moved from %v to %v", shares, before, after)
		}
	}
}

func TestReplay_DroppedSales(t *testing.T) {
	tests := []struct {
		name   string
		txs    []Transaction
		reason SkipReason
		held   Quantity
	}{
		{
			name:   "no position",
			txs:    []Transaction{sell(day(time.June, 1), "ABC", 10, 5)},
			reason: SkipNoPosition,
			held:   Q(0),
		},
		{
			name:   "zero quantity",
			txs:    []Transaction{buy(day(time.June, 1), "ABC", 10, 5), sell(day(time.June, 2), "ABC", 0, 5)},
			reason: SkipZeroQuantity,
			held:   Q(10),
		},
		{
			name:   "over sell",
			txs:    []Transaction{buy(day(time.June, 1), "ABC", 10, 5), sell(day(time.June, 2), "ABC", 11, 5)},
			reason: SkipOverSell,
			held:   Q(10),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Replay(tt.txs).Get("ABC")
			if len(tr.Skipped) != 1 {
				t.Fatalf("len(Skipped) = %d, want 1", len(tr.Skipped))
			}
			if got := tr.Skipped[0].Reason; got != tt.reason {
				t.Errorf("Reason = %q, want %q", got, tt.reason)
			}
			if got := tr.Skipped[0].Held; !got.Equal(tt.held) {
				t.Errorf("Held = %v, want %v", got, tt.held)
			}
			if tr.CurrentShares.IsNegative() {
				t.Errorf("CurrentShares = %v, must never be negative", tr.CurrentShares)
			}
			if !tr.RealizedPnL.IsZero() || len(tr.Sales) != 0 {
				t.Errorf("dropped sale changed the tracker: %+v", tr)
			}

			err := ValidateSales(tt.txs)
			if !errors.Is(err, ErrInvalidSale) {
				t.Fatalf("ValidateSales() = %v, want ErrInvalidSale", err)
			}
			var se *SaleError
			if !errors.As(err, &se) || se.Reason != tt.reason {
				t.Errorf("ValidateSales() = %v, want a *SaleError with reason %q", err, tt.reason)
			}
		})
	}
}

func TestValidateSales_OK(t *testing.T) {
	txs := []Transaction{
		sell(day(time.June, 2), "ABC", 10, 5), // sorted after the buy
		buy(day(time.June, 1), "ABC", 10, 5),
	}
	if err := ValidateSales(txs); err != nil {
		t.Errorf("ValidateSales() = %v, want nil", err)
	}
}

func TestReplay_UndatedSaleUsesClock(t *testing.T) {
	now := time.Date(2025, time.October, 1, 12, 0, 0, 0, time.UTC)
	e := New(WithClock(func() time.Time { return now }))
	undated := sell(time.Time{}, "ABC", 1, 10)
	undated.DateKnown = false
	txs := []Transaction{buy(time.Time{}, "ABC", 2, 10), undated}
	txs[0].DateKnown = false

	tr := e.Replay(SortChronologically(txs)).Get("ABC")
	if len(tr.Sales) != 1 {
		t.Fatalf("len(Sales) = %d, want 1", len(tr.Sales))
	}
	if got := tr.Sales[0].Date; !got.Equal(now) {
		t.Errorf("Sales[0].Date = %v, want %v", got, now)
	}
}

func TestTrackers_FirstSeenOrder(t *testing.T) {
	ts := Replay([]Transaction{
		buy(day(time.July, 1), "ZZZ", 1, 1),
		buy(day(time.July, 2), "AAA", 1, 1),
		buy(day(time.July, 3), "ZZZ", 1, 1),
		buy(day(time.July, 4), "MMM", 1, 1),
	})
	var got []string
	for tr := range ts.All() {
		got = append(got, tr.Code)
	}
	want := []string{"ZZZ", "AAA", "MMM"}
	if len(got) != len(want) {
		t.Fatalf("All() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("All()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if ts.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ts.Len())
	}
}
