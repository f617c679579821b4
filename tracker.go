package costbasis

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"
)

// Tracker accumulates the weighted-average cost basis of one instrument while
// transactions are replayed.
//
// The average purchase price is the lifetime average of everything ever
// bought. Sales never move it, only buys do.
type Tracker struct {
	Code string
	Name string

	TotalSharesEverBought    Quantity // never decremented
	TotalCostBasisEverBought Money    // sum of shares*price+fees over buys, never decremented
	CurrentShares            Quantity
	AvgPurchasePrice         Money
	RealizedPnL              Money

	Sales   []SaleRecord  // in replay order
	Skipped []SkippedSale // sales that could not be applied
}

// SaleRecord is the audit line of one applied sale.
type SaleRecord struct {
	Date        time.Time
	Shares      Quantity
	Price       Money
	AvgCost     Money // average purchase price at the time of the sale
	RealizedPnL Money
	Fees        Money
}

// SkipReason tells why a sale was not applied.
type SkipReason string

const (
	SkipNoPosition   SkipReason = "no-position"
	SkipZeroQuantity SkipReason = "zero-quantity"
	SkipOverSell     SkipReason = "insufficient-position"
)

// SkippedSale is a sale dropped during replay. It has no effect on any total.
type SkippedSale struct {
	Transaction Transaction
	Held        Quantity // shares held when the sale was attempted
	Reason      SkipReason
}

// ErrInvalidSale is the sentinel wrapped by every SaleError.
var ErrInvalidSale = errors.New("invalid sale")

// SaleError reports a sale that replay had to drop.
type SaleError struct {
	SkippedSale
}

func (e *SaleError) Error() string {
	tx := e.Transaction
	on := "unknown date"
	if tx.DateKnown {
		on = tx.TradeDate.Format(time.DateOnly)
	}
	return fmt.Sprintf("sell %s %s on %s: %s (held %s)", tx.Shares, tx.Code, on, e.Reason, e.Held)
}

func (e *SaleError) Unwrap() error { return ErrInvalidSale }

func newTracker(code, name string) *Tracker {
	return &Tracker{Code: code, Name: name}
}

// buy applies a purchase.
func (t *Tracker) buy(tx Transaction) {
	t.TotalSharesEverBought = t.TotalSharesEverBought.Add(tx.Shares)
	t.TotalCostBasisEverBought = t.TotalCostBasisEverBought.Add(tx.Gross().Add(tx.Fees))
	t.CurrentShares = t.CurrentShares.Add(tx.Shares)
	if t.CurrentShares.IsPositive() {
		t.AvgPurchasePrice = t.TotalCostBasisEverBought.Div(t.TotalSharesEverBought)
	}
}

// sell applies a sale, or returns false and the reason it was dropped. A
// sale larger than the current position is dropped as a whole.
func (t *Tracker) sell(tx Transaction, on time.Time) (SkipReason, bool) {
	switch {
	case !t.CurrentShares.IsPositive():
		return SkipNoPosition, false
	case !tx.Shares.IsPositive():
		return SkipZeroQuantity, false
	case tx.Shares.GreaterThan(t.CurrentShares):
		return SkipOverSell, false
	}
	// multiply first, the average itself is a rounded quotient.
	cost := t.TotalCostBasisEverBought.Mul(tx.Shares).Div(t.TotalSharesEverBought)
	proceeds := tx.Gross().Sub(tx.Fees)
	gain := proceeds.Sub(cost)

	t.RealizedPnL = t.RealizedPnL.Add(gain)
	t.CurrentShares = t.CurrentShares.Sub(tx.Shares)
	t.Sales = append(t.Sales, SaleRecord{
		Date:        on,
		Shares:      tx.Shares,
		Price:       tx.Price,
		AvgCost:     t.AvgPurchasePrice,
		RealizedPnL: gain,
		Fees:        tx.Fees,
	})
	return "", true
}

// Closed reports whether the tracker has no position left but a realized
// result to report, at least one minor unit of the currency.
func (t *Tracker) Closed() bool {
	return t.CurrentShares.IsZero() && !t.RealizedPnL.roundsToZero()
}

func (t *Tracker) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("instrumentCode", t.Code)
	w.Optional("instrumentName", t.Name)
	w.Append("totalSharesEverBought", t.TotalSharesEverBought)
	w.Append("totalCostBasisEverBought", t.TotalCostBasisEverBought)
	w.Append("currentShares", t.CurrentShares)
	w.Append("avgPurchasePrice", t.AvgPurchasePrice.exact())
	w.Append("realizedPnL", t.RealizedPnL)
	sales := t.Sales
	if sales == nil {
		sales = []SaleRecord{}
	}
	w.Append("sellLog", sales)
	return w.MarshalJSON()
}

func (s SaleRecord) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("date", s.Date.Format(time.RFC3339))
	w.Append("shares", s.Shares)
	w.Append("price", s.Price.exact())
	w.Append("avgCost", s.AvgCost.exact())
	w.Append("realizedPnL", s.RealizedPnL)
	w.Append("fees", s.Fees)
	return w.MarshalJSON()
}

func (s SkippedSale) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("transaction", s.Transaction)
	w.Append("held", s.Held)
	w.Append("reason", string(s.Reason))
	return w.MarshalJSON()
}

// Trackers holds one Tracker per instrument, in the order instruments were
// first met during replay.
type Trackers struct {
	byCode map[string]*Tracker
	order  []string
}

func newTrackers() *Trackers {
	return &Trackers{byCode: make(map[string]*Tracker)}
}

// Get returns the tracker for code, or nil.
func (ts *Trackers) Get(code string) *Tracker {
	if ts == nil {
		return nil
	}
	return ts.byCode[code]
}

// Len returns the number of instruments tracked.
func (ts *Trackers) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.order)
}

// All iterates over trackers in first-seen order.
func (ts *Trackers) All() iter.Seq[*Tracker] {
	return func(yield func(*Tracker) bool) {
		if ts == nil {
			return
		}
		for _, code := range ts.order {
			if !yield(ts.byCode[code]) {
				return
			}
		}
	}
}

// RealizedPnL sums realized results over every tracker, closed ones included.
func (ts *Trackers) RealizedPnL() Money {
	var total Money
	for t := range ts.All() {
		total = total.Add(t.RealizedPnL)
	}
	return total
}

// Skipped lists the dropped sales of every tracker.
func (ts *Trackers) Skipped() []SkippedSale {
	var skipped []SkippedSale
	for t := range ts.All() {
		skipped = append(skipped, t.Skipped...)
	}
	return skipped
}

// MarshalJSON writes the trackers as an array in first-seen order.
func (ts *Trackers) MarshalJSON() ([]byte, error) {
	list := make([]*Tracker, 0, ts.Len())
	for t := range ts.All() {
		list = append(list, t)
	}
	return json.Marshal(list)
}

func (ts *Trackers) get(tx Transaction) *Tracker {
	t, ok := ts.byCode[tx.Code]
	if !ok {
		t = newTracker(tx.Code, tx.Name)
		ts.byCode[tx.Code] = t
		ts.order = append(ts.order, tx.Code)
	}
	return t
}

// apply replays one transaction. It returns the dropped sale, if any.
func (ts *Trackers) apply(tx Transaction, now func() time.Time) (SkippedSale, bool) {
	t := ts.get(tx)
	if tx.Kind == Buy {
		t.buy(tx)
		return SkippedSale{}, false
	}
	on := tx.TradeDate
	if !tx.DateKnown {
		on = now()
	}
	held := t.CurrentShares
	reason, ok := t.sell(tx, on)
	if ok {
		return SkippedSale{}, false
	}
	skipped := SkippedSale{Transaction: tx, Held: held, Reason: reason}
	t.Skipped = append(t.Skipped, skipped)
	return skipped, true
}

// Replay builds fresh trackers from chronologically sorted transactions.
// Sales that cannot be applied are dropped and logged at warn level.
func (e *Engine) Replay(sorted []Transaction) *Trackers {
	ts := newTrackers()
	for _, tx := range sorted {
		if s, dropped := ts.apply(tx.in(e.currency), e.now); dropped {
			e.log.Warn().
				Str("code", tx.Code).
				Str("shares", tx.Shares.String()).
				Str("held", s.Held.String()).
				Str("reason", string(s.Reason)).
				Msg("sale dropped")
		}
	}
	return ts
}

// ValidateSales replays txs in chronological order and reports every sale
// that would be dropped, as *SaleError values joined together. It returns
// nil when all sales apply.
func (e *Engine) ValidateSales(txs []Transaction) error {
	ts := newTrackers()
	var errs []error
	for _, tx := range SortChronologically(txs) {
		if s, dropped := ts.apply(tx.in(e.currency), e.now); dropped {
			errs = append(errs, &SaleError{SkippedSale: s})
		}
	}
	return errors.Join(errs...)
}
