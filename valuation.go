package costbasis

// BreakdownRow is one line of the holdings breakdown.
type BreakdownRow struct {
	Code             string
	Name             string
	Shares           Quantity
	AvgPurchasePrice Money
	CurrentPrice     Money
	PriceSource      PriceSource // empty for closed and cash rows

	MarketValue          Money
	CostBasis            Money
	UnrealizedPnL        Money
	UnrealizedPnLPercent Percent
	RealizedPnL          Money
	TotalPnL             Money

	Closed bool // a position fully exited, carrying only its realized result
	Cash   bool // the synthetic cash row
}

// Active reports whether the row is a position currently held.
func (r BreakdownRow) Active() bool { return !r.Cash && r.Shares.IsPositive() }

func (r BreakdownRow) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("instrumentCode", r.Code)
	w.Append("instrumentName", r.Name)
	w.Append("shares", r.Shares)
	w.Append("avgPurchasePrice", r.AvgPurchasePrice.exact())
	w.Append("currentPrice", r.CurrentPrice.exact())
	w.Optional("priceSource", string(r.PriceSource))
	w.Append("marketValue", r.MarketValue)
	w.Append("costBasis", r.CostBasis)
	w.Append("unrealizedPnL", r.UnrealizedPnL)
	w.Append("unrealizedPnLPercent", float64(r.UnrealizedPnLPercent))
	w.Append("realizedPnL", r.RealizedPnL)
	w.Append("totalPnL", r.TotalPnL)
	w.Optional("closed", r.Closed)
	w.Optional("cash", r.Cash)
	return w.MarshalJSON()
}

// closedRow returns the row of a position that has no shares left.
func closedRow(code, name string, realized Money) BreakdownRow {
	var zero Money
	zero = zero.in(realized.Currency())
	return BreakdownRow{
		Code:             code,
		Name:             name,
		AvgPurchasePrice: zero,
		CurrentPrice:     zero,
		MarketValue:      zero,
		CostBasis:        zero,
		UnrealizedPnL:    zero,
		RealizedPnL:      realized,
		TotalPnL:         realized,
		Closed:           true,
	}
}

// value runs the valuation pass over the holdings snapshot, in snapshot
// order. It returns the rows and the set of codes emitted.
func value(holdings []Holding, prices PriceMap, ts *Trackers) ([]BreakdownRow, map[string]bool) {
	rows := make([]BreakdownRow, 0, len(holdings)+ts.Len()+1)
	seen := make(map[string]bool, len(holdings))
	for _, h := range holdings {
		if seen[h.Code] {
			continue
		}
		var realized Money
		realized = realized.in(h.AvgPurchasePrice.Currency())
		if t := ts.Get(h.Code); t != nil {
			realized = t.RealizedPnL
		}

		if !h.Shares.IsPositive() {
			if !realized.roundsToZero() {
				rows = append(rows, closedRow(h.Code, h.Name, realized))
				seen[h.Code] = true
			}
			continue
		}

		price, source := prices.resolve(h)
		marketValue := price.Mul(h.Shares)
		costBasis := h.AvgPurchasePrice.Mul(h.Shares)
		unrealized := marketValue.Sub(costBasis)
		rows = append(rows, BreakdownRow{
			Code:                 h.Code,
			Name:                 h.Name,
			Shares:               h.Shares,
			AvgPurchasePrice:     h.AvgPurchasePrice,
			CurrentPrice:         price,
			PriceSource:          source,
			MarketValue:          marketValue,
			CostBasis:            costBasis,
			UnrealizedPnL:        unrealized,
			UnrealizedPnLPercent: unrealized.percentOf(costBasis),
			RealizedPnL:          realized,
			TotalPnL:             unrealized.Add(realized),
		})
		seen[h.Code] = true
	}
	return rows, seen
}

// reconcile appends a closed row for every fully exited instrument the
// snapshot did not report. Instruments in seen are never emitted twice.
func reconcile(rows []BreakdownRow, seen map[string]bool, ts *Trackers) []BreakdownRow {
	for t := range ts.All() {
		if seen[t.Code] || !t.Closed() {
			continue
		}
		rows = append(rows, closedRow(t.Code, t.Name, t.RealizedPnL))
		seen[t.Code] = true
	}
	return rows
}
