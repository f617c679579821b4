package costbasis

// CashCode is the instrument code of the synthetic cash row.
const CashCode = "CASH"

// PortfolioMetrics is the result of a computation. It is always recomputable
// from its inputs and never a source of truth.
type PortfolioMetrics struct {
	Currency string

	TotalValue         Money // cash plus positions
	CashBalance        Money
	InvestedAmount     Money
	PositionsValue     Money
	TotalPnL           Money
	TotalPnLPercentage Percent // total P&L over total cost basis
	RealizedPnL        Money
	UnrealizedPnL      Money
	ROIPercentage      OptionalPercent // not applicable on a zero investment
	TotalCostBasis     Money

	// HoldingsBreakdown lists held positions in snapshot order, then closed
	// positions, then the cash row.
	HoldingsBreakdown []BreakdownRow
	CostBasisTracker  *Trackers
	SkippedSales      []SkippedSale
}

// Positions returns the breakdown rows without the cash row.
func (m *PortfolioMetrics) Positions() []BreakdownRow {
	rows := make([]BreakdownRow, 0, len(m.HoldingsBreakdown))
	for _, r := range m.HoldingsBreakdown {
		if !r.Cash {
			rows = append(rows, r)
		}
	}
	return rows
}

// Row returns the breakdown row of code.
func (m *PortfolioMetrics) Row(code string) (BreakdownRow, bool) {
	for _, r := range m.HoldingsBreakdown {
		if !r.Cash && r.Code == code {
			return r, true
		}
	}
	return BreakdownRow{}, false
}

// cashRow is there for allocation views only and carries no weight in totals.
func cashRow(cash Money) BreakdownRow {
	var zero Money
	zero = zero.in(cash.Currency())
	return BreakdownRow{
		Code:             CashCode,
		Name:             "Cash",
		Shares:           Q(1),
		AvgPurchasePrice: cash,
		CurrentPrice:     cash,
		MarketValue:      cash,
		CostBasis:        cash,
		UnrealizedPnL:    zero,
		RealizedPnL:      zero,
		TotalPnL:         zero,
		Cash:             true,
	}
}

// aggregate computes the portfolio totals over the breakdown rows.
func aggregate(currency string, cash, investedFallback Money, rows []BreakdownRow, ts *Trackers) *PortfolioMetrics {
	zero := M(0, currency)
	marketValue, costBasis, unrealized := zero, zero, zero
	for _, r := range rows {
		if !r.Active() {
			continue
		}
		marketValue = marketValue.Add(r.MarketValue)
		costBasis = costBasis.Add(r.CostBasis)
		unrealized = unrealized.Add(r.UnrealizedPnL)
	}
	realized := zero.Add(ts.RealizedPnL())
	total := realized.Add(unrealized)

	invested := costBasis
	if !invested.IsPositive() {
		invested = investedFallback
	}
	roi := NotApplicable
	if !invested.IsZero() {
		roi = Applicable(total.percentOf(invested))
	}

	return &PortfolioMetrics{
		Currency:           currency,
		TotalValue:         cash.Add(marketValue),
		CashBalance:        cash,
		InvestedAmount:     invested,
		PositionsValue:     marketValue,
		TotalPnL:           total,
		TotalPnLPercentage: total.percentOf(costBasis),
		RealizedPnL:        realized,
		UnrealizedPnL:      unrealized,
		ROIPercentage:      roi,
		TotalCostBasis:     costBasis,
		HoldingsBreakdown:  append(rows, cashRow(cash)),
		CostBasisTracker:   ts,
		SkippedSales:       ts.Skipped(),
	}
}

func (m *PortfolioMetrics) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("currency", m.Currency)
	w.Append("totalValue", m.TotalValue)
	w.Append("cashBalance", m.CashBalance)
	w.Append("investedAmount", m.InvestedAmount)
	w.Append("positionsValue", m.PositionsValue)
	w.Append("totalPnL", m.TotalPnL)
	w.Append("totalPnLPercentage", float64(m.TotalPnLPercentage))
	w.Append("realizedPnL", m.RealizedPnL)
	w.Append("unrealizedPnL", m.UnrealizedPnL)
	w.Append("roiPercentage", m.ROIPercentage)
	w.Append("totalCostBasis", m.TotalCostBasis)
	breakdown := m.HoldingsBreakdown
	if breakdown == nil {
		breakdown = []BreakdownRow{}
	}
	w.Append("holdingsBreakdown", breakdown)
	w.Append("costBasisTracker", m.CostBasisTracker)
	if len(m.SkippedSales) > 0 {
		w.Append("skippedSales", m.SkippedSales)
	}
	return w.MarshalJSON()
}
