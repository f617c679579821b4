package costbasis

import (
	"github.com/etnz/costbasis/date"
)

// DefaultCurveDays is the look back window of an equity curve.
const DefaultCurveDays = 180

// MaxCurveDays bounds the look back window, about ten years.
const MaxCurveDays = 3660

// PriceHistory holds the daily closing prices of instruments.
type PriceHistory map[string]*date.History[float64]

// Set records the close of code on day.
func (p PriceHistory) Set(code string, day date.Date, close float64) {
	h, ok := p[code]
	if !ok {
		h = new(date.History[float64])
		p[code] = h
	}
	h.Append(day, close)
}

// CurveInput gathers what an equity curve needs.
type CurveInput struct {
	Transactions []Transaction
	Holdings     []Holding    // current prices are used when the history has none
	History      PriceHistory // optional
	CashBalance  Money        // current cash
	Days         int          // window length, DefaultCurveDays when zero, at most MaxCurveDays
	AsOf         date.Date    // last day, today when zero
	Period       date.Period  // sampling of points, daily by default
}

// CurvePoint is the portfolio state at the end of one day.
type CurvePoint struct {
	Date        date.Date
	Value       Money // cash plus market value
	MarketValue Money
	Cash        Money
	Realized    Money // realized P&L to date
}

// Curve is the daily evolution of the portfolio value.
type Curve struct {
	Currency       string
	Range          date.Range
	Points         []CurvePoint
	InitialCapital Money // cash before the first transaction
	RealizedPnL    Money // as of the last day
	UnrealizedPnL  Money // as of the last day
	MaxDrawdown    Percent
	ROI            OptionalPercent // last value against initial capital
}

// EquityCurve rebuilds the value of the portfolio day after day.
//
// The initial capital is inferred from the current cash by undoing every
// trade. Shares and realized P&L on each day come from replaying the
// transactions up to that day with the same rules as Compute, so dropped
// sales move neither shares nor cash. Prices on each day are the latest close
// known on or before that day, then the holding's current price, then zero.
func (e *Engine) EquityCurve(in CurveInput) *Curve {
	days := in.Days
	if days <= 0 {
		days = DefaultCurveDays
	}
	days = min(days, MaxCurveDays)
	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = date.FromTime(e.now())
	}
	cash := in.CashBalance.in(e.currency)
	sorted := SortChronologically(in.Transactions)
	for i, tx := range sorted {
		sorted[i] = tx.in(e.currency)
	}

	// First pass: net cash moved by the trades that apply.
	flows := newTrackers()
	net := M(0, e.currency)
	for _, tx := range sorted {
		if _, dropped := flows.apply(tx, e.now); dropped {
			continue
		}
		if tx.Kind == Buy {
			net = net.Add(tx.CashAmount())
		} else {
			net = net.Sub(tx.CashAmount())
		}
	}
	initial := cash.Add(net)

	start := asOf.Add(-days)
	if len(sorted) > 0 {
		if first := tradeDay(sorted[0]); first.After(start) {
			start = first
		}
	}
	window := date.Range{From: start, To: asOf}

	current := make(map[string]Money, len(in.Holdings))
	for _, h := range in.Holdings {
		if h.CurrentPrice.IsPositive() {
			current[h.Code] = h.CurrentPrice.in(e.currency)
		}
	}
	price := func(code string, day date.Date) Money {
		if v, ok := in.History[code].ValueAsOf(day); ok {
			return M(v, e.currency)
		}
		if m, ok := current[code]; ok {
			return m
		}
		return M(0, e.currency)
	}

	c := &Curve{Currency: e.currency, Range: window, InitialCapital: initial}

	ts := newTrackers()
	next := 0
	cashOn := initial
	var peak Money
	for day := range window.Ends(in.Period) {
		for ; next < len(sorted) && !tradeDay(sorted[next]).After(day); next++ {
			tx := sorted[next]
			if _, dropped := ts.apply(tx, e.now); dropped {
				continue
			}
			if tx.Kind == Buy {
				cashOn = cashOn.Sub(tx.CashAmount())
			} else {
				cashOn = cashOn.Add(tx.CashAmount())
			}
		}

		marketValue := M(0, e.currency)
		for t := range ts.All() {
			if t.CurrentShares.IsPositive() {
				marketValue = marketValue.Add(price(t.Code, day).Mul(t.CurrentShares))
			}
		}
		p := CurvePoint{
			Date:        day,
			Value:       cashOn.Add(marketValue),
			MarketValue: marketValue,
			Cash:        cashOn,
			Realized:    M(0, e.currency).Add(ts.RealizedPnL()),
		}
		c.Points = append(c.Points, p)

		if len(c.Points) == 1 || p.Value.GreaterThan(peak) {
			peak = p.Value
		}
		if dd := peak.Sub(p.Value).percentOf(peak); dd > c.MaxDrawdown {
			c.MaxDrawdown = dd
		}
	}

	c.RealizedPnL = M(0, e.currency)
	c.UnrealizedPnL = M(0, e.currency)
	c.ROI = NotApplicable
	if len(c.Points) == 0 {
		return c
	}
	last := c.Points[len(c.Points)-1]
	remaining := M(0, e.currency)
	for t := range ts.All() {
		remaining = remaining.Add(t.AvgPurchasePrice.Mul(t.CurrentShares))
	}
	c.RealizedPnL = last.Realized
	c.UnrealizedPnL = last.MarketValue.Sub(remaining)
	if initial.IsPositive() {
		c.ROI = Applicable(last.Value.Sub(initial).percentOf(initial))
	}
	return c
}

// EquityCurve computes an equity curve with the default engine.
func EquityCurve(in CurveInput) *Curve { return std.EquityCurve(in) }

// tradeDay is the day a transaction applies. Undated ones apply before any
// window.
func tradeDay(tx Transaction) date.Date { return date.FromTime(tx.sortKey()) }

func (p CurvePoint) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("date", p.Date)
	w.Append("value", p.Value)
	w.Append("marketValue", p.MarketValue)
	w.Append("cash", p.Cash)
	w.Append("realized", p.Realized)
	return w.MarshalJSON()
}

func (c *Curve) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("currency", c.Currency)
	w.Append("from", c.Range.From)
	w.Append("to", c.Range.To)
	points := c.Points
	if points == nil {
		points = []CurvePoint{}
	}
	w.Append("history", points)
	w.Append("initialCapital", c.InitialCapital)
	w.Append("realizedPnL", c.RealizedPnL)
	w.Append("unrealizedPnL", c.UnrealizedPnL)
	w.Append("maxDrawdown", float64(c.MaxDrawdown))
	w.Append("roi", c.ROI)
	return w.MarshalJSON()
}
