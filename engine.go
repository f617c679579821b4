package costbasis

import (
	"time"

	"github.com/rs/zerolog"
)

// Input gathers everything a computation needs. All of it is fetched by the
// caller: the engine does no I/O.
type Input struct {
	Transactions []Transaction
	Holdings     []Holding // repeated codes are merged, shares add up
	Prices       PriceMap // latest price per code, optional
	CashBalance  Money
	// TotalInvestedFallback is used as invested amount when the holdings
	// carry no cost basis at all.
	TotalInvestedFallback Money
}

// Engine computes portfolio metrics. It holds configuration only, so a
// single Engine can serve concurrent callers.
type Engine struct {
	currency string
	log      zerolog.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCurrency sets the portfolio currency. Every amount in the input is
// read in that currency.
func WithCurrency(cur string) Option {
	return func(e *Engine) { e.currency = cur }
}

// WithLogger sets the logger used to report dropped sales and records.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock sets the clock used to date sales without a readable trade date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// DefaultCurrency is the currency of an engine build without WithCurrency.
const DefaultCurrency = "EUR"

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		currency: DefaultCurrency,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Currency returns the engine's currency.
func (e *Engine) Currency() string { return e.currency }

// Compute runs the pipeline: sort transactions, replay them into trackers,
// value the holdings, reconcile exited positions and aggregate.
//
// It never fails. The same input always yields the same metrics.
func (e *Engine) Compute(in Input) *PortfolioMetrics {
	holdings := make([]Holding, len(in.Holdings))
	for i, h := range in.Holdings {
		holdings[i] = h.in(e.currency)
	}
	holdings = mergeHoldings(holdings)
	cash := in.CashBalance.in(e.currency)
	fallback := in.TotalInvestedFallback.in(e.currency)

	trackers := e.Replay(SortChronologically(in.Transactions))
	rows, seen := value(holdings, in.Prices.in(e.currency), trackers)
	rows = reconcile(rows, seen, trackers)
	m := aggregate(e.currency, cash, fallback, rows, trackers)

	e.log.Debug().
		Int("transactions", len(in.Transactions)).
		Int("holdings", len(in.Holdings)).
		Int("rows", len(m.HoldingsBreakdown)).
		Int("skipped", len(m.SkippedSales)).
		Msg("metrics computed")
	return m
}

var std = New()

// Compute runs the pipeline with the default engine.
func Compute(in Input) *PortfolioMetrics { return std.Compute(in) }

// Replay builds trackers from sorted transactions with the default engine.
func Replay(sorted []Transaction) *Trackers { return std.Replay(sorted) }

// ValidateSales reports dropped sales with the default engine.
func ValidateSales(txs []Transaction) error { return std.ValidateSales(txs) }
