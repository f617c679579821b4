// Package costbasis turns a chronological list of buy and sell transactions
// plus a snapshot of current holdings into realized and unrealized profit and
// loss, per-instrument cost-basis breakdowns and portfolio level valuation.
//
// The engine implements a single accounting convention, the weighted-average
// cost: the cost basis per share of a position is the lifetime average cost of
// everything ever bought, and selling does not move that average. Only a new
// buy can.
//
// The pipeline is a derivation function, it never persists nor mutates its
// inputs:
//   - Ingestion: raw records are coerced once (missing or garbage numbers
//     become zero, unparseable dates sort first).
//   - Chronological normalization: a stable sort by trade date.
//   - Cost-basis tracking: per-instrument replay of the sorted transactions.
//   - Unrealized valuation: the holdings snapshot marked to market.
//   - Reconciliation: fully exited positions absent from the snapshot.
//   - Aggregation: totals, invested amount and ROI.
//
// On top of it, [Engine.EquityCurve] rebuilds a daily history of the portfolio
// value from the same transactions and a price history.
package costbasis
