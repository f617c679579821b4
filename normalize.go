package costbasis

import "sort"

// SortChronologically returns a copy of txs sorted by trade date.
//
// The sort is stable: transactions on the same instant keep their input
// order, which decides how realized gains are attributed. Transactions
// without a known date sort first.
func SortChronologically(txs []Transaction) []Transaction {
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].sortKey().Before(sorted[j].sortKey())
	})
	return sorted
}
