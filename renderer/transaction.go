package renderer

import (
	"fmt"
	"time"

	"github.com/etnz/costbasis"
)

// Transaction renders a transaction to a string.
func Transaction(tx costbasis.Transaction) string {
	on := "undated"
	if tx.DateKnown {
		on = tx.TradeDate.Format(time.DateOnly)
	}
	verb := "Bought"
	if tx.Kind == costbasis.Sell {
		verb = "Sold"
	}
	s := fmt.Sprintf("%s: %s %s of %s at %s", on, verb, tx.Shares, tx.Code, tx.Price)
	if !tx.Fees.IsZero() {
		s += fmt.Sprintf(" (fees %s)", tx.Fees)
	}
	return s
}

// SkippedSale renders a dropped sale and why it was dropped.
func SkippedSale(s costbasis.SkippedSale) string {
	switch s.Reason {
	case costbasis.SkipNoPosition:
		return Transaction(s.Transaction) + ": no position held"
	case costbasis.SkipZeroQuantity:
		return Transaction(s.Transaction) + ": nothing to sell"
	case costbasis.SkipOverSell:
		return fmt.Sprintf("%s: only %s held", Transaction(s.Transaction), s.Held)
	default:
		return Transaction(s.Transaction) + ": " + string(s.Reason)
	}
}
