package costbasis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind is the side of a trade.
type Kind int

const (
	// Buy increases a position.
	Buy Kind = iota
	// Sell decreases a position.
	Sell
)

func (k Kind) String() string {
	switch k {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ParseKind parses a trade side, case insensitive.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "B":
		return Buy, nil
	case "SELL", "S":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown transaction kind: %q", s)
	}
}

func (k Kind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// Transaction is one executed trade, already coerced.
//
// Transactions are values: the engine never writes back to them.
type Transaction struct {
	Code      string   // Code identifies the instrument.
	Name      string   // Name of the instrument, defaults to Code.
	Kind      Kind     // Kind is either Buy or Sell.
	Shares    Quantity // Shares traded, never negative.
	Price     Money    // Price per share, never negative.
	Fees      Money    // Fees paid for the trade, never negative.
	TradeDate time.Time
	DateKnown bool // false when the trade date was missing or unparseable.
}

// NewBuy creates a buy transaction.
func NewBuy(on time.Time, code string, shares Quantity, price, fees Money) Transaction {
	return Transaction{Code: code, Name: code, Kind: Buy, Shares: shares, Price: price, Fees: fees, TradeDate: on, DateKnown: true}
}

// NewSell creates a sell transaction.
func NewSell(on time.Time, code string, shares Quantity, price, fees Money) Transaction {
	return Transaction{Code: code, Name: code, Kind: Sell, Shares: shares, Price: price, Fees: fees, TradeDate: on, DateKnown: true}
}

// Gross returns shares*price.
func (t Transaction) Gross() Money { return t.Price.Mul(t.Shares) }

// CashAmount returns the cash moved by the trade: the cost including fees
// for a buy, the proceeds net of fees for a sell.
func (t Transaction) CashAmount() Money {
	if t.Kind == Sell {
		return t.Gross().Sub(t.Fees)
	}
	return t.Gross().Add(t.Fees)
}

// sortKey is the trade date, or the zero time when unknown so that such
// transactions sort first.
func (t Transaction) sortKey() time.Time {
	if !t.DateKnown {
		return time.Time{}
	}
	return t.TradeDate
}

// in returns a copy with all amounts tagged with currency c.
func (t Transaction) in(c string) Transaction {
	t.Price = t.Price.in(c)
	t.Fees = t.Fees.in(c)
	return t
}

// MarshalJSON writes the transaction in the form DecodeTransactions reads.
func (t Transaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("instrumentCode", t.Code)
	w.Optional("instrumentName", t.Name)
	w.Append("kind", t.Kind)
	w.Append("shares", t.Shares)
	w.Append("pricePerShare", t.Price.Decimal())
	w.Append("fees", t.Fees.Decimal())
	w.Optional("currency", t.Price.Currency())
	if t.DateKnown {
		w.Append("tradeDate", t.TradeDate.Format(time.RFC3339))
	}
	return w.MarshalJSON()
}
