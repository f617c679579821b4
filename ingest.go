package costbasis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RawTransaction is a transaction as fetched from the external store, before
// coercion. Field names of both the store ("stock_code", "price_per_share",
// ...) and the engine ("instrumentCode", "pricePerShare", ...) are accepted.
type RawTransaction struct {
	Code   string
	Name   string
	Kind   string
	Shares Number
	Price  Number
	Fees   Number
	Date   string
}

// RawHolding is a holding as fetched from the external store, before coercion.
type RawHolding struct {
	Code             string
	Name             string
	Shares           Number
	AvgPurchasePrice Number
	CurrentPrice     Number
}

var (
	codeKeys   = []string{"instrumentCode", "stock_code", "code", "ticker"}
	nameKeys   = []string{"instrumentName", "stock_name", "name"}
	kindKeys   = []string{"kind", "transaction_type", "type"}
	sharesKeys = []string{"shares", "quantity"}
	priceKeys  = []string{"pricePerShare", "price_per_share", "price"}
	feesKeys   = []string{"fees", "fee"}
	dateKeys   = []string{"tradeDate", "transaction_date", "date"}
	avgKeys    = []string{"avgPurchasePrice", "avg_purchase_price"}
	curKeys    = []string{"currentPrice", "current_price"}
)

// rawObject is a decoded JSON object with alias lookups.
type rawObject map[string]json.RawMessage

// lookup returns the first key present and not null.
func (o rawObject) lookup(keys []string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := o[k]; ok && string(v) != "null" {
			return v, true
		}
	}
	return nil, false
}

// text reads a field as a string. Numbers are kept in their literal form so
// that a numeric instrument code still reads.
func (o rawObject) text(keys []string) string {
	v, ok := o.lookup(keys)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	if len(v) > 0 && v[0] != '{' && v[0] != '[' {
		return string(v)
	}
	return ""
}

func (o rawObject) number(keys []string) Number {
	v, ok := o.lookup(keys)
	if !ok {
		return Number{}
	}
	return Number{value: parseLooseNumber(v)}
}

func (t *RawTransaction) UnmarshalJSON(data []byte) error {
	var o rawObject
	if err := json.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("transaction: %w", err)
	}
	*t = RawTransaction{
		Code:   strings.TrimSpace(o.text(codeKeys)),
		Name:   strings.TrimSpace(o.text(nameKeys)),
		Kind:   o.text(kindKeys),
		Shares: o.number(sharesKeys),
		Price:  o.number(priceKeys),
		Fees:   o.number(feesKeys),
		Date:   o.text(dateKeys),
	}
	return nil
}

func (t RawTransaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("instrumentCode", t.Code)
	w.Optional("instrumentName", t.Name)
	w.Append("kind", t.Kind)
	w.Append("shares", t.Shares)
	w.Append("pricePerShare", t.Price)
	w.Append("fees", t.Fees)
	w.Optional("tradeDate", t.Date)
	return w.MarshalJSON()
}

func (h *RawHolding) UnmarshalJSON(data []byte) error {
	var o rawObject
	if err := json.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("holding: %w", err)
	}
	*h = RawHolding{
		Code:             strings.TrimSpace(o.text(codeKeys)),
		Name:             strings.TrimSpace(o.text(nameKeys)),
		Shares:           o.number(sharesKeys),
		AvgPurchasePrice: o.number(avgKeys),
		CurrentPrice:     o.number(curKeys),
	}
	return nil
}

func (h RawHolding) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("instrumentCode", h.Code)
	w.Optional("instrumentName", h.Name)
	w.Append("shares", h.Shares)
	w.Append("avgPurchasePrice", h.AvgPurchasePrice)
	w.Append("currentPrice", h.CurrentPrice)
	return w.MarshalJSON()
}

// tradeDateLayouts are tried in order.
var tradeDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-1-2",
}

// parseTradeDate parses a trade date leniently. ok is false when the date is
// missing or cannot be read.
func parseTradeDate(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range tradeDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeTransactions coerces raw records into transactions.
//
// Shares, prices and fees that are missing, unreadable or negative become
// zero. Records with an unknown kind are dropped. The name defaults to the
// code.
func (e *Engine) NormalizeTransactions(raws []RawTransaction) []Transaction {
	txs := make([]Transaction, 0, len(raws))
	for i, r := range raws {
		kind, err := ParseKind(r.Kind)
		if err != nil {
			e.log.Debug().Int("index", i).Str("code", r.Code).Str("kind", r.Kind).Msg("dropping transaction with unknown kind")
			continue
		}
		on, known := parseTradeDate(r.Date)
		if !known {
			e.log.Debug().Int("index", i).Str("code", r.Code).Str("date", r.Date).Msg("transaction without a readable date sorts first")
		}
		name := r.Name
		if name == "" {
			name = r.Code
		}
		txs = append(txs, Transaction{
			Code:      r.Code,
			Name:      name,
			Kind:      kind,
			Shares:    Q(nonNegative(r.Shares.Decimal())),
			Price:     M(nonNegative(r.Price.Decimal()), e.currency),
			Fees:      M(nonNegative(r.Fees.Decimal()), e.currency),
			TradeDate: on,
			DateKnown: known,
		})
	}
	return txs
}

// NormalizeHoldings coerces raw holdings. Holdings repeated for the same code
// are merged: shares add up and the average price is weighted by shares.
// The first occurrence fixes the position in the output.
func (e *Engine) NormalizeHoldings(raws []RawHolding) []Holding {
	holdings := make([]Holding, 0, len(raws))
	index := make(map[string]int)
	for _, r := range raws {
		name := r.Name
		if name == "" {
			name = r.Code
		}
		h := Holding{
			Code:             r.Code,
			Name:             name,
			Shares:           Q(nonNegative(r.Shares.Decimal())),
			AvgPurchasePrice: M(nonNegative(r.AvgPurchasePrice.Decimal()), e.currency),
			CurrentPrice:     M(nonNegative(r.CurrentPrice.Decimal()), e.currency),
		}
		if i, exists := index[h.Code]; exists {
			e.log.Debug().Str("code", h.Code).Msg("merging duplicate holding")
			holdings[i] = holdings[i].merge(h)
			continue
		}
		index[h.Code] = len(holdings)
		holdings = append(holdings, h)
	}
	return holdings
}

// RawInput is a full computation request as received over the wire.
type RawInput struct {
	Transactions          []RawTransaction `json:"transactions"`
	Holdings              []RawHolding     `json:"holdings"`
	Prices                PriceMap         `json:"currentPrices"`
	CashBalance           Number           `json:"cashBalance"`
	TotalInvestedFallback Number           `json:"totalInvestedFallback"`
}

// NormalizeInput coerces a raw request into an Input.
func (e *Engine) NormalizeInput(raw RawInput) Input {
	return Input{
		Transactions:          e.NormalizeTransactions(raw.Transactions),
		Holdings:              e.NormalizeHoldings(raw.Holdings),
		Prices:                raw.Prices.in(e.currency),
		CashBalance:           M(raw.CashBalance.Decimal(), e.currency),
		TotalInvestedFallback: M(nonNegative(raw.TotalInvestedFallback.Decimal()), e.currency),
	}
}
