package costbasis

import (
	"encoding/json"
	"maps"
	"slices"
)

// Holding is the current position in one instrument, as reported by the
// snapshot source. Its share count is authoritative, independently of what
// the transactions replay to.
type Holding struct {
	Code             string
	Name             string
	Shares           Quantity
	AvgPurchasePrice Money // cost per share as known by the snapshot
	CurrentPrice     Money // zero when unknown
}

// merge combines two holdings of the same instrument, weighting the average
// price by shares.
func (h Holding) merge(o Holding) Holding {
	total := h.Shares.Add(o.Shares)
	if total.IsPositive() {
		cost := h.AvgPurchasePrice.Mul(h.Shares).Add(o.AvgPurchasePrice.Mul(o.Shares))
		h.AvgPurchasePrice = cost.Div(total)
	}
	h.Shares = total
	if o.CurrentPrice.IsPositive() {
		h.CurrentPrice = o.CurrentPrice
	}
	return h
}

// mergeHoldings merges holdings repeated for the same code into the first
// occurrence.
func mergeHoldings(holdings []Holding) []Holding {
	res := make([]Holding, 0, len(holdings))
	index := make(map[string]int, len(holdings))
	for _, h := range holdings {
		if i, exists := index[h.Code]; exists {
			res[i] = res[i].merge(h)
			continue
		}
		index[h.Code] = len(res)
		res = append(res, h)
	}
	return res
}

func (h Holding) in(c string) Holding {
	h.AvgPurchasePrice = h.AvgPurchasePrice.in(c)
	h.CurrentPrice = h.CurrentPrice.in(c)
	return h
}

// PriceSource tells where the price used to value a position comes from.
type PriceSource string

const (
	PriceMarket  PriceSource = "market"  // the caller supplied price map
	PriceHolding PriceSource = "holding" // the holding's own current price
	PriceCost    PriceSource = "cost"    // the holding's average purchase price
)

// PriceMap holds the latest known price per instrument code.
type PriceMap map[string]Money

// resolve returns the price to value h with. A candidate counts only when
// present and positive.
func (p PriceMap) resolve(h Holding) (Money, PriceSource) {
	if m, ok := p[h.Code]; ok && m.IsPositive() {
		return m, PriceMarket
	}
	if h.CurrentPrice.IsPositive() {
		return h.CurrentPrice, PriceHolding
	}
	return h.AvgPurchasePrice, PriceCost
}

// Set records the price for code.
func (p PriceMap) Set(code string, price Money) { p[code] = price }

func (p PriceMap) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	for _, code := range slices.Sorted(maps.Keys(p)) {
		w.Append(code, p[code].Decimal())
	}
	return w.MarshalJSON()
}

// UnmarshalJSON reads an object of code to price. Loose numbers are coerced.
func (p *PriceMap) UnmarshalJSON(data []byte) error {
	var o map[string]Number
	if err := json.Unmarshal(data, &o); err != nil {
		return err
	}
	*p = make(PriceMap, len(o))
	for code, n := range o {
		(*p)[code] = M(n.Decimal(), "")
	}
	return nil
}

// in returns a copy tagged with currency c.
func (p PriceMap) in(c string) PriceMap {
	res := make(PriceMap, len(p))
	for code, m := range p {
		res[code] = m.in(c)
	}
	return res
}
