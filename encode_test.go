package costbasis

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/etnz/costbasis/date"
)

func TestDecodeTransactions(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"jsonl", `{"stock_code":"ABC","transaction_type":"BUY","shares":10,"price_per_share":10,"transaction_date":"2025-01-01"}

{"stock_code":"ABC","transaction_type":"SELL","shares":5,"price_per_share":12,"transaction_date":"2025-01-02"}
`},
		{"array", `[
  {"stock_code":"ABC","transaction_type":"BUY","shares":10,"price_per_share":10,"transaction_date":"2025-01-01"},
  {"stock_code":"ABC","transaction_type":"SELL","shares":5,"price_per_share":12,"transaction_date":"2025-01-02"}
]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raws, err := DecodeTransactions(strings.NewReader(tt.in))
			if err != nil {
				t.Fatalf("DecodeTransactions() error: %v", err)
			}
			if len(raws) != 2 {
				t.Fatalf("len = %d, want 2", len(raws))
			}
			if raws[1].Kind != "SELL" || raws[1].Code != "ABC" {
				t.Errorf("raws[1] = %+v", raws[1])
			}
		})
	}
}

func TestDecodeTransactions_LineError(t *testing.T) {
	in := `{"stock_code":"ABC"}
{not json}
`
	_, err := DecodeTransactions(strings.NewReader(in))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("DecodeTransactions() error = %v, want an error on line 2", err)
	}
}

func TestEncodeTransactions(t *testing.T) {
	var buf bytes.Buffer
	txs := []Transaction{buy(day(time.January, 1), "ABC", 10, 10.125)}
	if err := EncodeTransactions(&buf, txs); err != nil {
		t.Fatal(err)
	}
	raws, err := DecodeTransactions(&buf)
	if err != nil {
		t.Fatalf("cannot decode %q: %v", buf.String(), err)
	}
	back := New().NormalizeTransactions(raws)
	if len(back) != 1 || !back[0].Price.Equal(EUR(10.125)) || !back[0].TradeDate.Equal(txs[0].TradeDate) {
		t.Errorf("decoded %+v, want %+v", back, txs)
	}
}

func TestDecodePrices(t *testing.T) {
	feed := `{"data":{"prices":{"ABC":12.5,"XYZ":"7,25","BAD":"n/a","NIL":null,"NEG":-1}},"meta":{}}`
	tests := []struct {
		path string
		in   string
	}{
		{"$.data.prices", feed},
		{"", `{"ABC":12.5,"XYZ":"7.25"}`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			prices, err := DecodePrices(strings.NewReader(tt.in), tt.path)
			if err != nil {
				t.Fatalf("DecodePrices() error: %v", err)
			}
			if len(prices) != 2 {
				t.Errorf("prices = %v, want ABC and XYZ only", prices)
			}
			if got := prices["ABC"]; !got.Decimal().Equal(EUR(12.5).Decimal()) {
				t.Errorf("ABC = %v, want 12.5", got)
			}
			if got := prices["XYZ"]; !got.Decimal().Equal(EUR(7.25).Decimal()) {
				t.Errorf("XYZ = %v, want 7.25", got)
			}
		})
	}

	if _, err := DecodePrices(strings.NewReader(feed), "$.data.missing"); err == nil {
		t.Errorf("DecodePrices() with a missing path: want an error")
	}
	if _, err := DecodePrices(strings.NewReader(`[1,2]`), "$[0]"); err == nil {
		t.Errorf("DecodePrices() on a number: want an error")
	}
}

func TestDecodePriceHistory(t *testing.T) {
	in := `{"on":"2025-01-02","ABC":10,"XYZ":1}
{"on":"2025-1-3","ABC":11}
`
	h, err := DecodePriceHistory(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodePriceHistory() error: %v", err)
	}
	if got, ok := h["ABC"].ValueAsOf(date.New(2025, time.January, 10)); !ok || got != 11 {
		t.Errorf("ABC as of jan 10 = %v, %v want 11", got, ok)
	}
	if got, ok := h["XYZ"].ValueAsOf(date.New(2025, time.January, 3)); !ok || got != 1 {
		t.Errorf("XYZ as of jan 3 = %v, %v want 1", got, ok)
	}

	bad := []string{
		`{"ABC":10}`,
		`{"on":"tomorrow","ABC":10}`,
		`{"on":"2025-01-02","ABC":"10"}`,
	}
	for _, in := range bad {
		if _, err := DecodePriceHistory(strings.NewReader(in)); err == nil {
			t.Errorf("DecodePriceHistory(%s): want an error", in)
		}
	}
}
