package cmd

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/costbasis"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// withFiles points the global flags to files written in a temporary
// working directory.
func withFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	old := []string{*transactionsFile, *holdingsFile, *pricesSource, *cashBalance}
	t.Cleanup(func() {
		*transactionsFile, *holdingsFile, *pricesSource, *cashBalance = old[0], old[1], old[2], old[3]
	})
	if _, ok := files["tx.jsonl"]; ok {
		*transactionsFile = "tx.jsonl"
	}
	if _, ok := files["holdings.json"]; ok {
		*holdingsFile = "holdings.json"
	}
	if _, ok := files["prices.json"]; ok {
		*pricesSource = "prices.json"
	}
	return dir
}

func TestPriceFlag(t *testing.T) {
	p := make(priceFlag)
	if err := p.Set("ABC=12.5"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if got := p["ABC"].Decimal(); !got.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("ABC = %v, want 12.5", got)
	}
	for _, bad := range []string{"ABC", "=1", "ABC=x", "ABC=-1", "ABC=0"} {
		if err := p.Set(bad); err == nil {
			t.Errorf("Set(%q) = nil, want an error", bad)
		}
	}
}

func TestTradeFlags(t *testing.T) {
	tf := tradeFlags{date: "2025-01-02", code: "ABC", shares: "10", price: "12.5", fees: "1"}
	tx, err := tf.raw(costbasis.Sell)
	if err != nil {
		t.Fatalf("raw() error: %v", err)
	}
	if tx.Kind != "SELL" || tx.Date != "2025-01-02" || !tx.Fees.Decimal().Equal(decimal.NewFromInt(1)) {
		t.Errorf("raw() = %+v", tx)
	}

	for _, bad := range []tradeFlags{
		{date: "2025-01-02", shares: "1", price: "1", fees: "0"},
		{date: "2025-01-02", code: "ABC", shares: "0", price: "1", fees: "0"},
		{date: "2025-01-02", code: "ABC", shares: "1", price: "-1", fees: "0"},
		{date: "not a date", code: "ABC", shares: "1", price: "1", fees: "0"},
	} {
		if _, err := bad.raw(costbasis.Buy); err == nil {
			t.Errorf("raw(%+v) = nil error, want one", bad)
		}
	}
}

func TestLoadInput_Files(t *testing.T) {
	withFiles(t, map[string]string{
		"tx.jsonl": `{"code":"ABC","kind":"BUY","shares":10,"price":10,"date":"2025-01-01"}
{"code":"ABC","kind":"SELL","shares":4,"price":15,"date":"2025-01-02"}
`,
		"holdings.json": `[{"stock_code":"ABC","shares":6,"avg_purchase_price":10}]`,
		"prices.json":   `{"data":{"ABC":"12"}}`,
	})
	if err := os.WriteFile("pnl.toml", []byte("[inputs]\nprice_path = \"$.data\"\n[portfolio]\ncash_balance = 100\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err := setup()
	if err != nil {
		t.Fatalf("setup() error: %v", err)
	}
	in, err := e.loadInput(context.Background())
	if err != nil {
		t.Fatalf("loadInput() error: %v", err)
	}
	m := e.engine.Compute(in)
	if want := costbasis.M(20, "EUR"); !m.RealizedPnL.Equal(want) {
		t.Errorf("RealizedPnL = %v, want %v", m.RealizedPnL, want)
	}
	if want := costbasis.M(12, "EUR"); !m.UnrealizedPnL.Equal(want) {
		t.Errorf("UnrealizedPnL = %v, want %v", m.UnrealizedPnL, want)
	}
	if want := costbasis.M(172, "EUR"); !m.TotalValue.Equal(want) {
		t.Errorf("TotalValue = %v, want %v", m.TotalValue, want)
	}
}

func TestFmtCmd(t *testing.T) {
	dir := withFiles(t, map[string]string{
		"tx.jsonl": `{"code":"ABC","kind":"SELL","shares":4,"price":15,"date":"2025-01-02"}
{"code":"ABC","kind":"DIVIDEND","shares":1,"price":1,"date":"2025-01-01"}
{"code":"ABC","kind":"buy","shares":"10","price":10,"date":"2025-01-01"}
`,
	})
	fs := flag.NewFlagSet("fmt", flag.ContinueOnError)
	if got := (&fmtCmd{}).Execute(context.Background(), fs); got != subcommands.ExitSuccess {
		t.Fatalf("fmt = %v, want success", got)
	}
	data, err := os.ReadFile(filepath.Join(dir, "tx.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("formatted file has %d lines, want 2:\n%s", len(lines), data)
	}
	if !strings.Contains(lines[0], `"kind":"BUY"`) || !strings.Contains(lines[1], `"kind":"SELL"`) {
		t.Errorf("formatted file is not sorted:\n%s", data)
	}

	// formatting is idempotent.
	if got := (&fmtCmd{}).Execute(context.Background(), fs); got != subcommands.ExitSuccess {
		t.Fatalf("second fmt = %v, want success", got)
	}
	again, _ := os.ReadFile(filepath.Join(dir, "tx.jsonl"))
	if string(again) != string(data) {
		t.Errorf("second fmt changed the file:\n%s\nwant\n%s", again, data)
	}
}

func TestCheckCmd(t *testing.T) {
	withFiles(t, map[string]string{
		"tx.jsonl": `{"code":"ABC","kind":"BUY","shares":1,"price":10,"date":"2025-01-01"}
{"code":"ABC","kind":"SELL","shares":4,"price":15,"date":"2025-01-02"}
`,
	})
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	if got := (&checkCmd{}).Execute(context.Background(), fs); got != subcommands.ExitFailure {
		t.Errorf("check with an over sell = %v, want failure", got)
	}
}

func TestCompletion(t *testing.T) {
	c := Completion()
	for _, name := range []string{"report", "sales", "curve", "check", "serve", "buy", "fmt"} {
		if _, ok := c.Sub[name]; !ok {
			t.Errorf("no completion for %s", name)
		}
	}
	if _, ok := c.Sub["curve"].Flags["period"]; !ok {
		t.Errorf("no completion for curve -period")
	}
}
