package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// priceFlag collects CODE=PRICE overrides.
type priceFlag costbasis.PriceMap

func (p priceFlag) String() string {
	var parts []string
	for code, price := range p {
		parts = append(parts, code+"="+price.Decimal().String())
	}
	return strings.Join(parts, ",")
}

func (p priceFlag) Set(v string) error {
	code, price, found := strings.Cut(v, "=")
	if !found || code == "" {
		return fmt.Errorf("want CODE=PRICE, got %q", v)
	}
	d, err := decimal.NewFromString(price)
	if err != nil || !d.IsPositive() {
		return fmt.Errorf("invalid price %q for %s", price, code)
	}
	p[code] = costbasis.M(d, "")
	return nil
}

// reportCmd holds the flags for the 'report' subcommand.
type reportCmd struct {
	json   bool
	prices priceFlag
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "display portfolio metrics and the holdings breakdown" }
func (*reportCmd) Usage() string {
	return `pnl report [-json] [-p CODE=PRICE]...

  Computes the portfolio value, invested amount, realized and unrealized P&L
  and ROI, with one breakdown row per held or exited position.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	c.prices = make(priceFlag)
	f.BoolVar(&c.json, "json", false, "print the metrics as JSON")
	f.Var(c.prices, "p", "latest price of an instrument as CODE=PRICE, can be repeated")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	in, err := e.loadInput(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	if in.Prices == nil {
		in.Prices = make(costbasis.PriceMap)
	}
	for code, p := range c.prices {
		in.Prices.Set(code, p)
	}
	m := e.engine.Compute(in)

	if c.json {
		return printJSON(m)
	}
	printMarkdown(e.cfg, renderer.MetricsMarkdown(m))
	return subcommands.ExitSuccess
}

func printJSON(v any) subcommands.ExitStatus {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(string(data))
	return subcommands.ExitSuccess
}
