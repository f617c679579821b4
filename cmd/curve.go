package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
	"github.com/etnz/costbasis/renderer"
	"github.com/google/subcommands"
)

type curveCmd struct {
	days   int
	on     string
	period string
	json   bool
}

func (*curveCmd) Name() string     { return "curve" }
func (*curveCmd) Synopsis() string { return "display the equity curve of the portfolio" }
func (*curveCmd) Usage() string {
	return `pnl curve [-days <n>] [-on <date>] [-period <period>] [-json]

  Rebuilds the portfolio value day after day from the transactions and the
  price history, then reports the ROI against the initial capital and the
  maximum drawdown.
`
}

func (c *curveCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", 0, "length of the window in days, from the configuration by default")
	f.StringVar(&c.on, "on", "", "last day of the curve, today by default. See the user manual for supported date formats.")
	f.StringVar(&c.period, "period", "", "sampling of points (daily, weekly, monthly, quarterly, yearly)")
	f.BoolVar(&c.json, "json", false, "print the curve as JSON")
}

func (c *curveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	ci := costbasis.CurveInput{Days: e.cfg.Curve.Days}
	if c.days > 0 {
		ci.Days = c.days
	}
	if c.on != "" {
		if ci.AsOf, err = date.Parse(c.on); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	period := e.cfg.Curve.Period
	if c.period != "" {
		period = c.period
	}
	if ci.Period, err = date.ParsePeriod(period); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing period: %v\n", err)
		return subcommands.ExitUsageError
	}

	in, err := e.loadInput(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	if ci.History, err = e.priceHistory(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading price history: %v\n", err)
		return subcommands.ExitFailure
	}
	ci.Transactions = in.Transactions
	ci.Holdings = in.Holdings
	ci.CashBalance = in.CashBalance

	curve := e.engine.EquityCurve(ci)
	if c.json {
		return printJSON(curve)
	}
	printMarkdown(e.cfg, renderer.CurveMarkdown(curve))
	return subcommands.ExitSuccess
}
