package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/costbasis/renderer"
	"github.com/google/subcommands"
)

type salesCmd struct {
	code string
	json bool
}

func (*salesCmd) Name() string     { return "sales" }
func (*salesCmd) Synopsis() string { return "display the sale log and the realized P&L of each sale" }
func (*salesCmd) Usage() string {
	return `pnl sales [-code <code>] [-json]

  Replays the transactions and lists every applied sale with the average cost
  it was realized against, then the sales that were dropped and why.
`
}

func (c *salesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.code, "code", "", "only show the sales of that instrument")
	f.BoolVar(&c.json, "json", false, "print the cost basis trackers as JSON")
}

func (c *salesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	m := e.engine.Compute(in)

	if c.json {
		if c.code != "" {
			t := m.CostBasisTracker.Get(c.code)
			if t == nil {
				fmt.Fprintf(os.Stderr, "Error: no transaction for %s\n", c.code)
				return subcommands.ExitFailure
			}
			return printJSON(t)
		}
		return printJSON(m.CostBasisTracker)
	}
	printMarkdown(e.cfg, renderer.SalesMarkdown(m, c.code))
	return subcommands.ExitSuccess
}
