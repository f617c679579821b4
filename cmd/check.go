package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/renderer"
	"github.com/google/subcommands"
)

type checkCmd struct{}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "report the sales that cannot be applied" }
func (*checkCmd) Usage() string {
	return `pnl check

  Reports are computed leniently: a sale without enough shares is dropped.
  check lists those sales and exits with a failure status if there is any.
`
}

func (c *checkCmd) SetFlags(f *flag.FlagSet) {}

func (c *checkCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	err = e.engine.ValidateSales(in.Transactions)
	if err == nil {
		fmt.Fprintf(os.Stderr, "✅ %d transactions, every sale applies.\n", len(in.Transactions))
		return subcommands.ExitSuccess
	}
	// ValidateSales joins one SaleError per dropped sale.
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, err := range joined.Unwrap() {
			var se *costbasis.SaleError
			if errors.As(err, &se) {
				fmt.Fprintln(os.Stderr, renderer.SkippedSale(se.SkippedSale))
			}
		}
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	return subcommands.ExitFailure
}
