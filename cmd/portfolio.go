package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/costbasis"
	"github.com/google/subcommands"
)

type initCmd struct {
	name string
}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "create a portfolio in the store" }
func (*initCmd) Usage() string {
	return `pnl -db <file> init -name <name>

  Creates an empty portfolio and prints its id. Use it with -portfolio.
`
}

func (c *initCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "main", "portfolio name, unique in the store")
}

func (c *initCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if !e.useStore() {
		fmt.Fprintln(os.Stderr, "Error: init needs a store, set -db or [store] path")
		return subcommands.ExitUsageError
	}
	st, err := e.openStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()
	id, err := st.CreatePortfolio(ctx, c.name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(id)
	return subcommands.ExitSuccess
}

type holdCmd struct {
	code    string
	name    string
	shares  string
	avg     string
	current string
	remove  bool
}

func (*holdCmd) Name() string     { return "hold" }
func (*holdCmd) Synopsis() string { return "set the current holding of an instrument in the store" }
func (*holdCmd) Usage() string {
	return `pnl -db <file> -portfolio <id> hold -s <code> -q <shares> -avg <price> [-price <price>] [-rm]

  Sets, or removes with -rm, the snapshot of a held position.
`
}

func (c *holdCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.code, "s", "", "instrument code")
	f.StringVar(&c.name, "n", "", "instrument name")
	f.StringVar(&c.shares, "q", "0", "shares held")
	f.StringVar(&c.avg, "avg", "0", "average purchase price")
	f.StringVar(&c.current, "price", "0", "current price")
	f.BoolVar(&c.remove, "rm", false, "remove the holding")
}

func (c *holdCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.code == "" {
		fmt.Fprintln(os.Stderr, "Error: -s is required")
		return subcommands.ExitUsageError
	}
	e, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if !e.useStore() {
		fmt.Fprintln(os.Stderr, "Error: hold needs a store, set -db or [store] path")
		return subcommands.ExitUsageError
	}
	st, err := e.openStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()

	id := e.cfg.Store.PortfolioID
	if c.remove {
		err = st.DeleteHolding(ctx, id, c.code)
	} else {
		var h costbasis.RawHolding
		h.Code, h.Name = c.code, c.name
		for _, v := range []struct {
			dst  *costbasis.Number
			text string
		}{{&h.Shares, c.shares}, {&h.AvgPurchasePrice, c.avg}, {&h.CurrentPrice, c.current}} {
			if *v.dst, err = parseNumber(v.text); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return subcommands.ExitUsageError
			}
		}
		err = st.UpsertHolding(ctx, id, h)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import transaction and holding files into the store" }
func (*importCmd) Usage() string {
	return `pnl -db <file> -portfolio <id> -transactions <file> [-holdings <file>] [-prices <src>] [-cash <amount>] import

  Appends the transactions, and sets the holdings, prices and cash balance of
  a stored portfolio from the input files.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if !e.useStore() {
		fmt.Fprintln(os.Stderr, "Error: import needs a store, set -db or [store] path")
		return subcommands.ExitUsageError
	}
	txs, err := decodeFile(e.cfg.Inputs.Transactions, costbasis.DecodeTransactions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading transactions: %v\n", err)
		return subcommands.ExitFailure
	}
	holdings, err := decodeFile(e.cfg.Inputs.Holdings, costbasis.DecodeHoldings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading holdings: %v\n", err)
		return subcommands.ExitFailure
	}
	prices, err := e.prices(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading prices: %v\n", err)
		return subcommands.ExitFailure
	}

	st, err := e.openStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()
	id := e.cfg.Store.PortfolioID
	for _, tx := range txs {
		if err := st.AddTransaction(ctx, id, tx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	for _, h := range holdings {
		if err := st.UpsertHolding(ctx, id, h); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	if len(prices) > 0 {
		if err := st.SetPrices(ctx, id, prices); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	if *cashBalance != "" {
		cash := costbasis.N(e.cfg.Portfolio.CashBalance).Decimal()
		fallback := costbasis.N(e.cfg.Portfolio.InvestedFallback).Decimal()
		if err := st.SetCash(ctx, id, cash, fallback); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	fmt.Fprintf(os.Stderr, "Successfully imported %d transactions and %d holdings into portfolio %d\n", len(txs), len(holdings), id)
	return subcommands.ExitSuccess
}
