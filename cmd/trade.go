package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// tradeFlags are the flags shared by buy and sell.
type tradeFlags struct {
	date   string
	code   string
	name   string
	shares string
	price  string
	fees   string
}

func (t *tradeFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&t.date, "d", date.Today().String(), "Transaction date. See the user manual for supported date formats.")
	f.StringVar(&t.code, "s", "", "Instrument code")
	f.StringVar(&t.name, "n", "", "Instrument name, the code by default")
	f.StringVar(&t.shares, "q", "0", "Number of shares")
	f.StringVar(&t.price, "p", "0", "Price per share")
	f.StringVar(&t.fees, "fees", "0", "Transaction fees")
}

// raw builds the transaction of kind.
func (t *tradeFlags) raw(kind costbasis.Kind) (costbasis.RawTransaction, error) {
	if t.code == "" {
		return costbasis.RawTransaction{}, fmt.Errorf("-s is required")
	}
	on, err := date.Parse(t.date)
	if err != nil {
		return costbasis.RawTransaction{}, err
	}
	tx := costbasis.RawTransaction{Code: t.code, Name: t.name, Kind: kind.String(), Date: on.String()}
	if tx.Shares, err = parseNumber(t.shares); err != nil {
		return costbasis.RawTransaction{}, err
	}
	if tx.Price, err = parseNumber(t.price); err != nil {
		return costbasis.RawTransaction{}, err
	}
	if tx.Fees, err = parseNumber(t.fees); err != nil {
		return costbasis.RawTransaction{}, err
	}
	if !tx.Shares.Decimal().IsPositive() {
		return costbasis.RawTransaction{}, fmt.Errorf("-q must be positive")
	}
	return tx, nil
}

// record adds tx to the store or appends it to the transactions file.
func (t *tradeFlags) record(ctx context.Context, kind costbasis.Kind) subcommands.ExitStatus {
	tx, err := t.raw(kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	e, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	if e.useStore() {
		st, err := e.openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
			return subcommands.ExitFailure
		}
		defer st.Close()
		if err := st.AddTransaction(ctx, e.cfg.Store.PortfolioID, tx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Successfully added transaction to portfolio %d\n", e.cfg.Store.PortfolioID)
		return subcommands.ExitSuccess
	}

	filename := e.cfg.Inputs.Transactions
	if filename == "" {
		fmt.Fprintln(os.Stderr, "Error: set -transactions or -db to record a transaction")
		return subcommands.ExitUsageError
	}
	// Open the file in append mode, creating it if it doesn't exist.
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening transactions file %q: %v\n", filename, err)
		return subcommands.ExitFailure
	}
	defer f.Close()
	if err := costbasis.EncodeTransactions(f, e.engine.NormalizeTransactions([]costbasis.RawTransaction{tx})); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing to transactions file %q: %v\n", filename, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Successfully appended transaction to %s\n", filename)
	return subcommands.ExitSuccess
}

type buyCmd struct{ tradeFlags }

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record the purchase of shares" }
func (*buyCmd) Usage() string {
	return `pnl buy -s <code> -q <shares> -p <price> [-fees <fees>] [-d <date>]

  Records a purchase in the store, or appends it to the transactions file.
`
}

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.record(ctx, costbasis.Buy)
}

type sellCmd struct{ tradeFlags }

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record the sale of shares" }
func (*sellCmd) Usage() string {
	return `pnl sell -s <code> -q <shares> -p <price> [-fees <fees>] [-d <date>]

  Records a sale in the store, or appends it to the transactions file. A sale
  of more shares than held is recorded, and dropped when computing.
`
}

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.record(ctx, costbasis.Sell)
}

// parseNumber reads a non negative flag value.
func parseNumber(s string) (costbasis.Number, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return costbasis.Number{}, fmt.Errorf("invalid number %q", s)
	}
	if d.IsNegative() {
		return costbasis.Number{}, fmt.Errorf("%q must not be negative", s)
	}
	return costbasis.N(d), nil
}
