package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/costbasis"
	"github.com/google/subcommands"
)

type fmtCmd struct{}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "formats the transactions file into a canonical form"
}
func (*fmtCmd) Usage() string {
	return `pnl -transactions <file> fmt

  Reads all transactions, coerces them, sorts them by date, and writes them
  back in a canonical JSONL format. Records with an unknown kind are removed.

Usage Examples:
$ pnl -transactions tx.jsonl fmt

`
}

func (p *fmtCmd) SetFlags(f *flag.FlagSet) {}

func (p *fmtCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	filename := e.cfg.Inputs.Transactions
	if filename == "" {
		fmt.Fprintln(os.Stderr, "Error: set -transactions to the file to format")
		return subcommands.ExitUsageError
	}
	raws, err := decodeFile(filename, costbasis.DecodeTransactions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load transactions: %v\n", err)
		return subcommands.ExitFailure
	}
	txs := costbasis.SortChronologically(e.engine.NormalizeTransactions(raws))

	var buf bytes.Buffer
	if err := costbasis.EncodeTransactions(&buf, txs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving formatted transactions %q: %v\n", filename, err)
		return subcommands.ExitFailure
	}
	if dropped := len(raws) - len(txs); dropped > 0 {
		fmt.Fprintf(os.Stderr, "Warning: removed %d records with an unknown kind.\n", dropped)
	}
	fmt.Fprintf(os.Stderr, "✅ Successfully formatted %s.\n", filename)
	return subcommands.ExitSuccess
}
