package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/renderer"
	"github.com/google/subcommands"
)

type txCmd struct {
	code string
	head int
	tail int
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list transactions in chronological order" }
func (*txCmd) Usage() string {
	return `pnl tx [-code <code>] [-head <n>] [-tail <n>]

  Lists the transactions after normalization, in the order they are replayed.
`
}

func (p *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.code, "code", "", "Show only the transactions of that instrument.")
	f.IntVar(&p.head, "head", 0, "Show only the first N transactions.")
	f.IntVar(&p.tail, "tail", 0, "Show only the last N transactions.")
}

func (p *txCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.head > 0 && p.tail > 0 {
		fmt.Fprintln(os.Stderr, "Error: -head and -tail flags cannot be used together.")
		return subcommands.ExitUsageError
	}
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

	var transactions []costbasis.Transaction
	for _, tx := range costbasis.SortChronologically(in.Transactions) {
		if p.code == "" || tx.Code == p.code {
			transactions = append(transactions, tx)
		}
	}
	if p.head > 0 && len(transactions) > p.head {
		transactions = transactions[:p.head]
	}
	if p.tail > 0 && len(transactions) > p.tail {
		transactions = transactions[len(transactions)-p.tail:]
	}

	var b strings.Builder
	b.WriteString("# Transactions\n\n")
	for _, tx := range transactions {
		fmt.Fprintf(&b, "- %s\n", renderer.Transaction(tx))
	}
	if len(transactions) == 0 {
		b.WriteString("No transaction.\n")
	}
	printMarkdown(e.cfg, b.String())
	return subcommands.ExitSuccess
}
