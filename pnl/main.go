// Command pnl computes cost basis and P&L reports of a portfolio.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/costbasis/cmd"
	"github.com/google/subcommands"
)

func main() {
	// exits early when invoked by the shell for completion.
	cmd.Completion().Complete("pnl")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
