package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/etnz/costbasis/server"
	"github.com/google/subcommands"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve computations over HTTP" }
func (*serveCmd) Usage() string {
	return `pnl serve [-addr <host:port>]

  Serves the metrics and curve computations, and the stored portfolios when a
  store is configured. Stops gracefully on SIGINT or SIGTERM.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "listen address, from the configuration by default")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st server.Store
	if e.useStore() {
		s, err := e.openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
			return subcommands.ExitFailure
		}
		defer s.Close()
		st = s
	}

	addr := c.addr
	if addr == "" {
		addr = e.cfg.Server.Addr()
	}
	if err := server.New(e.engine, st, e.log).Run(ctx, addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
