// Package cmd implements the pnl command line: cost basis and P&L reports
// over a portfolio kept in files or in a SQLite store.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/config"
	"github.com/etnz/costbasis/store"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile       = flag.String("config", config.DefaultFile, "Path to the TOML configuration file")
	dbFile           = flag.String("db", "", "Path to the SQLite portfolio store. Overrides the configuration.")
	portfolioID      = flag.Int64("portfolio", 0, "Portfolio id in the store")
	transactionsFile = flag.String("transactions", "", "Transactions file (JSON array or JSONL)")
	holdingsFile     = flag.String("holdings", "", "Holdings file (JSON array or JSONL)")
	pricesSource     = flag.String("prices", "", "Latest prices: a JSON file or an http(s) URL")
	defaultCurrency  = flag.String("currency", "", "Portfolio currency")
	cashBalance      = flag.String("cash", "", "Cash balance")
	Verbose          = flag.Bool("v", false, "Log debug information on stderr")
)

// Commands are all the pnl subcommands by group.
var Commands = map[string][]subcommands.Command{
	"reports": {
		&reportCmd{},
		&salesCmd{},
		&curveCmd{},
		&checkCmd{},
		&txCmd{},
	},
	"portfolio": {
		&initCmd{},
		&buyCmd{},
		&sellCmd{},
		&holdCmd{},
		&importCmd{},
		&fmtCmd{},
	},
	"server": {
		&serveCmd{},
	},
	"help": {
		&topicCmd{},
	},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for group, cmds := range Commands {
		for _, cmd := range cmds {
			c.Register(cmd, group)
		}
	}
}

// Completion returns the shell completion of pnl.
func Completion() *complete.Command {
	files := predict.Files("*.json*")
	global := map[string]complete.Predictor{
		"config":       predict.Files("*.toml"),
		"db":           predict.Files("*.db"),
		"portfolio":    predict.Something,
		"transactions": files,
		"holdings":     files,
		"prices":       files,
		"currency":     predict.Set{"EUR", "USD", "GBP", "CHF", "JPY"},
		"cash":         predict.Something,
		"v":            predict.Nothing,
	}
	root := &complete.Command{Flags: global, Sub: map[string]*complete.Command{}}
	for _, cmds := range Commands {
		for _, cmd := range cmds {
			fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
			cmd.SetFlags(fs)
			sub := &complete.Command{Flags: map[string]complete.Predictor{}}
			fs.VisitAll(func(f *flag.Flag) {
				switch f.Name {
				case "period":
					sub.Flags[f.Name] = predict.Set{"daily", "weekly", "monthly", "quarterly", "yearly"}
				case "json", "strict":
					sub.Flags[f.Name] = predict.Nothing
				default:
					sub.Flags[f.Name] = predict.Something
				}
			})
			root.Sub[cmd.Name()] = sub
		}
	}
	return root
}

// env is what every subcommand works with.
type env struct {
	cfg    *config.Config
	log    zerolog.Logger
	engine *costbasis.Engine
}

// setup loads the configuration and applies the global flags over it.
func setup() (*env, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if *dbFile != "" {
		cfg.Store.Path = *dbFile
	}
	if *portfolioID != 0 {
		cfg.Store.PortfolioID = *portfolioID
	}
	if *transactionsFile != "" {
		cfg.Inputs.Transactions = *transactionsFile
	}
	if *holdingsFile != "" {
		cfg.Inputs.Holdings = *holdingsFile
	}
	if *pricesSource != "" {
		cfg.Inputs.Prices = *pricesSource
	}
	if *defaultCurrency != "" {
		cfg.Currency = strings.ToUpper(*defaultCurrency)
	}
	if *cashBalance != "" {
		v, err := decimal.NewFromString(*cashBalance)
		if err != nil {
			return nil, fmt.Errorf("invalid cash balance %q: %w", *cashBalance, err)
		}
		cfg.Portfolio.CashBalance = v.InexactFloat64()
	}
	if *Verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := cfg.Logger(os.Stderr)
	return &env{
		cfg: cfg,
		log: log,
		engine: costbasis.New(
			costbasis.WithCurrency(cfg.Currency),
			costbasis.WithLogger(log),
		),
	}, nil
}

// useStore reports whether the portfolio lives in the store.
func (e *env) useStore() bool { return e.cfg.Store.Path != "" }

func (e *env) openStore(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, e.cfg.Store.Path, e.log)
}

// loadRaw reads the portfolio from the store or from the input files, then
// applies the latest prices source on top of the stored prices.
func (e *env) loadRaw(ctx context.Context) (costbasis.RawInput, error) {
	var raw costbasis.RawInput
	if e.useStore() {
		st, err := e.openStore(ctx)
		if err != nil {
			return raw, err
		}
		defer st.Close()
		if raw, err = st.Load(ctx, e.cfg.Store.PortfolioID); err != nil {
			return raw, err
		}
	} else {
		var err error
		if raw.Transactions, err = decodeFile(e.cfg.Inputs.Transactions, costbasis.DecodeTransactions); err != nil {
			return raw, err
		}
		if raw.Holdings, err = decodeFile(e.cfg.Inputs.Holdings, costbasis.DecodeHoldings); err != nil {
			return raw, err
		}
		raw.CashBalance = costbasis.N(e.cfg.Portfolio.CashBalance)
		raw.TotalInvestedFallback = costbasis.N(e.cfg.Portfolio.InvestedFallback)
	}

	prices, err := e.prices(ctx)
	if err != nil {
		return raw, err
	}
	if raw.Prices == nil {
		raw.Prices = make(costbasis.PriceMap)
	}
	for code, p := range prices {
		raw.Prices.Set(code, p)
	}
	return raw, nil
}

// loadInput is loadRaw normalized.
func (e *env) loadInput(ctx context.Context) (costbasis.Input, error) {
	raw, err := e.loadRaw(ctx)
	if err != nil {
		return costbasis.Input{}, err
	}
	return e.engine.NormalizeInput(raw), nil
}

// prices reads the configured prices source, if any.
func (e *env) prices(ctx context.Context) (costbasis.PriceMap, error) {
	src := e.cfg.Inputs.Prices
	switch {
	case src == "":
		return nil, nil
	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		feed := costbasis.PriceFeed{
			URL:    src,
			Path:   e.cfg.Inputs.PricePath,
			Client: costbasis.DailyCache(e.cfg.Inputs.CacheDir, e.log),
		}
		return feed.Fetch(ctx)
	default:
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("cannot open prices: %w", err)
		}
		defer f.Close()
		return costbasis.DecodePrices(f, e.cfg.Inputs.PricePath)
	}
}

// priceHistory reads the configured price history, empty when none.
func (e *env) priceHistory() (costbasis.PriceHistory, error) {
	if e.cfg.Inputs.PriceHistory == "" {
		return costbasis.PriceHistory{}, nil
	}
	f, err := os.Open(e.cfg.Inputs.PriceHistory)
	if err != nil {
		return nil, fmt.Errorf("cannot open price history: %w", err)
	}
	defer f.Close()
	return costbasis.DecodePriceHistory(f)
}

// decodeFile decodes name with decode. An empty name means no records.
func decodeFile[T any](name string, decode func(io.Reader) ([]T, error)) ([]T, error) {
	if name == "" {
		return nil, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decode(f)
}

// printMarkdown renders md for the terminal, raw when rendering fails.
func printMarkdown(cfg *config.Config, md string) {
	style := glamour.WithAutoStyle()
	if s := cfg.Render.Style; s != "" && s != "auto" {
		style = glamour.WithStandardStyle(s)
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(cfg.Render.Width))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Print(md)
}
