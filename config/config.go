// Package config loads the pnl configuration: a TOML file, an optional .env
// file and COSTBASIS_* environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// DefaultFile is the configuration file read when none is given.
const DefaultFile = "pnl.toml"

// Config holds all configuration for pnl.
type Config struct {
	Currency  string          `toml:"currency"`
	Logging   LoggingConfig   `toml:"logging"`
	Inputs    InputsConfig    `toml:"inputs"`
	Portfolio PortfolioConfig `toml:"portfolio"`
	Store     StoreConfig     `toml:"store"`
	Server    ServerConfig    `toml:"server"`
	Render    RenderConfig    `toml:"render"`
	Curve     CurveConfig     `toml:"curve"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// InputsConfig names the files computations read.
type InputsConfig struct {
	Transactions string `toml:"transactions"`
	Holdings     string `toml:"holdings"`
	Prices       string `toml:"prices"`     // a file or an http(s) URL
	PricePath    string `toml:"price_path"` // JSONPath into the price document
	PriceHistory string `toml:"price_history"`
	CacheDir     string `toml:"cache_dir"` // http cache of remote prices
}

// PortfolioConfig holds the scalars of a file based portfolio.
type PortfolioConfig struct {
	CashBalance      float64 `toml:"cash_balance"`
	InvestedFallback float64 `toml:"invested_fallback"`
}

// StoreConfig points to the SQLite store.
type StoreConfig struct {
	Path        string `toml:"path"`
	PortfolioID int64  `toml:"portfolio_id"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// RenderConfig drives the terminal rendering of markdown reports.
type RenderConfig struct {
	Style string `toml:"style"` // a glamour style name
	Width int    `toml:"width"`
}

// CurveConfig holds the equity curve defaults.
type CurveConfig struct {
	Days   int    `toml:"days"`
	Period string `toml:"period"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Currency: costbasis.DefaultCurrency,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Inputs: InputsConfig{
			PricePath: "$",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Render: RenderConfig{
			Style: "auto",
			Width: 100,
		},
		Curve: CurveConfig{
			Days:   costbasis.DefaultCurveDays,
			Period: "daily",
		},
	}
}

// Load reads the configuration from path. A missing file is not an error:
// defaults apply. The .env file, when present in the working directory,
// feeds the environment before overrides are applied.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COSTBASIS_CURRENCY"); v != "" {
		cfg.Currency = strings.ToUpper(v)
	}
	if v := os.Getenv("COSTBASIS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("COSTBASIS_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("COSTBASIS_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("COSTBASIS_PORTFOLIO"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Store.PortfolioID = id
		}
	}
	if v := os.Getenv("COSTBASIS_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("COSTBASIS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("COSTBASIS_PRICES"); v != "" {
		cfg.Inputs.Prices = v
	}
}

// Validate reports every invalid value.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Currency) != 3 {
		errs = append(errs, fmt.Errorf("currency %q: want a 3 letter ISO code", c.Currency))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error", "disabled":
	default:
		errs = append(errs, fmt.Errorf("logging level %q: want debug, info, warn, error or disabled", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging format %q: want console or json", c.Logging.Format))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if c.Curve.Days < 0 || c.Curve.Days > costbasis.MaxCurveDays {
		errs = append(errs, fmt.Errorf("curve days %d: want 0 to %d", c.Curve.Days, costbasis.MaxCurveDays))
	}
	if _, err := date.ParsePeriod(c.Curve.Period); err != nil {
		errs = append(errs, fmt.Errorf("curve period: %w", err))
	}
	if c.Portfolio.CashBalance < 0 {
		errs = append(errs, fmt.Errorf("cash balance %v: must not be negative", c.Portfolio.CashBalance))
	}
	return errors.Join(errs...)
}
