package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port default = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Currency != "EUR" {
		t.Errorf("Currency default = %q, want EUR", cfg.Currency)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "pnl.toml")
	content := `
currency = "USD"

[logging]
level = "debug"

[inputs]
transactions = "tx.jsonl"
price_path = "$.data"

[portfolio]
cash_balance = 1500.5

[store]
path = "pnl.db"
portfolio_id = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Currency != "USD" || cfg.Logging.Level != "debug" || cfg.Inputs.PricePath != "$.data" {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.Portfolio.CashBalance != 1500.5 || cfg.Store.PortfolioID != 3 {
		t.Errorf("Load() portfolio = %+v, store = %+v", cfg.Portfolio, cfg.Store)
	}
	// untouched sections keep their defaults.
	if cfg.Server.Port != 8080 || cfg.Logging.Format != "console" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Currency != "EUR" {
		t.Errorf("Currency = %q, want the default", cfg.Currency)
	}
}

func TestLoad_BadFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "bad.toml")
	os.WriteFile(path, []byte("currency = "), 0o644)
	if _, err := Load(path); err == nil {
		t.Errorf("Load() on a broken file: want an error")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("COSTBASIS_PORT", "")
	os.Unsetenv("COSTBASIS_PORT")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("COSTBASIS_PORT=9191\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want 9191 from .env", cfg.Server.Port)
	}
}

func TestConfig_EnvOverride(t *testing.T) {
	t.Setenv("COSTBASIS_PORT", "9090")
	t.Setenv("COSTBASIS_CURRENCY", "gbp")
	t.Setenv("COSTBASIS_PORTFOLIO", "7")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after env override, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Currency != "GBP" {
		t.Errorf("Currency = %q, want GBP", cfg.Currency)
	}
	if cfg.Store.PortfolioID != 7 {
		t.Errorf("Store.PortfolioID = %d, want 7", cfg.Store.PortfolioID)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Currency = "EURO"
	cfg.Logging.Level = "loud"
	cfg.Server.Port = 0
	cfg.Curve.Period = "fortnight"
	cfg.Curve.Days = 100_000_000

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want errors")
	}
	for _, want := range []string{"currency", "logging level", "server port", "curve period", "curve days"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() = %v, missing %q", err, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("warn", "json", &buf)
	log.Info().Msg("hidden")
	log.Warn().Str("code", "ABC").Msg("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"code":"ABC"`) {
		t.Errorf("log output = %q", out)
	}
}
