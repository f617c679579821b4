// Package store keeps portfolios in a SQLite database: their transactions,
// holdings, latest prices and cash. It hands them back in the raw form the
// engine normalizes, so that a stored portfolio and a posted one go through
// the same coercion.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/etnz/costbasis"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a portfolio does not exist.
var ErrNotFound = errors.New("portfolio not found")

// Store is a portfolio database. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Portfolio is the header of a stored portfolio.
type Portfolio struct {
	ID               int64
	Name             string
	CashBalance      decimal.Decimal
	InvestedFallback decimal.Decimal
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS portfolios (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		cash_balance TEXT NOT NULL DEFAULT '0',
		invested_fallback TEXT NOT NULL DEFAULT '0'
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_id INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
		stock_code TEXT NOT NULL,
		stock_name TEXT NOT NULL DEFAULT '',
		transaction_type TEXT NOT NULL,
		shares TEXT NOT NULL DEFAULT '0',
		price_per_share TEXT NOT NULL DEFAULT '0',
		fees TEXT NOT NULL DEFAULT '0',
		transaction_date TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_portfolio ON transactions(portfolio_id)`,
	`CREATE TABLE IF NOT EXISTS holdings (
		portfolio_id INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
		stock_code TEXT NOT NULL,
		stock_name TEXT NOT NULL DEFAULT '',
		shares TEXT NOT NULL DEFAULT '0',
		avg_purchase_price TEXT NOT NULL DEFAULT '0',
		current_price TEXT NOT NULL DEFAULT '0',
		position INTEGER NOT NULL,
		PRIMARY KEY (portfolio_id, stock_code)
	)`,
	`CREATE TABLE IF NOT EXISTS prices (
		portfolio_id INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
		stock_code TEXT NOT NULL,
		price TEXT NOT NULL,
		PRIMARY KEY (portfolio_id, stock_code)
	)`,
}

// Open opens, and creates if needed, the database at path.
func Open(ctx context.Context, path string, log zerolog.Logger) (*Store, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	// a single connection avoids SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	log.Debug().Str("path", path).Msg("database ready")
	return &Store{db: db, log: log}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// CreatePortfolio creates an empty portfolio and returns its id.
func (s *Store) CreatePortfolio(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO portfolios (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("cannot create portfolio %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("cannot create portfolio %q: %w", name, err)
	}
	s.log.Info().Int64("portfolio", id).Str("name", name).Msg("portfolio created")
	return id, nil
}

// Portfolios lists every portfolio by id.
func (s *Store) Portfolios(ctx context.Context) ([]Portfolio, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, cash_balance, invested_fallback FROM portfolios ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("cannot list portfolios: %w", err)
	}
	defer rows.Close()
	var list []Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Portfolio returns the header of portfolio id.
func (s *Store) Portfolio(ctx context.Context, id int64) (Portfolio, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, cash_balance, invested_fallback FROM portfolios WHERE id = ?`, id)
	p, err := scanPortfolio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Portfolio{}, fmt.Errorf("portfolio %d: %w", id, ErrNotFound)
	}
	return p, err
}

type scanner interface{ Scan(dest ...any) error }

func scanPortfolio(row scanner) (Portfolio, error) {
	var (
		p              Portfolio
		cash, fallback string
	)
	if err := row.Scan(&p.ID, &p.Name, &cash, &fallback); err != nil {
		return Portfolio{}, err
	}
	p.CashBalance = parse(cash)
	p.InvestedFallback = parse(fallback)
	return p, nil
}

// SetCash updates the cash balance and the invested fallback of portfolio id.
func (s *Store) SetCash(ctx context.Context, id int64, cash, investedFallback decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx, `UPDATE portfolios SET cash_balance = ?, invested_fallback = ? WHERE id = ?`,
		cash.String(), investedFallback.String(), id)
	if err != nil {
		return fmt.Errorf("cannot update cash of portfolio %d: %w", id, err)
	}
	return mustAffect(res, id)
}

// AddTransaction appends a transaction to portfolio id. Transactions are
// stored as received: coercion happens when they are computed.
func (s *Store) AddTransaction(ctx context.Context, id int64, tx costbasis.RawTransaction) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO transactions
		(portfolio_id, stock_code, stock_name, transaction_type, shares, price_per_share, fees, transaction_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, tx.Code, tx.Name, tx.Kind, tx.Shares.Decimal().String(), tx.Price.Decimal().String(), tx.Fees.Decimal().String(), tx.Date)
	if err != nil {
		return fmt.Errorf("cannot add transaction to portfolio %d: %w", id, err)
	}
	s.log.Debug().Int64("portfolio", id).Str("code", tx.Code).Str("kind", tx.Kind).Msg("transaction added")
	return nil
}

// UpsertHolding sets the holding of h.Code in portfolio id, replacing the
// previous one. A replaced holding keeps its position in the breakdown.
func (s *Store) UpsertHolding(ctx context.Context, id int64, h costbasis.RawHolding) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO holdings
		(portfolio_id, stock_code, stock_name, shares, avg_purchase_price, current_price, position)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM holdings WHERE portfolio_id = ?))
		ON CONFLICT (portfolio_id, stock_code) DO UPDATE SET
			stock_name = excluded.stock_name,
			shares = excluded.shares,
			avg_purchase_price = excluded.avg_purchase_price,
			current_price = excluded.current_price`,
		id, h.Code, h.Name, h.Shares.Decimal().String(), h.AvgPurchasePrice.Decimal().String(), h.CurrentPrice.Decimal().String(), id)
	if err != nil {
		return fmt.Errorf("cannot save holding %s of portfolio %d: %w", h.Code, id, err)
	}
	return nil
}

// DeleteHolding removes the holding of code from portfolio id.
func (s *Store) DeleteHolding(ctx context.Context, id int64, code string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM holdings WHERE portfolio_id = ? AND stock_code = ?`, id, code); err != nil {
		return fmt.Errorf("cannot delete holding %s of portfolio %d: %w", code, id, err)
	}
	return nil
}

// SetPrices records the latest prices of portfolio id.
func (s *Store) SetPrices(ctx context.Context, id int64, prices costbasis.PriceMap) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cannot save prices of portfolio %d: %w", id, err)
	}
	defer tx.Rollback()
	for code, price := range prices {
		_, err := tx.ExecContext(ctx, `INSERT INTO prices (portfolio_id, stock_code, price) VALUES (?, ?, ?)
			ON CONFLICT (portfolio_id, stock_code) DO UPDATE SET price = excluded.price`,
			id, code, price.Decimal().String())
		if err != nil {
			return fmt.Errorf("cannot save price of %s in portfolio %d: %w", code, id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cannot save prices of portfolio %d: %w", id, err)
	}
	s.log.Debug().Int64("portfolio", id).Int("count", len(prices)).Msg("prices saved")
	return nil
}

// Load returns everything stored for portfolio id, in insertion order.
func (s *Store) Load(ctx context.Context, id int64) (costbasis.RawInput, error) {
	p, err := s.Portfolio(ctx, id)
	if err != nil {
		return costbasis.RawInput{}, err
	}
	in := costbasis.RawInput{
		CashBalance:           costbasis.N(p.CashBalance),
		TotalInvestedFallback: costbasis.N(p.InvestedFallback),
		Prices:                make(costbasis.PriceMap),
	}

	rows, err := s.db.QueryContext(ctx, `SELECT stock_code, stock_name, transaction_type, shares, price_per_share, fees, transaction_date
		FROM transactions WHERE portfolio_id = ? ORDER BY id`, id)
	if err != nil {
		return costbasis.RawInput{}, fmt.Errorf("cannot load transactions of portfolio %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			tx                  costbasis.RawTransaction
			shares, price, fees string
		)
		if err := rows.Scan(&tx.Code, &tx.Name, &tx.Kind, &shares, &price, &fees, &tx.Date); err != nil {
			return costbasis.RawInput{}, fmt.Errorf("cannot load transactions of portfolio %d: %w", id, err)
		}
		tx.Shares, tx.Price, tx.Fees = number(shares), number(price), number(fees)
		in.Transactions = append(in.Transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return costbasis.RawInput{}, err
	}

	hrows, err := s.db.QueryContext(ctx, `SELECT stock_code, stock_name, shares, avg_purchase_price, current_price
		FROM holdings WHERE portfolio_id = ? ORDER BY position`, id)
	if err != nil {
		return costbasis.RawInput{}, fmt.Errorf("cannot load holdings of portfolio %d: %w", id, err)
	}
	defer hrows.Close()
	for hrows.Next() {
		var (
			h                 costbasis.RawHolding
			shares, avg, last string
		)
		if err := hrows.Scan(&h.Code, &h.Name, &shares, &avg, &last); err != nil {
			return costbasis.RawInput{}, fmt.Errorf("cannot load holdings of portfolio %d: %w", id, err)
		}
		h.Shares, h.AvgPurchasePrice, h.CurrentPrice = number(shares), number(avg), number(last)
		in.Holdings = append(in.Holdings, h)
	}
	if err := hrows.Err(); err != nil {
		return costbasis.RawInput{}, err
	}

	prows, err := s.db.QueryContext(ctx, `SELECT stock_code, price FROM prices WHERE portfolio_id = ?`, id)
	if err != nil {
		return costbasis.RawInput{}, fmt.Errorf("cannot load prices of portfolio %d: %w", id, err)
	}
	defer prows.Close()
	for prows.Next() {
		var code, price string
		if err := prows.Scan(&code, &price); err != nil {
			return costbasis.RawInput{}, fmt.Errorf("cannot load prices of portfolio %d: %w", id, err)
		}
		in.Prices.Set(code, costbasis.M(parse(price), ""))
	}
	return in, prows.Err()
}

func (s *Store) exists(ctx context.Context, id int64) error {
	_, err := s.Portfolio(ctx, id)
	return err
}

func mustAffect(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("portfolio %d: %w", id, ErrNotFound)
	}
	return nil
}

// parse reads a stored decimal. Values are written by this package, an
// unreadable one reads as zero like any other unreadable number.
func parse(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func number(s string) costbasis.Number { return costbasis.N(parse(s)) }
