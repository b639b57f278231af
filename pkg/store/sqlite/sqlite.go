// Package sqlite implements an expense store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ArionMiles/fintrack/pkg/api"
)

//go:embed 001_create_expenses.sql
var migrationSQL string

// Config holds configuration for the SQLite store.
type Config struct {
	// Path is the database file. ":memory:" keeps everything in memory.
	Path string
	// DefaultCurrency fills rows stored without a currency.
	DefaultCurrency string
}

// Store appends expenses to a SQLite table and reads them back by insertion id.
type Store struct {
	db       *sql.DB
	currency string
	logger   *slog.Logger
}

// New opens the database and applies the schema.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = api.DefaultCurrency
	}

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls and
	// serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, migrationSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("sqlite store initialized", "path", cfg.Path)
	return &Store{db: db, currency: cfg.DefaultCurrency, logger: logger}, nil
}

// Append inserts one expense.
func (s *Store) Append(ctx context.Context, e api.Expense) error {
	return s.AppendBatch(ctx, []api.Expense{e})
}

// AppendBatch inserts expenses in a single transaction.
func (s *Store) AppendBatch(ctx context.Context, expenses []api.Expense) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO expenses (date, description, category, amount, currency)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range expenses {
		if _, err := stmt.ExecContext(ctx,
			e.Date.String(), e.Description, e.Category, e.Amount.String(), e.Currency,
		); err != nil {
			return fmt.Errorf("insert expense %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("expenses saved to sqlite", "count", len(expenses))
	return nil
}

// LoadAll returns all expenses ordered by insertion, skipping rows whose
// date or amount no longer parse.
func (s *Store) LoadAll(ctx context.Context) ([]api.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, description, category, amount, currency
		FROM expenses
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]api.Expense, 0)
	for rows.Next() {
		var (
			id                                            int64
			date, description, category, amount, currency string
		)
		if err := rows.Scan(&id, &date, &description, &category, &amount, &currency); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}

		parsedDate, err := api.ParseDate(date)
		if err != nil {
			s.logger.Debug("skipping unparseable row", "id", id, "error", err)
			continue
		}
		parsedAmount, err := api.ParseAmount(amount)
		if err != nil {
			s.logger.Debug("skipping unparseable row", "id", id, "error", err)
			continue
		}
		if currency == "" {
			currency = s.currency
		}

		expenses = append(expenses, api.Expense{
			Date:        parsedDate,
			Description: description,
			Category:    category,
			Amount:      parsedAmount,
			Currency:    currency,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	return expenses, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
