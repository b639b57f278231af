// Package postgres provides a PostgreSQL expense store.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/fintrack/pkg/api"
)

//go:embed 001_create_expenses.sql
var migrationSQL string

// Config holds the PostgreSQL store configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int
}

// ConnString renders the libpq keyword/value connection string.
func (c Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = 4
	}
}

// Store writes expenses to a PostgreSQL table.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects, pings and migrates.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	// Set defaults
	cfg.setDefaults()

	// Build connection string
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	// Configure pool
	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database,
	)

	// Run migrations
	s := &Store{pool: pool, logger: logger}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	s.logger.Info("running database migrations")
	if _, err := s.pool.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}
	s.logger.Info("migrations completed successfully")
	return nil
}

// Append inserts one expense.
func (s *Store) Append(ctx context.Context, e api.Expense) error {
	return s.AppendBatch(ctx, []api.Expense{e})
}

// AppendBatch inserts expenses in one transaction using a pgx batch.
func (s *Store) AppendBatch(ctx context.Context, expenses []api.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range expenses {
		batch.Queue(`
			INSERT INTO expenses (id, date, description, category, amount, currency)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(),
			e.Date.Time,
			e.Description,
			e.Category,
			e.Amount.String(),
			e.Currency,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range expenses {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("inserting expense %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("wrote expense batch", "count", len(expenses))
	return nil
}

// LoadAll returns every expense in insertion order.
func (s *Store) LoadAll(ctx context.Context) ([]api.Expense, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, date, description, category, amount::text, currency
		FROM expenses
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]api.Expense, 0)
	for rows.Next() {
		var (
			id          string
			date        time.Time
			description string
			category    string
			amount      string
			currency    string
		)
		if err := rows.Scan(&id, &date, &description, &category, &amount, &currency); err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}

		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			s.logger.Debug("skipping unparseable row", "id", id, "error", err)
			continue
		}

		expenses = append(expenses, api.Expense{
			Date:        api.NewDate(date.Year(), date.Month(), date.Day()),
			Description: description,
			Category:    category,
			Amount:      parsed,
			Currency:    currency,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expenses: %w", err)
	}

	return expenses, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("closed PostgreSQL connection pool")
	}
	return nil
}
