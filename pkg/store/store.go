// Package store opens the expense store selected by configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ArionMiles/fintrack/pkg/api"
	"github.com/ArionMiles/fintrack/pkg/client"
	"github.com/ArionMiles/fintrack/pkg/config"
	csvstore "github.com/ArionMiles/fintrack/pkg/store/csv"
	jsonstore "github.com/ArionMiles/fintrack/pkg/store/json"
	"github.com/ArionMiles/fintrack/pkg/store/postgres"
	"github.com/ArionMiles/fintrack/pkg/store/sheets"
	"github.com/ArionMiles/fintrack/pkg/store/sqlite"
)

// Open builds the backend named by cfg.Store. The caller closes the store.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (api.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store", "backend", cfg.Store)

	switch cfg.Store {
	case config.StoreCSV:
		return opened(csvstore.New(csvstore.Config{
			FilePath:        cfg.File,
			Variant:         cfg.Variant(),
			DefaultCurrency: cfg.Currency,
		}, logger))

	case config.StoreJSON:
		return opened(jsonstore.New(jsonstore.Config{
			FilePath:        cfg.File,
			DefaultCurrency: cfg.Currency,
		}, logger))

	case config.StoreSQLite:
		return opened(sqlite.New(ctx, sqlite.Config{
			Path:            cfg.SQLitePath,
			DefaultCurrency: cfg.Currency,
		}, logger))

	case config.StorePostgres:
		return opened(postgres.New(ctx, postgres.Config{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			Database: cfg.PostgresDatabase,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPassword,
			SSLMode:  cfg.PostgresSSLMode,
		}, logger))

	case config.StoreSheets:
		httpClient, err := client.NewOffline(ctx, cfg.ClientConfig(), sheets.Scope)
		if err != nil {
			return nil, fmt.Errorf("creating google client: %w", err)
		}
		return opened(sheets.New(ctx, httpClient, sheets.Config{
			SpreadsheetID:   cfg.GSheetsID,
			SheetTitle:      cfg.GSheetsTitle,
			SheetName:       cfg.GSheetsName,
			Variant:         cfg.Variant(),
			DefaultCurrency: cfg.Currency,
		}, logger))

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}

// opened keeps a failed constructor from yielding a non-nil interface
// holding a nil pointer.
func opened[S api.Store](s S, err error) (api.Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
