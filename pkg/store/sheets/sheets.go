// Package sheets implements an expense store backed by a Google Sheets tab.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/ArionMiles/fintrack/pkg/api"
	"github.com/ArionMiles/fintrack/pkg/schema"
)

// Scope is the OAuth scope the store needs.
const Scope = sheets.SpreadsheetsScope

// Defaults for Config.
const (
	DefaultSheetTitle = "fintrack"
	DefaultSheetName  = "Sheet1"
	DefaultRetryDelay = 60 * time.Second
)

// Config holds configuration for the Sheets store.
type Config struct {
	// SpreadsheetID is the ID of an existing spreadsheet. A new one titled
	// SheetTitle is created when empty or unreachable.
	SpreadsheetID string
	SheetTitle    string
	// SheetName is the tab holding the ledger.
	SheetName string
	// Variant is the header written to an empty tab.
	Variant         schema.Variant
	DefaultCurrency string
	// RetryDelay is the wait between rate-limited attempts.
	RetryDelay time.Duration
}

func (c *Config) setDefaults() {
	if c.SheetTitle == "" {
		c.SheetTitle = DefaultSheetTitle
	}
	if c.SheetName == "" {
		c.SheetName = DefaultSheetName
	}
	if c.Variant == "" {
		c.Variant = schema.VariantA
	}
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = api.DefaultCurrency
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
}

// Store appends expense rows to a sheet and reads them back.
type Store struct {
	client        *sheets.Service
	spreadsheetID string
	sheetName     string
	layout        schema.Layout
	currency      string
	retryDelay    time.Duration
	mu            sync.Mutex
	logger        *slog.Logger
}

// New opens or creates the spreadsheet and makes sure the tab has a header.
func New(ctx context.Context, httpClient *http.Client, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	// Set defaults
	cfg.setDefaults()

	// Create sheets service
	client, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	s := &Store{
		client:     client,
		sheetName:  cfg.SheetName,
		currency:   cfg.DefaultCurrency,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}

	// Get or create the spreadsheet
	id, err := s.initSpreadsheet(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing spreadsheet: %w", err)
	}
	s.spreadsheetID = id

	// Adopt or write the header row
	layout, err := s.initHeader(ctx, cfg.Variant)
	if err != nil {
		return nil, err
	}
	s.layout = layout

	logger.Info("sheets store initialized",
		"spreadsheet_id", id,
		"sheet", cfg.SheetName,
		"variant", layout.Variant,
	)
	return s, nil
}

func (s *Store) initSpreadsheet(ctx context.Context, cfg Config) (string, error) {
	if cfg.SpreadsheetID != "" {
		spreadsheet, err := s.client.Spreadsheets.Get(cfg.SpreadsheetID).Context(ctx).Do()
		if err == nil {
			s.logger.Info("using existing spreadsheet", "title", spreadsheet.Properties.Title, "id", cfg.SpreadsheetID)
			return spreadsheet.SpreadsheetId, nil
		}
		s.logger.Warn("failed to get spreadsheet, will create new one", "id", cfg.SpreadsheetID, "error", err)
	}

	spreadsheet, err := s.client.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: cfg.SheetTitle},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: cfg.SheetName}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("creating spreadsheet: %w", err)
	}

	s.logger.Info("created new spreadsheet", "title", cfg.SheetTitle, "id", spreadsheet.SpreadsheetId)
	return spreadsheet.SpreadsheetId, nil
}

// initHeader adopts the layout of an existing header row or writes one.
func (s *Store) initHeader(ctx context.Context, variant schema.Variant) (schema.Layout, error) {
	resp, err := s.client.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!1:1").Context(ctx).Do()
	if err != nil {
		return schema.Layout{}, fmt.Errorf("reading header row: %w", err)
	}

	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		layout, err := schema.Detect(cellStrings(resp.Values[0]))
		if err != nil {
			return schema.Layout{}, err
		}
		if layout.Variant != variant {
			s.logger.Info("sheet header overrides configured variant",
				"configured", variant,
				"found", layout.Variant,
			)
		}
		return layout, nil
	}

	header := &sheets.ValueRange{Values: [][]any{toCells(variant.Header())}}
	_, err = s.client.Spreadsheets.Values.Update(s.spreadsheetID, s.sheetName+"!A1", header).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return schema.Layout{}, fmt.Errorf("writing header row: %w", err)
	}

	s.logger.Info("wrote headers to sheet", "variant", variant)
	return schema.LayoutOf(variant), nil
}

// SpreadsheetID returns the ID of the spreadsheet in use.
func (s *Store) SpreadsheetID() string {
	return s.spreadsheetID
}

// Normalize returns e as it reads back from the sheet's layout.
func (s *Store) Normalize(e api.Expense) api.Expense {
	return s.layout.Normalize(e, s.currency)
}

// Append adds one expense row.
func (s *Store) Append(ctx context.Context, e api.Expense) error {
	return s.AppendBatch(ctx, []api.Expense{e})
}

// AppendBatch adds all expenses in a single API call, retrying when rate limited.
func (s *Store) AppendBatch(ctx context.Context, expenses []api.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	req := &sheets.ValueRange{Values: encodeRows(s.layout, expenses)}

	err := retry.Do(
		func() error {
			_, err := s.client.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetName+"!A1", req).
				ValueInputOption("RAW").
				InsertDataOption("INSERT_ROWS").
				Context(ctx).
				Do()
			return err
		},
		retry.RetryIf(func(err error) bool {
			if isRateLimited(err) && ctx.Err() == nil {
				s.logger.Warn("rate limited, will retry", "error", err)
				return true
			}
			return false
		}),
		retry.Attempts(3),
		retry.Delay(s.retryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("appending rows to sheet: %w", err)
	}

	s.logger.Debug("wrote expense batch", "count", len(expenses))
	return nil
}

// LoadAll reads every data row below the header. Unparseable rows are skipped.
func (s *Store) LoadAll(ctx context.Context) ([]api.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.client.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading sheet values: %w", err)
	}
	return decodeRows(resp.Values, s.currency, s.logger)
}

// Close is a no-op; the HTTP client is owned by the caller.
func (s *Store) Close() error {
	return nil
}

func isRateLimited(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
}

// encodeRows lays each expense out in the column order of the sheet's header.
func encodeRows(layout schema.Layout, expenses []api.Expense) [][]any {
	rows := make([][]any, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, toCells(layout.Encode(e)))
	}
	return rows
}

// decodeRows treats the first row as the header, the same way the CSV store does.
func decodeRows(values [][]any, defaultCurrency string, logger *slog.Logger) ([]api.Expense, error) {
	expenses := make([]api.Expense, 0)
	if len(values) == 0 {
		return expenses, nil
	}

	layout, err := schema.Detect(cellStrings(values[0]))
	if err != nil {
		return nil, err
	}

	for i, row := range values[1:] {
		e, err := layout.Decode(cellStrings(row), defaultCurrency)
		if err != nil {
			logger.Debug("skipping unparseable row", "row", i+2, "error", err)
			continue
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

func toCells(fields []string) []any {
	cells := make([]any, len(fields))
	for i, f := range fields {
		cells[i] = f
	}
	return cells
}

func cellStrings(cells []any) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c == nil {
			continue
		}
		out[i] = fmt.Sprint(c)
	}
	return out
}
