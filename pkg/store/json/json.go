// Package json implements an expense store backed by a JSON array file.
package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ArionMiles/fintrack/pkg/api"
)

// Config holds configuration for the JSON store.
type Config struct {
	// FilePath is the path to the JSON file.
	FilePath string
	// DefaultCurrency fills records stored without a currency.
	DefaultCurrency string
}

// record is the on-disk shape. Amounts stay textual so the exact decimal
// survives a round trip.
type record struct {
	Date        string     `json:"date"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`
	Amount      amountText `json:"amount"`
	Currency    string     `json:"currency,omitempty"`
}

// amountText accepts an amount written as a JSON string or a bare number.
type amountText string

func (a *amountText) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*a = amountText(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount must be a string or number: %w", err)
	}
	*a = amountText(s)
	return nil
}

// Store keeps expenses in a JSON array. JSON has no append, so each write
// rewrites the file through a temporary file and rename.
type Store struct {
	filePath string
	currency string
	mu       sync.Mutex
	logger   *slog.Logger
}

// New creates the store, writing an empty array if the file does not exist.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FilePath == "" {
		return nil, errors.New("json file path is required")
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = api.DefaultCurrency
	}

	s := &Store{
		filePath: cfg.FilePath,
		currency: cfg.DefaultCurrency,
		logger:   logger,
	}

	if _, err := os.Stat(cfg.FilePath); os.IsNotExist(err) {
		if err := s.writeAll(nil); err != nil {
			return nil, err
		}
	}

	existing, err := s.readEntries()
	if err != nil {
		return nil, err
	}

	logger.Info("json store initialized", "file", cfg.FilePath, "existing_count", len(existing))
	return s, nil
}

// Append adds one record.
func (s *Store) Append(ctx context.Context, e api.Expense) error {
	return s.AppendBatch(ctx, []api.Expense{e})
}

// AppendBatch adds records after the existing ones and rewrites the file.
func (s *Store) AppendBatch(ctx context.Context, expenses []api.Expense) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readEntries()
	if err != nil {
		return err
	}
	for _, e := range expenses {
		raw, err := json.Marshal(record{
			Date:        e.Date.String(),
			Description: e.Description,
			Category:    e.Category,
			Amount:      amountText(e.Amount.String()),
			Currency:    e.Currency,
		})
		if err != nil {
			return fmt.Errorf("marshaling expense: %w", err)
		}
		entries = append(entries, raw)
	}

	if err := s.writeAll(entries); err != nil {
		return err
	}

	s.logger.Debug("wrote expenses to json",
		"batch_count", len(expenses),
		"total_count", len(entries),
	)
	return nil
}

// LoadAll decodes every record, skipping entries that are malformed or carry a
// bad date or amount.
func (s *Store) LoadAll(ctx context.Context) ([]api.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	entries, err := s.readEntries()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	expenses := make([]api.Expense, 0, len(entries))
	for i, raw := range entries {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			s.logger.Debug("skipping malformed record", "index", i, "error", err)
			continue
		}
		date, err := api.ParseDate(r.Date)
		if err != nil {
			s.logger.Debug("skipping unparseable record", "index", i, "error", err)
			continue
		}
		amount, err := api.ParseAmount(string(r.Amount))
		if err != nil {
			s.logger.Debug("skipping unparseable record", "index", i, "error", err)
			continue
		}
		currency := r.Currency
		if currency == "" {
			currency = s.currency
		}
		expenses = append(expenses, api.Expense{
			Date:        date,
			Description: r.Description,
			Category:    r.Category,
			Amount:      amount,
			Currency:    currency,
		})
	}
	return expenses, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// readEntries returns the raw array elements. Entries are kept undecoded so a
// rewrite preserves ones LoadAll cannot parse.
func (s *Store) readEntries() ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading json file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding json file %s: %w", s.filePath, err)
	}
	return entries, nil
}

func (s *Store) writeAll(entries []json.RawMessage) error {
	if entries == nil {
		entries = []json.RawMessage{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling json: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating json directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".fintrack-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing json file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing json file: %w", err)
	}
	if err := os.Rename(tmpName, s.filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing json file: %w", err)
	}
	return nil
}
