// Package csv implements an append-only expense store backed by a flat CSV file.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ArionMiles/fintrack/pkg/api"
	"github.com/ArionMiles/fintrack/pkg/schema"
)

// Config holds configuration for the CSV store.
type Config struct {
	// FilePath is the path to the CSV file.
	FilePath string
	// Variant is the header layout written when the file is created.
	// Existing files keep whatever layout their header declares.
	Variant schema.Variant
	// DefaultCurrency fills rows that have no currency column.
	DefaultCurrency string
}

// Store reads and appends expenses to a CSV file. The file is opened and
// closed around every call; no handle is held between calls.
type Store struct {
	filePath string
	layout   schema.Layout
	currency string
	mu       sync.Mutex
	logger   *slog.Logger
}

// New creates the store, writing a header-only file if none exists.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FilePath == "" {
		return nil, errors.New("csv file path is required")
	}
	if cfg.Variant == "" {
		cfg.Variant = schema.VariantA
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = api.DefaultCurrency
	}

	s := &Store{
		filePath: cfg.FilePath,
		layout:   schema.LayoutOf(cfg.Variant),
		currency: cfg.DefaultCurrency,
		logger:   logger,
	}

	if err := s.ensureFile(); err != nil {
		return nil, err
	}

	logger.Info("csv store initialized", "file", cfg.FilePath, "variant", s.layout.Variant)
	return s, nil
}

// ensureFile creates the file with a header row, or adopts the layout of an
// existing header.
func (s *Store) ensureFile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.filePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating csv directory: %w", err)
		}
	}

	file, err := os.OpenFile(s.filePath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("opening csv file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}

	if stat.Size() == 0 {
		return writeRows(file, [][]string{s.layout.Variant.Header()})
	}

	header, err := csv.NewReader(file).Read()
	if err != nil {
		return fmt.Errorf("reading csv header: %w", err)
	}
	layout, err := schema.Detect(header)
	if err != nil {
		return fmt.Errorf("csv file %s: %w", s.filePath, err)
	}
	if layout.Variant != s.layout.Variant {
		s.logger.Info("existing csv header overrides configured variant",
			"configured", s.layout.Variant,
			"detected", layout.Variant,
		)
	}
	s.layout = layout
	return nil
}

// Variant returns the header layout in use.
func (s *Store) Variant() schema.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout.Variant
}

// Layout returns the header layout rows are written in.
func (s *Store) Layout() schema.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// Normalize returns e as it reads back from the file's layout.
func (s *Store) Normalize(e api.Expense) api.Expense {
	return s.Layout().Normalize(e, s.currency)
}

// Append writes one row at the end of the file.
func (s *Store) Append(ctx context.Context, e api.Expense) error {
	return s.AppendBatch(ctx, []api.Expense{e})
}

// AppendBatch writes rows at the end of the file in a single open/close.
func (s *Store) AppendBatch(ctx context.Context, expenses []api.Expense) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.filePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening csv file: %w", err)
	}

	rows := make([][]string, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, s.layout.Encode(e))
	}

	err = terminateLastLine(file)
	if err == nil {
		err = writeRows(file, rows)
	}
	if err != nil {
		if closeErr := file.Close(); closeErr != nil {
			return fmt.Errorf("writing csv records: %w (close error: %w)", err, closeErr)
		}
		return fmt.Errorf("writing csv records: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("closing csv file: %w", err)
	}

	s.logger.Debug("wrote expenses to csv", "count", len(expenses))
	return nil
}

// LoadAll reads every row. Rows with an unparseable date or amount, or a
// malformed CSV line, are skipped.
func (s *Store) LoadAll(ctx context.Context) ([]api.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []api.Expense{}, nil
		}
		return nil, fmt.Errorf("opening csv file: %w", err)
	}
	defer file.Close()

	return ReadAll(file, s.currency, s.logger)
}

// ReadAll decodes a CSV stream whose first row is a header of either variant.
// An empty stream yields no records.
func ReadAll(r io.Reader, defaultCurrency string, logger *slog.Logger) ([]api.Expense, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []api.Expense{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	layout, err := schema.Detect(header)
	if err != nil {
		return nil, err
	}

	expenses := make([]api.Expense, 0)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Debug("skipping malformed csv line", "line", line, "error", err)
			continue
		}

		e, err := layout.Decode(row, defaultCurrency)
		if err != nil {
			logger.Debug("skipping unparseable row", "line", line, "error", err)
			continue
		}
		expenses = append(expenses, e)
	}

	return expenses, nil
}

// Close is a no-op; the file is not held open between calls.
func (s *Store) Close() error {
	s.logger.Debug("csv store closed", "file", s.filePath)
	return nil
}

// terminateLastLine writes a newline when the file does not already end in
// one, so appended rows never join the last existing record.
func terminateLastLine(file *os.File) error {
	stat, err := file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() == 0 {
		return nil
	}

	last := make([]byte, 1)
	if _, err := file.ReadAt(last, stat.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	_, err = file.Write([]byte("\n"))
	return err
}

func writeRows(w io.Writer, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}
