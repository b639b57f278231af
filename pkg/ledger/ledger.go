// Package ledger implements the append-only expense ledger on top of an api.Store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ArionMiles/fintrack/pkg/api"
)

// ValidationError reports a rejected input field. It unwraps to
// api.ErrInvalidAmount or api.ErrInvalidDate.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Input holds raw field values as collected by a form.
type Input struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

// Config holds ledger construction options.
type Config struct {
	// DefaultCurrency fills records appended without a currency.
	// Defaults to api.DefaultCurrency.
	DefaultCurrency string
	// Now returns the current time; an empty Input.Date means today.
	// Defaults to time.Now.
	Now func() time.Time
}

// Ledger owns a store and applies validation and classification on append.
type Ledger struct {
	store      api.Store
	classifier api.Classifier
	currency   string
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a ledger over store. The ledger does not close the store.
func New(store api.Store, classifier api.Classifier, cfg Config, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = api.DefaultCurrency
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Ledger{
		store:      store,
		classifier: classifier,
		currency:   cfg.DefaultCurrency,
		now:        cfg.Now,
		logger:     logger,
	}
}

// DefaultCurrency returns the currency assigned to records appended without one.
func (l *Ledger) DefaultCurrency() string {
	return l.currency
}

// Append validates in, classifies it when no category was given and persists it.
// Nothing is written when validation fails. The returned record is the one a
// later LoadAll yields.
func (l *Ledger) Append(ctx context.Context, in Input) (api.Expense, error) {
	e, err := l.build(in)
	if err != nil {
		l.logger.Debug("rejected expense", "field", fieldOf(err), "error", err)
		return api.Expense{}, err
	}

	if err := l.store.Append(ctx, e); err != nil {
		return api.Expense{}, fmt.Errorf("appending expense: %w", err)
	}

	if n, ok := l.store.(api.Normalizer); ok {
		stored := n.Normalize(e)
		if !stored.Equal(e) {
			l.logger.Warn("store layout cannot hold every field",
				"description", e.Description,
				"currency", e.Currency,
				"stored_currency", stored.Currency,
			)
		}
		e = stored
	}

	l.logger.Info("expense appended",
		"date", e.Date.String(),
		"category", e.Category,
		"amount", e.Amount.String(),
		"currency", e.Currency,
	)
	return e, nil
}

// Import appends already parsed records, filling category and currency the
// same way Append does. Stores implementing api.BatchAppender receive the
// whole slice in one call.
func (l *Ledger) Import(ctx context.Context, expenses []api.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	prepared := make([]api.Expense, len(expenses))
	for i, e := range expenses {
		prepared[i] = l.complete(e)
	}

	if ba, ok := l.store.(api.BatchAppender); ok {
		if err := ba.AppendBatch(ctx, prepared); err != nil {
			return fmt.Errorf("appending batch: %w", err)
		}
		return nil
	}

	for i, e := range prepared {
		if err := l.store.Append(ctx, e); err != nil {
			return fmt.Errorf("appending record %d: %w", i, err)
		}
	}
	return nil
}

// LoadAll returns every readable record in store order.
func (l *Ledger) LoadAll(ctx context.Context) ([]api.Expense, error) {
	records, err := l.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading expenses: %w", err)
	}
	return records, nil
}

// Month loads all records and keeps those matching sel.
func (l *Ledger) Month(ctx context.Context, sel MonthSelector) ([]api.Expense, error) {
	records, err := l.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByMonth(records, sel), nil
}

func (l *Ledger) build(in Input) (api.Expense, error) {
	rawAmount := strings.TrimSpace(in.Amount)
	amount, err := api.ParseAmount(rawAmount)
	if err != nil {
		return api.Expense{}, &ValidationError{Field: "amount", Value: in.Amount, Err: api.ErrInvalidAmount}
	}

	var date api.Date
	if rawDate := strings.TrimSpace(in.Date); rawDate == "" {
		y, m, d := l.now().Date()
		date = api.NewDate(y, m, d)
	} else {
		date, err = api.ParseDate(rawDate)
		if err != nil {
			return api.Expense{}, &ValidationError{Field: "date", Value: in.Date, Err: api.ErrInvalidDate}
		}
	}

	return l.complete(api.Expense{
		Date:        date,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Amount:      amount,
		Currency:    strings.TrimSpace(in.Currency),
	}), nil
}

func (l *Ledger) complete(e api.Expense) api.Expense {
	if e.Category == "" {
		e.Category = l.classifier.Classify(e.Description)
	}
	if e.Currency == "" {
		e.Currency = l.currency
	}
	return e
}

func fieldOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}
