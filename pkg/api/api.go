// Package api defines the core interfaces and data structures for fintrack.
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the on-disk and wire format of an expense date.
const DateLayout = "2006-01-02"

// DefaultCurrency is used when neither the caller nor the configuration names one.
const DefaultCurrency = "USD"

var (
	// ErrInvalidAmount is returned when an amount is not a decimal number.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidDate is returned when a date is not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date")
)

// Date is a calendar date without a time of day.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD. The zero date renders as "".
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON overrides the promoted time.Time encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted YYYY-MM-DD string or null.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	return d.UnmarshalText([]byte(s[1 : len(s)-1]))
}

// ParseAmount parses a textual decimal amount. Signed values are allowed.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return amount, nil
}

// Expense is a single ledger record.
type Expense struct {
	Date        Date            `json:"date"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
}

// Equal reports whether two expenses carry the same values field-for-field.
// Amounts compare numerically, so "10" and "10.00" are equal.
func (e Expense) Equal(o Expense) bool {
	return e.Date.Equal(o.Date.Time) &&
		e.Description == o.Description &&
		e.Category == o.Category &&
		e.Amount.Equal(o.Amount) &&
		e.Currency == o.Currency
}

// Store is the durable backing of a ledger.
// Implementations only ever append; existing records are never rewritten in place.
type Store interface {
	// Append persists a single record after all previously appended ones.
	Append(ctx context.Context, e Expense) error
	// LoadAll returns every readable record in insertion order.
	// Rows that cannot be parsed are skipped.
	LoadAll(ctx context.Context) ([]Expense, error)
	// Close releases any resources held by the store.
	Close() error
}

// BatchAppender is implemented by stores that can persist several records in one call.
type BatchAppender interface {
	AppendBatch(ctx context.Context, expenses []Expense) error
}

// Normalizer is implemented by stores whose row layout cannot hold every
// field. Normalize returns the record exactly as LoadAll will read it back.
type Normalizer interface {
	Normalize(e Expense) Expense
}

// Classifier assigns a category label to a free-text description.
type Classifier interface {
	Classify(description string) string
}
