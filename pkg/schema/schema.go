// Package schema maps expenses to and from flat tabular rows.
//
// Two header layouts exist in the wild:
//
//	A: Date, Description, Category, Amount, Currency
//	B: Date, Category, Amount
//
// The layout of an existing file is detected once from its header; rows are
// then decoded into the canonical api.Expense with missing columns defaulted.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ArionMiles/fintrack/pkg/api"
)

// Variant identifies a header layout.
type Variant string

const (
	VariantA Variant = "A"
	VariantB Variant = "B"
)

// Column names.
const (
	ColDate        = "Date"
	ColDescription = "Description"
	ColCategory    = "Category"
	ColAmount      = "Amount"
	ColCurrency    = "Currency"
)

// ErrUnknownHeader is returned when a header matches neither variant.
var ErrUnknownHeader = errors.New("unrecognised header")

// ParseVariant accepts "A", "B" (any case) or "" for VariantA.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "A":
		return VariantA, nil
	case "B":
		return VariantB, nil
	default:
		return "", fmt.Errorf("unknown schema variant %q: must be A or B", s)
	}
}

// Header returns the column names written by the variant.
func (v Variant) Header() []string {
	if v == VariantB {
		return []string{ColDate, ColCategory, ColAmount}
	}
	return []string{ColDate, ColDescription, ColCategory, ColAmount, ColCurrency}
}

// Encode renders an expense as a row in the variant's canonical column order.
// Variant B has no room for description or currency and drops them.
func (v Variant) Encode(e api.Expense) []string {
	return LayoutOf(v).Encode(e)
}

// Layout is a decoded header: the variant plus the column index of each field.
type Layout struct {
	Variant Variant
	index   map[string]int
	width   int
}

// Detect inspects a header row. Column order does not matter and names are
// matched case-insensitively; Date, Category and Amount are mandatory.
func Detect(header []string) (Layout, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		for _, col := range []string{ColDate, ColDescription, ColCategory, ColAmount, ColCurrency} {
			if strings.EqualFold(name, col) {
				index[col] = i
			}
		}
	}

	for _, required := range []string{ColDate, ColCategory, ColAmount} {
		if _, ok := index[required]; !ok {
			return Layout{}, fmt.Errorf("%w: missing %s column in %v", ErrUnknownHeader, required, header)
		}
	}

	variant := VariantB
	_, hasDesc := index[ColDescription]
	_, hasCur := index[ColCurrency]
	if hasDesc || hasCur {
		variant = VariantA
	}

	return Layout{Variant: variant, index: index, width: len(header)}, nil
}

// LayoutOf returns the layout matching the header a variant writes.
func LayoutOf(v Variant) Layout {
	l, _ := Detect(v.Header())
	return l
}

// Decode parses a data row. Missing currency falls back to defaultCurrency.
// The returned error wraps api.ErrInvalidDate or api.ErrInvalidAmount.
func (l Layout) Decode(row []string, defaultCurrency string) (api.Expense, error) {
	date, err := api.ParseDate(l.field(row, ColDate))
	if err != nil {
		return api.Expense{}, err
	}

	amount, err := api.ParseAmount(l.field(row, ColAmount))
	if err != nil {
		return api.Expense{}, err
	}

	currency := l.field(row, ColCurrency)
	if currency == "" {
		currency = defaultCurrency
	}

	return api.Expense{
		Date:        date,
		Description: l.field(row, ColDescription),
		Category:    l.field(row, ColCategory),
		Amount:      amount,
		Currency:    currency,
	}, nil
}

// Encode renders an expense as a row matching the layout's header, placing each
// field at the column the header declares. Unknown columns are left blank.
func (l Layout) Encode(e api.Expense) []string {
	row := make([]string, l.width)
	l.set(row, ColDate, e.Date.String())
	l.set(row, ColDescription, e.Description)
	l.set(row, ColCategory, e.Category)
	l.set(row, ColAmount, e.Amount.String())
	l.set(row, ColCurrency, e.Currency)
	return row
}

// Normalize returns the expense as it reads back after a round trip through
// the layout: columns the header lacks are cleared, and a blank currency takes
// defaultCurrency.
func (l Layout) Normalize(e api.Expense, defaultCurrency string) api.Expense {
	if _, ok := l.index[ColDescription]; !ok {
		e.Description = ""
	}
	if _, ok := l.index[ColCurrency]; !ok || e.Currency == "" {
		e.Currency = defaultCurrency
	}
	return e
}

func (l Layout) set(row []string, col, value string) {
	if i, ok := l.index[col]; ok {
		row[i] = value
	}
}

func (l Layout) field(row []string, col string) string {
	i, ok := l.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
