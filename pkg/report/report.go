// Package report builds the monthly summary shown by the CLI and the HTTP API.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/fintrack/pkg/api"
	"github.com/ArionMiles/fintrack/pkg/ledger"
)

// EmptyMessage is shown when a selection has no records.
const EmptyMessage = "No expenses to display for this month."

// Slice is one category's portion of a summary.
type Slice struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	// Share is the fraction of all positive spending, in [0, 1].
	// Categories with a zero or negative sum have no share.
	Share float64 `json:"share"`
}

// Summary is the aggregated view of one month selection.
type Summary struct {
	Month   string        `json:"month"`
	Records []api.Expense `json:"records"`
	Count   int           `json:"count"`
	// Total adds amounts across currencies without conversion.
	Total      decimal.Decimal            `json:"total"`
	ByCurrency map[string]decimal.Decimal `json:"by_currency"`
	Slices     []Slice                    `json:"slices"`
}

// Empty reports whether the selection matched nothing.
func (s Summary) Empty() bool {
	return s.Count == 0
}

// MixedCurrency reports whether Total sums more than one currency.
func (s Summary) MixedCurrency() bool {
	return len(s.ByCurrency) > 1
}

// Build filters records by sel and aggregates the result.
func Build(records []api.Expense, sel ledger.MonthSelector) Summary {
	selected := ledger.FilterByMonth(records, sel)

	sums := ledger.AggregateByCategory(selected)
	positive := decimal.Zero
	for _, amount := range sums {
		if amount.IsPositive() {
			positive = positive.Add(amount)
		}
	}

	slices := make([]Slice, 0, len(sums))
	for category, amount := range sums {
		share := 0.0
		if amount.IsPositive() && positive.IsPositive() {
			share = amount.Div(positive).InexactFloat64()
		}
		slices = append(slices, Slice{Category: category, Amount: amount, Share: share})
	}
	sort.Slice(slices, func(i, j int) bool {
		if c := slices[i].Amount.Cmp(slices[j].Amount); c != 0 {
			return c > 0
		}
		return slices[i].Category < slices[j].Category
	})

	if selected == nil {
		selected = []api.Expense{}
	}

	return Summary{
		Month:      sel.String(),
		Records:    selected,
		Count:      len(selected),
		Total:      ledger.Total(selected),
		ByCurrency: ledger.TotalsByCurrency(selected),
		Slices:     slices,
	}
}

// WriteText renders s as aligned plain-text tables.
func WriteText(w io.Writer, s Summary) error {
	if s.Empty() {
		_, err := fmt.Fprintf(w, "%s: %s\n", s.Month, EmptyMessage)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	writeRecords(tw, s.Records)
	fmt.Fprintln(tw)

	label := "Total"
	if s.MixedCurrency() {
		label = "Total (mixed currencies)"
	}
	fmt.Fprintf(tw, "%s\t%s\n", label, s.Total.StringFixed(2))
	if s.MixedCurrency() {
		for _, cur := range sortedKeys(s.ByCurrency) {
			fmt.Fprintf(tw, "  %s\t%s\n", cur, s.ByCurrency[cur].StringFixed(2))
		}
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "Category\tAmount\tShare\n")
	for _, sl := range s.Slices {
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\n", sl.Category, sl.Amount.StringFixed(2), sl.Share*100)
	}

	return tw.Flush()
}

// WriteRecords renders records as an aligned table.
func WriteRecords(w io.Writer, records []api.Expense) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	writeRecords(tw, records)
	return tw.Flush()
}

func writeRecords(w io.Writer, records []api.Expense) {
	fmt.Fprintf(w, "Date\tDescription\tCategory\tAmount\tCurrency\n")
	for _, e := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Date, e.Description, e.Category, e.Amount.StringFixed(2), e.Currency)
	}
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
