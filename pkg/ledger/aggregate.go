package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/fintrack/pkg/api"
)

// FilterByMonth returns the records whose month-of-year matches sel, in any
// year. All returns records unchanged. Records without a date never match a
// specific month.
func FilterByMonth(records []api.Expense, sel MonthSelector) []api.Expense {
	if sel.IsAll() {
		return records
	}

	out := make([]api.Expense, 0, len(records))
	for _, e := range records {
		if e.Date.IsZero() {
			continue
		}
		if int(e.Date.Month()) == int(sel) {
			out = append(out, e)
		}
	}
	return out
}

// AggregateByCategory sums amounts per category label. Labels are compared
// exactly, so "Food" and "food" are separate groups.
func AggregateByCategory(records []api.Expense) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, e := range records {
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}
	return sums
}

// Total sums every amount. Currencies are not converted: records in USD and
// EUR are added as plain numbers. Use TotalsByCurrency for a breakdown.
func Total(records []api.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range records {
		total = total.Add(e.Amount)
	}
	return total
}

// TotalsByCurrency sums amounts per currency code.
func TotalsByCurrency(records []api.Expense) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, e := range records {
		sums[e.Currency] = sums[e.Currency].Add(e.Amount)
	}
	return sums
}
