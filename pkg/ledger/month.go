package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownMonth is returned by ParseMonth for anything but "All" or a month name.
var ErrUnknownMonth = errors.New("unknown month")

// MonthSelector is either All or a calendar month.
type MonthSelector int

// All selects every record regardless of date.
const All MonthSelector = 0

// AllName is the textual sentinel for All.
const AllName = "All"

// Month selects a single calendar month.
func Month(m time.Month) MonthSelector {
	return MonthSelector(m)
}

// ParseMonth accepts "All" or an English month name, case-insensitively.
func ParseMonth(s string) (MonthSelector, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, AllName) {
		return All, nil
	}
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(s, m.String()) {
			return Month(m), nil
		}
	}
	return All, fmt.Errorf("%w: %q", ErrUnknownMonth, s)
}

// MonthOptions lists the selector names in display order, All first.
func MonthOptions() []string {
	opts := make([]string, 0, 13)
	opts = append(opts, AllName)
	for m := time.January; m <= time.December; m++ {
		opts = append(opts, m.String())
	}
	return opts
}

// IsAll reports whether the selector matches every record.
func (s MonthSelector) IsAll() bool {
	return s == All
}

func (s MonthSelector) String() string {
	if s.IsAll() {
		return AllName
	}
	return time.Month(s).String()
}
