package csv

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ArionMiles/fintrack/pkg/api"
	"github.com/ArionMiles/fintrack/pkg/schema"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_CreatesHeaderOnlyFile(t *testing.T) {
	tests := []struct {
		variant schema.Variant
		want    string
	}{
		{schema.VariantA, "Date,Description,Category,Amount,Currency\n"},
		{schema.VariantB, "Date,Category,Amount\n"},
	}

	for _, tc := range tests {
		t.Run(string(tc.variant), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "expenses.csv")
			if _, err := New(Config{FilePath: path, Variant: tc.variant}, quietLogger()); err != nil {
				t.Fatalf("New: %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("reading file: %v", err)
			}
			if string(data) != tc.want {
				t.Errorf("content: got %q, want %q", data, tc.want)
			}
		})
	}
}

func TestAppendThenLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expenses.csv")

	s, err := New(Config{FilePath: path}, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	records := []api.Expense{
		{Date: api.NewDate(2024, time.March, 1), Description: "supermarket", Category: "Groceries", Amount: decimal.RequireFromString("42.10"), Currency: "USD"},
		{Date: api.NewDate(2024, time.March, 2), Description: `quote " and, comma`, Category: "Other", Amount: decimal.RequireFromString("-3"), Currency: "EUR"},
	}
	for _, r := range records {
		if err := s.Append(ctx, r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("count: got %d, want %d", len(got), len(records))
	}
	for i := range records {
		if !got[i].Equal(records[i]) {
			t.Errorf("record %d: got %+v, want %+v", i, got[i], records[i])
		}
	}
}

func TestLoadAll_SkipsUnparseableRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.csv")
	content := strings.Join([]string{
		"Date,Description,Category,Amount,Currency",
		"2024-03-01,ok,Food,10,USD",
		"2024-03-02,bad amount,Food,abc,USD",
		"not-a-date,bad date,Food,5,USD",
		"2024-03-03,no currency,Car,3,",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := New(Config{FilePath: path, DefaultCurrency: "GBP"}, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := s.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("count: got %d, want 2 (%+v)", len(got), got)
	}
	if got[1].Currency != "GBP" {
		t.Errorf("default currency: got %q, want GBP", got[1].Currency)
	}
}

func TestExistingVariantBHeaderWins(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expenses.csv")
	if err := os.WriteFile(path, []byte("Date,Category,Amount\n2024-04-01,Rent,900\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := New(Config{FilePath: path, Variant: schema.VariantA}, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Variant() != schema.VariantB {
		t.Fatalf("variant: got %q, want B", s.Variant())
	}

	err = s.Append(ctx, api.Expense{
		Date:        api.NewDate(2024, time.April, 2),
		Description: "dropped",
		Category:    "Car",
		Amount:      decimal.NewFromInt(20),
		Currency:    "USD",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "Date,Category,Amount\n2024-04-01,Rent,900\n2024-04-02,Car,20\n"
	if string(data) != want {
		t.Errorf("content: got %q, want %q", data, want)
	}
}

func TestAppend_ExistingFileLayouts(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		want     string
	}{
		{
			name:     "reordered header",
			existing: "Category,Amount,Date\nRent,900,2024-04-01\n",
			want:     "Category,Amount,Date\nRent,900,2024-04-01\nCar,20,2024-04-02\n",
		},
		{
			name:     "missing trailing newline",
			existing: "Date,Description,Category,Amount,Currency\n2024-04-01,,Rent,900,USD",
			want:     "Date,Description,Category,Amount,Currency\n2024-04-01,,Rent,900,USD\n2024-04-02,,Car,20,USD\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "expenses.csv")
			if err := os.WriteFile(path, []byte(tc.existing), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}

			s, err := New(Config{FilePath: path, DefaultCurrency: "USD"}, quietLogger())
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			added := api.Expense{
				Date:     api.NewDate(2024, time.April, 2),
				Category: "Car",
				Amount:   decimal.NewFromInt(20),
				Currency: "USD",
			}
			if err := s.Append(ctx, added); err != nil {
				t.Fatalf("Append: %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(data) != tc.want {
				t.Errorf("content: got %q, want %q", data, tc.want)
			}

			got, err := s.LoadAll(ctx)
			if err != nil {
				t.Fatalf("LoadAll: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("expected 2 records, got %d: %+v", len(got), got)
			}
			if got[0].Category != "Rent" || !got[0].Amount.Equal(decimal.NewFromInt(900)) {
				t.Errorf("prior record: got %+v", got[0])
			}
			if !got[1].Equal(added) {
				t.Errorf("appended record: got %+v, want %+v", got[1], added)
			}
		})
	}
}

func TestNew_RejectsUnknownHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.csv")
	if err := os.WriteFile(path, []byte("foo,bar\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(Config{FilePath: path}, quietLogger()); err == nil {
		t.Error("expected error for unknown header")
	}
}

func TestReadAll_Empty(t *testing.T) {
	got, err := ReadAll(strings.NewReader(""), "USD", quietLogger())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %d", len(got))
	}
}
