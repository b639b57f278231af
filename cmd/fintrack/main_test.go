package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ArionMiles/fintrack/pkg/ledger"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FINTRACK_STORE", "csv")
	t.Setenv("FINTRACK_FILE", filepath.Join(dir, "expenses.csv"))
	t.Setenv("FINTRACK_SCHEMA", "A")
	t.Setenv("FINTRACK_CURRENCY", "USD")
	t.Setenv("FINTRACK_RULES_FILE", "")
	t.Setenv("LOG_LEVEL", "ERROR")
	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--env-file", filepath.Join(dir, "missing.env")}, args...))
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestAddListSummary(t *testing.T) {
	dir := setupEnv(t)

	for _, args := range [][]string{
		{"add", "10", "supermarket", "--date", "2024-03-01"},
		{"add", "5", "corner restaurant", "--date", "2024-03-15"},
		{"add", "3", "fuel", "--date", "2024-04-01", "--currency", "EUR"},
	} {
		if out, err := run(t, dir, args...); err != nil {
			t.Fatalf("%v: %v\n%s", args, err, out)
		}
	}

	out, err := run(t, dir, "list", "--month", "March")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Groceries") || !strings.Contains(out, "Dining") || strings.Contains(out, "Car") {
		t.Errorf("list output:\n%s", out)
	}

	out, err = run(t, dir, "summary")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(out, "Total (mixed currencies)") || !strings.Contains(out, "18.00") {
		t.Errorf("summary output:\n%s", out)
	}

	out, err = run(t, dir, "list", "--month", "June")
	if err != nil {
		t.Fatalf("list june: %v", err)
	}
	if !strings.Contains(out, "No expenses to display") {
		t.Errorf("empty month output:\n%s", out)
	}
}

func TestAdd_InvalidAmount(t *testing.T) {
	dir := setupEnv(t)

	_, err := run(t, dir, "add", "abc", "lunch")
	var ve *ledger.ValidationError
	if !errors.As(err, &ve) || ve.Field != "amount" {
		t.Fatalf("expected amount ValidationError, got %v", err)
	}

	out, err := run(t, dir, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No expenses to display") {
		t.Errorf("ledger changed after invalid add:\n%s", out)
	}
}

func TestList_UnknownMonth(t *testing.T) {
	dir := setupEnv(t)

	_, err := run(t, dir, "list", "--month", "Smarch")
	if !errors.Is(err, ledger.ErrUnknownMonth) {
		t.Errorf("expected ErrUnknownMonth, got %v", err)
	}
}

func TestImport(t *testing.T) {
	dir := setupEnv(t)

	src := filepath.Join(dir, "legacy.csv")
	content := "Date,Category,Amount\n2024-02-01,Rent,900\n2024-02-02,Food,oops\n2024-02-03,,12\n"
	if err := os.WriteFile(src, []byte(content), 0o600); err != nil {
		t.Fatalf("write import file: %v", err)
	}

	out, err := run(t, dir, "import", src, "--batch-size", "1")
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	if !strings.Contains(out, "imported 2 expenses") {
		t.Errorf("import output:\n%s", out)
	}

	out, err = run(t, dir, "summary", "--month", "february")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(out, "912.00") || !strings.Contains(out, "Other") {
		t.Errorf("summary output:\n%s", out)
	}
}

func TestStatus(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, dir, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Ready") || !strings.Contains(out, "0 readable records") {
		t.Errorf("status output:\n%s", out)
	}

	t.Setenv("FINTRACK_STORE", "mongo")
	out, err = run(t, dir, "status")
	if err == nil || !strings.Contains(out, "FINTRACK_STORE") {
		t.Errorf("expected failed status, got %v:\n%s", err, out)
	}
}
