package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ArionMiles/fintrack/pkg/classifier"
	"github.com/ArionMiles/fintrack/pkg/ledger"
	"github.com/ArionMiles/fintrack/pkg/report"
	csvstore "github.com/ArionMiles/fintrack/pkg/store/csv"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := csvstore.New(csvstore.Config{FilePath: filepath.Join(t.TempDir(), "expenses.csv")}, logger)
	if err != nil {
		t.Fatalf("csv store: %v", err)
	}

	c := classifier.Default()
	l := ledger.New(store, c, ledger.Config{
		DefaultCurrency: "USD",
		Now:             func() time.Time { return time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC) },
	}, logger)

	srv := httptest.NewServer(NewHandler(l, c, c.Labels(), logger).Router())
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func postJSON(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/v1/expenses", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var body map[string]string
	decode(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("body: %v", body)
	}
}

func TestCreateExpense(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
		wantCat    string
	}{
		{
			name:       "string amount with classification",
			body:       `{"date":"2024-03-02","description":"Weekly grocery run","amount":"54.20"}`,
			wantStatus: http.StatusCreated,
			wantCat:    "Groceries",
		},
		{
			name:       "numeric amount and explicit category",
			body:       `{"date":"2024-03-03","description":"lunch","category":"Dining","amount":12.5,"currency":"EUR"}`,
			wantStatus: http.StatusCreated,
			wantCat:    "Dining",
		},
		{
			name:       "non-numeric amount",
			body:       `{"date":"2024-03-02","category":"Food","amount":"abc"}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "amount",
		},
		{
			name:       "bad date",
			body:       `{"date":"March 2","category":"Food","amount":"1"}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "date",
		},
		{
			name:       "malformed json",
			body:       `{"amount":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			resp := postJSON(t, srv, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			if tt.wantStatus != http.StatusCreated {
				var e errorResponse
				decode(t, resp, &e)
				if e.Error == "" || e.Field != tt.wantField {
					t.Errorf("error body: %+v", e)
				}
				return
			}

			var created struct {
				Category string `json:"category"`
				Amount   string `json:"amount"`
			}
			decode(t, resp, &created)
			if created.Category != tt.wantCat {
				t.Errorf("category: got %q, want %q", created.Category, tt.wantCat)
			}
		})
	}
}

func TestCreateExpense_Form(t *testing.T) {
	srv := newTestServer(t)

	form := url.Values{"description": {"taxi home"}, "amount": {"18"}}
	resp, err := http.PostForm(srv.URL+"/api/v1/expenses", form)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var created struct {
		Date     string `json:"date"`
		Category string `json:"category"`
		Currency string `json:"currency"`
	}
	decode(t, resp, &created)
	if created.Date != "2024-03-20" || created.Category != "Transport" || created.Currency != "USD" {
		t.Errorf("created: %+v", created)
	}
}

func TestListAndSummary(t *testing.T) {
	srv := newTestServer(t)
	for _, body := range []string{
		`{"date":"2024-03-01","category":"Food","amount":"10"}`,
		`{"date":"2024-03-15","category":"Food","amount":"5"}`,
		`{"date":"2024-04-01","category":"Car","amount":"3"}`,
	} {
		resp := postJSON(t, srv, body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed status: %d", resp.StatusCode)
		}
	}

	t.Run("list march", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/expenses?month=march")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		var body listResponse
		decode(t, resp, &body)
		if body.Month != "March" || body.Count != 2 || len(body.Expenses) != 2 {
			t.Errorf("list: %+v", body)
		}
	})

	t.Run("list all", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/expenses")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		var body listResponse
		decode(t, resp, &body)
		if body.Month != "All" || body.Count != 3 {
			t.Errorf("list: %+v", body)
		}
	})

	t.Run("summary", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/summary?month=All")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		var s report.Summary
		decode(t, resp, &s)
		if s.Count != 3 || s.Total.String() != "18" {
			t.Errorf("summary: count=%d total=%s", s.Count, s.Total)
		}
		if len(s.Slices) != 2 || s.Slices[0].Category != "Food" {
			t.Errorf("slices: %+v", s.Slices)
		}
	})

	t.Run("unknown month", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/summary?month=Smarch")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", resp.StatusCode)
		}
		var e errorResponse
		decode(t, resp, &e)
		if e.Field != "month" {
			t.Errorf("error body: %+v", e)
		}
	})
}

func TestClassifyCategoriesMonths(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/classify?description=" + url.QueryEscape("Rent for May"))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var c classifyResponse
	decode(t, resp, &c)
	if c.Category != "Rent" || c.Description != "Rent for May" {
		t.Errorf("classify: %+v", c)
	}

	resp, err = http.Get(srv.URL + "/api/v1/categories")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var cats map[string][]string
	decode(t, resp, &cats)
	if got := cats["categories"]; len(got) == 0 || got[len(got)-1] != "Other" {
		t.Errorf("categories: %v", got)
	}

	resp, err = http.Get(srv.URL + "/api/v1/months")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var months map[string][]string
	decode(t, resp, &months)
	if got := months["months"]; len(got) != 13 || got[0] != "All" {
		t.Errorf("months: %v", got)
	}
}

func TestFlexString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"12.50"`, "12.50"},
		{`12.5`, "12.5"},
		{`-3`, "-3"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var f flexString
		if err := f.UnmarshalJSON([]byte(tt.in)); err != nil {
			t.Fatalf("UnmarshalJSON(%s): %v", tt.in, err)
		}
		if string(f) != tt.want {
			t.Errorf("UnmarshalJSON(%s) = %q, want %q", tt.in, f, tt.want)
		}
	}
}
