// Package httpapi exposes the ledger over a small JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/ArionMiles/fintrack/pkg/api"
	"github.com/ArionMiles/fintrack/pkg/ledger"
	"github.com/ArionMiles/fintrack/pkg/report"
)

// maxBodyBytes caps request bodies for expense creation.
const maxBodyBytes = 1 << 20

// Handler serves the fintrack API.
type Handler struct {
	ledger     *ledger.Ledger
	classifier api.Classifier
	labels     []string
	logger     *slog.Logger
}

// NewHandler wires a handler. labels are listed by GET /api/v1/categories.
func NewHandler(l *ledger.Ledger, classifier api.Classifier, labels []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		ledger:     l,
		classifier: classifier,
		labels:     labels,
		logger:     logger,
	}
}

// Router returns the chi router with middleware and every route mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(recoverer(h.logger))

	r.Get("/health", h.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/expenses", func(er chi.Router) {
			er.Post("/", h.createExpense)
			er.Get("/", h.listExpenses)
		})
		r.Get("/summary", h.summary)
		r.Get("/classify", h.classify)
		r.Get("/categories", h.categories)
		r.Get("/months", h.months)
	})

	return r
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type listResponse struct {
	Month    string        `json:"month"`
	Count    int           `json:"count"`
	Expenses []api.Expense `json:"expenses"`
}

type classifyResponse struct {
	Description string `json:"description"`
	Category    string `json:"category"`
}

// expenseRequest mirrors ledger.Input but also accepts a JSON number amount.
type expenseRequest struct {
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Amount      flexString `json:"amount"`
	Currency    string     `json:"currency"`
}

// flexString decodes either a JSON string or the raw text of any other value.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(b)
	return nil
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(h.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(w, r)
	if err != nil {
		h.logger.Debug("invalid request body", "error", err)
		writeJSON(h.logger, w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	e, err := h.ledger.Append(r.Context(), in)
	if err != nil {
		var ve *ledger.ValidationError
		if errors.As(err, &ve) {
			writeJSON(h.logger, w, http.StatusBadRequest, errorResponse{Error: ve.Error(), Field: ve.Field})
			return
		}
		h.logger.Error("append failed", "error", err)
		writeJSON(h.logger, w, http.StatusInternalServerError, errorResponse{Error: "failed to save expense"})
		return
	}

	writeJSON(h.logger, w, http.StatusCreated, e)
}

func decodeInput(w http.ResponseWriter, r *http.Request) (ledger.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		var err error
		if mediaType == "multipart/form-data" {
			err = r.ParseMultipartForm(maxBodyBytes)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			return ledger.Input{}, err
		}
		return ledger.Input{
			Date:        r.PostForm.Get("date"),
			Description: r.PostForm.Get("description"),
			Category:    r.PostForm.Get("category"),
			Amount:      r.PostForm.Get("amount"),
			Currency:    r.PostForm.Get("currency"),
		}, nil
	default:
		var req expenseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return ledger.Input{}, err
		}
		return ledger.Input{
			Date:        req.Date,
			Description: req.Description,
			Category:    req.Category,
			Amount:      string(req.Amount),
			Currency:    req.Currency,
		}, nil
	}
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.monthParam(w, r)
	if !ok {
		return
	}

	records, err := h.ledger.Month(r.Context(), sel)
	if err != nil {
		h.logger.Error("loading expenses failed", "error", err)
		writeJSON(h.logger, w, http.StatusInternalServerError, errorResponse{Error: "failed to load expenses"})
		return
	}
	if records == nil {
		records = []api.Expense{}
	}

	writeJSON(h.logger, w, http.StatusOK, listResponse{Month: sel.String(), Count: len(records), Expenses: records})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.monthParam(w, r)
	if !ok {
		return
	}

	records, err := h.ledger.LoadAll(r.Context())
	if err != nil {
		h.logger.Error("loading expenses failed", "error", err)
		writeJSON(h.logger, w, http.StatusInternalServerError, errorResponse{Error: "failed to load expenses"})
		return
	}

	writeJSON(h.logger, w, http.StatusOK, report.Build(records, sel))
}

func (h *Handler) classify(w http.ResponseWriter, r *http.Request) {
	desc := r.URL.Query().Get("description")
	writeJSON(h.logger, w, http.StatusOK, classifyResponse{Description: desc, Category: h.classifier.Classify(desc)})
}

func (h *Handler) categories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(h.logger, w, http.StatusOK, map[string][]string{"categories": h.labels})
}

func (h *Handler) months(w http.ResponseWriter, _ *http.Request) {
	writeJSON(h.logger, w, http.StatusOK, map[string][]string{"months": ledger.MonthOptions()})
}

// monthParam parses ?month=, defaulting to All. It writes a 400 on failure.
func (h *Handler) monthParam(w http.ResponseWriter, r *http.Request) (ledger.MonthSelector, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("month"))
	if raw == "" {
		return ledger.All, true
	}
	sel, err := ledger.ParseMonth(raw)
	if err != nil {
		writeJSON(h.logger, w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: "month"})
		return ledger.All, false
	}
	return sel, true
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}
