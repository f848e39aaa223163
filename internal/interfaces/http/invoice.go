package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"finansix/internal/domain/invoice"
)

type InvoiceService interface {
	GetInvoice(ctx context.Context, householdID, cardID string, billingMonth, today civil.Date) (*invoice.Invoice, error)
	Pay(ctx context.Context, actorID, householdID, cardID string, billingMonth civil.Date, amount decimal.Decimal, today civil.Date) (*invoice.PaymentResult, error)
}

type InvoiceHandler struct {
	service InvoiceService
	now     func() time.Time
}

func NewInvoiceHandler(service InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{service: service, now: time.Now}
}

type PayInvoiceRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// parseMonth accepts YYYY-MM or the first day of the month as YYYY-MM-DD.
func parseMonth(s string) (civil.Date, bool) {
	if t, err := time.Parse("2006-01", s); err == nil {
		return civil.DateOf(t), true
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, false
	}
	return d, true
}

// HandleGetInvoice returns the invoice of card {id} for billing month {month}
func (h *InvoiceHandler) HandleGetInvoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, householdID, ok := actor(w, r)
	if !ok {
		return
	}

	month, ok := parseMonth(r.PathValue("month"))
	if !ok {
		http.Error(w, "Invalid month (use YYYY-MM)", http.StatusBadRequest)
		return
	}

	inv, err := h.service.GetInvoice(r.Context(), householdID, r.PathValue("id"), month, today(h.now))
	if err != nil {
		writeError(w, r, err, "Failed to get invoice", 0)
		return
	}

	writeJSON(w, http.StatusOK, inv)
}

// HandlePayInvoice pays a closed invoice fully or partially. A partial
// payment carries the remainder into the next billing month.
func (h *InvoiceHandler) HandlePayInvoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, householdID, ok := actor(w, r)
	if !ok {
		return
	}

	month, ok := parseMonth(r.PathValue("month"))
	if !ok {
		http.Error(w, "Invalid month (use YYYY-MM)", http.StatusBadRequest)
		return
	}

	var req PayInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Pay(r.Context(), userID, householdID, r.PathValue("id"), month, req.Amount, today(h.now))
	if err != nil {
		writeError(w, r, err, "Failed to pay invoice", 0)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
