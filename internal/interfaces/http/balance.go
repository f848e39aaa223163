package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"

	"finansix/internal/domain/balance"
	"finansix/internal/domain/billing"
)

type BalanceProjector interface {
	FreeBalance(ctx context.Context, householdID string, target civil.Date, includeProjections bool) (*balance.Projection, error)
	PaymentSummary(ctx context.Context, householdID string, from, to, today civil.Date) (*balance.PaymentSummary, error)
}

type BalanceHandler struct {
	projector BalanceProjector
	now       func() time.Time
}

func NewBalanceHandler(projector BalanceProjector) *BalanceHandler {
	return &BalanceHandler{projector: projector, now: time.Now}
}

// HandleFreeBalance returns the household's free balance at ?date
// (default today). ?projections=true adds expected income, expected
// expenses and subscriptions over the projection window.
func (h *BalanceHandler) HandleFreeBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, householdID, ok := actor(w, r)
	if !ok {
		return
	}

	target, err := dateParam(r, "date", today(h.now))
	if err != nil {
		http.Error(w, "Invalid date format (use YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	includeProjections := false
	if s := r.URL.Query().Get("projections"); s != "" {
		includeProjections, err = strconv.ParseBool(s)
		if err != nil {
			http.Error(w, "projections must be true or false", http.StatusBadRequest)
			return
		}
	}

	proj, err := h.projector.FreeBalance(r.Context(), householdID, target, includeProjections)
	if err != nil {
		writeError(w, r, err, "Failed to compute free balance", 0)
		return
	}

	writeJSON(w, http.StatusOK, proj)
}

// HandlePaymentSummary classifies the payments of [?from, ?to]. Both default
// to the current month; ?today overrides the overdue reference date.
func (h *BalanceHandler) HandlePaymentSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, householdID, ok := actor(w, r)
	if !ok {
		return
	}

	now := today(h.now)
	first := billing.FirstOfMonth(now)
	last := billing.DayInMonth(now, 31)

	from, err := dateParam(r, "from", first)
	if err != nil {
		http.Error(w, "Invalid from date (use YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	to, err := dateParam(r, "to", last)
	if err != nil {
		http.Error(w, "Invalid to date (use YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	ref, err := dateParam(r, "today", now)
	if err != nil {
		http.Error(w, "Invalid today date (use YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	summary, err := h.projector.PaymentSummary(r.Context(), householdID, from, to, ref)
	if err != nil {
		writeError(w, r, err, "Failed to compute payment summary", 0)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
