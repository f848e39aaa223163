package http

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"

	"finansix/internal/domain/account"
	"finansix/internal/domain/balance"
	"finansix/internal/domain/billing"
	"finansix/internal/domain/creditcard"
	"finansix/internal/domain/invoice"
	"finansix/internal/domain/transaction"
	"finansix/internal/shared/logger"
	"finansix/internal/shared/middleware"
	"finansix/internal/shared/ratelimit"
)

// HandleHealth returns a simple health check response.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error onto an HTTP status. Unknown errors are
// logged and reported as 500 with the fallback message.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string, retryAfter time.Duration) {
	switch {
	case errors.Is(err, ratelimit.ErrRateLimited):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		http.Error(w, "Too many requests, try again in a moment", http.StatusTooManyRequests)

	case errors.Is(err, transaction.ErrInvalidInput),
		errors.Is(err, transaction.ErrSignMismatch),
		errors.Is(err, transaction.ErrInvalidInstallment),
		errors.Is(err, invoice.ErrInvalidAmount),
		errors.Is(err, invoice.ErrInvalidMonth),
		errors.Is(err, invoice.ErrOverpayment),
		errors.Is(err, balance.ErrInvalidPeriod),
		errors.Is(err, billing.ErrInvalidDay):
		http.Error(w, err.Error(), http.StatusBadRequest)

	case errors.Is(err, transaction.ErrTransactionNotFound),
		errors.Is(err, creditcard.ErrCardNotFound),
		errors.Is(err, account.ErrAccountNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)

	case errors.Is(err, account.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)

	case errors.Is(err, invoice.ErrNotPayable),
		errors.Is(err, invoice.ErrNothingToSettle),
		errors.Is(err, invoice.ErrSettlementConflict):
		http.Error(w, err.Error(), http.StatusConflict)

	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("path", r.URL.Path).Msg(fallback)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

// actor returns the authenticated user and their household. The household is
// empty for users that have not joined one yet.
func actor(w http.ResponseWriter, r *http.Request) (userID, householdID string, ok bool) {
	userID, ok = middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", "", false
	}
	return userID, middleware.HouseholdID(r.Context()), true
}

// dateParam parses an optional YYYY-MM-DD query parameter, returning def when
// it is absent.
func dateParam(r *http.Request, name string, def civil.Date) (civil.Date, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, err
	}
	return d, nil
}

// today is the current calendar date in the server's time zone.
func today(now func() time.Time) civil.Date {
	return civil.DateOf(now())
}
