package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"finansix/internal/domain/installment"
	"finansix/internal/domain/transaction"
	"finansix/internal/shared/logger"
)

// TransactionService is the subset of transaction.Service used by the handler.
type TransactionService interface {
	CreateTransaction(ctx context.Context, actorID string, params transaction.CreateParams) (*transaction.Transaction, error)
	GetTransaction(ctx context.Context, householdID, id string) (*transaction.TransactionWithDetails, error)
	DeleteTransaction(ctx context.Context, householdID, id string) error
}

type InstallmentExploder interface {
	Explode(ctx context.Context, req installment.Request) (*installment.Result, error)
}

type TransactionHandler struct {
	service    TransactionService
	exploder   InstallmentExploder
	retryAfter time.Duration
}

// NewTransactionHandler builds the handler. retryAfter is reported to
// rate-limited clients and should match the limiter window.
func NewTransactionHandler(service TransactionService, exploder InstallmentExploder, retryAfter time.Duration) *TransactionHandler {
	return &TransactionHandler{
		service:    service,
		exploder:   exploder,
		retryAfter: retryAfter,
	}
}

type CreateTransactionRequest struct {
	AccountID         *string         `json:"accountId,omitempty"`
	CreditCardID      *string         `json:"creditCardId,omitempty"`
	CategoryID        *string         `json:"categoryId,omitempty"`
	Description       string          `json:"description"`
	Amount            decimal.Decimal `json:"amount"`
	Type              string          `json:"type"`
	Status            string          `json:"status,omitempty"` // pending or completed, defaults to completed
	TransactionDate   civil.Date      `json:"transactionDate"`
	IsInstallment     bool            `json:"isInstallment"`
	TotalInstallments int             `json:"totalInstallments,omitempty"`
	IsReimbursable    bool            `json:"isReimbursable"`
}

// HandleCreateTransaction creates a transaction in the actor's household
func (h *TransactionHandler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, householdID, ok := actor(w, r)
	if !ok {
		return
	}

	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log := logger.FromContext(r.Context())
		log.Debug().Err(err).Msg("Invalid create transaction body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := h.service.CreateTransaction(r.Context(), userID, transaction.CreateParams{
		HouseholdID:       householdID,
		AccountID:         req.AccountID,
		CreditCardID:      req.CreditCardID,
		CategoryID:        req.CategoryID,
		Description:       req.Description,
		Amount:            req.Amount,
		Type:              transaction.Type(req.Type),
		Status:            transaction.Status(req.Status),
		TransactionDate:   req.TransactionDate,
		IsInstallment:     req.IsInstallment,
		TotalInstallments: req.TotalInstallments,
		IsReimbursable:    req.IsReimbursable,
	})
	if err != nil {
		writeError(w, r, err, "Failed to create transaction", h.retryAfter)
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

// HandleTransactionByID handles GET and DELETE on a single transaction
func (h *TransactionHandler) HandleTransactionByID(w http.ResponseWriter, r *http.Request) {
	_, householdID, ok := actor(w, r)
	if !ok {
		return
	}

	transactionID := r.PathValue("id")
	if transactionID == "" {
		http.Error(w, "Transaction ID is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		tx, err := h.service.GetTransaction(r.Context(), householdID, transactionID)
		if err != nil {
			writeError(w, r, err, "Failed to get transaction", h.retryAfter)
			return
		}
		writeJSON(w, http.StatusOK, tx)

	case http.MethodDelete:
		if err := h.service.DeleteTransaction(r.Context(), householdID, transactionID); err != nil {
			writeError(w, r, err, "Failed to delete transaction", h.retryAfter)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleExplodeInstallments generates the installment schedule of a
// purchase. Repeating the call is harmless: an exploded purchase reports
// already_exploded.
func (h *TransactionHandler) HandleExplodeInstallments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, householdID, ok := actor(w, r)
	if !ok {
		return
	}

	transactionID := r.PathValue("id")
	if transactionID == "" {
		http.Error(w, "Transaction ID is required", http.StatusBadRequest)
		return
	}

	res, err := h.exploder.Explode(r.Context(), installment.Request{
		ActorID:       userID,
		HouseholdID:   householdID,
		TransactionID: transactionID,
	})
	if err != nil {
		writeError(w, r, err, "Failed to generate installments", h.retryAfter)
		return
	}

	status := http.StatusOK
	if res.Outcome == installment.OutcomeCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}
