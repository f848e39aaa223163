package http

import (
	"net/http"

	"finansix/internal/domain/account"
)

type AccountHandler struct {
	accountService *account.Service
}

func NewAccountHandler(accountService *account.Service) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// HandleListAccounts returns every account of the actor's household
func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, householdID, ok := actor(w, r)
	if !ok {
		return
	}
	if householdID == "" {
		writeJSON(w, http.StatusOK, []*account.Account{})
		return
	}

	accounts, err := h.accountService.ListAccounts(r.Context(), householdID)
	if err != nil {
		writeError(w, r, err, "Failed to list accounts", 0)
		return
	}
	if accounts == nil {
		accounts = []*account.Account{}
	}

	writeJSON(w, http.StatusOK, accounts)
}

// HandleGetAccount returns one account of the actor's household
func (h *AccountHandler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, householdID, ok := actor(w, r)
	if !ok {
		return
	}

	accountID := r.PathValue("id")
	if accountID == "" {
		http.Error(w, "Account ID is required", http.StatusBadRequest)
		return
	}

	acc, err := h.accountService.GetAccount(r.Context(), accountID, householdID)
	if err != nil {
		writeError(w, r, err, "Failed to get account", 0)
		return
	}

	writeJSON(w, http.StatusOK, acc)
}
