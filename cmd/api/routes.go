package main

import (
	"net/http"

	"github.com/rs/zerolog"

	httphandlers "finansix/internal/interfaces/http"
	"finansix/internal/shared/config"
	"finansix/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", httphandlers.HandleHealth)

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT)
	protect := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(h)
	}

	mux.Handle("GET /api/accounts", protect(deps.AccountHandler.HandleListAccounts))
	mux.Handle("GET /api/accounts/{id}", protect(deps.AccountHandler.HandleGetAccount))

	mux.Handle("POST /api/transactions", protect(deps.TransactionHandler.HandleCreateTransaction))
	mux.Handle("/api/transactions/{id}", protect(deps.TransactionHandler.HandleTransactionByID))
	mux.Handle("POST /api/transactions/{id}/installments", protect(deps.TransactionHandler.HandleExplodeInstallments))

	mux.Handle("GET /api/balance/free", protect(deps.BalanceHandler.HandleFreeBalance))
	mux.Handle("GET /api/payments/summary", protect(deps.BalanceHandler.HandlePaymentSummary))

	mux.Handle("GET /api/credit-cards/{id}/invoices/{month}", protect(deps.InvoiceHandler.HandleGetInvoice))
	mux.Handle("POST /api/credit-cards/{id}/invoices/{month}/pay", protect(deps.InvoiceHandler.HandlePayInvoice))

	// Apply global middleware
	handler := middleware.Logging(log)(middleware.CORS(cfg.Server.AllowedHosts)(middleware.SecurityHeaders(middleware.Tracing(mux))))

	if cfg.Server.RequireHTTPS {
		handler = middleware.RequireHTTPS(handler)
	}

	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(handler)
	}

	return handler
}
