package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"finansix/internal/domain/account"
	"finansix/internal/domain/balance"
	"finansix/internal/domain/billing"
	"finansix/internal/domain/installment"
	"finansix/internal/domain/invoice"
	"finansix/internal/domain/transaction"
	"finansix/internal/infrastructure/postgres"
	httphandlers "finansix/internal/interfaces/http"
	"finansix/internal/interfaces/scheduler"
	"finansix/internal/shared/auth"
	"finansix/internal/shared/config"
	"finansix/internal/shared/ratelimit"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	AccountHandler     *httphandlers.AccountHandler
	TransactionHandler *httphandlers.TransactionHandler
	BalanceHandler     *httphandlers.BalanceHandler
	InvoiceHandler     *httphandlers.InvoiceHandler

	// Auth
	JWT *auth.JWT

	// Background paths
	Exploder  *installment.Exploder
	Scheduler scheduler.Config
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config, log zerolog.Logger) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Info().Str("host", cfg.Database.Host).Str("database", cfg.Database.DBName).Msg("Connected to database")

	policy, err := billing.ParseRoundingPolicy(cfg.Billing.RoundingPolicy)
	if err != nil {
		db.Close()
		return nil, err
	}

	limiter, err := newLimiter(cfg.RateLimit.Backend, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	limit := ratelimit.Limit{MaxRequests: cfg.RateLimit.MaxRequests, Window: cfg.RateLimit.Window}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(db)
	cardRepo := postgres.NewCreditCardRepository(db)
	subscriptionRepo := postgres.NewSubscriptionRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	installmentRepo := postgres.NewInstallmentRepository(db)
	invoiceRepo := postgres.NewInvoiceRepository(db)

	// Initialize domain services
	accountService := account.NewService(accountRepo)
	exploder := installment.NewExploder(installmentRepo, transactionRepo, cardRepo, limiter, limit, policy)
	transactionService := transaction.NewService(transactionRepo, cardRepo, accountRepo, exploder)
	projector := balance.NewProjector(accountRepo, transactionRepo, installmentRepo, subscriptionRepo, cfg.Billing.ProjectionWindowDays)
	invoiceService := invoice.NewService(invoiceRepo, cardRepo, installmentRepo, transactionRepo)
	backfill := installment.NewBackfillService(exploder, transactionRepo, installment.DefaultBackfillWorkers)

	return &Dependencies{
		DB:                 db,
		AccountHandler:     httphandlers.NewAccountHandler(accountService),
		TransactionHandler: httphandlers.NewTransactionHandler(transactionService, exploder, cfg.RateLimit.Window),
		BalanceHandler:     httphandlers.NewBalanceHandler(projector),
		InvoiceHandler:     httphandlers.NewInvoiceHandler(invoiceService),
		JWT:                auth.NewJWT(cfg.JWT.Secret),
		Exploder:           exploder,
		Scheduler: scheduler.Config{
			ScheduleTimes: cfg.Scheduler.ScheduleTimes,
			WorkerCount:   cfg.Scheduler.WorkerCount,
			JobDelay:      cfg.Scheduler.JobDelay,
			QueueSize:     cfg.Scheduler.QueueSize,
			RunOnStartup:  cfg.Scheduler.RunOnStartup,
			JobProvider:   scheduler.ReconcileJobProvider(transactionRepo, backfill, accountService),
		},
	}, nil
}

func newLimiter(backend string, db *postgres.DB) (ratelimit.Limiter, error) {
	switch backend {
	case config.RateLimitBackendPostgres:
		return postgres.NewRateLimiter(db), nil
	case config.RateLimitBackendMemory:
		return ratelimit.NewMemoryLimiter(), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", backend)
	}
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
