package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"finansix/internal/domain/account"
	"finansix/internal/domain/billing"
	"finansix/internal/domain/installment"
	"finansix/internal/infrastructure/postgres"
	"finansix/internal/shared/auth"
	"finansix/internal/shared/config"
	"finansix/internal/shared/logger"
	"finansix/internal/shared/ratelimit"
)

const usage = `Finansix Admin CLI - Management commands for the Finansix API

Usage:
  admin <command> [options]

Commands:
  migrate                Apply the embedded database schema
  backfill-installments  Generate missing installments for installment purchases
  recompute-balances     Recompute stored account balances from transactions
  issue-token            Issue an API token for a user

Examples:
  # Create or update the schema
  admin migrate

  # Backfill one household
  admin backfill-installments --household-id=3f2a...

  # Backfill every household with 8 workers
  admin backfill-installments --all --workers=8

  # Recompute balances of two households with a timeout
  admin recompute-balances --household-id=3f2a...,9c1e... --timeout=5m

  # Issue a token for a user of a household
  admin issue-token --user-id=7b44... --household-id=3f2a...
`

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	log := logger.New()

	switch command := os.Args[1]; command {
	case "migrate":
		runMigrate(os.Args[2:], log)
	case "backfill-installments":
		runBackfill(os.Args[2:], log)
	case "recompute-balances":
		runRecompute(os.Args[2:], log)
	case "issue-token":
		runIssueToken(os.Args[2:], log)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage(os.Stdout)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, usage)
}

func connect(log zerolog.Logger) (*config.Config, *postgres.DB) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Str("database", cfg.Database.DBName).Msg("Connected to database")

	return cfg, db
}

func runMigrate(args []string, log zerolog.Logger) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	timeoutStr := fs.String("timeout", "2m", "Timeout for the operation (e.g., 30s, 5m)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid timeout format")
	}

	_, db := connect(log)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	log.Info().Msg("Schema is up to date")
}

// householdFlags registers the household selection flags shared by the
// batch commands.
type householdFlags struct {
	ids     *string
	all     *bool
	timeout *string
}

func newHouseholdFlags(fs *flag.FlagSet) householdFlags {
	return householdFlags{
		ids:     fs.String("household-id", "", "Household ID(s) to process (comma-separated for multiple)"),
		all:     fs.Bool("all", false, "Process every household with transactions"),
		timeout: fs.String("timeout", "30m", "Timeout for the operation (e.g., 5m, 1h)"),
	}
}

func (h householdFlags) resolve(ctx context.Context, repo *postgres.TransactionRepository) ([]string, error) {
	if *h.all {
		return repo.ListHouseholdIDs(ctx)
	}
	return parseIDs(*h.ids), nil
}

func parseIDs(s string) []string {
	var ids []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

func runBackfill(args []string, log zerolog.Logger) {
	fs := flag.NewFlagSet("backfill-installments", flag.ExitOnError)
	households := newHouseholdFlags(fs)
	workers := fs.Int("workers", installment.DefaultBackfillWorkers, "Number of concurrent workers per household")

	fs.Usage = func() {
		fmt.Println("Usage: admin backfill-installments [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *households.ids == "" && !*households.all {
		fmt.Println("Error: must specify --household-id or --all")
		fs.Usage()
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*households.timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid timeout format")
	}

	cfg, db := connect(log)
	defer db.Close()

	policy, err := billing.ParseRoundingPolicy(cfg.Billing.RoundingPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid rounding policy")
	}

	transactionRepo := postgres.NewTransactionRepository(db)
	exploder := installment.NewExploder(
		postgres.NewInstallmentRepository(db),
		transactionRepo,
		postgres.NewCreditCardRepository(db),
		ratelimit.NewMemoryLimiter(),
		ratelimit.Limit{MaxRequests: cfg.RateLimit.MaxRequests, Window: cfg.RateLimit.Window},
		policy,
	)
	backfill := installment.NewBackfillService(exploder, transactionRepo, *workers)

	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background(), log), timeout)
	defer cancel()

	ids, err := households.resolve(ctx, transactionRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list households")
	}
	if len(ids) == 0 {
		log.Info().Msg("No households to process")
		return
	}

	startTime := time.Now()
	failed := 0
	for _, id := range ids {
		result, err := backfill.BackfillHousehold(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("household_id", id).Msg("Backfill failed")
			failed++
			continue
		}
		printBackfillResult(id, result)
		if len(result.Errors) > 0 {
			failed++
		}
	}

	log.Info().Dur("elapsed", time.Since(startTime)).Int("households", len(ids)).Int("failed", failed).Msg("Backfill completed")
	if failed > 0 {
		os.Exit(1)
	}
}

func printBackfillResult(householdID string, result *installment.BackfillResult) {
	fmt.Printf("\n=== Household %s ===\n", householdID)
	fmt.Printf("  Purchases checked: %d\n", result.TransactionsChecked)
	fmt.Printf("  Exploded:          %d\n", result.Exploded)
	fmt.Printf("  Skipped:           %d\n", result.Skipped)

	if len(result.Errors) > 0 {
		fmt.Printf("  Errors:            %d\n", len(result.Errors))
		for i, e := range result.Errors {
			if i >= 5 {
				fmt.Printf("    ... and %d more errors\n", len(result.Errors)-5)
				break
			}
			fmt.Printf("    - %s\n", e)
		}
	}
}

func runRecompute(args []string, log zerolog.Logger) {
	fs := flag.NewFlagSet("recompute-balances", flag.ExitOnError)
	households := newHouseholdFlags(fs)

	fs.Usage = func() {
		fmt.Println("Usage: admin recompute-balances [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *households.ids == "" && !*households.all {
		fmt.Println("Error: must specify --household-id or --all")
		fs.Usage()
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*households.timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid timeout format")
	}

	_, db := connect(log)
	defer db.Close()

	accountService := account.NewService(postgres.NewAccountRepository(db))

	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background(), log), timeout)
	defer cancel()

	ids, err := households.resolve(ctx, postgres.NewTransactionRepository(db))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list households")
	}

	failed := 0
	for _, id := range ids {
		n, err := accountService.RecomputeBalances(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("household_id", id).Int("accounts_done", n).Msg("Recompute failed")
			failed++
			continue
		}
		fmt.Printf("Household %s: %d account(s) recomputed\n", id, n)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func runIssueToken(args []string, log zerolog.Logger) {
	fs := flag.NewFlagSet("issue-token", flag.ExitOnError)
	userID := fs.String("user-id", "", "User ID (token subject)")
	householdID := fs.String("household-id", "", "Household ID (optional)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *userID == "" {
		fmt.Println("Error: must specify --user-id")
		fs.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	token, err := auth.NewJWT(cfg.JWT.Secret).Generate(*userID, *householdID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}
	fmt.Println(token)
}
