package scheduler

import (
	"context"
	"fmt"

	"finansix/internal/domain/installment"
	"finansix/internal/shared/logger"
)

// Backfiller explodes the household's installment purchases that have no
// schedule yet.
type Backfiller interface {
	BackfillHousehold(ctx context.Context, householdID string) (*installment.BackfillResult, error)
}

// BalanceRecomputer refreshes the stored balance of every household account.
type BalanceRecomputer interface {
	RecomputeBalances(ctx context.Context, householdID string) (int, error)
}

// HouseholdLister returns the households that own at least one transaction.
type HouseholdLister interface {
	ListHouseholdIDs(ctx context.Context) ([]string, error)
}

// ReconcileJob repairs what the synchronous write path may have left behind
// for one household: missing installment schedules first, then account
// balances.
type ReconcileJob struct {
	householdID string
	backfiller  Backfiller
	balances    BalanceRecomputer
}

func NewReconcileJob(householdID string, backfiller Backfiller, balances BalanceRecomputer) *ReconcileJob {
	return &ReconcileJob{
		householdID: householdID,
		backfiller:  backfiller,
		balances:    balances,
	}
}

// Execute runs the backfill and then the balance recompute. The recompute
// runs even when some explosions failed, and the job reports the failure
// afterwards so it shows up as an error.
func (j *ReconcileJob) Execute(ctx context.Context) error {
	log := logger.FromContext(ctx)

	result, err := j.backfiller.BackfillHousehold(ctx, j.householdID)
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	accounts, err := j.balances.RecomputeBalances(ctx, j.householdID)
	if err != nil {
		return fmt.Errorf("balance recompute failed after %d accounts: %w", accounts, err)
	}

	log.Info().
		Int("checked", result.TransactionsChecked).
		Int("exploded", result.Exploded).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Int("accounts", accounts).
		Msg("Household reconciled")

	if len(result.Errors) > 0 {
		return fmt.Errorf("backfill completed with %d errors: %s", len(result.Errors), result.Errors[0])
	}
	return nil
}

func (j *ReconcileJob) HouseholdID() string {
	return j.householdID
}

func (j *ReconcileJob) Description() string {
	return fmt.Sprintf("Reconcile household %s", j.householdID)
}

// ReconcileJobProvider builds one ReconcileJob per household on every run.
func ReconcileJobProvider(households HouseholdLister, backfiller Backfiller, balances BalanceRecomputer) func(context.Context) ([]Job, error) {
	return func(ctx context.Context) ([]Job, error) {
		ids, err := households.ListHouseholdIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list households: %w", err)
		}

		jobs := make([]Job, 0, len(ids))
		for _, id := range ids {
			jobs = append(jobs, NewReconcileJob(id, backfiller, balances))
		}
		return jobs, nil
	}
}
