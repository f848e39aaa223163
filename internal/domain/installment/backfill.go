package installment

import (
	"context"
	"fmt"
	"sync"

	"finansix/internal/domain/transaction"
	"finansix/internal/shared/logger"
)

// DefaultBackfillWorkers is the number of concurrent explosions per backfill run.
const DefaultBackfillWorkers = 4

// UnexplodedLister finds installment purchases that have no installments yet.
type UnexplodedLister interface {
	ListUnexploded(ctx context.Context, householdID string) ([]*transaction.Transaction, error)
}

// BackfillResult contains the results of a backfill run
type BackfillResult struct {
	TransactionsChecked int
	Exploded            int
	Skipped             int
	Errors              []string
}

type backfillWorkerResult struct {
	outcome Outcome
	err     error
}

// BackfillService explodes installment purchases that were stored without
// their schedule, e.g. when the explosion after creation failed.
type BackfillService struct {
	exploder    *Exploder
	lister      UnexplodedLister
	workerCount int
}

func NewBackfillService(exploder *Exploder, lister UnexplodedLister, workerCount int) *BackfillService {
	if workerCount <= 0 {
		workerCount = DefaultBackfillWorkers
	}
	return &BackfillService{
		exploder:    exploder,
		lister:      lister,
		workerCount: workerCount,
	}
}

// BackfillHousehold explodes every unexploded purchase of the household
// concurrently. Individual failures are collected, not fatal.
func (s *BackfillService) BackfillHousehold(ctx context.Context, householdID string) (*BackfillResult, error) {
	pending, err := s.lister.ListUnexploded(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unexploded purchases: %w", err)
	}

	result := &BackfillResult{TransactionsChecked: len(pending)}
	if len(pending) == 0 {
		return result, nil
	}

	jobs := make(chan *transaction.Transaction, len(pending))
	results := make(chan backfillWorkerResult, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < s.workerCount; i++ {
		wg.Add(1)
		go s.worker(ctx, jobs, results, &wg)
	}

	for _, tx := range pending {
		jobs <- tx
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		switch {
		case r.err != nil:
			result.Errors = append(result.Errors, r.err.Error())
		case r.outcome == OutcomeCreated:
			result.Exploded++
		default:
			result.Skipped++
		}
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("household_id", householdID).
		Int("checked", result.TransactionsChecked).
		Int("exploded", result.Exploded).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Msg("Installment backfill completed")

	return result, nil
}

func (s *BackfillService) worker(ctx context.Context, jobs <-chan *transaction.Transaction, results chan<- backfillWorkerResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for tx := range jobs {
		select {
		case <-ctx.Done():
			results <- backfillWorkerResult{err: ctx.Err()}
			continue
		default:
		}

		res, err := s.exploder.explode(ctx, tx)
		if err != nil {
			results <- backfillWorkerResult{err: fmt.Errorf("transaction %s: %w", tx.ID, err)}
			continue
		}
		results <- backfillWorkerResult{outcome: res.Outcome}
	}
}
