package postgres

import (
	"context"
	"fmt"

	"finansix/internal/shared/ratelimit"
)

// RateLimiter enforces a sliding window per actor through the
// check_rate_limit SQL function, so the budget is shared by every API
// instance.
type RateLimiter struct {
	db *DB
}

func NewRateLimiter(db *DB) *RateLimiter {
	return &RateLimiter{db: db}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit ratelimit.Limit) (bool, error) {
	seconds := int(limit.Window.Seconds())
	if limit.MaxRequests <= 0 || seconds <= 0 {
		return false, fmt.Errorf("invalid limit %d/%s", limit.MaxRequests, limit.Window)
	}

	var allowed bool
	err := r.db.QueryRowContext(ctx,
		`SELECT check_rate_limit($1, $2, $3)`,
		key, limit.MaxRequests, seconds,
	).Scan(&allowed)
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	return allowed, nil
}
