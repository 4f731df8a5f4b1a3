package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fieldops/mailroom/internal/storage"
)

// QuotaLimiter enforces per-tenant monthly send quotas using Redis counters.
// A nil Redis client disables enforcement (every check passes).
type QuotaLimiter struct {
	client              *redis.Client
	defaultMonthlyLimit int
}

// NewQuotaLimiter creates a QuotaLimiter. defaultMonthlyLimit applies to
// tenants without an explicit limit.
func NewQuotaLimiter(client *redis.Client, defaultMonthlyLimit int) *QuotaLimiter {
	return &QuotaLimiter{
		client:              client,
		defaultMonthlyLimit: defaultMonthlyLimit,
	}
}

// Allow reports whether the tenant may send another email this month, and
// counts the send when allowed. Counters expire shortly after month end.
func (q *QuotaLimiter) Allow(ctx context.Context, tenant storage.Tenant) (bool, error) {
	if q.client == nil {
		return true, nil
	}

	limit := int(tenant.MonthlySendLimit)
	if limit <= 0 {
		limit = q.defaultMonthlyLimit
	}

	key := fmt.Sprintf("quota:send:%s:%s", tenant.ID, currentMonth())
	count, err := q.client.Get(ctx, key).Int64()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("check send quota: %w", err)
	}
	if count >= int64(limit) {
		return false, nil
	}

	pipe := q.client.Pipeline()
	pipe.Incr(ctx, key)
	// Expiry reaches past month end so stragglers still count, then the key
	// self-cleans.
	pipe.Expire(ctx, key, untilEndOfMonth()+24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("increment send quota: %w", err)
	}
	return true, nil
}

// currentMonth returns the current year-month string (e.g., "2026-02").
func currentMonth() string {
	return time.Now().UTC().Format("2006-01")
}

// untilEndOfMonth returns the duration from now until the end of the current month.
func untilEndOfMonth() time.Duration {
	now := time.Now().UTC()
	year, month, _ := now.Date()
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.Sub(now)
}
