package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.UsageStore = (*UsageStore)(nil)

// usagePrefix keys counters as usage:{tenant}:{metric}:{YYYY-MM}.
const usagePrefix = "usage:"

// counterTTL keeps a finished month around long enough for billing to
// read it before Redis drops the key.
const counterTTL = 62 * 24 * time.Hour

// UsageStore implements driven.UsageStore using Redis. INCRBY keeps the
// counter atomic under concurrent sends; month rollover is free because
// a new period is simply a new key.
type UsageStore struct {
	client *redis.Client
}

// NewUsageStore creates a new Redis-backed UsageStore
func NewUsageStore(client *redis.Client) *UsageStore {
	return &UsageStore{client: client}
}

// MonthlyCount returns the tenant's count for the current month
func (s *UsageStore) MonthlyCount(ctx context.Context, tenantID string, metric domain.UsageMetric) (int, error) {
	count, err := s.client.Get(ctx, usageKey(tenantID, metric)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read usage counter: %w", err)
	}
	return count, nil
}

// Record adds n to the tenant's counter for the current month
func (s *UsageStore) Record(ctx context.Context, tenantID string, metric domain.UsageMetric, n int) error {
	key := usageKey(tenantID, metric)

	pipe := s.client.Pipeline()
	pipe.IncrBy(ctx, key, int64(n))
	pipe.Expire(ctx, key, counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}

	return nil
}

func usageKey(tenantID string, metric domain.UsageMetric) string {
	period := time.Now().UTC().Format("2006-01")
	return fmt.Sprintf("%s%s:%s:%s", usagePrefix, tenantID, metric, period)
}
