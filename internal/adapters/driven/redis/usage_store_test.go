package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
)

// setupTestRedis creates a miniredis-backed client
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr, func() {
		client.Close()
		mr.Close()
	}
}

func TestUsageStore_MonthlyCount_Empty(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewUsageStore(client)

	count, err := store.MonthlyCount(context.Background(), "tenant-1", domain.UsageMetricEmailsSent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 for untouched counter, got %d", count)
	}
}

func TestUsageStore_RecordAndCount(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewUsageStore(client)
	ctx := context.Background()

	if err := store.Record(ctx, "tenant-1", domain.UsageMetricEmailsSent, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Record(ctx, "tenant-1", domain.UsageMetricEmailsSent, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := store.MonthlyCount(ctx, "tenant-1", domain.UsageMetricEmailsSent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 4 {
		t.Errorf("expected 4, got %d", count)
	}
}

func TestUsageStore_MetricsAreIndependent(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewUsageStore(client)
	ctx := context.Background()

	if err := store.Record(ctx, "tenant-1", domain.UsageMetricEmailsSent, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := store.MonthlyCount(ctx, "tenant-1", domain.UsageMetricSMSSent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("sms counter should be untouched, got %d", count)
	}
}

func TestUsageStore_TenantsAreIndependent(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewUsageStore(client)
	ctx := context.Background()

	if err := store.Record(ctx, "tenant-1", domain.UsageMetricSMSSent, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := store.MonthlyCount(ctx, "tenant-2", domain.UsageMetricSMSSent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("other tenant's counter should be 0, got %d", count)
	}
}

func TestUsageStore_CounterHasTTL(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewUsageStore(client)
	ctx := context.Background()

	if err := store.Record(ctx, "tenant-1", domain.UsageMetricEmailsSent, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key := usageKey("tenant-1", domain.UsageMetricEmailsSent)
	if mr.TTL(key) <= 0 {
		t.Error("expected counter key to carry a TTL")
	}

	// The counter survives well past the month but not forever.
	mr.FastForward(counterTTL + time.Hour)
	if mr.Exists(key) {
		t.Error("expected counter to expire after the retention window")
	}
}

func TestUsageStore_RedisDown(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	store := NewUsageStore(client)
	mr.Close()

	if _, err := store.MonthlyCount(context.Background(), "tenant-1", domain.UsageMetricEmailsSent); err == nil {
		t.Error("expected error when redis is unavailable")
	}
	if err := store.Record(context.Background(), "tenant-1", domain.UsageMetricEmailsSent, 1); err == nil {
		t.Error("expected error when redis is unavailable")
	}
}
