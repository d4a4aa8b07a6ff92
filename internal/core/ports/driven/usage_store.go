package driven

import (
	"context"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
)

// UsageStore tracks per-tenant monthly usage counters. Counts reset by
// period key (YYYY-MM); implementations may expire old periods.
type UsageStore interface {
	// MonthlyCount returns the tenant's count for the metric in the
	// current calendar month.
	MonthlyCount(ctx context.Context, tenantID string, metric domain.UsageMetric) (int, error)

	// Record adds n to the tenant's counter for the current month.
	// Called after a successful send; failures are the caller's to
	// swallow, never to roll back the already-sent message.
	Record(ctx context.Context, tenantID string, metric domain.UsageMetric, n int) error
}
