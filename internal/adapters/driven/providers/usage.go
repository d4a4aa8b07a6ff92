package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

// UsageGate enforces a tenant's monthly plan ceiling for a metered
// send. The check runs before the provider call and is a hard stop; the
// recording runs after a successful send and is best effort.
type UsageGate struct {
	store    driven.UsageStore
	plan     domain.Plan
	tenantID string
	logger   *slog.Logger
}

// NewUsageGate builds a gate for one tenant. A nil store disables
// metering entirely, used for providers that carry no billable sends.
func NewUsageGate(store driven.UsageStore, plan domain.Plan, tenantID string, logger *slog.Logger) *UsageGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsageGate{store: store, plan: plan, tenantID: tenantID, logger: logger}
}

// Check fails with domain.ErrUsageLimitExceeded when the tenant has
// exhausted the metric's monthly allowance. It fails closed: a counter
// read error blocks the send rather than risking an over-limit bill.
func (g *UsageGate) Check(ctx context.Context, metric domain.UsageMetric) error {
	if g == nil || g.store == nil {
		return nil
	}

	limit := g.plan.Limit(metric)
	if limit < 0 {
		return nil
	}

	count, err := g.store.MonthlyCount(ctx, g.tenantID, metric)
	if err != nil {
		return fmt.Errorf("read usage counter: %w", err)
	}

	if count >= limit {
		return fmt.Errorf("%w: %s at %d of %d for plan %s",
			domain.ErrUsageLimitExceeded, metric, count, limit, g.plan.Name)
	}

	return nil
}

// Record increments the metric after a successful send. The message is
// already out, so a recording failure is logged and swallowed.
func (g *UsageGate) Record(ctx context.Context, metric domain.UsageMetric) {
	if g == nil || g.store == nil {
		return
	}
	if err := g.store.Record(ctx, g.tenantID, metric, 1); err != nil {
		g.logger.Warn("failed to record usage",
			"tenant_id", g.tenantID, "metric", metric, "error", err)
	}
}
