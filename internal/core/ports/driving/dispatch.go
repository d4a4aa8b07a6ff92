package driving

import (
	"context"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
)

// DispatchResult summarizes one fan-out of an event.
type DispatchResult struct {
	Matched   int      `json:"matched"`
	Delivered int      `json:"delivered"`
	Failures  []string `json:"failures,omitempty"`
}

// WebhookDispatcher fans an event out to a tenant's webhook destinations.
// Filtering happens before any network call; per-destination failures do
// not abort delivery to the remaining destinations.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, tenantID string, event *domain.WebhookEvent) (*DispatchResult, error)
}
