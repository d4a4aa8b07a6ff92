package driving

import (
	"context"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

// RegistryService turns "tenant X wants its integrations" into
// ready-to-call adapter instances, applying tenant and agent scoping.
// This is the only entry point the agent-execution engine needs.
type RegistryService interface {
	// GetIntegrationMap loads all connected integrations for a tenant,
	// decrypts credentials, and instantiates adapters keyed by provider.
	// agentID is optional; when supplied the result is intersected with
	// that agent's allow-list (nil field = everything, empty = nothing).
	// Per-record failures are isolated: one bad record never prevents the
	// remaining integrations from loading.
	GetIntegrationMap(ctx context.Context, tenantID, agentID string) (map[domain.Provider]driven.Adapter, error)

	// GetIntegrationByProvider instantiates the single adapter for one
	// (provider, tenant) pair.
	GetIntegrationByProvider(ctx context.Context, provider domain.Provider, tenantID string) (driven.Adapter, error)
}
