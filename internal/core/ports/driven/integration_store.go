package driven

import (
	"context"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
)

// IntegrationStore persists integration records. Credentials reach the
// store already encrypted; the store never sees plaintext.
type IntegrationStore interface {
	// Save creates or updates an integration record.
	Save(ctx context.Context, integration *domain.Integration) error

	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (*domain.Integration, error)

	// GetByProvider returns the authoritative connected record for a
	// (tenant, provider) pair. At most one connected row per pair is
	// authoritative; historical disconnected rows are ignored.
	GetByProvider(ctx context.Context, tenantID string, provider domain.Provider) (*domain.Integration, error)

	// ListConnected returns all connected records for a tenant.
	ListConnected(ctx context.Context, tenantID string) ([]*domain.Integration, error)

	// List returns all records for a tenant regardless of status.
	List(ctx context.Context, tenantID string) ([]*domain.Integration, error)

	// UpdateStatus sets the lifecycle status of one record.
	UpdateStatus(ctx context.Context, id string, status domain.IntegrationStatus) error

	// UpdateCredentials replaces the encrypted credential payload of one
	// record. Used by the Registry to persist refreshed OAuth tokens.
	UpdateCredentials(ctx context.Context, id string, encrypted string) error

	// Delete hard-deletes a record.
	Delete(ctx context.Context, id string) error
}

// AgentStore loads agent records for allow-list scoping.
type AgentStore interface {
	Get(ctx context.Context, id string) (*domain.Agent, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Agent, error)
	Save(ctx context.Context, agent *domain.Agent) error
}

// TenantStore loads tenants and their plans.
type TenantStore interface {
	Get(ctx context.Context, id string) (*domain.Tenant, error)
	Save(ctx context.Context, tenant *domain.Tenant) error
}
