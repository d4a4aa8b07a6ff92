package driving

import (
	"context"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

// ConnectRequest creates an integration from directly entered credentials
// (API-key providers and webhook destinations; OAuth providers connect
// through the OAuth service instead).
type ConnectRequest struct {
	Provider    domain.Provider     `json:"provider"`
	Credentials *domain.Credentials `json:"credentials"`
	Config      map[string]string   `json:"config,omitempty"`
	WebhookURL  string              `json:"webhook_url,omitempty"`
}

// ProviderListItem describes one available provider for the dashboard.
type ProviderListItem struct {
	Provider domain.Provider        `json:"provider"`
	Type     domain.IntegrationType `json:"type"`
	Schema   driven.ConfigSchema    `json:"schema"`
}

// IntegrationService manages the integration lifecycle for a tenant.
type IntegrationService interface {
	// Connect validates and persists a new integration with encrypted
	// credentials, marking any prior connected row for the same
	// (tenant, provider) disconnected.
	Connect(ctx context.Context, tenantID string, req ConnectRequest) (*domain.IntegrationSummary, error)

	// Test runs the adapter's connection test for one record.
	Test(ctx context.Context, tenantID, id string) (*domain.TestResult, error)

	// Disconnect soft-disables a record (status = disconnected).
	Disconnect(ctx context.Context, tenantID, id string) error

	// Delete hard-deletes a record.
	Delete(ctx context.Context, tenantID, id string) error

	// List returns safe summaries of all of a tenant's integrations.
	List(ctx context.Context, tenantID string) ([]*domain.IntegrationSummary, error)

	// Get returns one safe summary.
	Get(ctx context.Context, tenantID, id string) (*domain.IntegrationSummary, error)

	// Providers lists the available providers with their config schemas.
	Providers(ctx context.Context) []ProviderListItem

	// HandleInboundWebhook parses an inbound provider callback for a
	// tenant and forwards the normalized message to the agent engine.
	HandleInboundWebhook(ctx context.Context, tenantID string, provider domain.Provider, payload []byte) error
}
