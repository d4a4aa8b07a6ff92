package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driving"
)

// Ensure registryService implements RegistryService
var _ driving.RegistryService = (*registryService)(nil)

// registryService turns stored integration records into live adapters.
// It owns the decrypt step and is the single writer of refreshed OAuth
// credentials back to storage.
type registryService struct {
	integrationStore driven.IntegrationStore
	agentStore       driven.AgentStore
	tenantStore      driven.TenantStore
	cipher           driven.CredentialCipher
	factory          *providers.Factory
	logger           *slog.Logger
}

// NewRegistryService creates a new RegistryService
func NewRegistryService(
	integrationStore driven.IntegrationStore,
	agentStore driven.AgentStore,
	tenantStore driven.TenantStore,
	cipher driven.CredentialCipher,
	factory *providers.Factory,
	logger *slog.Logger,
) driving.RegistryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &registryService{
		integrationStore: integrationStore,
		agentStore:       agentStore,
		tenantStore:      tenantStore,
		cipher:           cipher,
		factory:          factory,
		logger:           logger,
	}
}

// GetIntegrationMap loads every connected integration for a tenant and
// returns live adapters keyed by provider. A record that fails to
// decrypt or build is logged and skipped; the rest of the map still
// loads. With an agentID the map is intersected with that agent's
// allow-list.
func (s *registryService) GetIntegrationMap(ctx context.Context, tenantID, agentID string) (map[domain.Provider]driven.Adapter, error) {
	records, err := s.integrationStore.ListConnected(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}

	var agent *domain.Agent
	if agentID != "" {
		agent, err = s.agentStore.Get(ctx, agentID)
		if err != nil {
			return nil, fmt.Errorf("load agent %s: %w", agentID, err)
		}
		if agent.TenantID != tenantID {
			return nil, domain.ErrForbidden
		}
	}

	plan := s.planFor(ctx, tenantID)

	result := make(map[domain.Provider]driven.Adapter, len(records))
	for _, record := range records {
		if agent != nil && !agent.Allows(record.ID) {
			continue
		}

		adapter, err := s.buildAdapter(ctx, record, plan)
		if err != nil {
			s.logger.Warn("skipping integration",
				"integration_id", record.ID,
				"provider", record.Provider,
				"error", err)
			continue
		}
		result[record.Provider] = adapter
	}

	return result, nil
}

// GetIntegrationByProvider instantiates the adapter for one
// (provider, tenant) pair. Unlike the map loader this surfaces the
// failure: the caller asked for this specific integration.
func (s *registryService) GetIntegrationByProvider(ctx context.Context, provider domain.Provider, tenantID string) (driven.Adapter, error) {
	record, err := s.integrationStore.GetByProvider(ctx, tenantID, provider)
	if err != nil {
		return nil, err
	}
	return s.buildAdapter(ctx, record, s.planFor(ctx, tenantID))
}

// buildAdapter decrypts one record and constructs its adapter, wiring
// the token persist callback for providers whose tokens rotate.
func (s *registryService) buildAdapter(ctx context.Context, record *domain.Integration, plan domain.Plan) (driven.Adapter, error) {
	creds, err := s.cipher.SafeDecrypt(record.EncryptedCredentials)
	if err != nil {
		return nil, fmt.Errorf("decrypt credentials: %w", err)
	}

	adapter, err := s.factory.Build(record, creds, plan)
	if err != nil {
		return nil, err
	}

	if refreshable, ok := adapter.(providers.Refreshable); ok {
		integrationID := record.ID
		refreshable.OnRefresh(func(ctx context.Context, updated *domain.Credentials) error {
			encrypted, err := s.cipher.Encrypt(updated)
			if err != nil {
				return fmt.Errorf("encrypt refreshed credentials: %w", err)
			}
			return s.integrationStore.UpdateCredentials(ctx, integrationID, encrypted)
		})
	}

	return adapter, nil
}

// planFor loads the tenant's plan, defaulting to free when the tenant
// record is unavailable so metered sends stay conservatively gated.
func (s *registryService) planFor(ctx context.Context, tenantID string) domain.Plan {
	tenant, err := s.tenantStore.Get(ctx, tenantID)
	if err != nil {
		s.logger.Warn("tenant lookup failed, defaulting to free plan",
			"tenant_id", tenantID, "error", err)
		return domain.PlanFree
	}
	return tenant.Plan
}
