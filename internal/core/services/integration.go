package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driving"
)

// Ensure integrationService implements IntegrationService
var _ driving.IntegrationService = (*integrationService)(nil)

// integrationService manages the integration lifecycle: connect, test,
// disconnect, delete. Credentials are encrypted before they ever reach
// the store.
type integrationService struct {
	integrationStore driven.IntegrationStore
	tenantStore      driven.TenantStore
	cipher           driven.CredentialCipher
	factory          *providers.Factory
	runner           driven.AgentRunner
	logger           *slog.Logger
}

// NewIntegrationService creates a new IntegrationService
func NewIntegrationService(
	integrationStore driven.IntegrationStore,
	tenantStore driven.TenantStore,
	cipher driven.CredentialCipher,
	factory *providers.Factory,
	runner driven.AgentRunner,
	logger *slog.Logger,
) driving.IntegrationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &integrationService{
		integrationStore: integrationStore,
		tenantStore:      tenantStore,
		cipher:           cipher,
		factory:          factory,
		runner:           runner,
		logger:           logger,
	}
}

// Connect validates the submitted credentials against the provider's
// adapter, encrypts them, and saves the record as connected. Any prior
// connected row for the same (tenant, provider) is marked disconnected
// so exactly one row stays authoritative.
func (s *integrationService) Connect(ctx context.Context, tenantID string, req driving.ConnectRequest) (*domain.IntegrationSummary, error) {
	if req.Provider == "" || req.Credentials == nil {
		return nil, fmt.Errorf("%w: provider and credentials are required", domain.ErrInvalidInput)
	}
	if !s.factory.Known(req.Provider) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, req.Provider)
	}

	now := time.Now()
	integration := &domain.Integration{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Provider:   req.Provider,
		Type:       domain.TypeForProvider(req.Provider),
		Status:     domain.IntegrationStatusConnected,
		Config:     req.Config,
		WebhookURL: req.WebhookURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	adapter, err := s.factory.Build(integration, req.Credentials, s.planFor(ctx, tenantID))
	if err != nil {
		return nil, err
	}
	if err := adapter.Authenticate(ctx); err != nil {
		return nil, err
	}

	encrypted, err := s.cipher.Encrypt(req.Credentials)
	if err != nil {
		return nil, fmt.Errorf("encrypt credentials: %w", err)
	}
	integration.EncryptedCredentials = encrypted

	// Demote the previous connected row so one row stays authoritative.
	// Webhook destinations are exempt: a tenant may register several.
	if req.Provider != domain.ProviderWebhook {
		if prior, err := s.integrationStore.GetByProvider(ctx, tenantID, req.Provider); err == nil {
			if err := s.integrationStore.UpdateStatus(ctx, prior.ID, domain.IntegrationStatusDisconnected); err != nil {
				return nil, fmt.Errorf("demote prior integration: %w", err)
			}
		}
	}

	if err := s.integrationStore.Save(ctx, integration); err != nil {
		return nil, err
	}

	s.logger.Info("integration connected",
		"tenant_id", tenantID, "provider", req.Provider, "integration_id", integration.ID)

	return integration.ToSummary(), nil
}

// Test runs the adapter's connection test and records the outcome on
// the integration's status.
func (s *integrationService) Test(ctx context.Context, tenantID, id string) (*domain.TestResult, error) {
	record, err := s.owned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	creds, err := s.cipher.SafeDecrypt(record.EncryptedCredentials)
	if err != nil {
		return nil, err
	}

	adapter, err := s.factory.Build(record, creds, s.planFor(ctx, tenantID))
	if err != nil {
		return nil, err
	}

	result, err := adapter.TestConnection(ctx)
	if err != nil {
		return nil, err
	}

	status := domain.IntegrationStatusConnected
	if !result.Success {
		status = domain.IntegrationStatusError
	}
	if record.Status != domain.IntegrationStatusDisconnected {
		if err := s.integrationStore.UpdateStatus(ctx, record.ID, status); err != nil {
			s.logger.Warn("failed to record test outcome",
				"integration_id", record.ID, "error", err)
		}
	}

	return result, nil
}

func (s *integrationService) Disconnect(ctx context.Context, tenantID, id string) error {
	record, err := s.owned(ctx, tenantID, id)
	if err != nil {
		return err
	}
	return s.integrationStore.UpdateStatus(ctx, record.ID, domain.IntegrationStatusDisconnected)
}

func (s *integrationService) Delete(ctx context.Context, tenantID, id string) error {
	record, err := s.owned(ctx, tenantID, id)
	if err != nil {
		return err
	}
	return s.integrationStore.Delete(ctx, record.ID)
}

func (s *integrationService) List(ctx context.Context, tenantID string) ([]*domain.IntegrationSummary, error) {
	records, err := s.integrationStore.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	summaries := make([]*domain.IntegrationSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, record.ToSummary())
	}
	return summaries, nil
}

func (s *integrationService) Get(ctx context.Context, tenantID, id string) (*domain.IntegrationSummary, error) {
	record, err := s.owned(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return record.ToSummary(), nil
}

// Providers lists every registered provider with its connect schema.
func (s *integrationService) Providers(ctx context.Context) []driving.ProviderListItem {
	registered := s.factory.Providers()
	items := make([]driving.ProviderListItem, 0, len(registered))
	for _, p := range registered {
		schema, err := s.factory.Schema(p)
		if err != nil {
			continue
		}
		items = append(items, driving.ProviderListItem{
			Provider: p,
			Type:     domain.TypeForProvider(p),
			Schema:   schema,
		})
	}
	return items
}

// HandleInboundWebhook routes a provider callback to the tenant's
// adapter for parsing, then hands the normalized message to the agent
// engine.
func (s *integrationService) HandleInboundWebhook(ctx context.Context, tenantID string, provider domain.Provider, payload []byte) error {
	record, err := s.integrationStore.GetByProvider(ctx, tenantID, provider)
	if err != nil {
		return err
	}

	creds, err := s.cipher.SafeDecrypt(record.EncryptedCredentials)
	if err != nil {
		return err
	}

	adapter, err := s.factory.Build(record, creds, s.planFor(ctx, tenantID))
	if err != nil {
		return err
	}

	receiver, ok := adapter.(driven.WebhookReceiver)
	if !ok {
		return fmt.Errorf("%w: provider %s does not accept inbound webhooks", domain.ErrInvalidInput, provider)
	}

	msg, err := receiver.HandleWebhook(ctx, payload)
	if err != nil {
		return err
	}
	msg.TenantID = tenantID

	return s.runner.HandleInbound(ctx, msg)
}

// owned loads a record and enforces tenant ownership without revealing
// other tenants' record existence.
func (s *integrationService) owned(ctx context.Context, tenantID, id string) (*domain.Integration, error) {
	record, err := s.integrationStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

func (s *integrationService) planFor(ctx context.Context, tenantID string) domain.Plan {
	tenant, err := s.tenantStore.Get(ctx, tenantID)
	if err != nil {
		return domain.PlanFree
	}
	return tenant.Plan
}
