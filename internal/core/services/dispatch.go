package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers/webhook"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driving"
)

// Ensure dispatchService implements WebhookDispatcher
var _ driving.WebhookDispatcher = (*dispatchService)(nil)

// dispatchService fans events out to a tenant's webhook destinations.
// Each destination's filter is evaluated before any network call; a
// destination that fails to deliver never blocks its neighbors, and
// there is no retry.
type dispatchService struct {
	integrationStore driven.IntegrationStore
	cipher           driven.CredentialCipher
	logger           *slog.Logger
}

// NewDispatchService creates a new WebhookDispatcher
func NewDispatchService(
	integrationStore driven.IntegrationStore,
	cipher driven.CredentialCipher,
	logger *slog.Logger,
) driving.WebhookDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &dispatchService{
		integrationStore: integrationStore,
		cipher:           cipher,
		logger:           logger,
	}
}

// Dispatch delivers one event to every matching destination. The result
// reports how many destinations matched, how many deliveries succeeded,
// and the failure messages for the rest.
func (s *dispatchService) Dispatch(ctx context.Context, tenantID string, event *domain.WebhookEvent) (*driving.DispatchResult, error) {
	if event == nil || event.Type == "" {
		return nil, fmt.Errorf("%w: event type is required", domain.ErrInvalidInput)
	}
	event.TenantID = tenantID

	records, err := s.integrationStore.ListConnected(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}

	result := &driving.DispatchResult{}
	for _, record := range records {
		if record.Provider != domain.ProviderWebhook {
			continue
		}

		creds, err := s.cipher.SafeDecrypt(record.EncryptedCredentials)
		if err != nil {
			s.logger.Warn("skipping webhook destination",
				"integration_id", record.ID, "error", err)
			continue
		}

		dest := webhook.New(record, creds)
		if !dest.ShouldSendEvent(event.Type, event.AgentID, event.Success) {
			continue
		}
		result.Matched++

		if err := dest.SendWebhook(ctx, event); err != nil {
			s.logger.Warn("webhook delivery failed",
				"integration_id", record.ID, "event_type", event.Type, "error", err)
			result.Failures = append(result.Failures, fmt.Sprintf("%s: %v", record.ID, err))
			continue
		}
		result.Delivered++
	}

	return result, nil
}
