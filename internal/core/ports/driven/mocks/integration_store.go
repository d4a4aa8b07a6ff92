package mocks

import (
	"context"
	"sync"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
)

// MockIntegrationStore is a mock implementation of IntegrationStore for testing
type MockIntegrationStore struct {
	mu           sync.RWMutex
	integrations map[string]*domain.Integration

	// SaveErr, when set, is returned by Save.
	SaveErr error
	// UpdateCredentialsCalls records (id, encrypted) pairs.
	UpdateCredentialsCalls [][2]string
}

// NewMockIntegrationStore creates a new MockIntegrationStore
func NewMockIntegrationStore() *MockIntegrationStore {
	return &MockIntegrationStore{
		integrations: make(map[string]*domain.Integration),
	}
}

func (m *MockIntegrationStore) Save(ctx context.Context, integration *domain.Integration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.integrations[integration.ID] = integration
	return nil
}

func (m *MockIntegrationStore) Get(ctx context.Context, id string) (*domain.Integration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	integration, ok := m.integrations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return integration, nil
}

func (m *MockIntegrationStore) GetByProvider(ctx context.Context, tenantID string, provider domain.Provider) (*domain.Integration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, integration := range m.integrations {
		if integration.TenantID == tenantID &&
			integration.Provider == provider &&
			integration.Status == domain.IntegrationStatusConnected {
			return integration, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockIntegrationStore) ListConnected(ctx context.Context, tenantID string) ([]*domain.Integration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Integration
	for _, integration := range m.integrations {
		if integration.TenantID == tenantID && integration.Status == domain.IntegrationStatusConnected {
			result = append(result, integration)
		}
	}
	return result, nil
}

func (m *MockIntegrationStore) List(ctx context.Context, tenantID string) ([]*domain.Integration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Integration
	for _, integration := range m.integrations {
		if integration.TenantID == tenantID {
			result = append(result, integration)
		}
	}
	return result, nil
}

func (m *MockIntegrationStore) UpdateStatus(ctx context.Context, id string, status domain.IntegrationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	integration, ok := m.integrations[id]
	if !ok {
		return domain.ErrNotFound
	}
	integration.Status = status
	return nil
}

func (m *MockIntegrationStore) UpdateCredentials(ctx context.Context, id string, encrypted string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	integration, ok := m.integrations[id]
	if !ok {
		return domain.ErrNotFound
	}
	integration.EncryptedCredentials = encrypted
	m.UpdateCredentialsCalls = append(m.UpdateCredentialsCalls, [2]string{id, encrypted})
	return nil
}

func (m *MockIntegrationStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.integrations[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.integrations, id)
	return nil
}
