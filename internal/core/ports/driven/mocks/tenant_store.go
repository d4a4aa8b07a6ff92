package mocks

import (
	"context"
	"sync"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
)

// MockTenantStore is a mock implementation of TenantStore for testing
type MockTenantStore struct {
	mu      sync.RWMutex
	tenants map[string]*domain.Tenant
}

// NewMockTenantStore creates a new MockTenantStore
func NewMockTenantStore() *MockTenantStore {
	return &MockTenantStore{
		tenants: make(map[string]*domain.Tenant),
	}
}

func (m *MockTenantStore) Get(ctx context.Context, id string) (*domain.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tenant, ok := m.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tenant, nil
}

func (m *MockTenantStore) Save(ctx context.Context, tenant *domain.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[tenant.ID] = tenant
	return nil
}
