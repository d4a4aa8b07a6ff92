package mocks

import (
	"context"
	"sync"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
)

// MockAgentStore is a mock implementation of AgentStore for testing
type MockAgentStore struct {
	mu     sync.RWMutex
	agents map[string]*domain.Agent
}

// NewMockAgentStore creates a new MockAgentStore
func NewMockAgentStore() *MockAgentStore {
	return &MockAgentStore{
		agents: make(map[string]*domain.Agent),
	}
}

func (m *MockAgentStore) Get(ctx context.Context, id string) (*domain.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	agent, ok := m.agents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return agent, nil
}

func (m *MockAgentStore) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Agent
	for _, agent := range m.agents {
		if agent.TenantID == tenantID {
			result = append(result, agent)
		}
	}
	return result, nil
}

func (m *MockAgentStore) Save(ctx context.Context, agent *domain.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[agent.ID] = agent
	return nil
}
