package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
)

// MockUsageStore is a mock implementation of UsageStore for testing
type MockUsageStore struct {
	mu     sync.RWMutex
	counts map[string]int

	// CountErr, when set, is returned by MonthlyCount.
	CountErr error
	// RecordErr, when set, is returned by Record.
	RecordErr error
	// RecordCalls counts Record invocations.
	RecordCalls int
}

// NewMockUsageStore creates a new MockUsageStore
func NewMockUsageStore() *MockUsageStore {
	return &MockUsageStore{
		counts: make(map[string]int),
	}
}

func (m *MockUsageStore) key(tenantID string, metric domain.UsageMetric) string {
	return fmt.Sprintf("%s:%s:%s", tenantID, metric, time.Now().UTC().Format("2006-01"))
}

func (m *MockUsageStore) MonthlyCount(ctx context.Context, tenantID string, metric domain.UsageMetric) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	return m.counts[m.key(tenantID, metric)], nil
}

func (m *MockUsageStore) Record(ctx context.Context, tenantID string, metric domain.UsageMetric, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordCalls++
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.counts[m.key(tenantID, metric)] += n
	return nil
}

// Seed sets the current month's counter directly.
func (m *MockUsageStore) Seed(tenantID string, metric domain.UsageMetric, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[m.key(tenantID, metric)] = n
}
