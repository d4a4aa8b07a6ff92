package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.AgentStore = (*AgentStore)(nil)

// AgentStore implements driven.AgentStore using PostgreSQL.
// The integration_ids column distinguishes NULL (allow-list never
// configured, all integrations available) from an empty array (none).
type AgentStore struct {
	db *DB
}

// NewAgentStore creates a new AgentStore
func NewAgentStore(db *DB) *AgentStore {
	return &AgentStore{db: db}
}

// Save creates or updates an agent
func (s *AgentStore) Save(ctx context.Context, agent *domain.Agent) error {
	query := `
		INSERT INTO agents (id, tenant_id, name, integration_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			integration_ids = EXCLUDED.integration_ids,
			updated_at = EXCLUDED.updated_at
	`

	var ids interface{}
	if agent.IntegrationIDs != nil {
		ids = pq.Array(*agent.IntegrationIDs)
	}

	_, err := s.db.ExecContext(ctx, query,
		agent.ID,
		agent.TenantID,
		agent.Name,
		ids,
		agent.CreatedAt,
		agent.UpdatedAt,
	)
	return err
}

// Get retrieves an agent by ID
func (s *AgentStore) Get(ctx context.Context, id string) (*domain.Agent, error) {
	query := `
		SELECT id, tenant_id, name, integration_ids, created_at, updated_at
		FROM agents
		WHERE id = $1
	`

	agent, err := scanAgent(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// ListByTenant retrieves all agents owned by a tenant
func (s *AgentStore) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Agent, error) {
	query := `
		SELECT id, tenant_id, name, integration_ids, created_at, updated_at
		FROM agents
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []*domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return agents, nil
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var agent domain.Agent
	var ids pq.StringArray
	var idsValid bool

	err := row.Scan(
		&agent.ID,
		&agent.TenantID,
		&agent.Name,
		&nullStringArray{arr: &ids, valid: &idsValid},
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if idsValid {
		list := []string(ids)
		if list == nil {
			list = []string{}
		}
		agent.IntegrationIDs = &list
	}

	return &agent, nil
}

// nullStringArray scans a nullable text[] column, keeping the NULL vs
// empty distinction that pq.StringArray alone loses.
type nullStringArray struct {
	arr   *pq.StringArray
	valid *bool
}

func (n *nullStringArray) Scan(src interface{}) error {
	if src == nil {
		*n.valid = false
		return nil
	}
	*n.valid = true
	return n.arr.Scan(src)
}
