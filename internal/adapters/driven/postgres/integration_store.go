package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IntegrationStore = (*IntegrationStore)(nil)

// IntegrationStore implements driven.IntegrationStore using PostgreSQL.
// Credentials arrive already encrypted; this store treats the payload as
// an opaque string.
type IntegrationStore struct {
	db *DB
}

// NewIntegrationStore creates a new IntegrationStore
func NewIntegrationStore(db *DB) *IntegrationStore {
	return &IntegrationStore{db: db}
}

const integrationColumns = `id, tenant_id, provider, type, status, encrypted_credentials, config, webhook_url, created_at, updated_at`

// Save creates or updates an integration record
func (s *IntegrationStore) Save(ctx context.Context, integration *domain.Integration) error {
	var configJSON []byte
	if integration.Config != nil {
		var err error
		configJSON, err = json.Marshal(integration.Config)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO integrations (id, tenant_id, provider, type, status, encrypted_credentials, config, webhook_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			encrypted_credentials = EXCLUDED.encrypted_credentials,
			config = EXCLUDED.config,
			webhook_url = EXCLUDED.webhook_url,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		integration.ID,
		integration.TenantID,
		string(integration.Provider),
		string(integration.Type),
		string(integration.Status),
		integration.EncryptedCredentials,
		configJSON,
		NullString(integration.WebhookURL),
		integration.CreatedAt,
		integration.UpdatedAt,
	)
	return err
}

// Get retrieves a record by ID
func (s *IntegrationStore) Get(ctx context.Context, id string) (*domain.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

// GetByProvider returns the connected record for a (tenant, provider)
// pair. Historical disconnected rows are ignored; the newest connected
// row wins if several exist.
func (s *IntegrationStore) GetByProvider(ctx context.Context, tenantID string, provider domain.Provider) (*domain.Integration, error) {
	query := `
		SELECT ` + integrationColumns + `
		FROM integrations
		WHERE tenant_id = $1 AND provider = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, tenantID, string(provider), string(domain.IntegrationStatusConnected)))
}

// ListConnected returns all connected records for a tenant
func (s *IntegrationStore) ListConnected(ctx context.Context, tenantID string) ([]*domain.Integration, error) {
	query := `
		SELECT ` + integrationColumns + `
		FROM integrations
		WHERE tenant_id = $1 AND status = $2
		ORDER BY created_at DESC
	`
	return s.queryIntegrations(ctx, query, tenantID, string(domain.IntegrationStatusConnected))
}

// List returns all records for a tenant regardless of status
func (s *IntegrationStore) List(ctx context.Context, tenantID string) ([]*domain.Integration, error) {
	query := `
		SELECT ` + integrationColumns + `
		FROM integrations
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`
	return s.queryIntegrations(ctx, query, tenantID)
}

// UpdateStatus sets the lifecycle status of one record
func (s *IntegrationStore) UpdateStatus(ctx context.Context, id string, status domain.IntegrationStatus) error {
	query := `UPDATE integrations SET status = $1, updated_at = $2 WHERE id = $3`
	return s.execOne(ctx, query, string(status), time.Now(), id)
}

// UpdateCredentials replaces the encrypted credential payload of one
// record. Used to persist refreshed OAuth tokens.
func (s *IntegrationStore) UpdateCredentials(ctx context.Context, id string, encrypted string) error {
	query := `UPDATE integrations SET encrypted_credentials = $1, updated_at = $2 WHERE id = $3`
	return s.execOne(ctx, query, encrypted, time.Now(), id)
}

// Delete hard-deletes a record
func (s *IntegrationStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM integrations WHERE id = $1`
	return s.execOne(ctx, query, id)
}

func (s *IntegrationStore) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *IntegrationStore) scanOne(row rowScanner) (*domain.Integration, error) {
	var integration domain.Integration
	var configJSON []byte
	var webhookURL sql.NullString

	err := row.Scan(
		&integration.ID,
		&integration.TenantID,
		&integration.Provider,
		&integration.Type,
		&integration.Status,
		&integration.EncryptedCredentials,
		&configJSON,
		&webhookURL,
		&integration.CreatedAt,
		&integration.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &integration.Config); err != nil {
			return nil, err
		}
	}
	integration.WebhookURL = webhookURL.String

	return &integration, nil
}

func (s *IntegrationStore) queryIntegrations(ctx context.Context, query string, args ...interface{}) ([]*domain.Integration, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var integrations []*domain.Integration
	for rows.Next() {
		integration, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, integration)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return integrations, nil
}
