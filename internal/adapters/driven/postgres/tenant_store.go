package postgres

import (
	"context"
	"database/sql"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TenantStore = (*TenantStore)(nil)

// TenantStore implements driven.TenantStore using PostgreSQL.
// Plan limits are denormalized onto the row so operators can override
// a tenant's ceilings without changing its plan name.
type TenantStore struct {
	db *DB
}

// NewTenantStore creates a new TenantStore
func NewTenantStore(db *DB) *TenantStore {
	return &TenantStore{db: db}
}

// Save creates or updates a tenant
func (s *TenantStore) Save(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, plan_name, email_monthly, sms_monthly, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			plan_name = EXCLUDED.plan_name,
			email_monthly = EXCLUDED.email_monthly,
			sms_monthly = EXCLUDED.sms_monthly,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		tenant.ID,
		tenant.Name,
		tenant.Plan.Name,
		tenant.Plan.EmailMonthly,
		tenant.Plan.SMSMonthly,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	return err
}

// Get retrieves a tenant by ID
func (s *TenantStore) Get(ctx context.Context, id string) (*domain.Tenant, error) {
	query := `
		SELECT id, name, plan_name, email_monthly, sms_monthly, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`

	var tenant domain.Tenant
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Plan.Name,
		&tenant.Plan.EmailMonthly,
		&tenant.Plan.SMSMonthly,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &tenant, nil
}
