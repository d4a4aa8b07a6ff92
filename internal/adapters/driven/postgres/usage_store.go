package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.UsageStore = (*UsageStore)(nil)

// UsageStore implements driven.UsageStore using PostgreSQL.
// Counters are keyed by (tenant, metric, period) where period is the
// calendar month, so a new month starts at zero without any reset job.
type UsageStore struct {
	db *DB
}

// NewUsageStore creates a new UsageStore
func NewUsageStore(db *DB) *UsageStore {
	return &UsageStore{db: db}
}

// MonthlyCount returns the tenant's count for the current month
func (s *UsageStore) MonthlyCount(ctx context.Context, tenantID string, metric domain.UsageMetric) (int, error) {
	query := `
		SELECT count FROM usage_counters
		WHERE tenant_id = $1 AND metric = $2 AND period = $3
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, tenantID, string(metric), currentPeriod()).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Record adds n to the tenant's counter for the current month
func (s *UsageStore) Record(ctx context.Context, tenantID string, metric domain.UsageMetric, n int) error {
	query := `
		INSERT INTO usage_counters (tenant_id, metric, period, count, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, metric, period) DO UPDATE SET
			count = usage_counters.count + EXCLUDED.count,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query, tenantID, string(metric), currentPeriod(), n, time.Now())
	return err
}

// currentPeriod returns the YYYY-MM key for the current month in UTC.
func currentPeriod() string {
	return time.Now().UTC().Format("2006-01")
}
