package quota

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store persists usage records and quota warnings.
type Store struct {
	db *sql.DB
}

// NewStore creates a new quota store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// AppendRecord writes an immutable usage record.
func (s *Store) AppendRecord(ctx context.Context, record *UsageRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO usage_records (id, tenant_id, metric, type, quantity, period_start, period_end, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.TenantID,
		record.Metric,
		record.Type,
		record.Quantity,
		record.PeriodStart,
		record.PeriodEnd,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append usage record: %w", err)
	}
	return nil
}

// SumCounter returns the period-scoped sum of counter records for a
// tenant+metric.
func (s *Store) SumCounter(ctx context.Context, tenantID int64, metric string, period BillingPeriod) (int64, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM usage_records
		WHERE tenant_id = $1
		  AND metric = $2
		  AND type = $3
		  AND period_start = $4
	`

	var sum int64
	err := s.db.QueryRowContext(ctx, query, tenantID, metric, UsageTypeCounter, period.Start).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum usage: %w", err)
	}
	return sum, nil
}

// LatestGauge returns the most recent gauge value for a tenant+metric,
// or 0 when none has been recorded.
func (s *Store) LatestGauge(ctx context.Context, tenantID int64, metric string) (int64, error) {
	query := `
		SELECT quantity
		FROM usage_records
		WHERE tenant_id = $1 AND metric = $2 AND type = $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var value int64
	err := s.db.QueryRowContext(ctx, query, tenantID, metric, UsageTypeGauge).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get latest gauge: %w", err)
	}
	return value, nil
}

// CreateWarning persists a quota warning.
func (s *Store) CreateWarning(ctx context.Context, warning *QuotaWarning) error {
	if warning.ID == "" {
		warning.ID = uuid.NewString()
	}
	if warning.CreatedAt.IsZero() {
		warning.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO quota_warnings (id, tenant_id, metric, percentage_used, level, created_at, expires_at, dismissed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		warning.ID,
		warning.TenantID,
		warning.Metric,
		warning.PercentageUsed,
		warning.Level,
		warning.CreatedAt,
		warning.ExpiresAt,
		warning.Dismissed,
	)
	if err != nil {
		return fmt.Errorf("failed to create quota warning: %w", err)
	}
	return nil
}

// GraceAnchor returns the earliest non-dismissed warning for the
// tenant+metric in the current billing period, or nil. The anchor
// deliberately ignores expiry: an expired anchor still marks when the
// grace window started, otherwise blocking could never trigger.
func (s *Store) GraceAnchor(ctx context.Context, tenantID int64, metric string, periodStart time.Time) (*QuotaWarning, error) {
	query := `
		SELECT id, tenant_id, metric, percentage_used, level, created_at, expires_at, dismissed
		FROM quota_warnings
		WHERE tenant_id = $1
		  AND metric = $2
		  AND dismissed = FALSE
		  AND created_at >= $3
		ORDER BY created_at ASC
		LIMIT 1
	`

	warning, err := s.scanWarning(s.db.QueryRowContext(ctx, query, tenantID, metric, periodStart))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return warning, err
}

// LatestWarningAfter returns the newest warning created after since, or
// nil. Used to deduplicate warnings within the 24h window.
func (s *Store) LatestWarningAfter(ctx context.Context, tenantID int64, metric string, since time.Time) (*QuotaWarning, error) {
	query := `
		SELECT id, tenant_id, metric, percentage_used, level, created_at, expires_at, dismissed
		FROM quota_warnings
		WHERE tenant_id = $1
		  AND metric = $2
		  AND created_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	warning, err := s.scanWarning(s.db.QueryRowContext(ctx, query, tenantID, metric, since))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return warning, err
}

// ListActiveWarnings returns all active warnings for a tenant.
func (s *Store) ListActiveWarnings(ctx context.Context, tenantID int64, now time.Time) ([]QuotaWarning, error) {
	query := `
		SELECT id, tenant_id, metric, percentage_used, level, created_at, expires_at, dismissed
		FROM quota_warnings
		WHERE tenant_id = $1
		  AND dismissed = FALSE
		  AND expires_at > $2
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list warnings: %w", err)
	}
	defer rows.Close()

	var warnings []QuotaWarning
	for rows.Next() {
		var w QuotaWarning
		if err := rows.Scan(
			&w.ID,
			&w.TenantID,
			&w.Metric,
			&w.PercentageUsed,
			&w.Level,
			&w.CreatedAt,
			&w.ExpiresAt,
			&w.Dismissed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan warning: %w", err)
		}
		warnings = append(warnings, w)
	}

	return warnings, rows.Err()
}

// DismissWarning marks a warning dismissed.
func (s *Store) DismissWarning(ctx context.Context, id string) error {
	query := `UPDATE quota_warnings SET dismissed = TRUE WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to dismiss warning: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("warning not found: %s", id)
	}
	return nil
}

// PurgeExpiredWarnings deletes warnings expired before cutoff. Run by
// the reconciler.
func (s *Store) PurgeExpiredWarnings(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM quota_warnings WHERE expires_at <= $1`

	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge warnings: %w", err)
	}
	return result.RowsAffected()
}

// TenantsWithUsage returns tenant IDs that have recorded usage in the
// period. Used by the reconciler to bound its sweep.
func (s *Store) TenantsWithUsage(ctx context.Context, period BillingPeriod) ([]int64, error) {
	query := `
		SELECT DISTINCT tenant_id
		FROM usage_records
		WHERE period_start = $1
		ORDER BY tenant_id
	`

	rows, err := s.db.QueryContext(ctx, query, period.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants with usage: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tenant id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// MetricsWithUsage returns the metrics a tenant recorded in the period.
func (s *Store) MetricsWithUsage(ctx context.Context, tenantID int64, period BillingPeriod) ([]string, error) {
	query := `
		SELECT DISTINCT metric
		FROM usage_records
		WHERE tenant_id = $1 AND period_start = $2
		ORDER BY metric
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID, period.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics with usage: %w", err)
	}
	defer rows.Close()

	var metrics []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}

func (s *Store) scanWarning(row *sql.Row) (*QuotaWarning, error) {
	var w QuotaWarning
	err := row.Scan(
		&w.ID,
		&w.TenantID,
		&w.Metric,
		&w.PercentageUsed,
		&w.Level,
		&w.CreatedAt,
		&w.ExpiresAt,
		&w.Dismissed,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
