package plans

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store persists per-tenant module overrides.
type Store struct {
	db *sql.DB
}

// NewStore creates a new plan override store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListModuleOverrides returns module codes individually granted to the
// tenant outside its plan.
func (s *Store) ListModuleOverrides(ctx context.Context, tenantID int64) ([]string, error) {
	query := `
		SELECT module_code
		FROM tenant_module_overrides
		WHERE tenant_id = $1
		ORDER BY module_code
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list module overrides: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan module override: %w", err)
		}
		codes = append(codes, code)
	}

	return codes, rows.Err()
}

// AddModuleOverride individually grants a module to a tenant.
func (s *Store) AddModuleOverride(ctx context.Context, tenantID int64, moduleCode string) error {
	query := `
		INSERT INTO tenant_module_overrides (tenant_id, module_code, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, module_code) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query, tenantID, moduleCode, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add module override: %w", err)
	}
	return nil
}

// RemoveModuleOverride revokes an individually granted module.
func (s *Store) RemoveModuleOverride(ctx context.Context, tenantID int64, moduleCode string) error {
	query := `DELETE FROM tenant_module_overrides WHERE tenant_id = $1 AND module_code = $2`

	_, err := s.db.ExecContext(ctx, query, tenantID, moduleCode)
	if err != nil {
		return fmt.Errorf("failed to remove module override: %w", err)
	}
	return nil
}
