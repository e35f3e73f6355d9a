package tenants

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore implements Service backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new tenant store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetTenant retrieves a tenant by ID.
func (s *PostgresStore) GetTenant(ctx context.Context, id int64) (*Tenant, error) {
	query := `
		SELECT id, name, slug, plan_id, status, overrides, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	return s.scanTenant(s.db.QueryRowContext(ctx, query, id))
}

// GetTenantBySlug retrieves a tenant by slug.
func (s *PostgresStore) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	query := `
		SELECT id, name, slug, plan_id, status, overrides, created_at, updated_at
		FROM tenants
		WHERE slug = $1
	`
	return s.scanTenant(s.db.QueryRowContext(ctx, query, slug))
}

// CreateTenant creates a new tenant.
func (s *PostgresStore) CreateTenant(ctx context.Context, tenant *Tenant) error {
	if tenant.Status == "" {
		tenant.Status = TenantStatusActive
	}

	overridesJSON, err := json.Marshal(tenant.Overrides)
	if err != nil {
		return fmt.Errorf("failed to marshal overrides: %w", err)
	}

	query := `
		INSERT INTO tenants (name, slug, plan_id, status, overrides, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	err = s.db.QueryRowContext(ctx, query,
		tenant.Name,
		tenant.Slug,
		tenant.PlanID,
		tenant.Status,
		string(overridesJSON),
		now,
		now,
	).Scan(&tenant.ID)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	return nil
}

// GetPlan retrieves a plan by ID.
func (s *PostgresStore) GetPlan(ctx context.Context, id int64) (*Plan, error) {
	query := `
		SELECT id, name, tier, included_modules, overrides, created_at, updated_at
		FROM plans
		WHERE id = $1
	`

	var plan Plan
	var modules pq.StringArray
	var overridesJSON []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&plan.ID,
		&plan.Name,
		&plan.Tier,
		&modules,
		&overridesJSON,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	plan.IncludedModules = modules
	if len(overridesJSON) > 0 {
		if err := json.Unmarshal(overridesJSON, &plan.Overrides); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan overrides: %w", err)
		}
	}

	return &plan, nil
}

// ActivePlan returns the tenant's plan, or nil when no plan is assigned.
func (s *PostgresStore) ActivePlan(ctx context.Context, tenant *Tenant) (*Plan, error) {
	if tenant.PlanID == nil {
		return nil, nil
	}
	return s.GetPlan(ctx, *tenant.PlanID)
}

// CreatePlan creates a new plan.
func (s *PostgresStore) CreatePlan(ctx context.Context, plan *Plan) error {
	overridesJSON, err := json.Marshal(plan.Overrides)
	if err != nil {
		return fmt.Errorf("failed to marshal plan overrides: %w", err)
	}

	query := `
		INSERT INTO plans (name, tier, included_modules, overrides, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := time.Now()
	err = s.db.QueryRowContext(ctx, query,
		plan.Name,
		plan.Tier,
		pq.StringArray(plan.IncludedModules),
		string(overridesJSON),
		now,
		now,
	).Scan(&plan.ID)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}

	plan.CreatedAt = now
	plan.UpdatedAt = now
	return nil
}

// SetTenantPlan changes the tenant's active plan.
func (s *PostgresStore) SetTenantPlan(ctx context.Context, tenantID int64, planID *int64) error {
	query := `UPDATE tenants SET plan_id = $1, updated_at = NOW() WHERE id = $2`

	result, err := s.db.ExecContext(ctx, query, planID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to set tenant plan: %w", err)
	}
	return requireRow(result, ErrTenantNotFound)
}

// SetTenantOverrides replaces the tenant's limit override map.
func (s *PostgresStore) SetTenantOverrides(ctx context.Context, tenantID int64, overrides map[string]int64) error {
	overridesJSON, err := json.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("failed to marshal overrides: %w", err)
	}

	query := `UPDATE tenants SET overrides = $1, updated_at = NOW() WHERE id = $2`

	result, err := s.db.ExecContext(ctx, query, string(overridesJSON), tenantID)
	if err != nil {
		return fmt.Errorf("failed to set tenant overrides: %w", err)
	}
	return requireRow(result, ErrTenantNotFound)
}

func (s *PostgresStore) scanTenant(row *sql.Row) (*Tenant, error) {
	var tenant Tenant
	var planID sql.NullInt64
	var overridesJSON []byte

	err := row.Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Slug,
		&planID,
		&tenant.Status,
		&overridesJSON,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	if planID.Valid {
		id := planID.Int64
		tenant.PlanID = &id
	}
	if len(overridesJSON) > 0 {
		if err := json.Unmarshal(overridesJSON, &tenant.Overrides); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tenant overrides: %w", err)
		}
	}

	return &tenant, nil
}

func requireRow(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
