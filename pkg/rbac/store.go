package rbac

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store handles role and grant persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a new RBAC store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateRole creates a new role.
func (s *Store) CreateRole(ctx context.Context, role *Role) error {
	query := `
		INSERT INTO roles (name, display_name, description, tenant_id, is_built_in, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		role.Name,
		role.DisplayName,
		role.Description,
		role.TenantID,
		role.IsBuiltIn,
		now,
		now,
	).Scan(&role.ID)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	role.CreatedAt = now
	role.UpdatedAt = now
	return nil
}

// GetRole retrieves a role by ID.
func (s *Store) GetRole(ctx context.Context, roleID int64) (*Role, error) {
	query := `
		SELECT id, name, display_name, description, tenant_id, is_built_in, created_at, updated_at
		FROM roles
		WHERE id = $1
	`

	var role Role
	var tenantID sql.NullInt64

	err := s.db.QueryRowContext(ctx, query, roleID).Scan(
		&role.ID,
		&role.Name,
		&role.DisplayName,
		&role.Description,
		&tenantID,
		&role.IsBuiltIn,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("role not found: %d", roleID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	if tenantID.Valid {
		id := tenantID.Int64
		role.TenantID = &id
	}

	return &role, nil
}

// AssignRole assigns a role to a user within a tenant.
func (s *Store) AssignRole(ctx context.Context, userID, roleID int64, tenantID *int64, grantedBy *int64) error {
	query := `
		INSERT INTO user_roles (user_id, role_id, tenant_id, granted_by, granted_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query, userID, roleID, tenantID, grantedBy, time.Now())
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// AddGrant grants a role access to a feature node at a scope.
func (s *Store) AddGrant(ctx context.Context, grant *Grant) error {
	query := `
		INSERT INTO role_grants (role_id, feature_node_id, scope, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		grant.RoleID,
		grant.FeatureNodeID,
		grant.Scope,
		now,
	).Scan(&grant.ID)
	if err != nil {
		return fmt.Errorf("failed to add grant: %w", err)
	}

	grant.CreatedAt = now
	return nil
}

// RemoveGrant revokes a role's grant on a feature node.
func (s *Store) RemoveGrant(ctx context.Context, roleID, featureNodeID int64) error {
	query := `DELETE FROM role_grants WHERE role_id = $1 AND feature_node_id = $2`

	_, err := s.db.ExecContext(ctx, query, roleID, featureNodeID)
	if err != nil {
		return fmt.Errorf("failed to remove grant: %w", err)
	}
	return nil
}

// GetUserRoles returns the roles assigned to a user. Platform-level
// assignments (tenant_id IS NULL) are always included; tenant-level ones
// only for the given tenant.
func (s *Store) GetUserRoles(ctx context.Context, userID int64, tenantID int64) ([]Role, error) {
	query := `
		SELECT r.id, r.name, r.display_name, r.description, r.tenant_id, r.is_built_in, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON r.id = ur.role_id
		WHERE ur.user_id = $1 AND (ur.tenant_id = $2 OR ur.tenant_id IS NULL)
	`

	rows, err := s.db.QueryContext(ctx, query, userID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		var roleTenantID sql.NullInt64
		if err := rows.Scan(
			&role.ID,
			&role.Name,
			&role.DisplayName,
			&role.Description,
			&roleTenantID,
			&role.IsBuiltIn,
			&role.CreatedAt,
			&role.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		if roleTenantID.Valid {
			id := roleTenantID.Int64
			role.TenantID = &id
		}
		roles = append(roles, role)
	}

	return roles, rows.Err()
}

// UserHasRole reports whether the user holds a role with the given name
// for the tenant (or platform-wide).
func (s *Store) UserHasRole(ctx context.Context, userID int64, roleName string, tenantID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM roles r
			JOIN user_roles ur ON r.id = ur.role_id
			WHERE ur.user_id = $1
			  AND r.name = $2
			  AND (ur.tenant_id = $3 OR ur.tenant_id IS NULL)
		)
	`

	var has bool
	if err := s.db.QueryRowContext(ctx, query, userID, roleName, tenantID).Scan(&has); err != nil {
		return false, fmt.Errorf("failed to check role %s: %w", roleName, err)
	}
	return has, nil
}

// AnyGrant reports whether any of the user's roles has a grant on exactly
// the given feature node.
func (s *Store) AnyGrant(ctx context.Context, userID, tenantID, featureNodeID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM role_grants rg
			JOIN user_roles ur ON rg.role_id = ur.role_id
			WHERE ur.user_id = $1
			  AND (ur.tenant_id = $2 OR ur.tenant_id IS NULL)
			  AND rg.feature_node_id = $3
		)
	`

	var has bool
	if err := s.db.QueryRowContext(ctx, query, userID, tenantID, featureNodeID).Scan(&has); err != nil {
		return false, fmt.Errorf("failed to check grant: %w", err)
	}
	return has, nil
}

// GrantedScopes returns the scopes the user's roles grant on exactly the
// given feature node. Empty when no role grants the node.
func (s *Store) GrantedScopes(ctx context.Context, userID, tenantID, featureNodeID int64) ([]Scope, error) {
	query := `
		SELECT rg.scope
		FROM role_grants rg
		JOIN user_roles ur ON rg.role_id = ur.role_id
		WHERE ur.user_id = $1
		  AND (ur.tenant_id = $2 OR ur.tenant_id IS NULL)
		  AND rg.feature_node_id = $3
	`

	rows, err := s.db.QueryContext(ctx, query, userID, tenantID, featureNodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get granted scopes: %w", err)
	}
	defer rows.Close()

	var scopes []Scope
	for rows.Next() {
		var scope Scope
		if err := rows.Scan(&scope); err != nil {
			return nil, fmt.Errorf("failed to scan scope: %w", err)
		}
		scopes = append(scopes, scope)
	}

	return scopes, rows.Err()
}

// RoleGrants lists all grants owned by a role.
func (s *Store) RoleGrants(ctx context.Context, roleID int64) ([]Grant, error) {
	query := `
		SELECT id, role_id, feature_node_id, scope, created_at
		FROM role_grants
		WHERE role_id = $1
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role grants: %w", err)
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.ID, &g.RoleID, &g.FeatureNodeID, &g.Scope, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, g)
	}

	return grants, rows.Err()
}
