package plans

import (
	"context"
	"fmt"
)

// TenantMutator applies plan assignment and quota override changes to
// tenant records. Satisfied by the tenants store.
type TenantMutator interface {
	SetTenantPlan(ctx context.Context, tenantID int64, planID *int64) error
	SetTenantOverrides(ctx context.Context, tenantID int64, overrides map[string]int64) error
}

// OverrideMutator applies module override changes. Satisfied by the
// plan override store.
type OverrideMutator interface {
	AddModuleOverride(ctx context.Context, tenantID int64, moduleCode string) error
	RemoveModuleOverride(ctx context.Context, tenantID int64, moduleCode string) error
}

// Manager is the write path for subscription state. Every mutation
// drops the tenant's cached module set so the next access decision sees
// the change immediately instead of waiting out the cache TTL.
type Manager struct {
	tenants   TenantMutator
	overrides OverrideMutator
	catalog   *Catalog
}

// NewManager creates a subscription manager.
func NewManager(tenants TenantMutator, overrides OverrideMutator, catalog *Catalog) *Manager {
	return &Manager{
		tenants:   tenants,
		overrides: overrides,
		catalog:   catalog,
	}
}

// SetTenantPlan assigns a plan to the tenant. A nil planID clears the
// assignment, dropping the tenant to free-tier behavior.
func (m *Manager) SetTenantPlan(ctx context.Context, tenantID int64, planID *int64) error {
	if err := m.tenants.SetTenantPlan(ctx, tenantID, planID); err != nil {
		return err
	}
	return m.invalidate(ctx, tenantID, "plan change")
}

// SetTenantOverrides replaces the tenant's quota overrides.
func (m *Manager) SetTenantOverrides(ctx context.Context, tenantID int64, overrides map[string]int64) error {
	if err := m.tenants.SetTenantOverrides(ctx, tenantID, overrides); err != nil {
		return err
	}
	return m.invalidate(ctx, tenantID, "override change")
}

// GrantModule grants a module to the tenant outside its plan.
func (m *Manager) GrantModule(ctx context.Context, tenantID int64, moduleCode string) error {
	if err := m.overrides.AddModuleOverride(ctx, tenantID, moduleCode); err != nil {
		return err
	}
	return m.invalidate(ctx, tenantID, "module grant")
}

// RevokeModule revokes an individually granted module.
func (m *Manager) RevokeModule(ctx context.Context, tenantID int64, moduleCode string) error {
	if err := m.overrides.RemoveModuleOverride(ctx, tenantID, moduleCode); err != nil {
		return err
	}
	return m.invalidate(ctx, tenantID, "module revocation")
}

func (m *Manager) invalidate(ctx context.Context, tenantID int64, cause string) error {
	if err := m.catalog.InvalidateTenant(ctx, tenantID); err != nil {
		return fmt.Errorf("failed to invalidate module cache after %s: %w", cause, err)
	}
	return nil
}
