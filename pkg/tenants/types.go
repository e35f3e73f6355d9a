package tenants

import (
	"context"
	"errors"
	"time"
)

// PlanTier represents subscription plan tiers
type PlanTier string

const (
	TierFree         PlanTier = "free"
	TierStarter      PlanTier = "starter"
	TierProfessional PlanTier = "professional"
	TierEnterprise   PlanTier = "enterprise"
)

// Valid reports whether the tier is a known tier code.
func (t PlanTier) Valid() bool {
	switch t {
	case TierFree, TierStarter, TierProfessional, TierEnterprise:
		return true
	}
	return false
}

// TenantStatus represents tenant lifecycle status
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusDeleted   TenantStatus = "deleted"
)

// Tenant represents a tenant of the platform
type Tenant struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	Slug      string           `json:"slug"`
	PlanID    *int64           `json:"plan_id,omitempty"` // nil means no active plan
	Status    TenantStatus     `json:"status"`
	Overrides map[string]int64 `json:"overrides,omitempty"` // keyed "max_<metric>"
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Plan represents a subscription plan
type Plan struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Tier            PlanTier         `json:"tier"`
	IncludedModules []string         `json:"included_modules"`
	Overrides       map[string]int64 `json:"overrides,omitempty"` // keyed "max_<metric>"
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Sentinel errors returned by the store.
var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrPlanNotFound   = errors.New("plan not found")
)

// Service defines tenant and plan access for the decision engines.
type Service interface {
	GetTenant(ctx context.Context, id int64) (*Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error)
	CreateTenant(ctx context.Context, tenant *Tenant) error

	GetPlan(ctx context.Context, id int64) (*Plan, error)
	// ActivePlan returns the tenant's plan, or nil when the tenant has none.
	ActivePlan(ctx context.Context, tenant *Tenant) (*Plan, error)
	CreatePlan(ctx context.Context, plan *Plan) error

	// SetTenantPlan changes the tenant's active plan. Callers must
	// invalidate the plan-module cache afterwards.
	SetTenantPlan(ctx context.Context, tenantID int64, planID *int64) error

	// SetTenantOverrides replaces the tenant's limit override map.
	SetTenantOverrides(ctx context.Context, tenantID int64, overrides map[string]int64) error
}
