package plans

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/meridianhq/meridian/pkg/cache"
	"github.com/meridianhq/meridian/pkg/features"
	"github.com/meridianhq/meridian/pkg/tenants"
)

// DefaultCacheTTL bounds how stale a tenant's module set may be. Plan
// changes invalidate explicitly; the TTL is the backstop.
const DefaultCacheTTL = 5 * time.Minute

// PlanSource resolves a tenant's active plan.
type PlanSource interface {
	ActivePlan(ctx context.Context, tenant *tenants.Tenant) (*tenants.Plan, error)
}

// OverrideSource lists per-tenant module overrides.
type OverrideSource interface {
	ListModuleOverrides(ctx context.Context, tenantID int64) ([]string, error)
}

// TreeSource provides the current feature tree snapshot.
type TreeSource interface {
	Tree(ctx context.Context) (*features.Tree, error)
}

// Catalog resolves and caches tenant module inclusion.
type Catalog struct {
	plans     PlanSource
	overrides OverrideSource
	trees     TreeSource
	cache     cache.Cache
	ttl       time.Duration
}

// NewCatalog creates a plan catalog. A zero ttl uses DefaultCacheTTL.
func NewCatalog(plans PlanSource, overrides OverrideSource, trees TreeSource, c cache.Cache, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Catalog{
		plans:     plans,
		overrides: overrides,
		trees:     trees,
		cache:     c,
		ttl:       ttl,
	}
}

// CacheKey returns the cache key for a tenant's module set.
func CacheKey(tenantID int64) string {
	return fmt.Sprintf("access:plan-modules:%d", tenantID)
}

// IsModuleIncluded reports whether the tenant's subscription includes the
// module.
func (c *Catalog) IsModuleIncluded(ctx context.Context, tenant *tenants.Tenant, moduleCode string) (bool, error) {
	included, err := c.IncludedModules(ctx, tenant)
	if err != nil {
		return false, err
	}
	for _, code := range included {
		if code == moduleCode {
			return true, nil
		}
	}
	return false, nil
}

// IncludedModules returns the sorted union of plan modules, tenant
// overrides, and core modules. The result is cached per tenant.
func (c *Catalog) IncludedModules(ctx context.Context, tenant *tenants.Tenant) ([]string, error) {
	key := CacheKey(tenant.ID)

	var cached []string
	if found, err := c.cache.Get(ctx, key, &cached); err == nil && found {
		return cached, nil
	}
	// Cache errors are treated as misses; the stores are authoritative.

	set := make(map[string]bool)

	plan, err := c.plans.ActivePlan(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active plan: %w", err)
	}
	if plan != nil {
		for _, code := range plan.IncludedModules {
			set[code] = true
		}
	}

	overrides, err := c.overrides.ListModuleOverrides(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list module overrides: %w", err)
	}
	for _, code := range overrides {
		set[code] = true
	}

	tree, err := c.trees.Tree(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load feature tree: %w", err)
	}
	for _, code := range tree.CoreModules() {
		set[code] = true
	}

	included := make([]string, 0, len(set))
	for code := range set {
		included = append(included, code)
	}
	sort.Strings(included)

	// Best effort: a failed write just means the next check recomputes.
	_ = c.cache.Set(ctx, key, included, c.ttl)

	return included, nil
}

// InvalidateTenant drops the tenant's cached module set. Call after a
// plan change or module override change.
func (c *Catalog) InvalidateTenant(ctx context.Context, tenantID int64) error {
	return c.cache.Forget(ctx, CacheKey(tenantID))
}
