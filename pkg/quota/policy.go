package quota

import (
	"context"
	"fmt"

	"github.com/meridianhq/meridian/pkg/tenants"
)

// PlanSource resolves a tenant's active plan.
type PlanSource interface {
	ActivePlan(ctx context.Context, tenant *tenants.Tenant) (*tenants.Plan, error)
}

// TierDefaults returns the static per-tier limit table. -1 means
// unlimited. Metrics absent from a tier are unlimited for it.
func TierDefaults() map[tenants.PlanTier]map[string]int64 {
	return map[tenants.PlanTier]map[string]int64{
		tenants.TierFree: {
			MetricEmployees:       10,
			MetricCustomers:       25,
			MetricDocuments:       100,
			MetricStorageGB:       1,
			MetricAPICallsMonthly: 1000,
		},
		tenants.TierStarter: {
			MetricEmployees:       50,
			MetricCustomers:       250,
			MetricDocuments:       1000,
			MetricStorageGB:       10,
			MetricAPICallsMonthly: 10000,
		},
		tenants.TierProfessional: {
			MetricEmployees:       250,
			MetricCustomers:       2500,
			MetricDocuments:       10000,
			MetricStorageGB:       100,
			MetricAPICallsMonthly: 100000,
		},
		tenants.TierEnterprise: {
			MetricEmployees:       -1,
			MetricCustomers:       -1,
			MetricDocuments:       -1,
			MetricStorageGB:       1000,
			MetricAPICallsMonthly: -1,
		},
	}
}

// Policy resolves the numeric limit for a tenant+metric.
//
// Precedence: tenant metadata override > plan metadata override > tier
// default. Tenants without a plan resolve against the free tier.
type Policy struct {
	plans    PlanSource
	defaults map[tenants.PlanTier]map[string]int64
}

// NewPolicy creates a policy backed by the static tier default table.
func NewPolicy(plans PlanSource) *Policy {
	return &Policy{
		plans:    plans,
		defaults: TierDefaults(),
	}
}

// overrideKey is how override maps key limits, e.g. "max_employees".
func overrideKey(metric string) string {
	return "max_" + metric
}

// Limit resolves the limit for a tenant+metric.
func (p *Policy) Limit(ctx context.Context, tenant *tenants.Tenant, metric string) (Limit, error) {
	if v, ok := tenant.Overrides[overrideKey(metric)]; ok {
		return limitFromStored(v), nil
	}

	plan, err := p.plans.ActivePlan(ctx, tenant)
	if err != nil {
		return Limit{}, fmt.Errorf("failed to resolve active plan: %w", err)
	}

	tier := tenants.TierFree
	if plan != nil {
		if v, ok := plan.Overrides[overrideKey(metric)]; ok {
			return limitFromStored(v), nil
		}
		if plan.Tier.Valid() {
			tier = plan.Tier
		}
	}

	if v, ok := p.defaults[tier][metric]; ok {
		return limitFromStored(v), nil
	}

	// Unmetered metric: nothing to enforce.
	return Unlimited(), nil
}
