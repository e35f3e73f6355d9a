package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/meridian/pkg/tenants"
)

type fakePlanSource struct {
	plan *tenants.Plan
	err  error
}

func (f *fakePlanSource) ActivePlan(ctx context.Context, tenant *tenants.Tenant) (*tenants.Plan, error) {
	return f.plan, f.err
}

func TestLimitTenantOverrideWins(t *testing.T) {
	policy := NewPolicy(&fakePlanSource{plan: &tenants.Plan{
		Tier:      tenants.TierProfessional,
		Overrides: map[string]int64{"max_employees": 500},
	}})

	tenant := &tenants.Tenant{ID: 1, Overrides: map[string]int64{"max_employees": 7}}
	limit, err := policy.Limit(context.Background(), tenant, MetricEmployees)
	require.NoError(t, err)
	assert.Equal(t, int64(7), limit.Value())
}

func TestLimitPlanOverrideBeatsTierDefault(t *testing.T) {
	policy := NewPolicy(&fakePlanSource{plan: &tenants.Plan{
		Tier:      tenants.TierStarter,
		Overrides: map[string]int64{"max_employees": 75},
	}})

	limit, err := policy.Limit(context.Background(), &tenants.Tenant{ID: 1}, MetricEmployees)
	require.NoError(t, err)
	assert.Equal(t, int64(75), limit.Value())
}

func TestLimitTierDefault(t *testing.T) {
	policy := NewPolicy(&fakePlanSource{plan: &tenants.Plan{Tier: tenants.TierStarter}})

	limit, err := policy.Limit(context.Background(), &tenants.Tenant{ID: 1}, MetricEmployees)
	require.NoError(t, err)
	assert.Equal(t, int64(50), limit.Value())
}

func TestLimitNoPlanFallsBackToFreeTier(t *testing.T) {
	policy := NewPolicy(&fakePlanSource{plan: nil})

	limit, err := policy.Limit(context.Background(), &tenants.Tenant{ID: 1}, MetricEmployees)
	require.NoError(t, err)
	assert.Equal(t, int64(10), limit.Value())
}

func TestLimitUnlimitedSentinel(t *testing.T) {
	policy := NewPolicy(&fakePlanSource{plan: &tenants.Plan{Tier: tenants.TierEnterprise}})

	limit, err := policy.Limit(context.Background(), &tenants.Tenant{ID: 1}, MetricEmployees)
	require.NoError(t, err)
	assert.True(t, limit.IsUnlimited())
}

func TestLimitNegativeOverrideMeansUnlimited(t *testing.T) {
	policy := NewPolicy(&fakePlanSource{plan: nil})

	tenant := &tenants.Tenant{ID: 1, Overrides: map[string]int64{"max_employees": -1}}
	limit, err := policy.Limit(context.Background(), tenant, MetricEmployees)
	require.NoError(t, err)
	assert.True(t, limit.IsUnlimited())
}

func TestLimitUnmeteredMetricIsUnlimited(t *testing.T) {
	policy := NewPolicy(&fakePlanSource{plan: &tenants.Plan{Tier: tenants.TierFree}})

	limit, err := policy.Limit(context.Background(), &tenants.Tenant{ID: 1}, "webhooks")
	require.NoError(t, err)
	assert.True(t, limit.IsUnlimited())
}

func TestLimitPlanSourceErrorPropagates(t *testing.T) {
	policy := NewPolicy(&fakePlanSource{err: errors.New("db down")})

	_, err := policy.Limit(context.Background(), &tenants.Tenant{ID: 1}, MetricEmployees)
	assert.Error(t, err)
}

func TestLimitTenantOverrideSkipsPlanLookup(t *testing.T) {
	// The tenant override resolves without touching the plan source.
	policy := NewPolicy(&fakePlanSource{err: errors.New("db down")})

	tenant := &tenants.Tenant{ID: 1, Overrides: map[string]int64{"max_employees": 3}}
	limit, err := policy.Limit(context.Background(), tenant, MetricEmployees)
	require.NoError(t, err)
	assert.Equal(t, int64(3), limit.Value())
}
