package quota

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/meridianhq/meridian/pkg/cache"
	"github.com/meridianhq/meridian/pkg/tenants"
)

const bytesPerGB = int64(1) << 30

// DefaultUsageCacheTTL bounds how stale a cached usage aggregate may be.
const DefaultUsageCacheTTL = 5 * time.Minute

// UsageTypeFor returns how a metric is metered. Storage is a gauge,
// everything else accumulates.
func UsageTypeFor(metric string) UsageType {
	if metric == MetricStorage {
		return UsageTypeGauge
	}
	return UsageTypeCounter
}

// CheckResult is the structured outcome of a quota check.
type CheckResult struct {
	Allowed     bool    `json:"allowed"`
	Metric      string  `json:"metric"`
	Current     int64   `json:"current"`
	Limit       int64   `json:"limit"` // -1 when unlimited
	Unlimited   bool    `json:"unlimited"`
	PercentUsed float64 `json:"percent_used"`
}

func newCheckResult(metric string, current int64, limit Limit, allowed bool) *CheckResult {
	r := &CheckResult{
		Allowed:     allowed,
		Metric:      metric,
		Current:     current,
		Limit:       -1,
		Unlimited:   limit.IsUnlimited(),
		PercentUsed: limit.PercentUsed(current),
	}
	if !limit.IsUnlimited() {
		r.Limit = limit.Value()
	}
	return r
}

// Enforcer answers quota checks against the usage ledger with a cached
// aggregate. Errors propagate to callers, which must treat them as
// denials.
type Enforcer struct {
	store    *Store
	policy   *Policy
	cache    cache.Cache
	cacheTTL time.Duration
	group    singleflight.Group
	now      func() time.Time
}

// NewEnforcer creates a quota enforcer.
func NewEnforcer(store *Store, policy *Policy, c cache.Cache) *Enforcer {
	return &Enforcer{
		store:    store,
		policy:   policy,
		cache:    c,
		cacheTTL: DefaultUsageCacheTTL,
		now:      time.Now,
	}
}

// SetClock overrides the enforcer's time source. For tests.
func (e *Enforcer) SetClock(now func() time.Time) {
	e.now = now
}

// SetCacheTTL overrides the usage cache TTL. Values <= 0 are ignored.
func (e *Enforcer) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		e.cacheTTL = ttl
	}
}

// CurrentUsage returns the aggregate usage for a tenant+metric in the
// current billing period. Cache-first; on a miss concurrent callers
// collapse onto a single ledger query.
func (e *Enforcer) CurrentUsage(ctx context.Context, tenantID int64, metric string) (int64, error) {
	period := PeriodFor(e.now())
	key := UsageCacheKey(tenantID, metric, period)

	var cached int64
	if found, err := e.cache.Get(ctx, key, &cached); err == nil && found {
		return cached, nil
	}

	v, err, _ := e.group.Do(key, func() (interface{}, error) {
		value, err := e.aggregate(ctx, tenantID, metric, period)
		if err != nil {
			return int64(0), err
		}
		// Best effort: a cache write failure only costs the next
		// caller a ledger query.
		_ = e.cache.Set(ctx, key, value, e.cacheTTL)
		return value, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (e *Enforcer) aggregate(ctx context.Context, tenantID int64, metric string, period BillingPeriod) (int64, error) {
	if UsageTypeFor(metric) == UsageTypeGauge {
		return e.store.LatestGauge(ctx, tenantID, metric)
	}
	return e.store.SumCounter(ctx, tenantID, metric, period)
}

// CanCreate reports whether one more unit of a counted resource fits
// under the tenant's limit.
func (e *Enforcer) CanCreate(ctx context.Context, tenant *tenants.Tenant, metric string) (*CheckResult, error) {
	limit, err := e.policy.Limit(ctx, tenant, metric)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve limit for %s: %w", metric, err)
	}
	if limit.IsUnlimited() {
		return newCheckResult(metric, 0, limit, true), nil
	}

	current, err := e.CurrentUsage(ctx, tenant.ID, metric)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage for %s: %w", metric, err)
	}
	return newCheckResult(metric, current, limit, limit.Allows(current)), nil
}

// CanUseStorage reports whether additionalBytes fit under the tenant's
// storage limit. Limits are configured in gigabytes; usage is metered
// in bytes.
func (e *Enforcer) CanUseStorage(ctx context.Context, tenant *tenants.Tenant, additionalBytes int64) (*CheckResult, error) {
	limit, err := e.policy.Limit(ctx, tenant, MetricStorageGB)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage limit: %w", err)
	}
	if limit.IsUnlimited() {
		return newCheckResult(MetricStorage, 0, limit, true), nil
	}

	current, err := e.CurrentUsage(ctx, tenant.ID, MetricStorage)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage usage: %w", err)
	}

	limitBytes := Bounded(limit.Value() * bytesPerGB)
	allowed := current+additionalBytes <= limitBytes.Value()
	return newCheckResult(MetricStorage, current, limitBytes, allowed), nil
}

// RecordUsage appends a usage record and refreshes the cached aggregate
// from the ledger.
func (e *Enforcer) RecordUsage(ctx context.Context, tenantID int64, metric string, quantity int64) error {
	now := e.now().UTC()
	period := PeriodFor(now)

	record := &UsageRecord{
		TenantID:    tenantID,
		Metric:      metric,
		Type:        UsageTypeFor(metric),
		Quantity:    quantity,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		CreatedAt:   now,
	}
	if err := e.store.AppendRecord(ctx, record); err != nil {
		return err
	}

	value, err := e.aggregate(ctx, tenantID, metric, period)
	if err != nil {
		// The record is committed; the cache self-heals at TTL expiry.
		return nil
	}
	_ = e.cache.Set(ctx, UsageCacheKey(tenantID, metric, period), value, e.cacheTTL)
	return nil
}

// ReconcileStats summarizes one reconciliation sweep.
type ReconcileStats struct {
	Tenants         int
	Aggregates      int
	PurgedWarnings  int64
	AggregateErrors int
}

// Reconcile recomputes cached aggregates from the ledger for every
// tenant with usage in the current period and purges long-expired
// warnings. Individual aggregate failures are counted, not fatal.
func (e *Enforcer) Reconcile(ctx context.Context) (*ReconcileStats, error) {
	now := e.now().UTC()
	period := PeriodFor(now)
	stats := &ReconcileStats{}

	tenantIDs, err := e.store.TenantsWithUsage(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants for reconciliation: %w", err)
	}
	stats.Tenants = len(tenantIDs)

	for _, tenantID := range tenantIDs {
		metrics, err := e.store.MetricsWithUsage(ctx, tenantID, period)
		if err != nil {
			stats.AggregateErrors++
			continue
		}
		for _, metric := range metrics {
			value, err := e.aggregate(ctx, tenantID, metric, period)
			if err != nil {
				stats.AggregateErrors++
				continue
			}
			if err := e.cache.Set(ctx, UsageCacheKey(tenantID, metric, period), value, e.cacheTTL); err != nil {
				stats.AggregateErrors++
				continue
			}
			stats.Aggregates++
		}
	}

	purged, err := e.store.PurgeExpiredWarnings(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		return stats, fmt.Errorf("failed to purge expired warnings: %w", err)
	}
	stats.PurgedWarnings = purged
	return stats, nil
}
