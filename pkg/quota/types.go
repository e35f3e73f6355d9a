package quota

import (
	"context"
	"time"

	"github.com/meridianhq/meridian/pkg/tenants"
)

// Well-known metric names. Metrics are open-ended; these are the ones the
// platform meters out of the box.
const (
	MetricEmployees       = "employees"
	MetricCustomers       = "customers"
	MetricDocuments       = "documents"
	MetricStorage         = "storage"
	MetricAPICallsMonthly = "api_calls_monthly"

	// MetricStorageGB is the limit-resolution name for storage; limits
	// are configured in gigabytes while usage is metered in bytes under
	// MetricStorage.
	MetricStorageGB = "storage_gb"
)

// UsageType distinguishes accumulating counters from point-in-time gauges.
type UsageType string

const (
	UsageTypeCounter UsageType = "counter"
	UsageTypeGauge   UsageType = "gauge"
)

// UsageRecord is one immutable metered consumption event.
type UsageRecord struct {
	ID          string    `json:"id"`
	TenantID    int64     `json:"tenant_id"`
	Metric      string    `json:"metric"`
	Type        UsageType `json:"type"`
	Quantity    int64     `json:"quantity"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	CreatedAt   time.Time `json:"created_at"`
}

// Limit is the resolved numeric limit for a tenant+metric: either
// unlimited or bounded. The zero value is Bounded(0).
type Limit struct {
	unlimited bool
	value     int64
}

// Unlimited returns the unlimited limit.
func Unlimited() Limit {
	return Limit{unlimited: true}
}

// Bounded returns a limit of n.
func Bounded(n int64) Limit {
	return Limit{value: n}
}

// limitFromStored maps stored configuration to a Limit; -1 is the
// unlimited sentinel.
func limitFromStored(n int64) Limit {
	if n < 0 {
		return Unlimited()
	}
	return Bounded(n)
}

// IsUnlimited reports whether the limit is unbounded.
func (l Limit) IsUnlimited() bool {
	return l.unlimited
}

// Value returns the bounded value; meaningless for unlimited limits.
func (l Limit) Value() int64 {
	return l.value
}

// Allows reports whether one more unit fits under the limit.
func (l Limit) Allows(current int64) bool {
	return l.unlimited || current < l.value
}

// PercentUsed returns current usage as a percentage of the limit.
// Unlimited limits and zero-valued bounds report 0 and 100+ respectively
// without dividing by zero.
func (l Limit) PercentUsed(current int64) float64 {
	if l.unlimited {
		return 0
	}
	if l.value == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current) / float64(l.value) * 100
}

// WarningLevel classifies how close a tenant is to a limit.
type WarningLevel string

const (
	LevelLow      WarningLevel = "low"
	LevelMedium   WarningLevel = "medium"
	LevelHigh     WarningLevel = "high"
	LevelCritical WarningLevel = "critical"
)

// LevelForPercentage maps a usage percentage to its warning level.
func LevelForPercentage(pct float64) WarningLevel {
	switch {
	case pct >= 100:
		return LevelCritical
	case pct >= 90:
		return LevelHigh
	case pct >= 80:
		return LevelMedium
	default:
		return LevelLow
	}
}

// QuotaWarning is a persisted threshold crossing. The oldest active
// (non-dismissed, non-expired) warning for a tenant+metric anchors the
// grace period.
type QuotaWarning struct {
	ID             string       `json:"id"`
	TenantID       int64        `json:"tenant_id"`
	Metric         string       `json:"metric"`
	PercentageUsed float64      `json:"percentage_used"`
	Level          WarningLevel `json:"level"`
	CreatedAt      time.Time    `json:"created_at"`
	ExpiresAt      time.Time    `json:"expires_at"`
	Dismissed      bool         `json:"dismissed"`
}

// GraceState is the escalation state for a tenant+metric.
type GraceState string

const (
	StateOK       GraceState = "ok"
	StateWarning  GraceState = "warning"
	StateCritical GraceState = "critical"
	StateGrace    GraceState = "grace"
	StateBlocked  GraceState = "blocked"
)

// GraceDecision is the structured result of a grace-period quota check.
type GraceDecision struct {
	Allowed       bool       `json:"allowed"`
	State         GraceState `json:"state"`
	PercentUsed   float64    `json:"percent_used"`
	DaysRemaining int        `json:"days_remaining"` // meaningful in grace state
}

// Notifier dispatches quota notifications. Implementations must be
// fire-and-forget: decision paths never wait on delivery and failures
// never influence outcomes.
type Notifier interface {
	SendWarning(ctx context.Context, tenant *tenants.Tenant, metric string, percentage float64, level WarningLevel)
	SendGraceReminder(ctx context.Context, tenant *tenants.Tenant, metric string, daysRemaining int)
}
