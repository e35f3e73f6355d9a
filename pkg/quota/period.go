package quota

import (
	"fmt"
	"time"
)

// BillingPeriod is the calendar-month window usage accumulates in.
// The window is [Start, End).
type BillingPeriod struct {
	Start time.Time
	End   time.Time
}

// PeriodFor returns the billing period containing t, in UTC.
func PeriodFor(t time.Time) BillingPeriod {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return BillingPeriod{
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// Key returns the period's cache-key component, e.g. "2026-09".
func (p BillingPeriod) Key() string {
	return p.Start.Format("2006-01")
}

// Contains reports whether t falls within the period.
func (p BillingPeriod) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.Start) && t.Before(p.End)
}

// UsageCacheKey returns the cache key for a tenant+metric aggregate in
// the given period.
func UsageCacheKey(tenantID int64, metric string, period BillingPeriod) string {
	return fmt.Sprintf("quota:usage:%d:%s:%s", tenantID, metric, period.Key())
}
