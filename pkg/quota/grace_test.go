package quota

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/meridian/pkg/cache"
	"github.com/meridianhq/meridian/pkg/tenants"
)

type recordingNotifier struct {
	warnings  []string
	reminders []string
}

func (n *recordingNotifier) SendWarning(ctx context.Context, tenant *tenants.Tenant, metric string, percentage float64, level WarningLevel) {
	n.warnings = append(n.warnings, fmt.Sprintf("%s:%s", metric, level))
}

func (n *recordingNotifier) SendGraceReminder(ctx context.Context, tenant *tenants.Tenant, metric string, daysRemaining int) {
	n.reminders = append(n.reminders, fmt.Sprintf("%s:%d", metric, daysRemaining))
}

type graceFixture struct {
	grace    *GraceEnforcer
	enforcer *Enforcer
	store    *Store
	notifier *recordingNotifier
	cache    *cache.FakeCache
	now      time.Time
}

// newGraceFixture wires a grace enforcer on the free tier (10 employees)
// with a controllable clock starting at the given time.
func newGraceFixture(t *testing.T, start time.Time) *graceFixture {
	t.Helper()

	store := NewStore(setupTestDB(t))
	fc := cache.NewFakeCache()
	enforcer := NewEnforcer(store, NewPolicy(&fakePlanSource{plan: &tenants.Plan{Tier: tenants.TierFree}}), fc)
	notifier := &recordingNotifier{}
	grace := NewGraceEnforcer(enforcer, store, NewSettingsProvider(), notifier)

	f := &graceFixture{
		grace:    grace,
		enforcer: enforcer,
		store:    store,
		notifier: notifier,
		cache:    fc,
		now:      start,
	}
	grace.SetClock(func() time.Time { return f.now })
	fc.SetClock(func() time.Time { return f.now })
	return f
}

func (f *graceFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *graceFixture) setUsage(t *testing.T, tenantID int64, metric string, quantity int64) {
	t.Helper()
	require.NoError(t, f.enforcer.RecordUsage(context.Background(), tenantID, metric, quantity))
}

func (f *graceFixture) check(t *testing.T, tenant *tenants.Tenant, metric string) *GraceDecision {
	t.Helper()
	decision, err := f.grace.CanCreateWithGracePeriod(context.Background(), tenant, metric)
	require.NoError(t, err)
	return decision
}

func (f *graceFixture) warningCount(t *testing.T, tenantID int64) int {
	t.Helper()
	var count int
	err := f.store.db.QueryRow(`SELECT COUNT(*) FROM quota_warnings WHERE tenant_id = $1`, tenantID).Scan(&count)
	require.NoError(t, err)
	return count
}

var graceStart = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

func TestGraceStateOK(t *testing.T) {
	f := newGraceFixture(t, graceStart)
	tenant := freeTenant(1)
	f.setUsage(t, 1, MetricEmployees, 5)

	decision := f.check(t, tenant, MetricEmployees)
	assert.True(t, decision.Allowed)
	assert.Equal(t, StateOK, decision.State)
	assert.Empty(t, f.notifier.warnings)
	assert.Zero(t, f.warningCount(t, 1))
}

func TestGraceStateWarningAt80Pct(t *testing.T) {
	f := newGraceFixture(t, graceStart)
	tenant := freeTenant(1)
	f.setUsage(t, 1, MetricEmployees, 8)

	decision := f.check(t, tenant, MetricEmployees)
	assert.True(t, decision.Allowed)
	assert.Equal(t, StateWarning, decision.State)
	assert.Equal(t, []string{"employees:medium"}, f.notifier.warnings)
	assert.Equal(t, 1, f.warningCount(t, 1))
}

func TestGraceStateCriticalAt90Pct(t *testing.T) {
	f := newGraceFixture(t, graceStart)
	tenant := freeTenant(1)
	f.setUsage(t, 1, MetricEmployees, 9)

	decision := f.check(t, tenant, MetricEmployees)
	assert.True(t, decision.Allowed)
	assert.Equal(t, StateCritical, decision.State)
	assert.Equal(t, []string{"employees:high"}, f.notifier.warnings)
}

func TestGraceUnlimitedShortCircuits(t *testing.T) {
	f := newGraceFixture(t, graceStart)
	tenant := &tenants.Tenant{ID: 1, Overrides: map[string]int64{"max_employees": -1}}
	f.setUsage(t, 1, MetricEmployees, 100000)

	decision := f.check(t, tenant, MetricEmployees)
	assert.True(t, decision.Allowed)
	assert.Equal(t, StateOK, decision.State)
	assert.Zero(t, f.warningCount(t, 1))
}

func TestGraceWarningDedupedWithin24h(t *testing.T) {
	f := newGraceFixture(t, graceStart)
	tenant := freeTenant(1)
	f.setUsage(t, 1, MetricEmployees, 8)

	for i := 0; i < 5; i++ {
		f.check(t, tenant, MetricEmployees)
		f.advance(time.Hour)
	}
	assert.Equal(t, 1, f.warningCount(t, 1))
	assert.Len(t, f.notifier.warnings, 1)

	// A day later a fresh warning goes out.
	f.advance(20 * time.Hour)
	f.check(t, tenant, MetricEmployees)
	assert.Equal(t, 2, f.warningCount(t, 1))
	assert.Len(t, f.notifier.warnings, 2)
}

func TestGraceAnchorCreatedAtBlockPct(t *testing.T) {
	f := newGraceFixture(t, graceStart)
	tenant := freeTenant(1)
	f.setUsage(t, 1, MetricEmployees, 10)

	decision := f.check(t, tenant, MetricEmployees)
	assert.True(t, decision.Allowed)
	assert.Equal(t, StateGrace, decision.State)
	assert.Equal(t, 10, decision.DaysRemaining)
	assert.Equal(t, []string{"employees:critical"}, f.notifier.warnings)

	anchor, err := f.store.GraceAnchor(context.Background(), 1, MetricEmployees, PeriodFor(f.now).Start)
	require.NoError(t, err)
	require.NotNil(t, anchor)
	assert.Equal(t, LevelCritical, anchor.Level)
}

func TestGraceDayBoundary(t *testing.T) {
	// At 100% on day 0 the tenant stays allowed through day 9 and is
	// blocked starting day 10.
	f := newGraceFixture(t, graceStart)
	tenant := freeTenant(1)
	f.setUsage(t, 1, MetricEmployees, 10)

	decision := f.check(t, tenant, MetricEmployees)
	require.Equal(t, StateGrace, decision.State)

	for day := 1; day <= 9; day++ {
		f.now = graceStart.AddDate(0, 0, day)
		decision := f.check(t, tenant, MetricEmployees)
		assert.True(t, decision.Allowed, "day %d must still be allowed", day)
		assert.Equal(t, StateGrace, decision.State)
		assert.Equal(t, 10-day, decision.DaysRemaining)
	}

	f.now = graceStart.AddDate(0, 0, 10)
	decision = f.check(t, tenant, MetricEmployees)
	assert.False(t, decision.Allowed)
	assert.Equal(t, StateBlocked, decision.State)

	// Blocking is stable on later days.
	f.now = graceStart.AddDate(0, 0, 15)
	decision = f.check(t, tenant, MetricEmployees)
	assert.False(t, decision.Allowed)
	assert.Equal(t, StateBlocked, decision.State)
}

func TestGraceRemindersDedupedDaily(t *testing.T) {
	f := newGraceFixture(t, graceStart)
	tenant := freeTenant(1)
	f.setUsage(t, 1, MetricEmployees, 10)

	f.check(t, tenant, MetricEmployees)

	// Three checks on day 2: one reminder.
	f.now = graceStart.AddDate(0, 0, 2)
	for i := 0; i < 3; i++ {
		f.check(t, tenant, MetricEmployees)
		f.advance(time.Hour)
	}
	assert.Equal(t, []string{"employees:8"}, f.notifier.reminders)
}

func TestGraceDismissedAnchorRestartsWindow(t *testing.T) {
	f := newGraceFixture(t, graceStart)
	tenant := freeTenant(1)
	f.setUsage(t, 1, MetricEmployees, 10)

	f.check(t, tenant, MetricEmployees)
	ctx := context.Background()

	// Day 8: dismiss everything recorded so far.
	f.now = graceStart.AddDate(0, 0, 8)
	warnings, err := f.store.ListActiveWarnings(ctx, 1, f.now)
	require.NoError(t, err)
	for _, w := range warnings {
		require.NoError(t, f.store.DismissWarning(ctx, w.ID))
	}

	// The next check creates a fresh anchor and the window restarts.
	decision := f.check(t, tenant, MetricEmployees)
	assert.True(t, decision.Allowed)
	assert.Equal(t, StateGrace, decision.State)
	assert.Equal(t, 10, decision.DaysRemaining)

	// Day 8+9=17: still inside the restarted window.
	f.now = graceStart.AddDate(0, 0, 17)
	decision = f.check(t, tenant, MetricEmployees)
	assert.True(t, decision.Allowed)

	f.now = graceStart.AddDate(0, 0, 18)
	decision = f.check(t, tenant, MetricEmployees)
	assert.False(t, decision.Allowed)
}

func TestGraceCustomSettings(t *testing.T) {
	store := NewStore(setupTestDB(t))
	fc := cache.NewFakeCache()
	enforcer := NewEnforcer(store, NewPolicy(&fakePlanSource{plan: &tenants.Plan{Tier: tenants.TierFree}}), fc)
	notifier := &recordingNotifier{}

	settings := NewSettingsProvider()
	settings.metrics[MetricEmployees] = EnforcementSettings{
		WarningPct:  50,
		CriticalPct: 75,
		BlockPct:    100,
		GraceDays:   2,
	}
	grace := NewGraceEnforcer(enforcer, store, settings, notifier)

	now := graceStart
	grace.SetClock(func() time.Time { return now })

	ctx := context.Background()
	tenant := freeTenant(1)
	require.NoError(t, enforcer.RecordUsage(ctx, 1, MetricEmployees, 6))

	decision, err := grace.CanCreateWithGracePeriod(ctx, tenant, MetricEmployees)
	require.NoError(t, err)
	assert.Equal(t, StateWarning, decision.State)

	require.NoError(t, enforcer.RecordUsage(ctx, 1, MetricEmployees, 4))
	decision, err = grace.CanCreateWithGracePeriod(ctx, tenant, MetricEmployees)
	require.NoError(t, err)
	assert.Equal(t, StateGrace, decision.State)
	assert.Equal(t, 2, decision.DaysRemaining)

	now = graceStart.AddDate(0, 0, 2)
	decision, err = grace.CanCreateWithGracePeriod(ctx, tenant, MetricEmployees)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, StateBlocked, decision.State)
}
