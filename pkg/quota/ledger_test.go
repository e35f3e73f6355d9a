package quota

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE usage_records (
			id TEXT PRIMARY KEY,
			tenant_id INTEGER NOT NULL,
			metric TEXT NOT NULL,
			type TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			period_start TIMESTAMP NOT NULL,
			period_end TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		);

		CREATE TABLE quota_warnings (
			id TEXT PRIMARY KEY,
			tenant_id INTEGER NOT NULL,
			metric TEXT NOT NULL,
			percentage_used REAL NOT NULL,
			level TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			dismissed INTEGER NOT NULL DEFAULT 0
		);
	`)
	require.NoError(t, err)

	return db
}

func appendCounter(t *testing.T, store *Store, tenantID int64, metric string, quantity int64, at time.Time) {
	t.Helper()
	period := PeriodFor(at)
	require.NoError(t, store.AppendRecord(context.Background(), &UsageRecord{
		TenantID:    tenantID,
		Metric:      metric,
		Type:        UsageTypeCounter,
		Quantity:    quantity,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		CreatedAt:   at,
	}))
}

func TestSumCounterScopedToPeriod(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	september := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	august := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	appendCounter(t, store, 1, MetricEmployees, 3, september)
	appendCounter(t, store, 1, MetricEmployees, 2, september.Add(time.Hour))
	appendCounter(t, store, 1, MetricEmployees, 100, august)
	appendCounter(t, store, 2, MetricEmployees, 50, september)

	sum, err := store.SumCounter(ctx, 1, MetricEmployees, PeriodFor(september))
	require.NoError(t, err)
	assert.Equal(t, int64(5), sum)

	sum, err = store.SumCounter(ctx, 1, MetricEmployees, PeriodFor(august))
	require.NoError(t, err)
	assert.Equal(t, int64(100), sum)
}

func TestSumCounterEmptyIsZero(t *testing.T) {
	store := NewStore(setupTestDB(t))

	sum, err := store.SumCounter(context.Background(), 99, MetricEmployees, PeriodFor(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum)
}

func TestLatestGaugeReplacesPriorValue(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	period := PeriodFor(now)
	for i, quantity := range []int64{100, 500, 250} {
		require.NoError(t, store.AppendRecord(ctx, &UsageRecord{
			TenantID:    1,
			Metric:      MetricStorage,
			Type:        UsageTypeGauge,
			Quantity:    quantity,
			PeriodStart: period.Start,
			PeriodEnd:   period.End,
			CreatedAt:   now.Add(time.Duration(i) * time.Minute),
		}))
	}

	value, err := store.LatestGauge(ctx, 1, MetricStorage)
	require.NoError(t, err)
	assert.Equal(t, int64(250), value)
}

func TestLatestGaugeNoRecords(t *testing.T) {
	store := NewStore(setupTestDB(t))

	value, err := store.LatestGauge(context.Background(), 1, MetricStorage)
	require.NoError(t, err)
	assert.Equal(t, int64(0), value)
}

func TestGraceAnchorOldestNonDismissed(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	period := PeriodFor(now)

	first := &QuotaWarning{
		TenantID: 1, Metric: MetricEmployees, PercentageUsed: 100,
		Level: LevelCritical, CreatedAt: now, ExpiresAt: now.AddDate(0, 0, 10),
	}
	require.NoError(t, store.CreateWarning(ctx, first))
	require.NoError(t, store.CreateWarning(ctx, &QuotaWarning{
		TenantID: 1, Metric: MetricEmployees, PercentageUsed: 105,
		Level: LevelCritical, CreatedAt: now.Add(48 * time.Hour), ExpiresAt: now.AddDate(0, 0, 12),
	}))

	anchor, err := store.GraceAnchor(ctx, 1, MetricEmployees, period.Start)
	require.NoError(t, err)
	require.NotNil(t, anchor)
	assert.Equal(t, first.ID, anchor.ID)

	// Dismissing the anchor promotes the next oldest warning.
	require.NoError(t, store.DismissWarning(ctx, first.ID))
	anchor, err = store.GraceAnchor(ctx, 1, MetricEmployees, period.Start)
	require.NoError(t, err)
	require.NotNil(t, anchor)
	assert.NotEqual(t, first.ID, anchor.ID)
}

func TestGraceAnchorIgnoresPriorPeriods(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	august := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateWarning(ctx, &QuotaWarning{
		TenantID: 1, Metric: MetricEmployees, PercentageUsed: 100,
		Level: LevelCritical, CreatedAt: august, ExpiresAt: august.AddDate(0, 0, 10),
	}))

	september := PeriodFor(time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC))
	anchor, err := store.GraceAnchor(ctx, 1, MetricEmployees, september.Start)
	require.NoError(t, err)
	assert.Nil(t, anchor)
}

func TestGraceAnchorSurvivesExpiry(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	// Anchor created on the 2nd, expired on the 12th, checked on the
	// 20th: it must still anchor the grace window or blocking could
	// never trigger.
	created := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	period := PeriodFor(created)
	require.NoError(t, store.CreateWarning(ctx, &QuotaWarning{
		TenantID: 1, Metric: MetricEmployees, PercentageUsed: 100,
		Level: LevelCritical, CreatedAt: created, ExpiresAt: created.AddDate(0, 0, 10),
	}))

	anchor, err := store.GraceAnchor(ctx, 1, MetricEmployees, period.Start)
	require.NoError(t, err)
	require.NotNil(t, anchor)
}

func TestLatestWarningAfter(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateWarning(ctx, &QuotaWarning{
		TenantID: 1, Metric: MetricEmployees, PercentageUsed: 85,
		Level: LevelMedium, CreatedAt: now.Add(-36 * time.Hour), ExpiresAt: now.AddDate(0, 0, 10),
	}))

	recent, err := store.LatestWarningAfter(ctx, 1, MetricEmployees, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, recent)

	recent, err = store.LatestWarningAfter(ctx, 1, MetricEmployees, now.Add(-48*time.Hour))
	require.NoError(t, err)
	assert.NotNil(t, recent)
}

func TestListActiveWarningsFiltersDismissedAndExpired(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)

	active := &QuotaWarning{
		TenantID: 1, Metric: MetricEmployees, PercentageUsed: 85,
		Level: LevelMedium, CreatedAt: now, ExpiresAt: now.AddDate(0, 0, 10),
	}
	dismissed := &QuotaWarning{
		TenantID: 1, Metric: MetricCustomers, PercentageUsed: 92,
		Level: LevelHigh, CreatedAt: now, ExpiresAt: now.AddDate(0, 0, 10),
	}
	expired := &QuotaWarning{
		TenantID: 1, Metric: MetricDocuments, PercentageUsed: 100,
		Level: LevelCritical, CreatedAt: now.AddDate(0, 0, -20), ExpiresAt: now.AddDate(0, 0, -10),
	}
	for _, w := range []*QuotaWarning{active, dismissed, expired} {
		require.NoError(t, store.CreateWarning(ctx, w))
	}
	require.NoError(t, store.DismissWarning(ctx, dismissed.ID))

	warnings, err := store.ListActiveWarnings(ctx, 1, now)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, active.ID, warnings[0].ID)
}

func TestDismissWarningNotFound(t *testing.T) {
	store := NewStore(setupTestDB(t))

	err := store.DismissWarning(context.Background(), "no-such-id")
	assert.Error(t, err)
}

func TestPurgeExpiredWarnings(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateWarning(ctx, &QuotaWarning{
		TenantID: 1, Metric: MetricEmployees, PercentageUsed: 85,
		Level: LevelMedium, CreatedAt: now.AddDate(0, 0, -60), ExpiresAt: now.AddDate(0, 0, -50),
	}))
	require.NoError(t, store.CreateWarning(ctx, &QuotaWarning{
		TenantID: 1, Metric: MetricEmployees, PercentageUsed: 85,
		Level: LevelMedium, CreatedAt: now, ExpiresAt: now.AddDate(0, 0, 10),
	}))

	purged, err := store.PurgeExpiredWarnings(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestTenantsAndMetricsWithUsage(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	appendCounter(t, store, 1, MetricEmployees, 1, now)
	appendCounter(t, store, 1, MetricCustomers, 1, now)
	appendCounter(t, store, 2, MetricEmployees, 1, now)
	appendCounter(t, store, 3, MetricEmployees, 1, now.AddDate(0, -1, 0))

	period := PeriodFor(now)
	ids, err := store.TenantsWithUsage(ctx, period)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	metrics, err := store.MetricsWithUsage(ctx, 1, period)
	require.NoError(t, err)
	assert.Equal(t, []string{MetricCustomers, MetricEmployees}, metrics)
}
