package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/meridianhq/meridian/pkg/tenants"
)

// warningDedupeWindow bounds how often a warning record (and its
// notification) may be created for the same tenant+metric.
const warningDedupeWindow = 24 * time.Hour

// GraceEnforcer wraps the base enforcer with the warning and
// grace-period escalation. States per (tenant, metric, billing period):
//
//	OK -> WARNING -> CRITICAL -> GRACE -> BLOCKED
//
// Everything below the block threshold is allowed; once usage reaches
// block_pct an anchor warning starts the grace window, and checks after
// grace_days elapse are denied.
type GraceEnforcer struct {
	enforcer *Enforcer
	store    *Store
	settings *SettingsProvider
	notifier Notifier
	now      func() time.Time
}

// NewGraceEnforcer creates a grace-period enforcer.
func NewGraceEnforcer(enforcer *Enforcer, store *Store, settings *SettingsProvider, notifier Notifier) *GraceEnforcer {
	return &GraceEnforcer{
		enforcer: enforcer,
		store:    store,
		settings: settings,
		notifier: notifier,
		now:      time.Now,
	}
}

// SetClock overrides the enforcer's time source. For tests.
func (g *GraceEnforcer) SetClock(now func() time.Time) {
	g.now = now
	g.enforcer.SetClock(now)
}

// CanCreateWithGracePeriod decides whether one more unit of a metered
// resource is allowed, escalating through warning and grace states.
// Store errors propagate; callers must treat them as denials.
func (g *GraceEnforcer) CanCreateWithGracePeriod(ctx context.Context, tenant *tenants.Tenant, metric string) (*GraceDecision, error) {
	limit, err := g.enforcer.policy.Limit(ctx, tenant, metric)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve limit for %s: %w", metric, err)
	}
	if limit.IsUnlimited() {
		return &GraceDecision{Allowed: true, State: StateOK}, nil
	}

	current, err := g.enforcer.CurrentUsage(ctx, tenant.ID, metric)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage for %s: %w", metric, err)
	}

	pct := limit.PercentUsed(current)
	settings := g.settings.For(metric)

	switch {
	case pct < settings.WarningPct:
		return &GraceDecision{Allowed: true, State: StateOK, PercentUsed: pct}, nil
	case pct >= settings.BlockPct:
		return g.decideGrace(ctx, tenant, metric, pct, settings)
	default:
		return g.decideWarning(ctx, tenant, metric, pct, settings)
	}
}

// decideWarning handles the band between warning_pct and block_pct.
// Always allows; persists at most one warning per dedupe window.
func (g *GraceEnforcer) decideWarning(ctx context.Context, tenant *tenants.Tenant, metric string, pct float64, settings EnforcementSettings) (*GraceDecision, error) {
	state := StateWarning
	if pct >= settings.CriticalPct {
		state = StateCritical
	}

	created, level, err := g.createWarningDeduped(ctx, tenant.ID, metric, pct, settings)
	if err != nil {
		return nil, err
	}
	if created {
		g.notifier.SendWarning(ctx, tenant, metric, pct, level)
	}

	return &GraceDecision{Allowed: true, State: state, PercentUsed: pct}, nil
}

// decideGrace handles usage at or beyond block_pct. The first crossing
// creates the anchor warning; subsequent checks count days against it.
func (g *GraceEnforcer) decideGrace(ctx context.Context, tenant *tenants.Tenant, metric string, pct float64, settings EnforcementSettings) (*GraceDecision, error) {
	now := g.now().UTC()
	period := PeriodFor(now)

	anchor, err := g.store.GraceAnchor(ctx, tenant.ID, metric, period.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to load grace anchor: %w", err)
	}

	if anchor == nil {
		level := LevelForPercentage(pct)
		if err := g.createWarning(ctx, tenant.ID, metric, pct, level, settings); err != nil {
			// Without the anchor the grace clock never starts, so
			// the failure must surface as a denial.
			return nil, fmt.Errorf("failed to create grace anchor: %w", err)
		}
		g.notifier.SendWarning(ctx, tenant, metric, pct, level)
		return &GraceDecision{
			Allowed:       true,
			State:         StateGrace,
			PercentUsed:   pct,
			DaysRemaining: settings.GraceDays,
		}, nil
	}

	daysInGrace := int(now.Sub(anchor.CreatedAt).Hours() / 24)
	if daysInGrace >= settings.GraceDays {
		return &GraceDecision{Allowed: false, State: StateBlocked, PercentUsed: pct}, nil
	}

	remaining := settings.GraceDays - daysInGrace
	created, _, err := g.createWarningDeduped(ctx, tenant.ID, metric, pct, settings)
	if err != nil {
		return nil, err
	}
	if created {
		g.notifier.SendGraceReminder(ctx, tenant, metric, remaining)
	}

	return &GraceDecision{
		Allowed:       true,
		State:         StateGrace,
		PercentUsed:   pct,
		DaysRemaining: remaining,
	}, nil
}

// createWarningDeduped persists a warning unless one was already
// created within the dedupe window. Reports whether a warning was
// written, which gates the matching notification.
func (g *GraceEnforcer) createWarningDeduped(ctx context.Context, tenantID int64, metric string, pct float64, settings EnforcementSettings) (bool, WarningLevel, error) {
	level := LevelForPercentage(pct)

	recent, err := g.store.LatestWarningAfter(ctx, tenantID, metric, g.now().UTC().Add(-warningDedupeWindow))
	if err != nil {
		return false, level, fmt.Errorf("failed to check recent warnings: %w", err)
	}
	if recent != nil {
		return false, level, nil
	}

	if err := g.createWarning(ctx, tenantID, metric, pct, level, settings); err != nil {
		return false, level, err
	}
	return true, level, nil
}

func (g *GraceEnforcer) createWarning(ctx context.Context, tenantID int64, metric string, pct float64, level WarningLevel, settings EnforcementSettings) error {
	now := g.now().UTC()
	warning := &QuotaWarning{
		TenantID:       tenantID,
		Metric:         metric,
		PercentageUsed: pct,
		Level:          level,
		CreatedAt:      now,
		ExpiresAt:      now.AddDate(0, 0, settings.GraceDays),
	}
	if err := g.store.CreateWarning(ctx, warning); err != nil {
		return fmt.Errorf("failed to create quota warning: %w", err)
	}
	return nil
}
