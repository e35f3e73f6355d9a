package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/meridianhq/meridian/pkg/async"
	"github.com/meridianhq/meridian/pkg/cache"
	"github.com/meridianhq/meridian/pkg/config"
	"github.com/meridianhq/meridian/pkg/notify"
	"github.com/meridianhq/meridian/pkg/observability"
	"github.com/meridianhq/meridian/pkg/quota"
	"github.com/meridianhq/meridian/pkg/storage"
	"github.com/meridianhq/meridian/pkg/tenants"
)

var (
	reconcileSchedule = flag.String("reconcile-schedule", "*/15 * * * *", "Cron schedule for usage reconciliation (default: every 15 minutes)")
	sweepSchedule     = flag.String("sweep-schedule", "0 * * * *", "Cron schedule for quota state sweeps (default: hourly)")
	sweepWorkers      = flag.Int("sweep-workers", 5, "Concurrent tenants per sweep")
	runOnce           = flag.Bool("run-once", false, "Run one reconciliation and sweep, then exit")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Infof("Starting meridian-reconciler %s", observability.Version)

	db, err := storage.Connect(cfg.Database)
	if err != nil {
		logger.WithError(err).Error("Database connection failed")
		os.Exit(1)
	}
	defer db.Close()

	sharedCache := buildCache(cfg, logger)

	tenantStore := tenants.NewPostgresStore(db)
	quotaStore := quota.NewStore(db)
	enforcer := quota.NewEnforcer(quotaStore, quota.NewPolicy(tenantStore), sharedCache)
	enforcer.SetCacheTTL(cfg.Quota.UsageCacheTTL)

	settings := quota.NewSettingsProvider()
	if cfg.Quota.SettingsFile != "" {
		if err := settings.LoadFile(cfg.Quota.SettingsFile); err != nil {
			logger.WithError(err).Error("Quota settings file failed to load")
			os.Exit(1)
		}
	}

	notifyLogger := logrus.New()
	notifyLogger.SetFormatter(&logrus.JSONFormatter{})
	channels := []notify.Channel{notify.NewLogChannel(notifyLogger)}
	if cfg.Notifications.WebhookURL != "" {
		channels = append(channels, notify.NewWebhookChannel("webhook", cfg.Notifications.WebhookURL, cfg.Notifications.WebhookSecret))
	}
	var urgent []notify.Channel
	if cfg.Notifications.UrgentWebhookURL != "" {
		urgent = append(urgent, notify.NewWebhookChannel("urgent-webhook", cfg.Notifications.UrgentWebhookURL, cfg.Notifications.WebhookSecret))
	}
	dispatcher := notify.NewDispatcher(notifyLogger, channels, urgent)

	grace := quota.NewGraceEnforcer(enforcer, quotaStore, settings, dispatcher)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	r := &reconciler{
		enforcer:    enforcer,
		grace:       grace,
		quotaStore:  quotaStore,
		tenantStore: tenantStore,
		metrics:     metrics,
		logger:      logger,
		workers:     *sweepWorkers,
	}

	if *runOnce {
		ctx := context.Background()
		r.reconcile(ctx)
		r.sweep(ctx)
		return
	}

	c := cron.New()

	if _, err := c.AddFunc(*reconcileSchedule, func() {
		r.reconcile(context.Background())
	}); err != nil {
		logger.WithError(err).Error("Invalid reconcile schedule")
		os.Exit(1)
	}

	if _, err := c.AddFunc(*sweepSchedule, func() {
		r.sweep(context.Background())
	}); err != nil {
		logger.WithError(err).Error("Invalid sweep schedule")
		os.Exit(1)
	}

	c.Start()
	logger.Infof("Scheduled reconciliation %q and sweep %q", *reconcileSchedule, *sweepSchedule)

	healthServer := startHealthServer(cfg, registry, logger)

	shutdown := observability.NewShutdownManager(logger, healthServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		stopCtx := c.Stop()
		select {
		case <-stopCtx.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}

type reconciler struct {
	enforcer    *quota.Enforcer
	grace       *quota.GraceEnforcer
	quotaStore  *quota.Store
	tenantStore *tenants.PostgresStore
	metrics     *observability.Metrics
	logger      *observability.Logger
	workers     int
}

// reconcile recomputes cached usage aggregates from the ledger and purges
// long-expired warnings.
func (r *reconciler) reconcile(ctx context.Context) {
	defer observability.RecoverPanic(r.logger, "usage reconciliation")

	start := time.Now()
	stats, err := r.enforcer.Reconcile(ctx)
	duration := time.Since(start)
	r.metrics.ReconcileDuration.Observe(duration.Seconds())

	if err != nil {
		r.metrics.ReconcileRunsTotal.WithLabelValues("error").Inc()
		r.logger.WithError(err).Error("Reconciliation failed")
		return
	}

	status := "success"
	if stats.AggregateErrors > 0 {
		status = "partial"
	}
	r.metrics.ReconcileRunsTotal.WithLabelValues(status).Inc()
	r.metrics.ReconcileAggregates.Set(float64(stats.Aggregates))

	r.logger.WithFields(map[string]interface{}{
		"tenants":          stats.Tenants,
		"aggregates":       stats.Aggregates,
		"purged_warnings":  stats.PurgedWarnings,
		"aggregate_errors": stats.AggregateErrors,
		"duration_ms":      duration.Milliseconds(),
	}).Info("Reconciliation completed")
}

// sweep re-evaluates quota state for every tenant with usage this period so
// warnings and grace escalations fire even for tenants that stopped making
// requests.
func (r *reconciler) sweep(ctx context.Context) {
	defer observability.RecoverPanic(r.logger, "quota sweep")

	period := quota.PeriodFor(time.Now().UTC())
	tenantIDs, err := r.quotaStore.TenantsWithUsage(ctx, period)
	if err != nil {
		r.logger.WithError(err).Error("Sweep tenant listing failed")
		return
	}

	errs := async.Batch(ctx, tenantIDs, r.workers, "quota sweep", time.Minute,
		func(ctx context.Context, tenantID int64) error {
			return r.sweepTenant(ctx, tenantID, period)
		})

	for _, err := range errs {
		r.logger.WithError(err).Warn("Sweep tenant failed")
	}

	r.logger.WithFields(map[string]interface{}{
		"tenants": len(tenantIDs),
		"errors":  len(errs),
	}).Info("Quota sweep completed")
}

func (r *reconciler) sweepTenant(ctx context.Context, tenantID int64, period quota.BillingPeriod) error {
	tenant, err := r.tenantStore.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	metrics, err := r.quotaStore.MetricsWithUsage(ctx, tenantID, period)
	if err != nil {
		return err
	}

	for _, metric := range metrics {
		decision, err := r.grace.CanCreateWithGracePeriod(ctx, tenant, metric)
		if err != nil {
			return err
		}
		r.metrics.ObserveQuotaCheck(metric, string(decision.State))
	}
	return nil
}

func buildCache(cfg *config.Config, logger *observability.Logger) cache.Cache {
	if cfg.Redis.URL == "" {
		logger.Info("Redis not configured, using in-process cache")
		return cache.NewMemoryCache()
	}

	url := cfg.Redis.URL
	if !strings.Contains(url, "://") {
		url = "redis://" + url
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.WithError(err).Error("Invalid Redis URL")
		os.Exit(1)
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	opts.DB = cfg.Redis.DB

	return cache.NewRedisCacheFromClient(redis.NewClient(opts))
}

func startHealthServer(cfg *config.Config, registry *prometheus.Registry, logger *observability.Logger) *http.Server {
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	healthMux.Handle("/metrics", observability.MetricsHandler(registry))

	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	go func() {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	return healthServer
}
