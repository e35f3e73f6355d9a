package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/meridianhq/meridian/pkg/access"
	"github.com/meridianhq/meridian/pkg/api"
	"github.com/meridianhq/meridian/pkg/cache"
	"github.com/meridianhq/meridian/pkg/config"
	"github.com/meridianhq/meridian/pkg/features"
	"github.com/meridianhq/meridian/pkg/middleware"
	"github.com/meridianhq/meridian/pkg/notify"
	"github.com/meridianhq/meridian/pkg/observability"
	"github.com/meridianhq/meridian/pkg/plans"
	"github.com/meridianhq/meridian/pkg/quota"
	"github.com/meridianhq/meridian/pkg/rbac"
	"github.com/meridianhq/meridian/pkg/storage"
	"github.com/meridianhq/meridian/pkg/tenants"
)

const featureTreeCacheTTL = 5 * time.Minute

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Infof("Starting meridian-api %s", observability.Version)

	ctx := context.Background()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("OpenTelemetry initialization failed")
		os.Exit(1)
	}

	db, err := storage.Connect(cfg.Database)
	if err != nil {
		logger.WithError(err).Error("Database connection failed")
		os.Exit(1)
	}
	defer db.Close()

	if err := runMigrations(ctx, db); err != nil {
		logger.WithError(err).Error("Migrations failed")
		os.Exit(1)
	}

	sharedCache, redisClient := buildCache(cfg, logger)

	tenantStore := tenants.NewPostgresStore(db)
	featureStore := features.NewStore(db)
	featureLoader := features.NewLoader(featureStore, featureTreeCacheTTL)
	planStore := plans.NewStore(db)
	roleStore := rbac.NewStore(db)
	quotaStore := quota.NewStore(db)

	catalog := plans.NewCatalog(tenantStore, planStore, featureLoader, sharedCache, plans.DefaultCacheTTL)
	planManager := plans.NewManager(tenantStore, planStore, catalog)
	engine := access.NewEngine(roleStore, catalog, featureLoader)

	enforcer := quota.NewEnforcer(quotaStore, quota.NewPolicy(tenantStore), sharedCache)
	enforcer.SetCacheTTL(cfg.Quota.UsageCacheTTL)

	settings := quota.NewSettingsProvider()
	if cfg.Quota.SettingsFile != "" {
		if err := settings.LoadFile(cfg.Quota.SettingsFile); err != nil {
			logger.WithError(err).Error("Quota settings file failed to load")
			os.Exit(1)
		}
		if cfg.Quota.WatchSettings {
			err := settings.Watch(ctx, cfg.Quota.SettingsFile, func(err error) {
				logger.WithError(err).Error("Quota settings reload failed")
			})
			if err != nil {
				logger.WithError(err).Error("Quota settings watcher failed to start")
				os.Exit(1)
			}
		}
	}

	dispatcher := buildDispatcher(cfg)
	grace := quota.NewGraceEnforcer(enforcer, quotaStore, settings, dispatcher)

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	server := api.NewServer(engine, grace, enforcer, quotaStore, tenantStore, planManager, metrics, logger)

	router := mux.NewRouter()
	router.Use(middleware.RequestLogging(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Identity(false))
	if redisClient != nil {
		router.Use(middleware.NewDistributedRateLimitMiddleware(redisClient).Handler)
	} else {
		rateLimit := middleware.NewRateLimitMiddleware()
		router.Use(rateLimit.Handler)
	}
	if metrics != nil {
		router.Use(observability.HTTPMetricsMiddleware(metrics))
	}
	server.RegisterRoutes(router)

	var handler http.Handler = router
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(router, "meridian-api")
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := startHealthServer(cfg, db, redisClient, registry, metrics, logger)

	go func() {
		logger.Infof("Listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server failed")
			os.Exit(1)
		}
	}()

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	steps := []struct {
		component  string
		migrations []storage.Migration
	}{
		{"tenants", tenants.Migrations()},
		{"features", features.Migrations()},
		{"rbac", rbac.Migrations()},
		{"plans", plans.Migrations()},
		{"quota", quota.Migrations()},
	}

	for _, step := range steps {
		if err := storage.RunMigrations(ctx, db, step.component, step.migrations); err != nil {
			return fmt.Errorf("%s migrations: %w", step.component, err)
		}
	}
	return nil
}

// buildCache returns the shared cache and, when Redis is configured, the
// underlying client for rate limiting and health checks.
func buildCache(cfg *config.Config, logger *observability.Logger) (cache.Cache, *redis.Client) {
	if cfg.Redis.URL == "" {
		logger.Info("Redis not configured, using in-process cache")
		return cache.NewMemoryCache(), nil
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
	opts.PoolSize = cfg.Redis.PoolSize

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Error("Redis connection failed")
		os.Exit(1)
	}

	return cache.NewRedisCacheFromClient(client), client
}

func buildDispatcher(cfg *config.Config) *notify.Dispatcher {
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

	return notify.NewDispatcher(notifyLogger, channels, urgent)
}

// startHealthServer serves liveness, readiness, and metrics on the probe
// port so they stay reachable independently of API middleware.
func startHealthServer(
	cfg *config.Config,
	db *sql.DB,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	metrics *observability.Metrics,
	logger *observability.Logger,
) *http.Server {
	checker := observability.NewHealthChecker(db, redisClient)

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, checker)
	if metrics != nil {
		healthMux.Handle("/metrics", observability.MetricsHandler(registry))

		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				metrics.UpdateDBStats(db)
			}
		}()
	}

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
