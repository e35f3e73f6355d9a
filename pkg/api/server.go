package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/meridianhq/meridian/pkg/access"
	"github.com/meridianhq/meridian/pkg/observability"
	"github.com/meridianhq/meridian/pkg/quota"
	"github.com/meridianhq/meridian/pkg/rbac"
	"github.com/meridianhq/meridian/pkg/tenants"
)

// AccessEngine evaluates access requests. Satisfied by the access engine.
type AccessEngine interface {
	Decide(ctx context.Context, req *access.Request) (*access.Decision, error)
	ResolveScope(ctx context.Context, req *access.Request) (rbac.Scope, error)
}

// QuotaService answers quota checks and appends usage. Satisfied by the
// grace enforcer plus the underlying enforcer.
type QuotaService interface {
	CanCreateWithGracePeriod(ctx context.Context, tenant *tenants.Tenant, metric string) (*quota.GraceDecision, error)
}

// UsageService records usage and checks storage allocations. Satisfied by
// the quota enforcer.
type UsageService interface {
	RecordUsage(ctx context.Context, tenantID int64, metric string, quantity int64) error
	CanUseStorage(ctx context.Context, tenant *tenants.Tenant, additionalBytes int64) (*quota.CheckResult, error)
}

// WarningStore lists and dismisses quota warnings. Satisfied by the quota
// store.
type WarningStore interface {
	ListActiveWarnings(ctx context.Context, tenantID int64, now time.Time) ([]quota.QuotaWarning, error)
	DismissWarning(ctx context.Context, id string) error
}

// TenantSource loads tenants by ID. Satisfied by the tenants store.
type TenantSource interface {
	GetTenant(ctx context.Context, id int64) (*tenants.Tenant, error)
}

// PlanAdmin applies subscription mutations and keeps the plan-module
// cache coherent. Satisfied by the plans manager.
type PlanAdmin interface {
	SetTenantPlan(ctx context.Context, tenantID int64, planID *int64) error
	SetTenantOverrides(ctx context.Context, tenantID int64, overrides map[string]int64) error
	GrantModule(ctx context.Context, tenantID int64, moduleCode string) error
	RevokeModule(ctx context.Context, tenantID int64, moduleCode string) error
}

// Server holds handler dependencies.
type Server struct {
	engine   AccessEngine
	quota    QuotaService
	usage    UsageService
	warnings WarningStore
	tenants  TenantSource
	plans    PlanAdmin
	metrics  *observability.Metrics
	logger   *observability.Logger
}

// NewServer creates an API server. metrics may be nil when metric export
// is disabled.
func NewServer(
	engine AccessEngine,
	quotaSvc QuotaService,
	usage UsageService,
	warnings WarningStore,
	tenantSource TenantSource,
	planAdmin PlanAdmin,
	metrics *observability.Metrics,
	logger *observability.Logger,
) *Server {
	return &Server{
		engine:   engine,
		quota:    quotaSvc,
		usage:    usage,
		warnings: warnings,
		tenants:  tenantSource,
		plans:    planAdmin,
		metrics:  metrics,
		logger:   logger,
	}
}

// RegisterRoutes mounts all API endpoints on the router.
func (s *Server) RegisterRoutes(r *mux.Router) {
	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/access/decide", s.handleAccessDecide).Methods(http.MethodPost)
	v1.HandleFunc("/access/scope", s.handleResolveScope).Methods(http.MethodGet)

	v1.HandleFunc("/quota/{metric}/check", s.handleQuotaCheck).Methods(http.MethodGet)
	v1.HandleFunc("/quota/storage/check", s.handleStorageCheck).Methods(http.MethodPost)

	v1.HandleFunc("/usage", s.handleRecordUsage).Methods(http.MethodPost)

	v1.HandleFunc("/warnings", s.handleListWarnings).Methods(http.MethodGet)
	v1.HandleFunc("/warnings/{id}/dismiss", s.handleDismissWarning).Methods(http.MethodPost)

	v1.HandleFunc("/tenants/{id}/plan", s.handleSetTenantPlan).Methods(http.MethodPut)
	v1.HandleFunc("/tenants/{id}/overrides", s.handleSetTenantOverrides).Methods(http.MethodPut)
	v1.HandleFunc("/tenants/{id}/modules/{code}", s.handleGrantModule).Methods(http.MethodPost)
	v1.HandleFunc("/tenants/{id}/modules/{code}", s.handleRevokeModule).Methods(http.MethodDelete)
}
