package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/meridianhq/meridian/pkg/access"
	"github.com/meridianhq/meridian/pkg/quota"
	"github.com/meridianhq/meridian/pkg/tenants"
)

// loadTenant resolves the tenant or writes the error response. Returns nil
// after responding.
func (s *Server) loadTenant(w http.ResponseWriter, r *http.Request, tenantID int64) *tenants.Tenant {
	tenant, err := s.tenants.GetTenant(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, tenants.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "tenant not found")
		} else {
			respondDenied(w, r, err, "tenant lookup failed")
		}
		return nil
	}
	return tenant
}

func (s *Server) handleAccessDecide(w http.ResponseWriter, r *http.Request) {
	var body decideRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tenant := s.loadTenant(w, r, body.TenantID)
	if tenant == nil {
		return
	}

	req := &access.Request{
		UserID:    body.UserID,
		Tenant:    tenant,
		Module:    body.Module,
		SubModule: body.SubModule,
		Component: body.Component,
		Action:    body.Action,
	}

	start := time.Now()
	decision, err := s.engine.Decide(r.Context(), req)
	if err != nil {
		respondDenied(w, r, err, "access decision failed")
		return
	}

	if s.metrics != nil {
		s.metrics.ObserveDecision(string(decision.Reason), decision.Allowed, time.Since(start))
	}

	respondJSON(w, decisionStatus(decision), decision)
}

// decisionStatus maps decisions onto HTTP statuses: missing nodes are 404,
// every other denial is 403.
func decisionStatus(d *access.Decision) int {
	switch {
	case d.Allowed:
		return http.StatusOK
	case d.Reason == access.ReasonNotFound:
		return http.StatusNotFound
	default:
		return http.StatusForbidden
	}
}

func (s *Server) handleResolveScope(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	tenantID, err := strconv.ParseInt(q.Get("tenant_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	tenant := s.loadTenant(w, r, tenantID)
	if tenant == nil {
		return
	}

	req := &access.Request{
		UserID:    userID,
		Tenant:    tenant,
		Module:    q.Get("module"),
		SubModule: q.Get("sub_module"),
		Component: q.Get("component"),
		Action:    q.Get("action"),
	}

	scope, err := s.engine.ResolveScope(r.Context(), req)
	if err != nil {
		respondDenied(w, r, err, "scope resolution failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"scope": string(scope)})
}

func (s *Server) handleQuotaCheck(w http.ResponseWriter, r *http.Request) {
	metric := mux.Vars(r)["metric"]

	tenantID, err := strconv.ParseInt(r.URL.Query().Get("tenant_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	tenant := s.loadTenant(w, r, tenantID)
	if tenant == nil {
		return
	}

	decision, err := s.quota.CanCreateWithGracePeriod(r.Context(), tenant, metric)
	if err != nil {
		respondDenied(w, r, err, "quota check failed")
		return
	}

	if s.metrics != nil {
		s.metrics.ObserveQuotaCheck(metric, string(decision.State))
	}

	status := http.StatusOK
	if !decision.Allowed {
		status = http.StatusTooManyRequests
	}
	respondJSON(w, status, decision)
}

func (s *Server) handleStorageCheck(w http.ResponseWriter, r *http.Request) {
	var body storageCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.AdditionalBytes < 0 {
		respondError(w, http.StatusBadRequest, "additional_bytes must not be negative")
		return
	}

	tenant := s.loadTenant(w, r, body.TenantID)
	if tenant == nil {
		return
	}

	result, err := s.usage.CanUseStorage(r.Context(), tenant, body.AdditionalBytes)
	if err != nil {
		respondDenied(w, r, err, "storage check failed")
		return
	}

	if s.metrics != nil {
		state := "ok"
		if !result.Allowed {
			state = "blocked"
		}
		s.metrics.ObserveQuotaCheck(quota.MetricStorage, state)
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRecordUsage(w http.ResponseWriter, r *http.Request) {
	var body usageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Metric == "" {
		respondError(w, http.StatusBadRequest, "metric is required")
		return
	}

	if err := s.usage.RecordUsage(r.Context(), body.TenantID, body.Metric, body.Quantity); err != nil {
		respondDenied(w, r, err, "usage recording failed")
		return
	}

	if s.metrics != nil {
		s.metrics.UsageRecordsTotal.WithLabelValues(body.Metric, string(quota.UsageTypeFor(body.Metric))).Inc()
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleListWarnings(w http.ResponseWriter, r *http.Request) {
	tenantID, err := strconv.ParseInt(r.URL.Query().Get("tenant_id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	warnings, err := s.warnings.ListActiveWarnings(r.Context(), tenantID, time.Now().UTC())
	if err != nil {
		respondDenied(w, r, err, "warning listing failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"warnings": warnings})
}

// tenantFromPath resolves the {id} path variable or writes the error
// response. Returns nil after responding.
func (s *Server) tenantFromPath(w http.ResponseWriter, r *http.Request) *tenants.Tenant {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid tenant id")
		return nil
	}
	return s.loadTenant(w, r, id)
}

func (s *Server) handleSetTenantPlan(w http.ResponseWriter, r *http.Request) {
	tenant := s.tenantFromPath(w, r)
	if tenant == nil {
		return
	}

	var body setPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.plans.SetTenantPlan(r.Context(), tenant.ID, body.PlanID); err != nil {
		respondDenied(w, r, err, "plan assignment failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetTenantOverrides(w http.ResponseWriter, r *http.Request) {
	tenant := s.tenantFromPath(w, r)
	if tenant == nil {
		return
	}

	var body setOverridesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.plans.SetTenantOverrides(r.Context(), tenant.ID, body.Overrides); err != nil {
		respondDenied(w, r, err, "override update failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGrantModule(w http.ResponseWriter, r *http.Request) {
	tenant := s.tenantFromPath(w, r)
	if tenant == nil {
		return
	}

	if err := s.plans.GrantModule(r.Context(), tenant.ID, mux.Vars(r)["code"]); err != nil {
		respondDenied(w, r, err, "module grant failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevokeModule(w http.ResponseWriter, r *http.Request) {
	tenant := s.tenantFromPath(w, r)
	if tenant == nil {
		return
	}

	if err := s.plans.RevokeModule(r.Context(), tenant.ID, mux.Vars(r)["code"]); err != nil {
		respondDenied(w, r, err, "module revocation failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDismissWarning(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.warnings.DismissWarning(r.Context(), id); err != nil {
		respondError(w, http.StatusNotFound, "warning not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
