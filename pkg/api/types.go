package api

import (
	"encoding/json"
	"net/http"

	"github.com/meridianhq/meridian/pkg/observability"
)

// decideRequest is the body of POST /api/v1/access/decide.
type decideRequest struct {
	UserID    int64  `json:"user_id"`
	TenantID  int64  `json:"tenant_id"`
	Module    string `json:"module"`
	SubModule string `json:"sub_module,omitempty"`
	Component string `json:"component,omitempty"`
	Action    string `json:"action,omitempty"`
}

// storageCheckRequest is the body of POST /api/v1/quota/storage/check.
type storageCheckRequest struct {
	TenantID        int64 `json:"tenant_id"`
	AdditionalBytes int64 `json:"additional_bytes"`
}

// usageRequest is the body of POST /api/v1/usage.
type usageRequest struct {
	TenantID int64  `json:"tenant_id"`
	Metric   string `json:"metric"`
	Quantity int64  `json:"quantity"`
}

// setPlanRequest is the body of PUT /api/v1/tenants/{id}/plan. A null
// plan_id clears the assignment.
type setPlanRequest struct {
	PlanID *int64 `json:"plan_id"`
}

// setOverridesRequest is the body of PUT /api/v1/tenants/{id}/overrides.
type setOverridesRequest struct {
	Overrides map[string]int64 `json:"overrides"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondDenied answers evaluation failures. The body carries allowed=false
// so clients that ignore the status code still deny.
func respondDenied(w http.ResponseWriter, r *http.Request, err error, message string) {
	observability.FromContext(r.Context()).WithError(err).Error(message)
	respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"allowed": false,
		"error":   message,
	})
}
