package access

import (
	"fmt"

	"github.com/meridianhq/meridian/pkg/features"
	"github.com/meridianhq/meridian/pkg/tenants"
)

// Reason classifies why a decision allowed or denied.
type Reason string

const (
	ReasonPlatformSuperAdmin Reason = "platform_super_admin"
	ReasonPlanRestriction    Reason = "plan_restriction"
	ReasonNotFound           Reason = "not_found"
	ReasonTenantSuperAdmin   Reason = "tenant_super_admin"
	ReasonSuccess            Reason = "success"
)

// NoAccessReason returns the denial reason for a missing grant at the
// given level, e.g. "no_action_access".
func NoAccessReason(level features.Level) Reason {
	return Reason(fmt.Sprintf("no_%s_access", level))
}

// Decision is the structured result of an access check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

func allow(reason Reason, message string) *Decision {
	return &Decision{Allowed: true, Reason: reason, Message: message}
}

func deny(reason Reason, message string) *Decision {
	return &Decision{Allowed: false, Reason: reason, Message: message}
}

// Request names the feature path an access check targets. Module is
// required; the deeper codes are optional but must be contiguous (no
// action without a component, and so on).
type Request struct {
	UserID    int64           `json:"user_id"`
	Tenant    *tenants.Tenant `json:"-"`
	Module    string          `json:"module"`
	SubModule string          `json:"sub_module,omitempty"`
	Component string          `json:"component,omitempty"`
	Action    string          `json:"action,omitempty"`
}

// Validate rejects structurally malformed requests.
func (r *Request) Validate() error {
	if r.Tenant == nil {
		return fmt.Errorf("tenant is required")
	}
	if r.Module == "" {
		return fmt.Errorf("module code is required")
	}
	if r.SubModule == "" && (r.Component != "" || r.Action != "") {
		return fmt.Errorf("component and action require a submodule")
	}
	if r.Component == "" && r.Action != "" {
		return fmt.Errorf("action requires a component")
	}
	return nil
}
