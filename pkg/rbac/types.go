package rbac

import (
	"time"
)

// Scope represents the data-visibility breadth of a grant.
type Scope string

const (
	ScopeOwn        Scope = "own"
	ScopeTeam       Scope = "team"
	ScopeDepartment Scope = "department"
	ScopeAll        Scope = "all"
)

// Rank orders scopes by permissiveness; higher is more permissive.
// Unknown scopes rank below own.
func (s Scope) Rank() int {
	switch s {
	case ScopeOwn:
		return 1
	case ScopeTeam:
		return 2
	case ScopeDepartment:
		return 3
	case ScopeAll:
		return 4
	}
	return 0
}

// MostPermissive returns the widest scope in the list, or "" for an empty
// list.
func MostPermissive(scopes []Scope) Scope {
	var best Scope
	for _, s := range scopes {
		if s.Rank() > best.Rank() {
			best = s
		}
	}
	return best
}

// Built-in role names with bypass semantics.
const (
	RolePlatformSuperAdmin = "platform:superadmin"
	RoleTenantSuperAdmin   = "tenant:superadmin"
)

// Role represents a named set of feature grants within a tenant.
// TenantID is nil for platform-level roles.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	TenantID    *int64    `json:"tenant_id,omitempty"`
	IsBuiltIn   bool      `json:"is_built_in"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Grant authorizes a role on exactly one feature node at a scope.
type Grant struct {
	ID            int64     `json:"id"`
	RoleID        int64     `json:"role_id"`
	FeatureNodeID int64     `json:"feature_node_id"`
	Scope         Scope     `json:"scope"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserRole assigns a role to a user within a tenant.
type UserRole struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	RoleID    int64     `json:"role_id"`
	TenantID  *int64    `json:"tenant_id,omitempty"`
	GrantedBy *int64    `json:"granted_by,omitempty"`
	GrantedAt time.Time `json:"granted_at"`
}
