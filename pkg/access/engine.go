package access

import (
	"context"
	"fmt"

	"github.com/meridianhq/meridian/pkg/features"
	"github.com/meridianhq/meridian/pkg/rbac"
	"github.com/meridianhq/meridian/pkg/tenants"
)

// RoleSource answers role and grant queries for a user. Satisfied by
// the rbac store.
type RoleSource interface {
	UserHasRole(ctx context.Context, userID int64, roleName string, tenantID int64) (bool, error)
	AnyGrant(ctx context.Context, userID, tenantID, featureNodeID int64) (bool, error)
	GrantedScopes(ctx context.Context, userID, tenantID, featureNodeID int64) ([]rbac.Scope, error)
}

// ModuleCatalog answers plan-inclusion queries. Satisfied by the plans
// catalog.
type ModuleCatalog interface {
	IsModuleIncluded(ctx context.Context, tenant *tenants.Tenant, moduleCode string) (bool, error)
}

// TreeSource serves the current feature tree snapshot. Satisfied by the
// features loader.
type TreeSource interface {
	Tree(ctx context.Context) (*features.Tree, error)
}

// Engine evaluates access decisions.
type Engine struct {
	roles   RoleSource
	catalog ModuleCatalog
	trees   TreeSource
}

// NewEngine creates an access decision engine.
func NewEngine(roles RoleSource, catalog ModuleCatalog, trees TreeSource) *Engine {
	return &Engine{
		roles:   roles,
		catalog: catalog,
		trees:   trees,
	}
}

// Decide evaluates an access request. A non-nil error means the check
// itself could not run; callers must treat that as a denial.
func (e *Engine) Decide(ctx context.Context, req *Request) (*Decision, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid access request: %w", err)
	}

	tenantID := req.Tenant.ID

	// Platform super admins bypass everything, including plan and
	// existence checks.
	isPlatformAdmin, err := e.roles.UserHasRole(ctx, req.UserID, rbac.RolePlatformSuperAdmin, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to check platform role: %w", err)
	}
	if isPlatformAdmin {
		return allow(ReasonPlatformSuperAdmin, "platform super admin bypass"), nil
	}

	included, err := e.catalog.IsModuleIncluded(ctx, req.Tenant, req.Module)
	if err != nil {
		return nil, fmt.Errorf("failed to check plan inclusion: %w", err)
	}
	if !included {
		return deny(ReasonPlanRestriction, fmt.Sprintf("module %q is not included in the tenant's plan", req.Module)), nil
	}

	tree, err := e.trees.Tree(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load feature tree: %w", err)
	}

	path, missing, ok := tree.ResolvePath(req.Module, req.SubModule, req.Component, req.Action)
	if !ok {
		return deny(ReasonNotFound, fmt.Sprintf("%s not found", missing)), nil
	}
	deepest := path[len(path)-1]

	// Tenant super admins bypass role grants, but only for features
	// their plan includes and that exist.
	isTenantAdmin, err := e.roles.UserHasRole(ctx, req.UserID, rbac.RoleTenantSuperAdmin, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to check tenant role: %w", err)
	}
	if isTenantAdmin {
		return allow(ReasonTenantSuperAdmin, "tenant super admin bypass"), nil
	}

	// Grants apply only to the exact node they target: holding a
	// component grant says nothing about actions beneath it.
	granted, err := e.roles.AnyGrant(ctx, req.UserID, tenantID, deepest.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check grants: %w", err)
	}
	if !granted {
		return deny(NoAccessReason(deepest.Level), fmt.Sprintf("no grant on %s %q", deepest.Level, deepest.Code)), nil
	}

	return allow(ReasonSuccess, ""), nil
}

// ResolveScope returns the most permissive scope any of the user's
// roles grants on the deepest node of the request path, or "" when no
// role grants it.
func (e *Engine) ResolveScope(ctx context.Context, req *Request) (rbac.Scope, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("invalid access request: %w", err)
	}

	tree, err := e.trees.Tree(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load feature tree: %w", err)
	}

	path, missing, ok := tree.ResolvePath(req.Module, req.SubModule, req.Component, req.Action)
	if !ok {
		return "", fmt.Errorf("%s not found", missing)
	}
	deepest := path[len(path)-1]

	scopes, err := e.roles.GrantedScopes(ctx, req.UserID, req.Tenant.ID, deepest.ID)
	if err != nil {
		return "", fmt.Errorf("failed to load granted scopes: %w", err)
	}
	return rbac.MostPermissive(scopes), nil
}
