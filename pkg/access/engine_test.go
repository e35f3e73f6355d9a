package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/meridian/pkg/features"
	"github.com/meridianhq/meridian/pkg/rbac"
	"github.com/meridianhq/meridian/pkg/tenants"
)

type fakeRoles struct {
	roles  map[string]bool
	grants map[int64]bool
	scopes map[int64][]rbac.Scope
	err    error
}

func (f *fakeRoles) UserHasRole(ctx context.Context, userID int64, roleName string, tenantID int64) (bool, error) {
	return f.roles[roleName], f.err
}

func (f *fakeRoles) AnyGrant(ctx context.Context, userID, tenantID, featureNodeID int64) (bool, error) {
	return f.grants[featureNodeID], f.err
}

func (f *fakeRoles) GrantedScopes(ctx context.Context, userID, tenantID, featureNodeID int64) ([]rbac.Scope, error) {
	return f.scopes[featureNodeID], f.err
}

type fakeCatalog struct {
	included map[string]bool
	err      error
}

func (f *fakeCatalog) IsModuleIncluded(ctx context.Context, tenant *tenants.Tenant, moduleCode string) (bool, error) {
	return f.included[moduleCode], f.err
}

type fakeTrees struct {
	tree *features.Tree
	err  error
}

func (f *fakeTrees) Tree(ctx context.Context) (*features.Tree, error) {
	return f.tree, f.err
}

func ptr(v int64) *int64 { return &v }

// testTree builds hr -> employees -> records -> edit, plus a core
// dashboard module.
func testTree(t *testing.T) *features.Tree {
	t.Helper()
	tree, err := features.NewTree([]features.FeatureNode{
		{ID: 1, Code: "hr", Level: features.LevelModule, Name: "HR"},
		{ID: 2, Code: "employees", ParentID: ptr(1), Level: features.LevelSubModule, Name: "Employees"},
		{ID: 3, Code: "records", ParentID: ptr(2), Level: features.LevelComponent, Name: "Records"},
		{ID: 4, Code: "edit", ParentID: ptr(3), Level: features.LevelAction, Name: "Edit"},
		{ID: 5, Code: "dashboard", Level: features.LevelModule, Name: "Dashboard", IsCore: true},
	})
	require.NoError(t, err)
	return tree
}

type engineFixture struct {
	engine  *Engine
	roles   *fakeRoles
	catalog *fakeCatalog
}

func newEngineFixture(t *testing.T) *engineFixture {
	roles := &fakeRoles{
		roles:  map[string]bool{},
		grants: map[int64]bool{},
		scopes: map[int64][]rbac.Scope{},
	}
	catalog := &fakeCatalog{included: map[string]bool{"hr": true, "dashboard": true}}
	return &engineFixture{
		engine:  NewEngine(roles, catalog, &fakeTrees{tree: testTree(t)}),
		roles:   roles,
		catalog: catalog,
	}
}

func hrRequest() *Request {
	return &Request{
		UserID: 1,
		Tenant: &tenants.Tenant{ID: 10},
		Module: "hr",
	}
}

func actionRequest() *Request {
	req := hrRequest()
	req.SubModule = "employees"
	req.Component = "records"
	req.Action = "edit"
	return req
}

func TestDecidePlatformSuperAdminBypassesEverything(t *testing.T) {
	f := newEngineFixture(t)
	f.roles.roles[rbac.RolePlatformSuperAdmin] = true
	f.catalog.included = map[string]bool{}

	// Even a nonexistent module allows: the platform bypass precedes
	// the plan and existence checks.
	req := hrRequest()
	req.Module = "no-such-module"
	decision, err := f.engine.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonPlatformSuperAdmin, decision.Reason)
}

func TestDecidePlanRestrictionPrecedesExistence(t *testing.T) {
	f := newEngineFixture(t)
	f.catalog.included = map[string]bool{}

	// The module neither exists nor is included; the plan check wins.
	req := hrRequest()
	req.Module = "no-such-module"
	decision, err := f.engine.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonPlanRestriction, decision.Reason)
}

func TestDecidePlanRestrictionDeniesTenantSuperAdmin(t *testing.T) {
	f := newEngineFixture(t)
	f.roles.roles[rbac.RoleTenantSuperAdmin] = true
	f.catalog.included = map[string]bool{}

	decision, err := f.engine.Decide(context.Background(), hrRequest())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonPlanRestriction, decision.Reason)
}

func TestDecideNotFoundNamesMissingLevel(t *testing.T) {
	f := newEngineFixture(t)

	cases := []struct {
		name    string
		mutate  func(*Request)
		message string
	}{
		{"submodule", func(r *Request) { r.SubModule = "nope" }, "submodule not found"},
		{"component", func(r *Request) { r.SubModule = "employees"; r.Component = "nope" }, "component not found"},
		{"action", func(r *Request) { r.SubModule = "employees"; r.Component = "records"; r.Action = "nope" }, "action not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := hrRequest()
			tc.mutate(req)
			decision, err := f.engine.Decide(context.Background(), req)
			require.NoError(t, err)
			assert.False(t, decision.Allowed)
			assert.Equal(t, ReasonNotFound, decision.Reason)
			assert.Equal(t, tc.message, decision.Message)
		})
	}
}

func TestDecideNotFoundEvenForTenantSuperAdmin(t *testing.T) {
	f := newEngineFixture(t)
	f.roles.roles[rbac.RoleTenantSuperAdmin] = true
	f.catalog.included["ghost"] = true

	req := hrRequest()
	req.Module = "ghost"
	decision, err := f.engine.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNotFound, decision.Reason)
}

func TestDecideTenantSuperAdminBypassesGrants(t *testing.T) {
	f := newEngineFixture(t)
	f.roles.roles[rbac.RoleTenantSuperAdmin] = true

	decision, err := f.engine.Decide(context.Background(), actionRequest())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonTenantSuperAdmin, decision.Reason)
}

func TestDecideGrantOnDeepestNodeAllows(t *testing.T) {
	f := newEngineFixture(t)
	f.roles.grants[4] = true

	decision, err := f.engine.Decide(context.Background(), actionRequest())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonSuccess, decision.Reason)
}

func TestDecideComponentGrantDoesNotCoverAction(t *testing.T) {
	// A grant on the records component says nothing about the edit
	// action beneath it.
	f := newEngineFixture(t)
	f.roles.grants[3] = true

	decision, err := f.engine.Decide(context.Background(), actionRequest())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, Reason("no_action_access"), decision.Reason)
}

func TestDecideNoModuleAccess(t *testing.T) {
	f := newEngineFixture(t)

	decision, err := f.engine.Decide(context.Background(), hrRequest())
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, Reason("no_module_access"), decision.Reason)
}

func TestDecideStoreErrorFailsClosed(t *testing.T) {
	f := newEngineFixture(t)
	f.roles.err = errors.New("db down")

	decision, err := f.engine.Decide(context.Background(), hrRequest())
	assert.Error(t, err)
	assert.Nil(t, decision)
}

func TestDecideInvalidRequest(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Decide(context.Background(), &Request{UserID: 1, Tenant: &tenants.Tenant{ID: 10}})
	assert.Error(t, err)

	// Action without component is malformed.
	req := hrRequest()
	req.SubModule = "employees"
	req.Action = "edit"
	_, err = f.engine.Decide(context.Background(), req)
	assert.Error(t, err)
}

func TestResolveScopeMostPermissive(t *testing.T) {
	f := newEngineFixture(t)
	f.roles.scopes[4] = []rbac.Scope{rbac.ScopeOwn, rbac.ScopeDepartment, rbac.ScopeTeam}

	scope, err := f.engine.ResolveScope(context.Background(), actionRequest())
	require.NoError(t, err)
	assert.Equal(t, rbac.ScopeDepartment, scope)
}

func TestResolveScopeNoGrants(t *testing.T) {
	f := newEngineFixture(t)

	scope, err := f.engine.ResolveScope(context.Background(), actionRequest())
	require.NoError(t, err)
	assert.Equal(t, rbac.Scope(""), scope)
}
