// Package rbac stores roles and their feature grants.
//
// A role owns a set of (feature node, scope) grants. Users are assigned
// roles per tenant and never own grants directly. A grant applies only to
// the exact node it targets: granting a component does not implicitly
// grant its actions, and sibling nodes are unaffected.
//
// Scope controls data visibility for a granted action and is ordered by
// permissiveness: own < team < department < all.
//
// Two built-in role names carry bypass semantics evaluated by the access
// engine: "platform:superadmin" and "tenant:superadmin".
package rbac
