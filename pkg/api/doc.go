// Package api implements the HTTP surface for access decisions and quota
// enforcement.
//
// # Endpoints
//
//	POST /api/v1/access/decide          Evaluate an access request
//	GET  /api/v1/access/scope           Resolve the widest granted scope
//	GET  /api/v1/quota/{metric}/check   Check quota with grace-period escalation
//	POST /api/v1/quota/storage/check    Check a storage allocation
//	POST /api/v1/usage                  Append a usage record
//	GET  /api/v1/warnings               List active quota warnings
//	POST /api/v1/warnings/{id}/dismiss  Dismiss a warning
//
//	PUT    /api/v1/tenants/{id}/plan            Assign or clear a tenant's plan
//	PUT    /api/v1/tenants/{id}/overrides       Replace a tenant's quota overrides
//	POST   /api/v1/tenants/{id}/modules/{code}  Grant a module outside the plan
//	DELETE /api/v1/tenants/{id}/modules/{code}  Revoke a granted module
//
// # Error Semantics
//
// Evaluation failures are never translated into permissive answers. When a
// backing store is unreachable the decide and check endpoints answer 500
// with allowed=false, so clients that ignore status codes still deny.
//
// # Related Packages
//
//   - pkg/access: Decision engine
//   - pkg/quota: Quota enforcement and usage ledger
//   - pkg/middleware: Identity, logging, and rate limiting
package api
