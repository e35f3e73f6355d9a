// Package middleware provides HTTP middleware for identity extraction, request
// logging, panic recovery, and rate limiting.
//
// # Overview
//
// This package implements request processing middleware shared by the API and
// admin surfaces: caller identity headers, structured request logs with request
// IDs, and per-tenant rate limiting (in-memory and Redis-backed).
//
// # Middleware Ordering
//
// Identity must run before rate limiting so tenant-keyed limits apply.
// Recommended order (outer to inner):
//
//	router.Use(middleware.RequestLogging(logger))
//	router.Use(middleware.Recovery(logger))
//	router.Use(middleware.Identity(false))
//	router.Use(rateLimit.Handler)
//
// # Identity
//
// Callers identify themselves with headers set by the edge proxy:
//
//	X-Meridian-User-ID: 101
//	X-Meridian-Tenant-ID: 42
//
// # Rate Limiting
//
// Default (per IP): 100 req/min, 10 burst
// Per-tenant: 1000 req/min, 50 burst
//
// # Related Packages
//
//   - pkg/observability: Logger and context helpers
//   - pkg/api: Mounts this middleware on the router
package middleware
