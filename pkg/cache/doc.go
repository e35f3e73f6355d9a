// Package cache provides the shared cache abstraction used by the access
// and quota engines.
//
// The decision engines never talk to Redis directly; they depend on the
// Cache interface so they can be unit tested with miniredis or a fake.
// Cached values are JSON-encoded. All cache operations are best-effort:
// callers treat read errors as misses and fall back to the durable store,
// which remains the source of truth.
//
// Key conventions:
//
//	quota:usage:{tenantID}:{metric}:{period}   cached usage aggregate
//	access:plan-modules:{tenantID}             cached plan module set
package cache
