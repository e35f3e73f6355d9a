// Package quota tracks metered resource usage against plan limits and
// enforces them with a warning/grace-period escalation.
//
// Usage is an append-only ledger of UsageRecords per tenant per metric.
// Counter metrics accumulate within the calendar-month billing period;
// gauge metrics replace the prior value. The current aggregate is cached
// for a bounded TTL; the ledger remains the source of truth and can be
// reconciled on demand.
//
// Limits resolve with the precedence: tenant override > plan override >
// static tier default. A tenant without a plan gets free-tier defaults.
// Limits are a tagged union (Unlimited or Bounded) so the -1 sentinel in
// stored configuration never leaks into arithmetic.
//
// Enforcement escalates per (tenant, metric, billing period):
//
//	OK -> WARNING (>= warning pct) -> CRITICAL (>= critical pct)
//	   -> GRACE (>= block pct, anchor warning created)
//	   -> BLOCKED (grace days elapsed since the anchor)
//
// Decisions are structured results, never errors; notification dispatch
// is fire-and-forget and can never change an allow/deny outcome.
package quota
