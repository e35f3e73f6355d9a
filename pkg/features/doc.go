// Package features models the four-level feature hierarchy:
// Module -> SubModule -> Component -> Action.
//
// Node codes are unique among siblings, and a node's level is always
// exactly one below its parent's. The hierarchy is configuration data,
// mutated only by an out-of-band catalog sync, so request-time reads go
// through an immutable in-memory Tree snapshot with O(1) child lookup.
// Snapshots are cached in-process with an expirable LRU and rebuilt from
// the store on expiry or explicit invalidation.
package features
