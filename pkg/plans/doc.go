// Package plans resolves which feature modules a tenant's subscription
// includes.
//
// A module is included for a tenant when any of the following holds:
//
//   - the tenant's active plan lists it
//   - the tenant has an individual module override
//   - the module is flagged core in the feature catalog
//
// The resolved set is cached per tenant for a bounded TTL and must be
// invalidated explicitly when a tenant's plan or overrides change.
// Tenants without a plan fall back to core modules plus overrides only.
package plans
