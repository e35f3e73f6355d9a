// Package tenants manages tenants and subscription plans.
//
// A tenant has at most one active plan and an optional metadata override
// map keyed "max_<metric>" that takes precedence over plan-level limits.
// Plans carry a tier code (free/starter/professional/enterprise), the set
// of included feature modules, and their own override map.
//
// Tenants and plans are configuration data: created by administrators,
// long-lived, and read far more often than written. The access and quota
// engines read them through the Service interface.
package tenants
