// Package storage provides the PostgreSQL connection pool and the shared
// migration runner used by the per-domain stores.
//
// Each domain package (features, rbac, tenants, quota) declares its own
// []Migration; binaries compose them and call RunMigrations once at
// startup. Applied versions are tracked per component so domains can
// evolve their schemas independently.
package storage
