package tenants

import "github.com/meridianhq/meridian/pkg/storage"

// Migrations returns the schema migrations for tenant and plan tables.
func Migrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "create plans table",
			SQL: `
				CREATE TABLE IF NOT EXISTS plans (
					id BIGSERIAL PRIMARY KEY,
					name TEXT NOT NULL,
					tier TEXT NOT NULL,
					included_modules TEXT[] NOT NULL DEFAULT '{}',
					overrides JSONB NOT NULL DEFAULT '{}',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     2,
			Description: "create tenants table",
			SQL: `
				CREATE TABLE IF NOT EXISTS tenants (
					id BIGSERIAL PRIMARY KEY,
					name TEXT NOT NULL,
					slug TEXT NOT NULL UNIQUE,
					plan_id BIGINT REFERENCES plans(id),
					status TEXT NOT NULL DEFAULT 'active',
					overrides JSONB NOT NULL DEFAULT '{}',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_tenants_plan ON tenants (plan_id);
			`,
		},
	}
}
