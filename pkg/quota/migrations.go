package quota

import "github.com/meridianhq/meridian/pkg/storage"

// Migrations returns the schema migrations for the quota tables.
func Migrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "create usage_records table",
			SQL: `
				CREATE TABLE IF NOT EXISTS usage_records (
					id TEXT PRIMARY KEY,
					tenant_id BIGINT NOT NULL,
					metric TEXT NOT NULL,
					type TEXT NOT NULL,
					quantity BIGINT NOT NULL,
					period_start TIMESTAMP NOT NULL,
					period_end TIMESTAMP NOT NULL,
					created_at TIMESTAMP NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_usage_records_tenant_metric_period
					ON usage_records (tenant_id, metric, period_start);
				CREATE INDEX IF NOT EXISTS idx_usage_records_period
					ON usage_records (period_start);
			`,
		},
		{
			Version:     2,
			Description: "create quota_warnings table",
			SQL: `
				CREATE TABLE IF NOT EXISTS quota_warnings (
					id TEXT PRIMARY KEY,
					tenant_id BIGINT NOT NULL,
					metric TEXT NOT NULL,
					percentage_used DOUBLE PRECISION NOT NULL,
					level TEXT NOT NULL,
					created_at TIMESTAMP NOT NULL,
					expires_at TIMESTAMP NOT NULL,
					dismissed BOOLEAN NOT NULL DEFAULT FALSE
				);
				CREATE INDEX IF NOT EXISTS idx_quota_warnings_tenant_metric
					ON quota_warnings (tenant_id, metric, dismissed, expires_at);
			`,
		},
	}
}
