package plans

import (
	"github.com/meridianhq/meridian/pkg/storage"
)

// Migrations returns the plan catalog schema migrations. Tenant and plan
// tables themselves live in the tenants component.
func Migrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create tenant_module_overrides table",
			SQL: `
				CREATE TABLE IF NOT EXISTS tenant_module_overrides (
					id BIGSERIAL PRIMARY KEY,
					tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
					module_code VARCHAR(100) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(tenant_id, module_code)
				);

				CREATE INDEX idx_tenant_module_overrides_tenant_id ON tenant_module_overrides(tenant_id);
			`,
		},
	}
}
