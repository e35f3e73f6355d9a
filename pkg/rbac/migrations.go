package rbac

import (
	"github.com/meridianhq/meridian/pkg/storage"
)

// Migrations returns the RBAC schema migrations.
func Migrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create roles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS roles (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					display_name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					tenant_id BIGINT REFERENCES tenants(id) ON DELETE CASCADE,
					is_built_in BOOLEAN DEFAULT FALSE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(name, tenant_id)
				);

				CREATE INDEX idx_roles_tenant_id ON roles(tenant_id);
				CREATE INDEX idx_roles_name ON roles(name);
			`,
		},
		{
			Version:     2,
			Description: "Create user_roles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_roles (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL,
					role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					tenant_id BIGINT REFERENCES tenants(id) ON DELETE CASCADE,
					granted_by BIGINT,
					granted_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(user_id, role_id, COALESCE(tenant_id, 0))
				);

				CREATE INDEX idx_user_roles_user_id ON user_roles(user_id);
				CREATE INDEX idx_user_roles_role_id ON user_roles(role_id);
				CREATE INDEX idx_user_roles_tenant_id ON user_roles(tenant_id);
			`,
		},
		{
			Version:     3,
			Description: "Create role_grants table",
			SQL: `
				CREATE TABLE IF NOT EXISTS role_grants (
					id BIGSERIAL PRIMARY KEY,
					role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					feature_node_id BIGINT NOT NULL REFERENCES feature_nodes(id) ON DELETE CASCADE,
					scope VARCHAR(50) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(role_id, feature_node_id)
				);

				CREATE INDEX idx_role_grants_role_id ON role_grants(role_id);
				CREATE INDEX idx_role_grants_feature_node_id ON role_grants(feature_node_id);
			`,
		},
	}
}
