package features

import "github.com/meridianhq/meridian/pkg/storage"

// Migrations returns the schema migrations for the feature hierarchy.
func Migrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "create feature_nodes table",
			SQL: `
				CREATE TABLE IF NOT EXISTS feature_nodes (
					id BIGSERIAL PRIMARY KEY,
					code TEXT NOT NULL,
					parent_id BIGINT REFERENCES feature_nodes(id),
					level TEXT NOT NULL,
					name TEXT NOT NULL,
					is_core BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_feature_nodes_sibling_code
					ON feature_nodes (COALESCE(parent_id, 0), code);
			`,
		},
	}
}
