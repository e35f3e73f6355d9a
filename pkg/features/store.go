package features

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store persists feature nodes in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a new feature store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// LoadAll returns every feature node. The catalog is small (hundreds of
// nodes), so snapshots load it wholesale.
func (s *Store) LoadAll(ctx context.Context) ([]FeatureNode, error) {
	query := `
		SELECT id, code, parent_id, level, name, is_core, created_at, updated_at
		FROM feature_nodes
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load feature nodes: %w", err)
	}
	defer rows.Close()

	var nodes []FeatureNode
	for rows.Next() {
		var node FeatureNode
		var parentID sql.NullInt64
		if err := rows.Scan(
			&node.ID,
			&node.Code,
			&parentID,
			&node.Level,
			&node.Name,
			&node.IsCore,
			&node.CreatedAt,
			&node.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feature node: %w", err)
		}
		if parentID.Valid {
			id := parentID.Int64
			node.ParentID = &id
		}
		nodes = append(nodes, node)
	}

	return nodes, rows.Err()
}

// CreateNode inserts a feature node. Used by catalog sync and tests.
func (s *Store) CreateNode(ctx context.Context, node *FeatureNode) error {
	query := `
		INSERT INTO feature_nodes (code, parent_id, level, name, is_core, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		node.Code,
		node.ParentID,
		node.Level,
		node.Name,
		node.IsCore,
		now,
		now,
	).Scan(&node.ID)
	if err != nil {
		return fmt.Errorf("failed to create feature node: %w", err)
	}

	node.CreatedAt = now
	node.UpdatedAt = now
	return nil
}
