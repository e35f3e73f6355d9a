package features

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const snapshotKey = "feature-tree"

// Loader builds Tree snapshots from the store and caches them in-process
// with an expirable LRU. The catalog sync process calls Invalidate after
// mutating the hierarchy.
type Loader struct {
	store *Store
	cache *lru.LRU[string, *Tree]
}

// NewLoader creates a loader with the given snapshot TTL.
func NewLoader(store *Store, ttl time.Duration) *Loader {
	return &Loader{
		store: store,
		cache: lru.NewLRU[string, *Tree](1, nil, ttl),
	}
}

// Tree returns the current snapshot, rebuilding it from the store when the
// cached one has expired.
func (l *Loader) Tree(ctx context.Context) (*Tree, error) {
	if tree, ok := l.cache.Get(snapshotKey); ok {
		return tree, nil
	}

	nodes, err := l.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load feature tree: %w", err)
	}

	tree, err := NewTree(nodes)
	if err != nil {
		return nil, fmt.Errorf("invalid feature hierarchy: %w", err)
	}

	l.cache.Add(snapshotKey, tree)
	return tree, nil
}

// Invalidate drops the cached snapshot.
func (l *Loader) Invalidate() {
	l.cache.Remove(snapshotKey)
}
