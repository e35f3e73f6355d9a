package cache

import (
	"context"
	"time"
)

// Cache is the injected cache used by the decision engines.
//
// Get returns (false, nil) on a miss. Implementations must treat corrupt
// entries as misses rather than surfacing unmarshal errors to callers.
type Cache interface {
	// Get loads the value stored under key into dest. The bool reports
	// whether the key was present.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Forget removes the given keys. Missing keys are not an error.
	Forget(ctx context.Context, keys ...string) error
}
