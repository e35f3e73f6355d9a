package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// FakeCache is an in-memory Cache for tests. It honors TTLs against a
// controllable clock so expiry behavior can be tested without sleeping.
type FakeCache struct {
	mu      sync.Mutex
	entries map[string]fakeEntry
	now     func() time.Time

	// Fail forces every operation to return FailErr when set.
	Fail    bool
	FailErr error
}

type fakeEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewFakeCache creates an empty fake cache using the real clock.
func NewFakeCache() *FakeCache {
	return &FakeCache{
		entries: make(map[string]fakeEntry),
		now:     time.Now,
	}
}

// SetClock overrides the clock used for TTL expiry.
func (f *FakeCache) SetClock(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// Get implements Cache.
func (f *FakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Fail {
		return false, f.FailErr
	}

	entry, ok := f.entries[key]
	if !ok {
		return false, nil
	}
	if !entry.expiresAt.IsZero() && f.now().After(entry.expiresAt) {
		delete(f.entries, key)
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		delete(f.entries, key)
		return false, nil
	}
	return true, nil
}

// Set implements Cache.
func (f *FakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Fail {
		return f.FailErr
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = f.now().Add(ttl)
	}
	f.entries[key] = fakeEntry{data: data, expiresAt: expiresAt}
	return nil
}

// Forget implements Cache.
func (f *FakeCache) Forget(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Fail {
		return f.FailErr
	}

	for _, key := range keys {
		delete(f.entries, key)
	}
	return nil
}

// Has reports whether a key is currently stored. Test helper.
func (f *FakeCache) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[key]
	if !ok {
		return false
	}
	return entry.expiresAt.IsZero() || !f.now().After(entry.expiresAt)
}
