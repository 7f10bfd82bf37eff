// Package cache implements the TTL read-through cache that sits between the
// query façade and the Sponte API client. Entries are keyed by endpoint plus
// canonicalized query parameters, expire lazily, and concurrent lookups for
// one key share a single in-flight fetch.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrMiss is returned by stores when the key is absent or expired.
	ErrMiss = errors.New("cache: key not found")

	// ErrKeyEmpty is returned when an empty key is provided.
	ErrKeyEmpty = errors.New("cache: key cannot be empty")
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store is the storage backend behind the cache. Implementations: the
// in-process Memory store (default) and the Redis store for multi-replica
// deployments.
type Store interface {
	// Get returns the payload stored under key, or ErrMiss when absent or
	// expired. Expired entries are evicted lazily by this call.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the payload under key with the given TTL.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Delete removes one key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// ══════════════════════════════════════════════════════════════════════════════
// KEYS
// ══════════════════════════════════════════════════════════════════════════════

// Key builds the cache key for an endpoint and its query parameters.
// url.Values.Encode sorts parameter names, so equivalent queries always
// canonicalize to the same key.
func Key(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + params.Encode()
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE
// ══════════════════════════════════════════════════════════════════════════════

// FetchFunc produces the payload on a cache miss.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Cache is the read-through TTL cache. The singleflight group guarantees at
// most one in-flight fetch per key: concurrent callers for the same key wait
// for the winner's result instead of issuing redundant upstream calls.
type Cache struct {
	store      Store
	group      singleflight.Group
	defaultTTL time.Duration
	logger     *slog.Logger
}

// New creates a Cache over the given store.
func New(store Store, defaultTTL time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultTTL <= 0 {
		defaultTTL = 60 * time.Second
	}
	return &Cache{
		store:      store,
		defaultTTL: defaultTTL,
		logger:     logger,
	}
}

// DefaultTTL returns the TTL used when GetOrFetch receives ttl <= 0.
func (c *Cache) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// GetOrFetch returns the cached payload for (endpoint, params) when an
// unexpired entry exists; otherwise it runs fetch, stores the result with
// the current timestamp, and returns it. Fetch errors pass through
// unchanged and nothing is stored.
func (c *Cache) GetOrFetch(ctx context.Context, endpoint string, params url.Values, ttl time.Duration, fetch FetchFunc) ([]byte, error) {
	if endpoint == "" {
		return nil, ErrKeyEmpty
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	key := Key(endpoint, params)

	if payload, err := c.store.Get(ctx, key); err == nil {
		return payload, nil
	} else if !errors.Is(err, ErrMiss) {
		// A broken store must not take the dashboard down; fall through to
		// the fetch path.
		c.logger.Warn("cache store lookup failed", "key", key, "error", err)
	}

	payload, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the flight: another caller may have stored the
		// payload between our miss and winning the flight.
		if cached, err := c.store.Get(ctx, key); err == nil {
			return cached, nil
		}

		fetched, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.store.Set(ctx, key, fetched, ttl); err != nil {
			c.logger.Warn("cache store write failed", "key", key, "error", err)
		}
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return payload.([]byte), nil
}

// Invalidate removes the entry for (endpoint, params); with nil params it
// removes every entry for the endpoint. The system is read-only today, so
// this exists for token-forced refreshes and future write paths.
func (c *Cache) Invalidate(ctx context.Context, endpoint string, params url.Values) error {
	if endpoint == "" {
		return ErrKeyEmpty
	}
	if params == nil {
		if err := c.store.DeletePrefix(ctx, endpoint); err != nil {
			return fmt.Errorf("invalidate %s: %w", endpoint, err)
		}
		return nil
	}
	if err := c.store.Delete(ctx, Key(endpoint, params)); err != nil {
		return fmt.Errorf("invalidate %s: %w", endpoint, err)
	}
	return nil
}
