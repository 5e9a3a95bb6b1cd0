// Package cache keeps the last known-good endpoint and the manual override in
// a durable key-value store.
//
// The cached slot holds only probe-confirmed endpoints and has no TTL: it is
// trusted until an override, a reset or a newer probe success replaces it.
package cache

import (
	"context"
	"fmt"
	"time"

	"waypoint/internal/domain"
	"waypoint/internal/repository"
)

const (
	keyCached   = "endpoint.cached"
	keyOverride = "endpoint.override"
)

// Cache wraps a repository.Store with endpoint-typed accessors
type Cache struct {
	store repository.Store
}

// New creates a cache over store
func New(store repository.Store) *Cache {
	return &Cache{store: store}
}

// Get returns the cached endpoint, or nil when none is stored
func (c *Cache) Get(ctx context.Context) (*domain.Endpoint, error) {
	return c.load(ctx, keyCached)
}

// Set stores a probe-confirmed endpoint
func (c *Cache) Set(ctx context.Context, ep domain.Endpoint) error {
	return c.store.Set(ctx, keyCached, ep.BaseURL())
}

// Clear drops the cached endpoint
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Delete(ctx, keyCached)
}

// Override returns the persisted manual override, or nil
func (c *Cache) Override(ctx context.Context) (*domain.Endpoint, error) {
	return c.load(ctx, keyOverride)
}

// SetOverride persists a manual override
func (c *Cache) SetOverride(ctx context.Context, ep domain.Endpoint) error {
	return c.store.Set(ctx, keyOverride, ep.BaseURL())
}

// ClearOverride drops the manual override
func (c *Cache) ClearOverride(ctx context.Context) error {
	return c.store.Delete(ctx, keyOverride)
}

// RecordSuccess adds host to the probe history
func (c *Cache) RecordSuccess(ctx context.Context, host string, at time.Time) error {
	return c.store.RecordSuccess(ctx, host, at)
}

// ClearHistory forgets every recorded success
func (c *Cache) ClearHistory(ctx context.Context) error {
	return c.store.ClearHistory(ctx)
}

// RecentHosts returns hosts that passed a health check, newest first
func (c *Cache) RecentHosts(ctx context.Context) ([]string, error) {
	entries, err := c.store.History(ctx)
	if err != nil {
		return nil, err
	}
	hosts := make([]string, 0, len(entries))
	for _, e := range entries {
		hosts = append(hosts, e.Host)
	}
	return hosts, nil
}

func (c *Cache) load(ctx context.Context, key string) (*domain.Endpoint, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	ep, err := domain.ParseEndpoint(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt %s value: %w", key, err)
	}
	return &ep, nil
}
