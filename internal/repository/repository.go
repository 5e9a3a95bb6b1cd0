package repository

import (
	"context"
	"time"
)

// KVStore is a durable string key-value store
type KVStore interface {
	// Get returns the value for key and whether it was present
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// HistoryEntry records when a host last passed a health check
type HistoryEntry struct {
	Host         string    `json:"host"`
	LastSuccess  time.Time `json:"last_success"`
	SuccessCount int       `json:"success_count"`
}

// HistoryStore tracks probe-confirmed hosts so static lists can be ordered
// most-recently-working first
type HistoryStore interface {
	RecordSuccess(ctx context.Context, host string, at time.Time) error
	// History returns entries newest first
	History(ctx context.Context) ([]HistoryEntry, error)
	ClearHistory(ctx context.Context) error
}

// Store is everything the resolver persists
type Store interface {
	KVStore
	HistoryStore
	Close() error
}
