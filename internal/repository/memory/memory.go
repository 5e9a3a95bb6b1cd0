// Package memory provides a process-local repository.Store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"waypoint/internal/repository"
)

// Store is an in-memory repository.Store
type Store struct {
	mu      sync.RWMutex
	values  map[string]string
	history map[string]repository.HistoryEntry
}

// New creates an empty store
func New() *Store {
	return &Store{
		values:  make(map[string]string),
		history: make(map[string]repository.HistoryEntry),
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *Store) RecordSuccess(ctx context.Context, host string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.history[host]
	e.Host = host
	e.LastSuccess = at
	e.SuccessCount++
	s.history[host] = e
	return nil
}

func (s *Store) History(ctx context.Context) ([]repository.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]repository.HistoryEntry, 0, len(s.history))
	for _, e := range s.history {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSuccess.Equal(out[j].LastSuccess) {
			return out[i].Host < out[j].Host
		}
		return out[i].LastSuccess.After(out[j].LastSuccess)
	})
	return out, nil
}

func (s *Store) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = make(map[string]repository.HistoryEntry)
	return nil
}

func (s *Store) Close() error {
	return nil
}

var _ repository.Store = (*Store)(nil)
