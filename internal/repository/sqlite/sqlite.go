package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"waypoint/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Store using SQLite
type Repository struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and migrates the schema.
// ":memory:" gives a throwaway database.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" coherent and serializes writers
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS probe_history (
		host TEXT PRIMARY KEY,
		last_success TEXT NOT NULL,
		success_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_probe_history_last ON probe_history(last_success DESC);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Close releases the database handle
func (r *Repository) Close() error {
	return r.db.Close()
}

// Get returns the value stored under key
func (r *Repository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts key
func (r *Repository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (r *Repository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// RecordSuccess notes that host passed a health check at the given time
func (r *Repository) RecordSuccess(ctx context.Context, host string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO probe_history (host, last_success, success_count) VALUES (?, ?, 1)
		ON CONFLICT(host) DO UPDATE SET
			last_success = excluded.last_success,
			success_count = probe_history.success_count + 1
	`, host, formatTime(at))
	if err != nil {
		return fmt.Errorf("failed to record success for %s: %w", host, err)
	}
	return nil
}

// History returns probe history, most recent success first
func (r *Repository) History(ctx context.Context) ([]repository.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT host, last_success, success_count
		FROM probe_history
		ORDER BY last_success DESC, host ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []repository.HistoryEntry
	for rows.Next() {
		var (
			e       repository.HistoryEntry
			lastRaw string
		)
		if err := rows.Scan(&e.Host, &lastRaw, &e.SuccessCount); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		e.LastSuccess, err = parseTime(lastRaw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last_success for %s: %w", e.Host, err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return entries, nil
}

// ClearHistory forgets every recorded success
func (r *Repository) ClearHistory(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM probe_history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

var _ repository.Store = (*Repository)(nil)
