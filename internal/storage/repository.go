package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the local key-value store backing settings and the
// session, plus the outbox of ledger events that could not be published.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := migrateLocalState(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Get returns the stored value for key. The boolean is false when the key
// has never been written.
func (r *SQLiteRepository) Get(ctx context.Context, key string) (string, bool, error) {
	entry, err := r.queries.GetValue(ctx, key)
	if isNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return entry.Value, true, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key, value string) error {
	if err := r.queries.UpsertValue(ctx, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	slog.DebugContext(ctx, "Stored value", "key", key)
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if err := r.queries.DeleteValue(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// EnqueueEvent stores a serialized event for later delivery.
func (r *SQLiteRepository) EnqueueEvent(ctx context.Context, payload []byte) (int64, error) {
	id, err := r.queries.InsertOutbox(ctx, string(payload))
	if err != nil {
		return 0, fmt.Errorf("enqueue event: %w", err)
	}
	slog.InfoContext(ctx, "Event stored in outbox", "id", id)
	return id, nil
}

// PendingEvents returns up to limit undelivered events, oldest first.
func (r *SQLiteRepository) PendingEvents(ctx context.Context, limit int) ([]OutboxEvent, error) {
	events, err := r.queries.ListOutbox(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	return events, nil
}

func (r *SQLiteRepository) MarkDelivered(ctx context.Context, id int64) error {
	if err := r.queries.DeleteOutbox(ctx, id); err != nil {
		return fmt.Errorf("delete outbox event %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Outbox event delivered", "id", id)
	return nil
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id int64) error {
	if err := r.queries.BumpOutboxAttempts(ctx, id); err != nil {
		return fmt.Errorf("bump outbox attempts %d: %w", id, err)
	}
	slog.WarnContext(ctx, "Outbox event delivery failed", "id", id)
	return nil
}
