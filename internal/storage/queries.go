package storage

import (
	"context"
	"database/sql"
	"errors"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type KVEntry struct {
	Key       string
	Value     string
	UpdatedAt string
}

type OutboxEvent struct {
	ID        int64
	Payload   string
	Attempts  int64
	CreatedAt string
}

const getValue = `SELECT key, value, updated_at FROM kv WHERE key = ?`

func (q *Queries) GetValue(ctx context.Context, key string) (KVEntry, error) {
	row := q.db.QueryRowContext(ctx, getValue, key)
	var e KVEntry
	err := row.Scan(&e.Key, &e.Value, &e.UpdatedAt)
	return e, err
}

const upsertValue = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertValue(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, upsertValue, key, value)
	return err
}

const deleteValue = `DELETE FROM kv WHERE key = ?`

func (q *Queries) DeleteValue(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, deleteValue, key)
	return err
}

const insertOutbox = `INSERT INTO event_outbox (payload) VALUES (?) RETURNING id`

func (q *Queries) InsertOutbox(ctx context.Context, payload string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, insertOutbox, payload).Scan(&id)
	return id, err
}

const listOutbox = `SELECT id, payload, attempts, created_at FROM event_outbox ORDER BY id LIMIT ?`

func (q *Queries) ListOutbox(ctx context.Context, limit int64) ([]OutboxEvent, error) {
	rows, err := q.db.QueryContext(ctx, listOutbox, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OutboxEvent
	for rows.Next() {
		var i OutboxEvent
		if err := rows.Scan(&i.ID, &i.Payload, &i.Attempts, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteOutbox = `DELETE FROM event_outbox WHERE id = ?`

func (q *Queries) DeleteOutbox(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteOutbox, id)
	return err
}

const bumpOutboxAttempts = `UPDATE event_outbox SET attempts = attempts + 1 WHERE id = ?`

func (q *Queries) BumpOutboxAttempts(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, bumpOutboxAttempts, id)
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
