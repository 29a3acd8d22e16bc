package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

var (
	// ErrNotFound is returned when a key has no stored value.
	ErrNotFound = errors.New("store: key not found")

	// ErrQuotaExceeded is returned when a write would push the key/value
	// area past its capacity ceiling.
	ErrQuotaExceeded = errors.New("store: quota exceeded")
)

const kvTable = "kv_entries"

// Entry is a stored value with its save time.
type Entry struct {
	Key     string
	Value   []byte
	SavedAt time.Time
}

// KV is a small durable key/value area with a bounded total size.
type KV interface {
	// Get returns the entry for key or ErrNotFound.
	Get(ctx context.Context, key string) (*Entry, error)

	// Put stores value under key, replacing any previous value. It fails
	// with ErrQuotaExceeded when the new total would exceed the capacity.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key.
	Clear(ctx context.Context) error

	// Size returns the total number of value bytes currently stored.
	Size(ctx context.Context) (int64, error)
}

type kvRepo struct {
	db       *sql.DB
	capacity int64
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

func (r *kvRepo) Get(ctx context.Context, key string) (*Entry, error) {
	query, args := builder().
		Select("value", "saved_at").
		From(entsql.Table(kvTable)).
		Where(entsql.EQ("key", key)).
		Query()

	e := &Entry{Key: key}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&e.Value, &e.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return e, nil
}

func (r *kvRepo) Put(ctx context.Context, key string, value []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if r.capacity > 0 {
		// Size of everything except the value being replaced.
		var others int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(LENGTH(value)), 0) FROM `+kvTable+` WHERE key <> ?`, key,
		).Scan(&others)
		if err != nil {
			return fmt.Errorf("measure usage: %w", err)
		}
		if others+int64(len(value)) > r.capacity {
			return fmt.Errorf("put %q (%d bytes): %w", key, len(value), ErrQuotaExceeded)
		}
	}

	query, args := builder().
		Insert(kvTable).
		Columns("key", "value", "saved_at").
		Values(key, value, time.Now().UTC()).
		OnConflict(
			entsql.ConflictColumns("key"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return tx.Commit()
}

func (r *kvRepo) Delete(ctx context.Context, key string) error {
	query, args := builder().
		Delete(kvTable).
		Where(entsql.EQ("key", key)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (r *kvRepo) Clear(ctx context.Context) error {
	query, args := builder().Delete(kvTable).Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

func (r *kvRepo) Size(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(LENGTH(value)), 0) FROM `+kvTable,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("size: %w", err)
	}
	return n, nil
}
