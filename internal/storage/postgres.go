package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const kvSchema = `CREATE TABLE IF NOT EXISTS kv_entries (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PGConn is the subset of pgxpool.Pool used by PostgresStore.
type PGConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps values in a single kv_entries table.
type PostgresStore struct {
	conn PGConn
	opts Options
	now  func() time.Time
}

// NewPostgresStore wraps a pool or connection.
func NewPostgresStore(conn PGConn, opts Options) *PostgresStore {
	return &PostgresStore{conn: conn, opts: opts, now: time.Now}
}

// EnsureSchema creates the backing table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, kvSchema); err != nil {
		return fmt.Errorf("storage: ensure schema: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRow(ctx,
		`SELECT value FROM kv_entries WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)`,
		s.opts.scopedKey(key), s.now(),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("storage: postgres get %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements Store.
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	if err := s.opts.checkQuota(key, value); err != nil {
		return err
	}
	var expiresAt *time.Time
	if s.opts.TTL > 0 {
		at := s.now().Add(s.opts.TTL)
		expiresAt = &at
	}
	_, err := s.conn.Exec(ctx,
		`INSERT INTO kv_entries (key, value, expires_at, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`,
		s.opts.scopedKey(key), value, expiresAt, s.now(),
	)
	if err != nil {
		return fmt.Errorf("storage: postgres set %s: %w", key, err)
	}
	return nil
}

// Remove implements Store.
func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	if _, err := s.conn.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, s.opts.scopedKey(key)); err != nil {
		return fmt.Errorf("storage: postgres remove %s: %w", key, err)
	}
	return nil
}
