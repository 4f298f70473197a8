package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the part of *pgxpool.Pool that Store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	getQuery    = `SELECT value FROM notification_kv WHERE key = $1`
	upsertQuery = `INSERT INTO notification_kv (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	deleteQuery = `DELETE FROM notification_kv WHERE key = $1`
)

// Store keeps blobs in the notification_kv table created by Migrate.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	if db == nil {
		panic("pg: nil db")
	}
	return &Store{db: db}
}

// Get returns nil, nil when key has no row.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	if err := s.db.QueryRow(ctx, getQuery, key).Scan(&value); err != nil {
		if IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.Exec(ctx, upsertQuery, key, value)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, deleteQuery, key)
	return err
}
