package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the generations table. It matches the table a
// Supabase project exposes to the web client.
const Schema = `
CREATE TABLE IF NOT EXISTS generations (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    kind       TEXT NOT NULL,
    provider   TEXT NOT NULL,
    topic      TEXT NOT NULL DEFAULT '',
    content    JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_generations_user_created ON generations(user_id, created_at DESC);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore keeps records in PostgreSQL.
type PostgresStore struct {
	db DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore returns a store using db. Call [PostgresStore.Migrate]
// before first use unless the schema is managed elsewhere.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes [Schema].
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// Save implements [Store].
func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	body, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("history: marshal %s: %w", rec.ID, err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO generations (id, user_id, kind, provider, topic, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id, kind = EXCLUDED.kind, provider = EXCLUDED.provider,
			topic = EXCLUDED.topic, content = EXCLUDED.content, created_at = EXCLUDED.created_at`,
		rec.ID, rec.UserID, string(rec.Kind), rec.Provider, rec.Topic, body, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("history: save %s: %w", rec.ID, err)
	}
	return nil
}

// List implements [Store].
func (s *PostgresStore) List(ctx context.Context, user string, opts ListOptions) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, content FROM generations
		WHERE user_id = $1 AND ($2 = '' OR kind = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`, user, string(opts.Kind), opts.limit())
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var (
			rec  Record
			body []byte
		)
		if err := rows.Scan(&rec.UserID, &body); err != nil {
			return nil, fmt.Errorf("history: list: scan: %w", err)
		}
		if err := json.Unmarshal(body, &rec.Result); err != nil {
			return nil, fmt.Errorf("history: list: decode: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	return out, nil
}

// Get implements [Store].
func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	var (
		rec  Record
		body []byte
	)
	err := s.db.QueryRow(ctx, `SELECT user_id, content FROM generations WHERE id = $1`, id).Scan(&rec.UserID, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("history: get %s: %w", id, err)
	}
	if err := json.Unmarshal(body, &rec.Result); err != nil {
		return Record{}, fmt.Errorf("history: get %s: decode: %w", id, err)
	}
	return rec, nil
}

// Close implements [Store]. The pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }
