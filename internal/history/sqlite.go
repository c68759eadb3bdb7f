package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS generations (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    kind       TEXT NOT NULL,
    provider   TEXT NOT NULL,
    topic      TEXT NOT NULL DEFAULT '',
    content    TEXT NOT NULL,
    created_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_generations_user_created ON generations(user_id, created_at DESC)`,
}

// sqliteTime is fixed width so that created_at sorts lexically.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore keeps records in a local SQLite file. It backs single-user
// mode and the CLI.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: apply pragma %q: %w", pragma, err)
		}
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: migrate: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Save implements [Store].
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	body, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("history: marshal %s: %w", rec.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO generations (id, user_id, kind, provider, topic, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id, kind = excluded.kind, provider = excluded.provider,
			topic = excluded.topic, content = excluded.content, created_at = excluded.created_at`,
		rec.ID, rec.UserID, string(rec.Kind), rec.Provider, rec.Topic, string(body),
		rec.CreatedAt.UTC().Format(sqliteTime),
	)
	if err != nil {
		return fmt.Errorf("history: save %s: %w", rec.ID, err)
	}
	return nil
}

// List implements [Store].
func (s *SQLiteStore) List(ctx context.Context, user string, opts ListOptions) ([]Record, error) {
	query := `SELECT user_id, content FROM generations WHERE user_id = ?`
	args := []any{user}
	if opts.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(opts.Kind))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, opts.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var (
			rec  Record
			body string
		)
		if err := rows.Scan(&rec.UserID, &body); err != nil {
			return nil, fmt.Errorf("history: list: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &rec.Result); err != nil {
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
func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	var (
		rec  Record
		body string
	)
	err := s.db.QueryRowContext(ctx, `SELECT user_id, content FROM generations WHERE id = ?`, id).Scan(&rec.UserID, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("history: get %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(body), &rec.Result); err != nil {
		return Record{}, fmt.Errorf("history: get %s: decode: %w", id, err)
	}
	return rec, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements [Store].
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
