package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the credit tables. Execute it via
// [PostgresLedger.Migrate] or apply it during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS credit_accounts (
    user_id    TEXT PRIMARY KEY,
    remaining  INTEGER NOT NULL CHECK (remaining >= 0),
    total      INTEGER NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS credit_events (
    generation_id TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL REFERENCES credit_accounts(user_id),
    delta         INTEGER NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_credit_events_user ON credit_events(user_id);
`

// DB is the database interface used by [PostgresLedger]. *pgxpool.Pool
// satisfies it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresLedger is a [Ledger] backed by PostgreSQL. Consumption runs in a
// transaction; the credit_events primary key makes it idempotent.
type PostgresLedger struct {
	db        DB
	allowance int
}

var _ Ledger = (*PostgresLedger)(nil)

// NewPostgresLedger returns a ledger using db.
func NewPostgresLedger(db DB, allowance int) *PostgresLedger {
	if allowance <= 0 {
		allowance = DefaultAllowance
	}
	return &PostgresLedger{db: db, allowance: allowance}
}

// Migrate executes [Schema].
func (l *PostgresLedger) Migrate(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("credits: migrate: %w", err)
	}
	return nil
}

const ensureAccount = `
	INSERT INTO credit_accounts (user_id, remaining, total) VALUES ($1, $2, $2)
	ON CONFLICT (user_id) DO NOTHING`

// Balance implements [Ledger].
func (l *PostgresLedger) Balance(ctx context.Context, user string) (Balance, error) {
	if _, err := l.db.Exec(ctx, ensureAccount, user, l.allowance); err != nil {
		return Balance{}, fmt.Errorf("credits: balance: %w", err)
	}
	var b Balance
	err := l.db.QueryRow(ctx, `SELECT remaining, total FROM credit_accounts WHERE user_id = $1`, user).
		Scan(&b.Remaining, &b.Total)
	if err != nil {
		return Balance{}, fmt.Errorf("credits: balance: %w", err)
	}
	return b, nil
}

// Consume implements [Ledger].
func (l *PostgresLedger) Consume(ctx context.Context, user, generationID string) (Balance, error) {
	var (
		b            Balance
		insufficient bool
	)
	err := pgx.BeginFunc(ctx, l.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ensureAccount, user, l.allowance); err != nil {
			return err
		}
		var seen bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM credit_events WHERE generation_id = $1)`, generationID).Scan(&seen); err != nil {
			return err
		}
		if seen {
			return tx.QueryRow(ctx, `SELECT remaining, total FROM credit_accounts WHERE user_id = $1`, user).
				Scan(&b.Remaining, &b.Total)
		}

		err := tx.QueryRow(ctx, `
			UPDATE credit_accounts SET remaining = remaining - 1, updated_at = now()
			WHERE user_id = $1 AND remaining > 0
			RETURNING remaining, total`, user).Scan(&b.Remaining, &b.Total)
		if errors.Is(err, pgx.ErrNoRows) {
			insufficient = true
			return tx.QueryRow(ctx, `SELECT remaining, total FROM credit_accounts WHERE user_id = $1`, user).
				Scan(&b.Remaining, &b.Total)
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO credit_events (generation_id, user_id, delta) VALUES ($1, $2, -1)`, generationID, user)
		return err
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			// A concurrent Consume for the same generation won; the
			// rollback undid this decrement.
			return l.Balance(ctx, user)
		}
		return Balance{}, fmt.Errorf("credits: consume: %w", err)
	}
	if insufficient {
		return b, ErrInsufficient
	}
	return b, nil
}

// grantCredits opens an account at $2 (allowance plus grant) or adds $3 to
// an existing one. Each placeholder sits in a column position so Postgres
// can infer its type.
const grantCredits = `
	INSERT INTO credit_accounts (user_id, remaining, total) VALUES ($1, $2, $2)
	ON CONFLICT (user_id) DO UPDATE SET
		remaining = credit_accounts.remaining + $3,
		total = credit_accounts.total + $3,
		updated_at = now()
	RETURNING remaining, total`

// Grant implements [Ledger].
func (l *PostgresLedger) Grant(ctx context.Context, user string, n int) (Balance, error) {
	if n <= 0 {
		return Balance{}, fmt.Errorf("%w: %d", ErrInvalidGrant, n)
	}
	var b Balance
	err := l.db.QueryRow(ctx, grantCredits, user, l.allowance+n, n).Scan(&b.Remaining, &b.Total)
	if err != nil {
		return Balance{}, fmt.Errorf("credits: grant: %w", err)
	}
	return b, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
