package credits

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// runLedgerSuite exercises the behaviour every Ledger must share.
func runLedgerSuite(t *testing.T, newLedger func(t *testing.T, allowance int) Ledger) {
	ctx := context.Background()

	t.Run("new user starts with allowance", func(t *testing.T) {
		l := newLedger(t, 3)
		b, err := l.Balance(ctx, "alice")
		if err != nil {
			t.Fatal(err)
		}
		if b != (Balance{Remaining: 3, Total: 3}) {
			t.Errorf("balance = %+v", b)
		}
	})

	t.Run("consume is idempotent per generation", func(t *testing.T) {
		l := newLedger(t, 3)
		b, err := l.Consume(ctx, "bob", "gen-1")
		if err != nil || b.Remaining != 2 {
			t.Fatalf("first consume = %+v, %v", b, err)
		}
		b, err = l.Consume(ctx, "bob", "gen-1")
		if err != nil || b.Remaining != 2 {
			t.Fatalf("replayed consume = %+v, %v", b, err)
		}
	})

	t.Run("never below zero", func(t *testing.T) {
		l := newLedger(t, 1)
		if _, err := l.Consume(ctx, "carol", "a"); err != nil {
			t.Fatal(err)
		}
		b, err := l.Consume(ctx, "carol", "b")
		if !errors.Is(err, ErrInsufficient) {
			t.Fatalf("err = %v, want ErrInsufficient", err)
		}
		if b.Remaining != 0 {
			t.Errorf("remaining = %d", b.Remaining)
		}
	})

	t.Run("grant", func(t *testing.T) {
		l := newLedger(t, 2)
		b, err := l.Grant(ctx, "dave", 5)
		if err != nil {
			t.Fatal(err)
		}
		if b != (Balance{Remaining: 7, Total: 7}) {
			t.Errorf("balance = %+v", b)
		}
		if _, err := l.Grant(ctx, "dave", 0); !errors.Is(err, ErrInvalidGrant) {
			t.Errorf("zero grant err = %v", err)
		}
	})

	t.Run("grant tops up an existing account", func(t *testing.T) {
		l := newLedger(t, 2)
		if _, err := l.Consume(ctx, "frank", "gen-1"); err != nil {
			t.Fatal(err)
		}
		b, err := l.Grant(ctx, "frank", 4)
		if err != nil {
			t.Fatal(err)
		}
		if b != (Balance{Remaining: 5, Total: 6}) {
			t.Errorf("balance = %+v, want 5 of 6", b)
		}
		if b, err = l.Grant(ctx, "frank", 1); err != nil || b.Remaining != 6 {
			t.Errorf("second grant = %+v, %v", b, err)
		}
	})

	t.Run("concurrent consumers never overdraw", func(t *testing.T) {
		l := newLedger(t, 5)
		var (
			wg sync.WaitGroup
			mu sync.Mutex
			ok int
		)
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := l.Consume(ctx, "erin", fmt.Sprintf("gen-%d", i)); err == nil {
					mu.Lock()
					ok++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if ok != 5 {
			t.Errorf("%d consumes succeeded, want 5", ok)
		}
		b, _ := l.Balance(ctx, "erin")
		if b.Remaining != 0 {
			t.Errorf("remaining = %d", b.Remaining)
		}
	})
}

func TestMemoryLedger(t *testing.T) {
	runLedgerSuite(t, func(_ *testing.T, allowance int) Ledger {
		return NewMemoryLedger(allowance)
	})
}

func TestMemoryLedger_DefaultAllowance(t *testing.T) {
	b, _ := NewMemoryLedger(0).Balance(context.Background(), "x")
	if b.Total != DefaultAllowance {
		t.Errorf("total = %d, want %d", b.Total, DefaultAllowance)
	}
}

func TestRedisLedger(t *testing.T) {
	runLedgerSuite(t, func(t *testing.T, allowance int) Ledger {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		return NewRedisLedger(client, allowance)
	})
}

// TestRedisLedger_IdempotencyTTL checks that consumed IDs expire.
func TestRedisLedger_IdempotencyTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	l := NewRedisLedger(client, 3, WithKeyPrefix("test"), WithIdempotencyTTL(time.Minute))

	ctx := context.Background()
	if _, err := l.Consume(ctx, "u", "g"); err != nil {
		t.Fatal(err)
	}
	key := "test:{u}:gen:g"
	if !mr.Exists(key) {
		t.Fatalf("idempotency key %q missing; keys: %v", key, mr.Keys())
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Errorf("ttl = %v", ttl)
	}
	if err := l.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

// TestPostgresLedger runs against a real database when
// VIDPILOT_TEST_POSTGRES_DSN is set.
func TestPostgresLedger(t *testing.T) {
	dsn := os.Getenv("VIDPILOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VIDPILOT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	runLedgerSuite(t, func(t *testing.T, allowance int) Ledger {
		if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS credit_events, credit_accounts`); err != nil {
			t.Fatal(err)
		}
		l := NewPostgresLedger(pool, allowance)
		if err := l.Migrate(ctx); err != nil {
			t.Fatal(err)
		}
		return l
	})
}
