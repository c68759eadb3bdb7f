package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/SAZZAD-404/vidpilot/pkg/content"
)

func record(id, user string, kind content.Kind, at time.Time) Record {
	return Record{
		UserID: user,
		Result: content.Result{
			ID:          id,
			Kind:        kind,
			Provider:    "openai",
			Topic:       "topic " + id,
			PrimaryText: "text " + id,
			Hashtags:    []string{"#a"},
			Tags:        []string{},
			CreatedAt:   at,
		},
	}
}

// runStoreSuite exercises the behaviour every Store must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("save and get", func(t *testing.T) {
		s := newStore(t)
		rec := record("g1", "alice", content.KindCaption, base)
		require.NoError(t, s.Save(ctx, rec))

		got, err := s.Get(ctx, "g1")
		require.NoError(t, err)
		require.Equal(t, "alice", got.UserID)
		require.Equal(t, rec.PrimaryText, got.PrimaryText)
		require.Equal(t, rec.Hashtags, got.Hashtags)
		require.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "nope")
		require.True(t, errors.Is(err, ErrNotFound), "err = %v", err)
	})

	t.Run("list newest first with filters", func(t *testing.T) {
		s := newStore(t)
		for i := range 5 {
			kind := content.KindCaption
			if i%2 == 1 {
				kind = content.KindStory
			}
			require.NoError(t, s.Save(ctx, record(fmt.Sprintf("g%d", i), "bob", kind, base.Add(time.Duration(i)*time.Millisecond))))
		}
		require.NoError(t, s.Save(ctx, record("other", "carol", content.KindCaption, base)))

		all, err := s.List(ctx, "bob", ListOptions{})
		require.NoError(t, err)
		require.Len(t, all, 5)
		require.Equal(t, "g4", all[0].ID)
		require.Equal(t, "g0", all[4].ID)

		stories, err := s.List(ctx, "bob", ListOptions{Kind: content.KindStory})
		require.NoError(t, err)
		require.Len(t, stories, 2)
		for _, r := range stories {
			require.Equal(t, content.KindStory, r.Kind)
		}

		limited, err := s.List(ctx, "bob", ListOptions{Limit: 2})
		require.NoError(t, err)
		require.Len(t, limited, 2)

		none, err := s.List(ctx, "nobody", ListOptions{})
		require.NoError(t, err)
		require.NotNil(t, none)
		require.Empty(t, none)
	})

	t.Run("save replaces", func(t *testing.T) {
		s := newStore(t)
		rec := record("g1", "dave", content.KindPost, base)
		require.NoError(t, s.Save(ctx, rec))
		rec.PrimaryText = "edited"
		require.NoError(t, s.Save(ctx, rec))
		got, err := s.Get(ctx, "g1")
		require.NoError(t, err)
		require.Equal(t, "edited", got.PrimaryText)
	})

	t.Run("rejects incomplete records", func(t *testing.T) {
		s := newStore(t)
		require.Error(t, s.Save(ctx, Record{UserID: "x"}))
		require.Error(t, s.Save(ctx, record("id", "", content.KindPost, base)))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(*testing.T) Store { return NewMemoryStore() })
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "history.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

// TestSQLiteStore_Reopen checks that records survive closing the file.
func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, record("keep", "u", content.KindCaption, time.Now())))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Get(ctx, "keep")
	require.NoError(t, err)
}

func TestListOptionsLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, ListOptions{}.limit())
	require.Equal(t, MaxLimit, ListOptions{Limit: 10_000}.limit())
	require.Equal(t, 7, ListOptions{Limit: 7}.limit())
}

// TestPostgresStore runs against a real database when
// VIDPILOT_TEST_POSTGRES_DSN is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("VIDPILOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VIDPILOT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	runStoreSuite(t, func(t *testing.T) Store {
		_, err := pool.Exec(ctx, `DROP TABLE IF EXISTS generations`)
		require.NoError(t, err)
		s := NewPostgresStore(pool)
		require.NoError(t, s.Migrate(ctx))
		return s
	})
}
