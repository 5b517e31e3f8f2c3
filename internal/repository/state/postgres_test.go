package state

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/migrate"
)

func TestPostgres_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	require.NoError(t, migrate.Apply(ctx, pool))
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool)
	_, err := repo.Load(ctx, "s1", "cart")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Save(ctx, "s1", "cart", []byte(`[{"id":"a","quantity":1}]`)))
	require.NoError(t, repo.Save(ctx, "s1", "cart", []byte(`[{"id":"a","quantity":3}]`)))

	got, err := repo.Load(ctx, "s1", "cart")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a","quantity":3}]`, string(got))

	require.NoError(t, repo.Delete(ctx, "s1", "cart"))
	_, err = repo.Load(ctx, "s1", "cart")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE session_state`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
