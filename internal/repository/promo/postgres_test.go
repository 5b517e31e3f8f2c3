package promo

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

func TestPostgres_UpsertAndLookup(t *testing.T) {
	ctx := context.Background()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, migrate.Apply(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE promo_codes`)
	require.NoError(t, err)

	book := NewPostgres(pool)
	require.NoError(t, book.Upsert(ctx, domain.Promo{Code: "spring", Kind: domain.PromoPercentage, Value: 15}))

	got, err := book.Lookup(ctx, "SPRING")
	require.NoError(t, err)
	assert.Equal(t, domain.Promo{Code: "SPRING", Kind: domain.PromoPercentage, Value: 15}, got)

	_, err = pool.Exec(ctx, `UPDATE promo_codes SET active = FALSE WHERE code = 'SPRING'`)
	require.NoError(t, err)
	_, err = book.Lookup(ctx, "spring")
	assert.ErrorIs(t, err, domain.ErrUnknownPromo)
}
