package promo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
)

// PostgresBook reads promo codes from the promo_codes table.
type PostgresBook struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresBook {
	return &PostgresBook{pool: pool}
}

func (b *PostgresBook) Lookup(ctx context.Context, code string) (domain.Promo, error) {
	const q = `
SELECT code, kind, value
FROM promo_codes
WHERE code = $1 AND active
`
	var p domain.Promo
	var kind string
	if err := b.pool.QueryRow(ctx, q, normalizeCode(code)).Scan(&p.Code, &kind, &p.Value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Promo{}, domain.ErrUnknownPromo
		}
		return domain.Promo{}, err
	}
	p.Kind = domain.PromoKind(kind)
	return p, nil
}

// Upsert inserts or reactivates a promo code.
func (b *PostgresBook) Upsert(ctx context.Context, p domain.Promo) error {
	const q = `
INSERT INTO promo_codes (code, kind, value, active)
VALUES ($1, $2, $3, TRUE)
ON CONFLICT (code) DO UPDATE
SET kind = EXCLUDED.kind,
    value = EXCLUDED.value,
    active = TRUE
`
	_, err := b.pool.Exec(ctx, q, normalizeCode(p.Code), string(p.Kind), p.Value)
	return err
}
