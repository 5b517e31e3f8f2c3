package state

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgres stores documents in the session_state table.
func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Load(ctx context.Context, namespace, key string) ([]byte, error) {
	const q = `
SELECT value::text
FROM session_state
WHERE namespace = $1 AND key = $2
`
	var value string
	if err := r.pool.QueryRow(ctx, q, namespace, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return []byte(value), nil
}

func (r *postgresRepo) Save(ctx context.Context, namespace, key string, value []byte) error {
	const q = `
INSERT INTO session_state (namespace, key, value, updated_at)
VALUES ($1, $2, $3::jsonb, now())
ON CONFLICT (namespace, key) DO UPDATE
SET value = EXCLUDED.value,
    updated_at = EXCLUDED.updated_at
`
	_, err := r.pool.Exec(ctx, q, namespace, key, string(value))
	return err
}

func (r *postgresRepo) Delete(ctx context.Context, namespace, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM session_state WHERE namespace = $1 AND key = $2`, namespace, key)
	return err
}
