package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/observability"
)

// PromoWriter stores promo codes.
type PromoWriter interface {
	Upsert(ctx context.Context, p domain.Promo) error
}

// Apply upserts every promo code and returns how many were written. It is
// idempotent.
func Apply(ctx context.Context, w PromoWriter, promos []domain.Promo, logger *zap.Logger) (int, error) {
	logger = observability.OrNop(logger)
	n := 0
	for _, p := range promos {
		if err := w.Upsert(ctx, p); err != nil {
			return n, fmt.Errorf("upsert promo %s: %w", p.Code, err)
		}
		logger.Info("promo code seeded", zap.String("code", p.Code), zap.String("kind", string(p.Kind)), zap.Int64("value", p.Value))
		n++
	}
	return n, nil
}
