package promo

import (
	"context"
	"strings"

	"storefront/internal/domain"
)

// Book resolves promo codes. Unknown codes yield domain.ErrUnknownPromo.
type Book interface {
	Lookup(ctx context.Context, code string) (domain.Promo, error)
}

type staticBook struct {
	promos map[string]domain.Promo
}

// NewStatic builds a Book from a fixed table; codes match case-insensitively.
func NewStatic(promos []domain.Promo) Book {
	m := make(map[string]domain.Promo, len(promos))
	for _, p := range promos {
		p.Code = normalizeCode(p.Code)
		m[p.Code] = p
	}
	return &staticBook{promos: m}
}

func (b *staticBook) Lookup(_ context.Context, code string) (domain.Promo, error) {
	p, ok := b.promos[normalizeCode(code)]
	if !ok {
		return domain.Promo{}, domain.ErrUnknownPromo
	}
	return p, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
