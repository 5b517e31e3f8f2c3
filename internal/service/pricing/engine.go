package pricing

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/observability"
	"storefront/internal/repository/promo"
	"storefront/internal/storeapi"
)

// OrderCreator is the order-creation endpoint.
type OrderCreator interface {
	CreateOrder(ctx context.Context, token, idempotencyKey string, draft domain.OrderDraft) (storeapi.OrderResult, error)
}

// Cart is the part of the cart store an order submission needs.
type Cart interface {
	Lines() []domain.LineItem
	RemoveOrdered(ctx context.Context, ordered []domain.LineItem)
}

// Engine computes order summaries and submits orders.
type Engine struct {
	pricing *config.Pricing
	promos  promo.Book
	orders  OrderCreator
	logger  *zap.Logger
}

func NewEngine(pricing *config.Pricing, promos promo.Book, orders OrderCreator, logger *zap.Logger) *Engine {
	return &Engine{
		pricing: pricing,
		promos:  promos,
		orders:  orders,
		logger:  observability.OrNop(logger).With(zap.String("component", "pricing")),
	}
}

// Promo resolves code. An empty code is not a promo and returns ok false.
func (e *Engine) Promo(ctx context.Context, code string) (domain.Promo, bool, error) {
	if strings.TrimSpace(code) == "" {
		return domain.Promo{}, false, nil
	}
	p, err := e.promos.Lookup(ctx, code)
	if err != nil {
		return domain.Promo{}, false, err
	}
	return p, true, nil
}

// Summarize prices subtotal with an optional promo code.
func (e *Engine) Summarize(ctx context.Context, subtotal int64, code string) (domain.Summary, error) {
	p, ok, err := e.Promo(ctx, code)
	if err != nil {
		return domain.Summary{}, err
	}
	if !ok {
		return e.summary(subtotal, nil), nil
	}
	return e.summary(subtotal, &p), nil
}

// Shipping is the flat fee, waived at or above the free-shipping threshold.
// An empty cart ships nothing.
func (e *Engine) Shipping(subtotal int64) int64 {
	if subtotal <= 0 || subtotal >= e.pricing.FreeShipping.DomesticThreshold {
		return 0
	}
	return e.pricing.FlatShippingFee
}

// Total is subtotal - discount + shipping, floored at zero.
func Total(subtotal, discount, shipping int64) int64 {
	total := subtotal - discount + shipping
	if total < 0 {
		return 0
	}
	return total
}

func (e *Engine) summary(subtotal int64, p *domain.Promo) domain.Summary {
	s := domain.Summary{Subtotal: subtotal, Shipping: e.Shipping(subtotal)}
	if p != nil {
		s.Discount = p.Discount(subtotal)
		s.PromoCode = p.Code
	}
	s.Total = Total(s.Subtotal, s.Discount, s.Shipping)
	return s
}

// SubmitOrder posts lines, a snapshot of c, with draft's shipping and payment
// data. Once the server accepts the order exactly those lines are taken out of
// c; anything added meanwhile stays in the cart.
func (e *Engine) SubmitOrder(ctx context.Context, c Cart, lines []domain.LineItem, draft domain.OrderDraft, token, idempotencyKey string) (storeapi.OrderResult, error) {
	if len(lines) == 0 {
		return storeapi.OrderResult{}, domain.ErrEmptyCart
	}
	draft.Items = OrderItems(lines)

	res, err := e.orders.CreateOrder(ctx, token, idempotencyKey, draft)
	if err != nil {
		e.logger.Info("order rejected", zap.String("idempotency_key", idempotencyKey), zap.Error(err))
		return storeapi.OrderResult{}, err
	}
	c.RemoveOrdered(ctx, lines)
	e.logger.Info("order placed", zap.String("order_number", res.OrderNumber), zap.Int("lines", len(lines)))
	return res, nil
}

// OrderItems projects cart lines for the order endpoint; prices are omitted.
func OrderItems(lines []domain.LineItem) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{
			Product:  l.ProductID,
			Quantity: l.Quantity,
			Color:    l.Color,
			Size:     l.Size,
		})
	}
	return items
}
