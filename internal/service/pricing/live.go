package pricing

import (
	"context"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/service/cart"
)

// CartSource feeds a Live summary.
type CartSource interface {
	Subtotal() int64
	Subscribe(fn cart.Listener) func()
}

// Live keeps a summary current with a cart and the applied promo code.
type Live struct {
	engine *Engine

	mu       sync.RWMutex
	promo    *domain.Promo
	subtotal int64
	current  domain.Summary

	unsubscribe func()
}

func NewLive(engine *Engine, src CartSource) *Live {
	l := &Live{engine: engine, subtotal: src.Subtotal()}
	l.current = engine.summary(l.subtotal, nil)
	l.unsubscribe = src.Subscribe(func(snap cart.Snapshot) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.subtotal = snap.Subtotal
		l.current = l.engine.summary(l.subtotal, l.promo)
	})
	return l
}

// SetPromo applies code; an empty code removes the promo. An unknown code
// leaves the applied promo unchanged.
func (l *Live) SetPromo(ctx context.Context, code string) (domain.Summary, error) {
	p, ok, err := l.engine.Promo(ctx, code)
	if err != nil {
		return l.Current(), err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if ok {
		l.promo = &p
	} else {
		l.promo = nil
	}
	l.current = l.engine.summary(l.subtotal, l.promo)
	return l.current, nil
}

func (l *Live) Current() domain.Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// For prices subtotal with the applied promo, independent of the tracked cart.
func (l *Live) For(subtotal int64) domain.Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.engine.summary(subtotal, l.promo)
}

func (l *Live) PromoCode() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.promo == nil {
		return ""
	}
	return l.promo.Code
}

func (l *Live) Close() {
	if l.unsubscribe != nil {
		l.unsubscribe()
	}
}
