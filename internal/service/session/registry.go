package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"storefront/internal/observability"
	"storefront/internal/repository/state"
	"storefront/internal/service/cart"
	"storefront/internal/service/catalog"
	"storefront/internal/service/checkout"
	"storefront/internal/service/currency"
	"storefront/internal/service/delivery"
	"storefront/internal/service/pricing"
	"storefront/internal/service/wishlist"
)

// buildTimeout bounds loading a shopper. The load is shared by concurrent
// callers, so it does not follow any one request's cancellation.
const buildTimeout = 15 * time.Second

// Shopper bundles one session's stores and flows.
type Shopper struct {
	ID       string
	Cart     *cart.Store
	Wishlist *wishlist.Store
	Currency *currency.Converter
	Summary  *pricing.Live
	Checkout *checkout.Flow
	Feed     *catalog.Feed

	lastSeen atomic.Int64
}

func (s *Shopper) close() {
	s.Summary.Close()
	s.Feed.Close()
}

// Deps are the process-wide collaborators shared by all shoppers.
type Deps struct {
	Repo         state.Repository
	Currency     *currency.Service
	Engine       *pricing.Engine
	Resolver     *delivery.Resolver
	Locator      checkout.Locator
	Profiles     checkout.Profiles
	Products     catalog.Lister
	Debounce     time.Duration
	FetchTimeout time.Duration
	Logger       *zap.Logger
}

// Registry lazily builds shoppers and evicts idle ones. Evicted shoppers are
// rebuilt from persisted state on next access.
type Registry struct {
	deps    Deps
	idleTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	shoppers map[string]*Shopper
}

func NewRegistry(deps Deps, idleTTL time.Duration) *Registry {
	if idleTTL <= 0 {
		idleTTL = 2 * time.Hour
	}
	return &Registry{
		deps:     deps,
		idleTTL:  idleTTL,
		logger:   observability.OrNop(deps.Logger).With(zap.String("component", "session_registry")),
		now:      time.Now,
		shoppers: make(map[string]*Shopper),
	}
}

func (r *Registry) Get(ctx context.Context, sessionID string) (*Shopper, error) {
	r.mu.RLock()
	sh, ok := r.shoppers[sessionID]
	r.mu.RUnlock()
	if ok {
		sh.lastSeen.Store(r.now().UnixNano())
		return sh, nil
	}

	v, err, _ := r.group.Do(sessionID, func() (interface{}, error) {
		r.mu.RLock()
		existing, ok := r.shoppers[sessionID]
		r.mu.RUnlock()
		if ok {
			return existing, nil
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), buildTimeout)
		defer cancel()
		built, err := r.build(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.shoppers[sessionID] = built
		r.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	sh = v.(*Shopper)
	sh.lastSeen.Store(r.now().UnixNano())
	return sh, nil
}

func (r *Registry) build(ctx context.Context, id string) (*Shopper, error) {
	d := r.deps
	c := cart.New(id, d.Repo, d.Logger)
	if err := c.Hydrate(ctx); err != nil {
		return nil, err
	}
	w := wishlist.New(id, d.Repo, d.Logger)
	if err := w.Hydrate(ctx); err != nil {
		return nil, err
	}
	conv := d.Currency.NewConverter(id, d.Repo)
	if err := conv.Hydrate(ctx); err != nil {
		return nil, err
	}
	live := pricing.NewLive(d.Engine, c)
	flow := checkout.New(checkout.Deps{
		Cart:      c,
		Summaries: live,
		Resolver:  d.Resolver,
		Submitter: d.Engine,
		Locator:   d.Locator,
		Profiles:  d.Profiles,
		Logger:    r.logger.With(zap.String("session", id)),
	})
	r.logger.Debug("shopper loaded", zap.String("session", id), zap.Int("lines", c.LineCount()))
	return &Shopper{
		ID:       id,
		Cart:     c,
		Wishlist: w,
		Currency: conv,
		Summary:  live,
		Checkout: flow,
		Feed:     catalog.NewFeed(d.Products, d.Debounce, d.FetchTimeout, d.Logger),
	}, nil
}

// Evict drops shoppers idle longer than the idle TTL and returns how many were removed.
func (r *Registry) Evict() int {
	cutoff := r.now().Add(-r.idleTTL).UnixNano()
	var idle []*Shopper
	r.mu.Lock()
	for id, sh := range r.shoppers {
		if sh.lastSeen.Load() < cutoff {
			delete(r.shoppers, id)
			idle = append(idle, sh)
		}
	}
	r.mu.Unlock()
	for _, sh := range idle {
		sh.close()
	}
	return len(idle)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shoppers)
}

// Run evicts idle shoppers periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	interval := r.idleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(); n > 0 {
				r.logger.Info("evicted idle shoppers", zap.Int("count", n), zap.Int("active", r.Len()))
			}
		}
	}
}
