package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/repository/promo"
	"storefront/internal/repository/state"
	"storefront/internal/service/currency"
	"storefront/internal/service/delivery"
	"storefront/internal/service/pricing"
)

func newTestRegistry(t *testing.T, repo state.Repository) *Registry {
	t.Helper()
	cfg, err := config.LoadPricing("")
	require.NoError(t, err)
	return NewRegistry(Deps{
		Repo:     repo,
		Currency: currency.NewService(cfg, nil, repo, nil),
		Engine:   pricing.NewEngine(cfg, promo.NewStatic(cfg.PromoCodes), nil, nil),
		Resolver: delivery.NewResolver(cfg),
	}, time.Hour)
}

func TestRegistryReturnsSameShopper(t *testing.T) {
	reg := newTestRegistry(t, state.NewMemory())
	ctx := context.Background()

	var wg sync.WaitGroup
	got := make([]*Shopper, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sh, err := reg.Get(ctx, "sess")
			assert.NoError(t, err)
			got[i] = sh
		}(i)
	}
	wg.Wait()
	for _, sh := range got {
		assert.Same(t, got[0], sh)
	}
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryRehydratesAfterEviction(t *testing.T) {
	repo := state.NewMemory()
	reg := newTestRegistry(t, repo)
	ctx := context.Background()
	now := time.Now()
	reg.now = func() time.Time { return now }

	sh, err := reg.Get(ctx, "sess")
	require.NoError(t, err)
	_, err = sh.Cart.AddItem(ctx, domain.LineInput{ProductID: "p1", UnitPrice: 1000, Size: "M", Quantity: 3})
	require.NoError(t, err)
	sh.Wishlist.Add(ctx, domain.WishlistItem{ID: "p9", Price: 500})

	assert.Zero(t, reg.Evict())
	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, reg.Evict())
	assert.Zero(t, reg.Len())

	again, err := reg.Get(ctx, "sess")
	require.NoError(t, err)
	assert.NotSame(t, sh, again)
	assert.EqualValues(t, 3000, again.Cart.Subtotal())
	assert.True(t, again.Wishlist.Contains("p9"))
	assert.EqualValues(t, 3000, again.Summary.Current().Subtotal)
}

type contextAwareRepo struct {
	state.Repository
}

func (r contextAwareRepo) Load(ctx context.Context, ns, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.Repository.Load(ctx, ns, key)
}

func TestRegistryLoadIgnoresCallerCancellation(t *testing.T) {
	reg := newTestRegistry(t, contextAwareRepo{Repository: state.NewMemory()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sh, err := reg.Get(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, "sess", sh.ID)
	assert.Equal(t, 1, reg.Len())
}
