package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repository/state"
	"storefront/internal/service/cart"
)

func TestLiveTracksCartMutations(t *testing.T) {
	ctx := context.Background()
	c := cart.New("sess", state.NewMemory(), nil)
	live := NewLive(newTestEngine(t, &stubOrders{}), c)
	defer live.Close()

	assert.Equal(t, domain.Summary{}, live.Current())

	line, err := c.AddItem(ctx, domain.LineInput{ProductID: "p1", UnitPrice: 50000, Size: "M", Quantity: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 102200, live.Current().Total)

	require.NoError(t, c.UpdateQuantity(ctx, line.ID, 4))
	assert.EqualValues(t, 200000, live.Current().Total)
}

func TestLivePromo(t *testing.T) {
	ctx := context.Background()
	c := cart.New("sess", state.NewMemory(), nil)
	_, err := c.AddItem(ctx, domain.LineInput{ProductID: "p1", UnitPrice: 10000, Size: "M", Quantity: 1})
	require.NoError(t, err)
	live := NewLive(newTestEngine(t, &stubOrders{}), c)
	defer live.Close()

	s, err := live.SetPromo(ctx, "WELCOME10")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, s.Discount)

	_, err = live.SetPromo(ctx, "NOPE")
	assert.ErrorIs(t, err, domain.ErrUnknownPromo)
	assert.Equal(t, "WELCOME10", live.PromoCode())
	assert.EqualValues(t, 5000, live.For(50000).Discount)

	_, err = c.AddItem(ctx, domain.LineInput{ProductID: "p1", UnitPrice: 10000, Size: "M", Quantity: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2000, live.Current().Discount)

	s, err = live.SetPromo(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, s.Discount)
	assert.Empty(t, live.PromoCode())
}

func TestLiveCloseStopsUpdates(t *testing.T) {
	ctx := context.Background()
	c := cart.New("sess", state.NewMemory(), nil)
	live := NewLive(newTestEngine(t, &stubOrders{}), c)
	live.Close()

	_, err := c.AddItem(ctx, domain.LineInput{ProductID: "p1", UnitPrice: 10000, Size: "M", Quantity: 1})
	require.NoError(t, err)
	assert.Zero(t, live.Current().Subtotal)
}
