package wishlist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repository/state"
)

func TestAddIsIdempotent(t *testing.T) {
	s := New("sess", state.NewMemory(), nil)
	ctx := context.Background()

	assert.True(t, s.Add(ctx, domain.WishlistItem{ID: "p1", Name: "Dress", Price: 15000}))
	assert.False(t, s.Add(ctx, domain.WishlistItem{ID: "p1", Name: "Dress again", Price: 1}))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Dress", items[0].Name)
	assert.False(t, items[0].AddedAt.IsZero())
}

func TestAddRejectsEmptyID(t *testing.T) {
	s := New("sess", state.NewMemory(), nil)
	assert.False(t, s.Add(context.Background(), domain.WishlistItem{ID: "  "}))
	assert.Zero(t, s.Len())
}

func TestRemoveContainsClear(t *testing.T) {
	s := New("sess", state.NewMemory(), nil)
	ctx := context.Background()
	s.Add(ctx, domain.WishlistItem{ID: "p1"})
	s.Add(ctx, domain.WishlistItem{ID: "p2"})

	assert.True(t, s.Contains("p1"))
	assert.True(t, s.Remove(ctx, "p1"))
	assert.False(t, s.Remove(ctx, "p1"))
	assert.False(t, s.Contains("p1"))
	assert.True(t, s.Contains("p2"))

	s.Clear(ctx)
	assert.Zero(t, s.Len())
}

func TestPersistsIndependently(t *testing.T) {
	repo := state.NewMemory()
	ctx := context.Background()
	s := New("sess", repo, nil)
	s.Add(ctx, domain.WishlistItem{ID: "p1", Price: 100})
	s.Add(ctx, domain.WishlistItem{ID: "p2", Price: 200})
	s.Remove(ctx, "p1")

	restored := New("sess", repo, nil)
	require.NoError(t, restored.Hydrate(ctx))
	items := restored.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].ID)
	assert.Equal(t, int64(200), items[0].Price)

	_, err := repo.Load(ctx, "sess", "cart")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHydrateMalformedAndDuplicates(t *testing.T) {
	repo := state.NewMemory()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "a", StateKey, []byte(`"oops"`)))
	s := New("a", repo, nil)
	require.NoError(t, s.Hydrate(ctx))
	assert.Zero(t, s.Len())

	require.NoError(t, repo.Save(ctx, "b", StateKey, []byte(`[{"id":"p1"},{"id":"p1"},{"id":""}]`)))
	s = New("b", repo, nil)
	require.NoError(t, s.Hydrate(ctx))
	assert.Equal(t, 1, s.Len())
}

func TestSubscribe(t *testing.T) {
	s := New("sess", state.NewMemory(), nil)
	ctx := context.Background()
	var sizes []int
	s.Subscribe(func(items []domain.WishlistItem) { sizes = append(sizes, len(items)) })

	s.Add(ctx, domain.WishlistItem{ID: "p1"})
	s.Add(ctx, domain.WishlistItem{ID: "p1"})
	s.Add(ctx, domain.WishlistItem{ID: "p2"})
	s.Clear(ctx)
	assert.Equal(t, []int{1, 2, 0}, sizes)
}

func TestHydrateNotifiesSubscribers(t *testing.T) {
	repo := state.NewMemory()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, "sess", StateKey, []byte(`[{"id":"p1","price":100},{"id":"p2","price":200}]`)))

	s := New("sess", repo, nil)
	var got [][]domain.WishlistItem
	s.Subscribe(func(items []domain.WishlistItem) { got = append(got, items) })

	require.NoError(t, s.Hydrate(ctx))
	require.Len(t, got, 1)
	require.Len(t, got[0], 2)
	assert.Equal(t, "p2", got[0][1].ID)
}
