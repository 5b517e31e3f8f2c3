package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
	"storefront/internal/domain"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	pricing, err := config.LoadPricing("")
	require.NoError(t, err)
	return NewResolver(pricing)
}

func keys(opts []domain.DeliveryOption) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Key)
	}
	return out
}

func TestOptionsFilteredByCountry(t *testing.T) {
	r := newTestResolver(t)

	assert.Equal(t, []string{"kazpost", "courier", "dhl_express"}, keys(r.Options("kz")))
	assert.Equal(t, []string{"dhl_express"}, keys(r.Options("DE")))
	assert.Empty(t, r.Options(""))
}

func TestNoOptionsForUnservedCountry(t *testing.T) {
	pricing, err := config.LoadPricing("")
	require.NoError(t, err)
	pricing.Delivery = pricing.Delivery[:2]
	r := NewResolver(pricing)

	_, err = r.Quote("DE", 1000)
	assert.ErrorIs(t, err, domain.ErrNoDeliveryOptions)
}

func TestDomesticFreeShippingThreshold(t *testing.T) {
	r := newTestResolver(t)

	assert.False(t, r.FreeShipping("KZ", 199999))
	assert.True(t, r.FreeShipping("KZ", 200000))
}

func TestForeignFreeShippingUsesConvertedReference(t *testing.T) {
	r := newTestResolver(t)

	// 400 USD at the 500 reference rate.
	assert.False(t, r.FreeShipping("DE", 199999))
	assert.True(t, r.FreeShipping("DE", 200000))
}

func TestBasePriceNormalizesForeignCurrency(t *testing.T) {
	r := newTestResolver(t)

	dhl, ok := r.Option("dhl_express")
	require.True(t, ok)
	assert.EqualValues(t, 19500, r.BasePrice(dhl))

	kazpost, ok := r.Option("kazpost")
	require.True(t, ok)
	assert.EqualValues(t, 2200, r.BasePrice(kazpost))
}

func TestQuoteChargesZeroWhenFree(t *testing.T) {
	r := newTestResolver(t)

	quotes, err := r.Quote("KZ", 250000)
	require.NoError(t, err)
	for _, q := range quotes {
		assert.True(t, q.Free)
		assert.Zero(t, q.Charged)
		assert.Positive(t, q.BasePrice)
	}

	quotes, err = r.Quote("KZ", 1000)
	require.NoError(t, err)
	assert.EqualValues(t, 2200, quotes[0].Charged)
}

func TestQuoteFor(t *testing.T) {
	r := newTestResolver(t)

	q, err := r.QuoteFor("DE", "dhl_express", 1000)
	require.NoError(t, err)
	assert.EqualValues(t, 19500, q.Charged)

	_, err = r.QuoteFor("DE", "courier", 1000)
	assert.ErrorIs(t, err, domain.ErrDeliveryNotEligible)

	_, err = r.QuoteFor("KZ", "pigeon", 1000)
	assert.True(t, domain.IsValidation(err))
}
