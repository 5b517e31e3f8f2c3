package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/geoip"
	"storefront/internal/repository/promo"
	"storefront/internal/repository/state"
	"storefront/internal/service/cart"
	"storefront/internal/service/delivery"
	"storefront/internal/service/pricing"
	"storefront/internal/storeapi"
)

type stubOrders struct {
	mu      sync.Mutex
	drafts  []domain.OrderDraft
	keys    []string
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *stubOrders) CreateOrder(_ context.Context, _, key string, draft domain.OrderDraft) (storeapi.OrderResult, error) {
	if s.started != nil {
		s.started <- struct{}{}
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts = append(s.drafts, draft)
	s.keys = append(s.keys, key)
	if s.err != nil {
		return storeapi.OrderResult{}, s.err
	}
	return storeapi.OrderResult{OrderNumber: fmt.Sprintf("ORD-%d", len(s.drafts))}, nil
}

type stubLocator struct {
	loc geoip.Location
	err error
}

func (s stubLocator) Lookup(context.Context, string) (geoip.Location, error) { return s.loc, s.err }

type stubProfiles struct {
	profile storeapi.Profile
	err     error
}

func (s stubProfiles) GetProfile(context.Context, string) (storeapi.Profile, error) {
	return s.profile, s.err
}

type fixture struct {
	flow   *Flow
	cart   *cart.Store
	live   *pricing.Live
	orders *stubOrders
}

func newFixture(t *testing.T, orders *stubOrders) *fixture {
	t.Helper()
	cfg, err := config.LoadPricing("")
	require.NoError(t, err)
	c := cart.New("sess", state.NewMemory(), nil)
	engine := pricing.NewEngine(cfg, promo.NewStatic(cfg.PromoCodes), orders, nil)
	live := pricing.NewLive(engine, c)
	t.Cleanup(live.Close)

	flow := New(Deps{
		Cart:      c,
		Summaries: live,
		Resolver:  delivery.NewResolver(cfg),
		Submitter: engine,
		Locator:   stubLocator{err: errors.New("offline")},
		Profiles:  stubProfiles{err: errors.New("offline")},
	})
	n := 0
	flow.newKey = func() string {
		n++
		return fmt.Sprintf("key-%d", n)
	}
	return &fixture{flow: flow, cart: c, live: live, orders: orders}
}

func (fx *fixture) fillCart(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := fx.cart.AddItem(ctx, domain.LineInput{ProductID: "p1", UnitPrice: 15000, Color: "black", Size: "S", Quantity: 2})
	require.NoError(t, err)
	_, err = fx.cart.AddItem(ctx, domain.LineInput{ProductID: "p2", UnitPrice: 8000, Color: "white", Size: "M", Quantity: 1})
	require.NoError(t, err)
}

func almaty() domain.ShippingAddress {
	return domain.ShippingAddress{
		Country:    "KZ",
		City:       "Almaty",
		Address:    "Abaya 10",
		PostalCode: "050000",
		FullName:   "Aigerim S",
		Phone:      "+77001234567",
	}
}

func (fx *fixture) toPayment(t *testing.T, addr domain.ShippingAddress, key string) {
	t.Helper()
	_, err := fx.flow.SetAddress(addr)
	require.NoError(t, err)
	_, err = fx.flow.SelectDelivery(key)
	require.NoError(t, err)
	_, err = fx.flow.SelectPayment(domain.PaymentCard, " ring the bell ")
	require.NoError(t, err)
}

func TestCheckoutRoundTrip(t *testing.T) {
	fx := newFixture(t, &stubOrders{})
	fx.fillCart(t)
	fx.toPayment(t, almaty(), "kazpost")

	v, err := fx.flow.Submit(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, v.State)
	assert.Equal(t, "ORD-1", v.OrderNumber)
	assert.Zero(t, fx.cart.LineCount())

	require.Len(t, fx.orders.drafts, 1)
	draft := fx.orders.drafts[0]
	assert.EqualValues(t, 38000+2200, draft.TotalAmount)
	assert.EqualValues(t, 2200, draft.DeliveryPrice)
	assert.Equal(t, "kazpost", draft.DeliveryType)
	assert.Equal(t, "ring the bell", draft.Notes)
	assert.Len(t, draft.Items, 2)
	assert.Equal(t, "key-1", fx.orders.keys[0])
}

func TestAddressStepRequiresAllFields(t *testing.T) {
	fx := newFixture(t, &stubOrders{})
	fx.fillCart(t)

	addr := almaty()
	addr.Phone = " "
	v, err := fx.flow.SetAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, StateAddressEntry, v.State)
	assert.Equal(t, []string{"phone"}, v.MissingFields)

	_, err = fx.flow.SelectDelivery("kazpost")
	assert.True(t, domain.IsValidation(err))
}

func TestCountryChangeResetsDelivery(t *testing.T) {
	fx := newFixture(t, &stubOrders{})
	fx.fillCart(t)
	fx.toPayment(t, almaty(), "courier")

	addr := almaty()
	addr.Country = "de"
	v, err := fx.flow.SetAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, StateDeliverySelection, v.State)
	assert.Nil(t, v.SelectedDelivery)
	require.Len(t, v.DeliveryOptions, 1)
	assert.Equal(t, "dhl_express", v.DeliveryOptions[0].Key)

	_, err = fx.flow.SelectDelivery("courier")
	assert.ErrorIs(t, err, domain.ErrDeliveryNotEligible)
}

func TestSameCountryKeepsDelivery(t *testing.T) {
	fx := newFixture(t, &stubOrders{})
	fx.fillCart(t)
	fx.toPayment(t, almaty(), "courier")

	addr := almaty()
	addr.City = "Astana"
	v, err := fx.flow.SetAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, StatePaymentSelection, v.State)
	require.NotNil(t, v.SelectedDelivery)
	assert.Equal(t, "courier", v.SelectedDelivery.Key)
}

func TestNoDeliveryOptionsIsExplicit(t *testing.T) {
	cfg, err := config.LoadPricing("")
	require.NoError(t, err)
	cfg.Delivery = cfg.Delivery[:2]
	c := cart.New("sess", state.NewMemory(), nil)
	engine := pricing.NewEngine(cfg, promo.NewStatic(nil), &stubOrders{}, nil)
	live := pricing.NewLive(engine, c)
	defer live.Close()
	flow := New(Deps{Cart: c, Summaries: live, Resolver: delivery.NewResolver(cfg), Submitter: engine})

	addr := almaty()
	addr.Country = "DE"
	v, err := flow.SetAddress(addr)
	assert.ErrorIs(t, err, domain.ErrNoDeliveryOptions)
	assert.Equal(t, StateAddressEntry, v.State)
	assert.Empty(t, v.DeliveryOptions)
}

func TestForeignDeliveryNormalizedToBase(t *testing.T) {
	fx := newFixture(t, &stubOrders{})
	fx.fillCart(t)
	addr := almaty()
	addr.Country = "DE"
	fx.toPayment(t, addr, "dhl_express")

	draft, err := fx.flow.Draft()
	require.NoError(t, err)
	assert.EqualValues(t, 19500, draft.DeliveryPrice)
	assert.EqualValues(t, 38000+19500, draft.TotalAmount)
}

func TestFreeShippingZeroesDelivery(t *testing.T) {
	fx := newFixture(t, &stubOrders{})
	_, err := fx.cart.AddItem(context.Background(), domain.LineInput{ProductID: "coat", UnitPrice: 200000, Size: "L", Quantity: 1})
	require.NoError(t, err)
	fx.toPayment(t, almaty(), "courier")

	v := fx.flow.View()
	for _, q := range v.DeliveryOptions {
		assert.Zero(t, q.Charged)
	}
	assert.EqualValues(t, 200000, v.Summary.Total)
}

func TestPromoForwardedWithDraft(t *testing.T) {
	fx := newFixture(t, &stubOrders{})
	fx.fillCart(t)
	_, err := fx.live.SetPromo(context.Background(), "WELCOME10")
	require.NoError(t, err)
	fx.toPayment(t, almaty(), "kazpost")

	draft, err := fx.flow.Draft()
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", draft.PromoCode)
	assert.EqualValues(t, 38000-3800+2200, draft.TotalAmount)
}

func TestFailedSubmissionPreservesInput(t *testing.T) {
	orders := &stubOrders{err: &storeapi.APIError{Status: 400, Message: "Product p2 is out of stock"}}
	fx := newFixture(t, orders)
	fx.fillCart(t)
	fx.toPayment(t, almaty(), "kazpost")

	v, err := fx.flow.Submit(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, StatePaymentSelection, v.State)
	assert.Equal(t, "Product p2 is out of stock", v.LastError)
	assert.Equal(t, almaty(), v.Address)
	assert.Equal(t, domain.PaymentCard, v.PaymentMethod)
	assert.Equal(t, 2, fx.cart.LineCount())

	orders.err = nil
	v, err = fx.flow.Submit(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, v.State)
	assert.Empty(t, v.LastError)
	assert.Equal(t, []string{"key-1", "key-2"}, orders.keys)
}

func TestSessionExpiredSurfaced(t *testing.T) {
	fx := newFixture(t, &stubOrders{err: domain.ErrSessionExpired})
	fx.fillCart(t)
	fx.toPayment(t, almaty(), "kazpost")

	v, err := fx.flow.Submit(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
	assert.Equal(t, "session expired", v.LastError)
}

func TestConcurrentSubmitRejected(t *testing.T) {
	orders := &stubOrders{started: make(chan struct{}), release: make(chan struct{})}
	fx := newFixture(t, orders)
	fx.fillCart(t)
	fx.toPayment(t, almaty(), "kazpost")

	done := make(chan error, 1)
	go func() {
		_, err := fx.flow.Submit(context.Background(), "tok")
		done <- err
	}()
	<-orders.started

	v, err := fx.flow.Submit(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrSubmitInFlight)
	assert.Equal(t, StateSubmitting, v.State)
	_, err = fx.flow.SetAddress(almaty())
	assert.ErrorIs(t, err, domain.ErrSubmitInFlight)

	close(orders.release)
	require.NoError(t, <-done)
	assert.Len(t, orders.drafts, 1)
}

func TestCartChangesDuringSubmitStayInCart(t *testing.T) {
	orders := &stubOrders{started: make(chan struct{}), release: make(chan struct{})}
	fx := newFixture(t, orders)
	fx.fillCart(t)
	fx.toPayment(t, almaty(), "kazpost")
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := fx.flow.Submit(ctx, "tok")
		done <- err
	}()
	<-orders.started

	_, err := fx.cart.AddItem(ctx, domain.LineInput{ProductID: "p3", UnitPrice: 5000, Color: "red", Size: "L", Quantity: 1})
	require.NoError(t, err)
	_, err = fx.cart.AddItem(ctx, domain.LineInput{ProductID: "p1", UnitPrice: 15000, Color: "black", Size: "S", Quantity: 1})
	require.NoError(t, err)

	close(orders.release)
	require.NoError(t, <-done)

	require.Len(t, orders.drafts, 1)
	draft := orders.drafts[0]
	assert.Equal(t, []domain.OrderItem{
		{Product: "p1", Quantity: 2, Color: "black", Size: "S"},
		{Product: "p2", Quantity: 1, Color: "white", Size: "M"},
	}, draft.Items)
	assert.EqualValues(t, 38000+2200, draft.TotalAmount)

	lines := fx.cart.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, "p3", lines[1].ProductID)
	assert.EqualValues(t, 20000, fx.cart.Subtotal())
}

func TestSubmitOutOfOrder(t *testing.T) {
	fx := newFixture(t, &stubOrders{})
	fx.fillCart(t)

	_, err := fx.flow.Submit(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = fx.flow.SelectPayment(domain.PaymentCash, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestInvalidPaymentMethod(t *testing.T) {
	fx := newFixture(t, &stubOrders{})
	fx.fillCart(t)
	_, err := fx.flow.SetAddress(almaty())
	require.NoError(t, err)
	_, err = fx.flow.SelectDelivery("kazpost")
	require.NoError(t, err)

	_, err = fx.flow.SelectPayment("crypto", "")
	assert.True(t, domain.IsValidation(err))
}

func TestPrefillFillsOnlyEmptyFields(t *testing.T) {
	fx := newFixture(t, &stubOrders{})
	fx.flow.deps.Locator = stubLocator{loc: geoip.Location{CountryCode: "KZ", City: "Shymkent", PostalCode: "160000"}}
	fx.flow.deps.Profiles = stubProfiles{profile: storeapi.Profile{FullName: "Aigerim S", Phone: "+7700", City: "Almaty"}}

	_, err := fx.flow.SetAddress(domain.ShippingAddress{Address: "Abaya 10"})
	require.NoError(t, err)
	v := fx.flow.Prefill(context.Background(), "8.8.8.8", "tok")

	assert.Equal(t, domain.ShippingAddress{
		Country:    "KZ",
		City:       "Almaty",
		Address:    "Abaya 10",
		PostalCode: "160000",
		FullName:   "Aigerim S",
		Phone:      "+7700",
	}, v.Address)
	assert.Equal(t, StateDeliverySelection, v.State)
}

func TestPrefillFailuresAreSilent(t *testing.T) {
	fx := newFixture(t, &stubOrders{})
	v := fx.flow.Prefill(context.Background(), "8.8.8.8", "tok")
	assert.Equal(t, StateAddressEntry, v.State)
	assert.Equal(t, domain.ShippingAddress{}, v.Address)
}
