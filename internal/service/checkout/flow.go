package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/geoip"
	"storefront/internal/observability"
	"storefront/internal/service/delivery"
	"storefront/internal/service/pricing"
	"storefront/internal/storeapi"
)

// State is a step of the checkout flow.
type State string

const (
	StateAddressEntry      State = "address_entry"
	StateDeliverySelection State = "delivery_selection"
	StatePaymentSelection  State = "payment_selection"
	StateSubmitting        State = "submitting"
	StateSuccess           State = "success"
	// StateFailed is transient: a failed submission returns to StatePaymentSelection.
	StateFailed State = "failed"
)

// Cart is the cart store as seen by checkout.
type Cart interface {
	pricing.Cart
	Subtotal() int64
}

// Summaries yields cart summaries including any applied promo.
type Summaries interface {
	Current() domain.Summary
	For(subtotal int64) domain.Summary
}

// Submitter places orders and removes the ordered lines from the cart on success.
type Submitter interface {
	SubmitOrder(ctx context.Context, c pricing.Cart, lines []domain.LineItem, draft domain.OrderDraft, token, idempotencyKey string) (storeapi.OrderResult, error)
}

type Locator interface {
	Lookup(ctx context.Context, ip string) (geoip.Location, error)
}

type Profiles interface {
	GetProfile(ctx context.Context, token string) (storeapi.Profile, error)
}

// Deps groups the collaborators of a Flow.
type Deps struct {
	Cart      Cart
	Summaries Summaries
	Resolver  *delivery.Resolver
	Submitter Submitter
	Locator   Locator
	Profiles  Profiles
	Logger    *zap.Logger
}

// View is a read-only rendering of the flow.
type View struct {
	State            State                  `json:"state"`
	Address          domain.ShippingAddress `json:"shippingAddress"`
	MissingFields    []string               `json:"missingFields,omitempty"`
	DeliveryOptions  []delivery.Quote       `json:"deliveryOptions"`
	SelectedDelivery *delivery.Quote        `json:"selectedDelivery,omitempty"`
	PaymentMethod    domain.PaymentMethod   `json:"paymentMethod,omitempty"`
	Notes            string                 `json:"notes,omitempty"`
	Summary          domain.Summary         `json:"summary"`
	OrderNumber      string                 `json:"orderNumber,omitempty"`
	LastError        string                 `json:"lastError,omitempty"`
}

// Flow is one shopper's checkout.
type Flow struct {
	deps   Deps
	logger *zap.Logger
	newKey func() string

	mu          sync.Mutex
	state       State
	address     domain.ShippingAddress
	deliveryKey string
	payment     domain.PaymentMethod
	notes       string
	orderNumber string
	lastError   string
	inFlight    bool
}

func New(deps Deps) *Flow {
	return &Flow{
		deps:   deps,
		logger: observability.OrNop(deps.Logger).With(zap.String("component", "checkout")),
		newKey: uuid.NewString,
		state:  StateAddressEntry,
	}
}

// Prefill fills empty address fields from the shopper's profile and a geo-IP
// lookup of clientIP. Lookup failures are logged and otherwise ignored.
func (f *Flow) Prefill(ctx context.Context, clientIP, token string) View {
	f.mu.Lock()
	if f.state == StateSuccess {
		f.resetLocked()
	}
	f.mu.Unlock()

	var fromProfile, fromGeo domain.ShippingAddress
	if token != "" && f.deps.Profiles != nil {
		p, err := f.deps.Profiles.GetProfile(ctx, token)
		if err != nil {
			f.logger.Warn("profile prefill failed", zap.Error(err))
		} else {
			fromProfile = domain.ShippingAddress{
				Country:    p.Country,
				City:       p.City,
				Address:    p.Address,
				PostalCode: p.PostalCode,
				FullName:   p.FullName,
				Phone:      p.Phone,
			}
		}
	}
	if clientIP != "" && f.deps.Locator != nil {
		loc, err := f.deps.Locator.Lookup(ctx, clientIP)
		if err != nil {
			f.logger.Warn("geoip prefill failed", zap.String("ip", clientIP), zap.Error(err))
		} else {
			fromGeo = domain.ShippingAddress{Country: loc.CountryCode, City: loc.City, PostalCode: loc.PostalCode}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return f.viewLocked()
	}
	addr := f.address
	fillEmpty(&addr, fromProfile)
	fillEmpty(&addr, fromGeo)
	f.applyAddressLocked(addr)
	return f.viewLocked()
}

// SetAddress replaces the shipping address. A new destination country clears
// the chosen delivery option. With a complete address and no carrier serving
// the country, ErrNoDeliveryOptions is returned.
func (f *Flow) SetAddress(addr domain.ShippingAddress) (View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return f.viewLocked(), domain.ErrSubmitInFlight
	}
	if f.state == StateSuccess {
		f.resetLocked()
	}
	f.applyAddressLocked(addr)
	if f.address.Complete() && len(f.deps.Resolver.Options(f.address.Country)) == 0 {
		return f.viewLocked(), domain.ErrNoDeliveryOptions
	}
	return f.viewLocked(), nil
}

// SelectDelivery chooses a carrier eligible for the destination.
func (f *Flow) SelectDelivery(key string) (View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return f.viewLocked(), domain.ErrSubmitInFlight
	}
	if missing := f.address.MissingFields(); len(missing) > 0 {
		return f.viewLocked(), domain.NewValidationError("shippingAddress", "missing "+strings.Join(missing, ", "))
	}
	if _, err := f.deps.Resolver.QuoteFor(f.address.Country, key, f.deps.Cart.Subtotal()); err != nil {
		return f.viewLocked(), err
	}
	f.deliveryKey = key
	f.state = StatePaymentSelection
	return f.viewLocked(), nil
}

// SelectPayment records the payment method and optional notes.
func (f *Flow) SelectPayment(method domain.PaymentMethod, notes string) (View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return f.viewLocked(), domain.ErrSubmitInFlight
	}
	if f.state != StatePaymentSelection {
		return f.viewLocked(), domain.ErrInvalidState
	}
	if !method.Valid() {
		return f.viewLocked(), domain.NewValidationError("paymentMethod", "must be card, cash or bank_transfer")
	}
	f.payment = method
	f.notes = strings.TrimSpace(notes)
	return f.viewLocked(), nil
}

// Draft builds the order payload from the current cart and checkout input.
func (f *Flow) Draft() (domain.OrderDraft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	draft, _, err := f.draftLocked()
	return draft, err
}

// Submit places the order. Only one submission may be in flight; each attempt
// carries a fresh idempotency key. On failure the flow returns to payment
// selection with the server message and all input preserved.
func (f *Flow) Submit(ctx context.Context, token string) (View, error) {
	f.mu.Lock()
	if f.inFlight {
		v := f.viewLocked()
		f.mu.Unlock()
		return v, domain.ErrSubmitInFlight
	}
	if f.state != StatePaymentSelection || f.payment == "" {
		v := f.viewLocked()
		f.mu.Unlock()
		return v, domain.ErrInvalidState
	}
	draft, lines, err := f.draftLocked()
	if err != nil {
		v := f.viewLocked()
		f.mu.Unlock()
		return v, err
	}
	f.inFlight = true
	f.state = StateSubmitting
	f.lastError = ""
	f.mu.Unlock()

	key := f.newKey()
	res, err := f.deps.Submitter.SubmitOrder(ctx, f.deps.Cart, lines, draft, token, key)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	if err != nil {
		f.lastError = err.Error()
		f.logger.Info("checkout submission failed", zap.String("idempotency_key", key), zap.String("state", string(StateFailed)), zap.Error(err))
		f.state = StatePaymentSelection
		return f.viewLocked(), err
	}
	f.state = StateSuccess
	f.orderNumber = res.OrderNumber
	f.deliveryKey = ""
	f.payment = ""
	f.notes = ""
	return f.viewLocked(), nil
}

func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewLocked()
}

// Reset abandons the checkout unless a submission is in flight.
func (f *Flow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return domain.ErrSubmitInFlight
	}
	f.resetLocked()
	return nil
}

func (f *Flow) resetLocked() {
	f.state = StateAddressEntry
	f.address = domain.ShippingAddress{}
	f.deliveryKey = ""
	f.payment = ""
	f.notes = ""
	f.orderNumber = ""
	f.lastError = ""
}

func (f *Flow) applyAddressLocked(addr domain.ShippingAddress) {
	addr = normalizeAddress(addr)
	if addr.Country != f.address.Country {
		f.deliveryKey = ""
	}
	f.address = addr
	switch {
	case !addr.Complete() || len(f.deps.Resolver.Options(addr.Country)) == 0:
		f.state = StateAddressEntry
	case f.deliveryKey == "":
		f.state = StateDeliverySelection
	default:
		f.state = StatePaymentSelection
	}
}

func (f *Flow) quoteLocked() (*delivery.Quote, error) {
	return f.quoteForLocked(f.deps.Cart.Subtotal())
}

func (f *Flow) quoteForLocked(subtotal int64) (*delivery.Quote, error) {
	if f.deliveryKey == "" {
		return nil, nil
	}
	q, err := f.deps.Resolver.QuoteFor(f.address.Country, f.deliveryKey, subtotal)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// draftLocked prices one snapshot of the cart lines so items, delivery and
// total agree with each other.
func (f *Flow) draftLocked() (domain.OrderDraft, []domain.LineItem, error) {
	lines := f.deps.Cart.Lines()
	if len(lines) == 0 {
		return domain.OrderDraft{}, nil, domain.ErrEmptyCart
	}
	subtotal := domain.Subtotal(lines)
	q, err := f.quoteForLocked(subtotal)
	if err != nil {
		return domain.OrderDraft{}, nil, err
	}
	if q == nil || f.payment == "" {
		return domain.OrderDraft{}, nil, domain.ErrInvalidState
	}
	summary := withDelivery(f.deps.Summaries.For(subtotal), q)
	return domain.OrderDraft{
		Items:         pricing.OrderItems(lines),
		Address:       f.address,
		PaymentMethod: f.payment,
		DeliveryType:  q.Key,
		DeliveryPrice: q.Charged,
		Notes:         f.notes,
		PromoCode:     summary.PromoCode,
		TotalAmount:   summary.Total,
	}, lines, nil
}

// summaryLocked replaces the cart-level flat shipping with the chosen delivery quote.
func (f *Flow) summaryLocked(q *delivery.Quote) domain.Summary {
	return withDelivery(f.deps.Summaries.Current(), q)
}

func withDelivery(s domain.Summary, q *delivery.Quote) domain.Summary {
	if q != nil {
		s.Shipping = q.Charged
		s.Total = pricing.Total(s.Subtotal, s.Discount, s.Shipping)
	}
	return s
}

func (f *Flow) viewLocked() View {
	v := View{
		State:         f.state,
		Address:       f.address,
		MissingFields: f.address.MissingFields(),
		PaymentMethod: f.payment,
		Notes:         f.notes,
		OrderNumber:   f.orderNumber,
		LastError:     f.lastError,
	}
	if f.address.Country != "" {
		quotes, err := f.deps.Resolver.Quote(f.address.Country, f.deps.Cart.Subtotal())
		if err != nil && !errors.Is(err, domain.ErrNoDeliveryOptions) {
			f.logger.Warn("delivery quote failed", zap.Error(err))
		}
		v.DeliveryOptions = quotes
	}
	q, err := f.quoteLocked()
	if err == nil {
		v.SelectedDelivery = q
	}
	v.Summary = f.summaryLocked(v.SelectedDelivery)
	return v
}

func normalizeAddress(a domain.ShippingAddress) domain.ShippingAddress {
	return domain.ShippingAddress{
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
		City:       strings.TrimSpace(a.City),
		Address:    strings.TrimSpace(a.Address),
		PostalCode: strings.TrimSpace(a.PostalCode),
		FullName:   strings.TrimSpace(a.FullName),
		Phone:      strings.TrimSpace(a.Phone),
	}
}

func fillEmpty(dst *domain.ShippingAddress, src domain.ShippingAddress) {
	set := func(d *string, s string) {
		if strings.TrimSpace(*d) == "" {
			*d = s
		}
	}
	set(&dst.Country, src.Country)
	set(&dst.City, src.City)
	set(&dst.Address, src.Address)
	set(&dst.PostalCode, src.PostalCode)
	set(&dst.FullName, src.FullName)
	set(&dst.Phone, src.Phone)
}
