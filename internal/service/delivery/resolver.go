package delivery

import (
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/config"
	"storefront/internal/domain"
)

// Quote is a delivery option priced for a specific destination and subtotal.
type Quote struct {
	domain.DeliveryOption
	// BasePrice is the catalog price in base units.
	BasePrice int64 `json:"basePrice"`
	// Charged is what the shopper pays: zero when free shipping applies.
	Charged int64 `json:"charged"`
	Free    bool  `json:"free"`
}

// Resolver filters the static delivery catalog and decides free shipping.
type Resolver struct {
	pricing *config.Pricing
}

func NewResolver(pricing *config.Pricing) *Resolver {
	return &Resolver{pricing: pricing}
}

// Options lists catalog entries that serve country, in catalog order.
func (r *Resolver) Options(country string) []domain.DeliveryOption {
	country = normalizeCountry(country)
	if country == "" {
		return nil
	}
	var out []domain.DeliveryOption
	for _, opt := range r.pricing.Delivery {
		if opt.ServesCountry(country) {
			out = append(out, opt)
		}
	}
	return out
}

// Option looks up an entry by key regardless of destination.
func (r *Resolver) Option(key string) (domain.DeliveryOption, bool) {
	for _, opt := range r.pricing.Delivery {
		if opt.Key == key {
			return opt, true
		}
	}
	return domain.DeliveryOption{}, false
}

// FreeShipping applies the domestic threshold at home and the converted
// foreign reference amount elsewhere.
func (r *Resolver) FreeShipping(country string, subtotal int64) bool {
	if normalizeCountry(country) == r.pricing.DomesticCountry {
		return subtotal >= r.pricing.FreeShipping.DomesticThreshold
	}
	fs := r.pricing.FreeShipping
	threshold := r.toBase(fs.ForeignReference, fs.ForeignCurrency)
	return subtotal >= threshold
}

// BasePrice converts an option's price into base units using the fixed reference rate.
func (r *Resolver) BasePrice(opt domain.DeliveryOption) int64 {
	return r.toBase(opt.Price, opt.Currency)
}

// Quote prices every eligible option for the destination.
func (r *Resolver) Quote(country string, subtotal int64) ([]Quote, error) {
	opts := r.Options(country)
	if len(opts) == 0 {
		return nil, domain.ErrNoDeliveryOptions
	}
	free := r.FreeShipping(country, subtotal)
	out := make([]Quote, 0, len(opts))
	for _, opt := range opts {
		q := Quote{DeliveryOption: opt, BasePrice: r.BasePrice(opt), Free: free}
		if !free {
			q.Charged = q.BasePrice
		}
		out = append(out, q)
	}
	return out, nil
}

// QuoteFor prices a single option, failing when it does not serve country.
func (r *Resolver) QuoteFor(country, key string, subtotal int64) (Quote, error) {
	opt, ok := r.Option(key)
	if !ok {
		return Quote{}, domain.NewValidationError("deliveryType", "unknown delivery option "+key)
	}
	if !opt.ServesCountry(normalizeCountry(country)) {
		return Quote{}, domain.ErrDeliveryNotEligible
	}
	q := Quote{DeliveryOption: opt, BasePrice: r.BasePrice(opt), Free: r.FreeShipping(country, subtotal)}
	if !q.Free {
		q.Charged = q.BasePrice
	}
	return q, nil
}

func (r *Resolver) toBase(amount decimal.Decimal, currency string) int64 {
	if currency == "" || strings.EqualFold(currency, r.pricing.BaseCurrency) {
		return amount.Round(0).IntPart()
	}
	rate, ok := r.pricing.ReferenceRates[strings.ToUpper(currency)]
	if !ok {
		return amount.Round(0).IntPart()
	}
	return amount.Mul(rate).Round(0).IntPart()
}

func normalizeCountry(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}
