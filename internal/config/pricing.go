package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"storefront/internal/domain"
)

//go:embed pricing.yaml
var defaultPricing []byte

// SymbolPosition places a currency symbol before or after the amount.
type SymbolPosition string

const (
	SymbolPrefix SymbolPosition = "prefix"
	SymbolSuffix SymbolPosition = "suffix"
)

// CurrencyFormat describes how a display currency is rendered.
type CurrencyFormat struct {
	Code     string         `yaml:"code"`
	Symbol   string         `yaml:"symbol"`
	Position SymbolPosition `yaml:"position"`
}

// FreeShipping holds the thresholds for waiving delivery cost.
type FreeShipping struct {
	// DomesticThreshold is compared against the subtotal in base units.
	DomesticThreshold int64 `yaml:"domestic_threshold"`
	// ForeignReference is converted to base units with ReferenceRates.
	ForeignReference decimal.Decimal `yaml:"foreign_reference"`
	ForeignCurrency  string          `yaml:"foreign_currency"`
}

// Pricing is the static configuration of the pricing engine and delivery resolver.
type Pricing struct {
	BaseCurrency    string                     `yaml:"base_currency"`
	DomesticCountry string                     `yaml:"domestic_country"`
	FlatShippingFee int64                      `yaml:"flat_shipping_fee"`
	FreeShipping    FreeShipping               `yaml:"free_shipping"`
	ReferenceRates  map[string]decimal.Decimal `yaml:"reference_rates"`
	Currencies      []CurrencyFormat           `yaml:"currencies"`
	PromoCodes      []domain.Promo             `yaml:"promo_codes"`
	Delivery        []domain.DeliveryOption    `yaml:"delivery_options"`
}

// LoadPricing reads pricing config from path, or the embedded default when path is empty.
func LoadPricing(path string) (*Pricing, error) {
	data := defaultPricing
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read pricing file: %w", err)
		}
		data = raw
	}
	return ParsePricing(data)
}

// ParsePricing decodes and validates a YAML pricing document.
func ParsePricing(data []byte) (*Pricing, error) {
	p := &Pricing{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode pricing: %w", err)
	}
	p.normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pricing) normalize() {
	p.BaseCurrency = strings.ToUpper(strings.TrimSpace(p.BaseCurrency))
	p.DomesticCountry = strings.ToUpper(strings.TrimSpace(p.DomesticCountry))
	p.FreeShipping.ForeignCurrency = strings.ToUpper(strings.TrimSpace(p.FreeShipping.ForeignCurrency))
	for i := range p.Currencies {
		p.Currencies[i].Code = strings.ToUpper(strings.TrimSpace(p.Currencies[i].Code))
		if p.Currencies[i].Position == "" {
			p.Currencies[i].Position = SymbolPrefix
		}
	}
	for i := range p.PromoCodes {
		p.PromoCodes[i].Code = strings.ToUpper(strings.TrimSpace(p.PromoCodes[i].Code))
	}
	for i := range p.Delivery {
		p.Delivery[i].Currency = strings.ToUpper(strings.TrimSpace(p.Delivery[i].Currency))
		for j, c := range p.Delivery[i].Countries {
			p.Delivery[i].Countries[j] = strings.ToUpper(strings.TrimSpace(c))
		}
	}
	rates := make(map[string]decimal.Decimal, len(p.ReferenceRates))
	for code, rate := range p.ReferenceRates {
		rates[strings.ToUpper(code)] = rate
	}
	p.ReferenceRates = rates
}

// Validate checks internal consistency of the pricing document.
func (p *Pricing) Validate() error {
	var errs []error
	if p.BaseCurrency == "" {
		errs = append(errs, errors.New("base_currency required"))
	}
	if p.DomesticCountry == "" {
		errs = append(errs, errors.New("domestic_country required"))
	}
	if p.FlatShippingFee < 0 || p.FreeShipping.DomesticThreshold < 0 {
		errs = append(errs, errors.New("shipping amounts must not be negative"))
	}
	if _, ok := p.Currency(p.BaseCurrency); !ok {
		errs = append(errs, fmt.Errorf("base currency %s missing from currencies", p.BaseCurrency))
	}
	if fc := p.FreeShipping.ForeignCurrency; fc != "" && fc != p.BaseCurrency {
		if _, ok := p.ReferenceRates[fc]; !ok {
			errs = append(errs, fmt.Errorf("no reference rate for %s", fc))
		}
	}
	seen := map[string]bool{}
	for _, opt := range p.Delivery {
		if opt.Key == "" {
			errs = append(errs, errors.New("delivery option key required"))
			continue
		}
		if seen[opt.Key] {
			errs = append(errs, fmt.Errorf("duplicate delivery option %s", opt.Key))
		}
		seen[opt.Key] = true
		if opt.Currency != p.BaseCurrency {
			if _, ok := p.ReferenceRates[opt.Currency]; !ok {
				errs = append(errs, fmt.Errorf("delivery option %s: no reference rate for %s", opt.Key, opt.Currency))
			}
		}
		if len(opt.Countries) == 0 {
			errs = append(errs, fmt.Errorf("delivery option %s: countries required", opt.Key))
		}
	}
	for _, promo := range p.PromoCodes {
		if promo.Kind != domain.PromoPercentage && promo.Kind != domain.PromoFixed {
			errs = append(errs, fmt.Errorf("promo %s: unsupported kind %q", promo.Code, promo.Kind))
		}
	}
	return errors.Join(errs...)
}

// Currency returns the display format for code.
func (p *Pricing) Currency(code string) (CurrencyFormat, bool) {
	code = strings.ToUpper(code)
	for _, c := range p.Currencies {
		if c.Code == code {
			return c, true
		}
	}
	return CurrencyFormat{}, false
}
