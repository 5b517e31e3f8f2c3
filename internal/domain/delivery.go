package domain

import "github.com/shopspring/decimal"

// AnyCountry marks a delivery option available everywhere.
const AnyCountry = "*"

// DeliveryOption is a static catalog entry for a carrier/service.
type DeliveryOption struct {
	Key         string          `json:"key" yaml:"key"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description"`
	Price       decimal.Decimal `json:"price" yaml:"price"`
	Currency    string          `json:"currency" yaml:"currency"`
	Timeframe   string          `json:"timeframe,omitempty" yaml:"timeframe"`
	Countries   []string        `json:"countries" yaml:"countries"`
}

// ServesCountry reports whether the option may be chosen for the destination.
func (o DeliveryOption) ServesCountry(country string) bool {
	for _, c := range o.Countries {
		if c == AnyCountry || c == country {
			return true
		}
	}
	return false
}
