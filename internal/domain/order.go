package domain

import "strings"

// PaymentMethod enumerates the accepted payment choices.
type PaymentMethod string

const (
	PaymentCard         PaymentMethod = "card"
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCard, PaymentCash, PaymentBankTransfer:
		return true
	}
	return false
}

// ShippingAddress holds the six fields required to pass the address step.
type ShippingAddress struct {
	Country    string `json:"country"`
	City       string `json:"city"`
	Address    string `json:"address"`
	PostalCode string `json:"postalCode"`
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
}

// MissingFields lists the json names of empty fields.
func (a ShippingAddress) MissingFields() []string {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("country", a.Country)
	check("city", a.City)
	check("address", a.Address)
	check("postalCode", a.PostalCode)
	check("fullName", a.FullName)
	check("phone", a.Phone)
	return missing
}

func (a ShippingAddress) Complete() bool {
	return len(a.MissingFields()) == 0
}

// OrderItem is the server-relevant projection of a cart line. Prices are not sent.
type OrderItem struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
	Color    string `json:"color"`
	Size     string `json:"size"`
}

// OrderDraft exists for the duration of a checkout session.
type OrderDraft struct {
	Items         []OrderItem     `json:"orderItems"`
	Address       ShippingAddress `json:"shippingAddress"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	DeliveryType  string          `json:"deliveryType"`
	DeliveryPrice int64           `json:"deliveryPrice"`
	Notes         string          `json:"notes,omitempty"`
	PromoCode     string          `json:"promoCode,omitempty"`
	TotalAmount   int64           `json:"totalAmount"`
}

// Summary is the computed price breakdown in base currency units.
type Summary struct {
	Subtotal  int64  `json:"subtotal"`
	Discount  int64  `json:"discount"`
	Shipping  int64  `json:"shipping"`
	Total     int64  `json:"total"`
	PromoCode string `json:"promoCode,omitempty"`
}
