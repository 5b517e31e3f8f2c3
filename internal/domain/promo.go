package domain

// PromoKind selects how a promo value is applied.
type PromoKind string

const (
	PromoPercentage PromoKind = "percentage"
	PromoFixed      PromoKind = "fixed"
)

// Promo maps a code to a discount rule.
type Promo struct {
	Code  string    `json:"code" yaml:"code"`
	Kind  PromoKind `json:"kind" yaml:"kind"`
	Value int64     `json:"value" yaml:"value"`
}

// Discount returns the discount for subtotal, never above subtotal.
func (p Promo) Discount(subtotal int64) int64 {
	if subtotal <= 0 || p.Value <= 0 {
		return 0
	}
	var d int64
	switch p.Kind {
	case PromoPercentage:
		pct := p.Value
		if pct > 100 {
			pct = 100
		}
		d = subtotal * pct / 100
	case PromoFixed:
		d = p.Value
	}
	if d > subtotal {
		d = subtotal
	}
	return d
}
