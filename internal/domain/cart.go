package domain

import "time"

// Bounds on a single line. They keep line totals and subtotals well inside int64.
const (
	MaxLineQuantity = 99
	MaxUnitPrice    = 1_000_000_000
)

// LineItem is one cart entry for a product/color/size combination.
type LineItem struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	UnitPrice int64     `json:"unitPrice"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Color     string    `json:"color"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
	Badge     string    `json:"badge,omitempty"`
	AddedAt   time.Time `json:"addedAt"`
}

// LineKey is the merge identity of a line item.
type LineKey struct {
	ProductID string
	Color     string
	Size      string
}

func (l LineItem) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Color: l.Color, Size: l.Size}
}

// Total returns unit price times quantity in base currency units.
func (l LineItem) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Subtotal sums the line totals.
func Subtotal(lines []LineItem) int64 {
	var total int64
	for _, l := range lines {
		total += l.Total()
	}
	return total
}

// LineInput carries the fields required to add a product to the cart.
type LineInput struct {
	ProductID string `json:"productId" binding:"required"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice" binding:"min=0,max=1000000000"`
	ImageURL  string `json:"imageUrl"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity" binding:"max=99"`
	Badge     string `json:"badge"`
}

func (in LineInput) Key() LineKey {
	return LineKey{ProductID: in.ProductID, Color: in.Color, Size: in.Size}
}
