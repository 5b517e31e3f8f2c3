package domain

import "time"

// WishlistItem is a liked product. Price is kept in base currency units and
// formatted on read.
type WishlistItem struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Price    int64     `json:"price"`
	ImageURL string    `json:"imageUrl,omitempty"`
	Badge    string    `json:"badge,omitempty"`
	AddedAt  time.Time `json:"addedAt"`
}
