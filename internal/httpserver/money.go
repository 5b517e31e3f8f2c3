package httpserver

import (
	"context"

	"storefront/internal/service/currency"
)

// money pairs a base amount with its rendering in the shopper's display currency.
type money struct {
	Amount    int64  `json:"amount"`
	Formatted string `json:"formatted"`
}

func newMoney(ctx context.Context, conv *currency.Converter, amount int64) money {
	return money{Amount: amount, Formatted: conv.Format(ctx, amount)}
}
