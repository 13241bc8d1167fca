package entity

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceSource supplies market quotes. Implementations may fail on any call;
// callers treat a failure as "no price, skip" rather than a fatal error.
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	PreviousClose(ctx context.Context, symbol string) (decimal.Decimal, error)
}
