package entity

import (
	"context"

	"github.com/shopspring/decimal"
)

type Publisher interface {
	JetstreamEventInit(ctx context.Context) error
}

// OrderExecutedEvent is published once per executed conditional order, after
// the order has been removed from the book.
type OrderExecutedEvent struct {
	EventID    string          `json:"event_id"`
	OrderKind  OrderKind       `json:"order_kind"`
	Symbol     string          `json:"symbol"`
	Quantity   decimal.Decimal `json:"quantity"`
	FillPrice  decimal.Decimal `json:"fill_price"`
	ExecutedAt int64           `json:"executed_at"`
}
