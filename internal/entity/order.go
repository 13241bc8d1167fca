package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderKind string

const (
	OrderKindBuyLimit   OrderKind = "BUY_LIMIT"
	OrderKindStopLoss   OrderKind = "STOP_LOSS"
	OrderKindTakeProfit OrderKind = "TAKE_PROFIT"
)

// OpenOrder is a pending conditional order, good till cancelled. The kind
// determines both the side and the trigger comparison. There is no unique
// order id: identity is the (kind, symbol, trigger price, quantity) tuple,
// so two orders with identical fields are indistinguishable and a removal
// request deletes every match.
type OpenOrder struct {
	ID           int64           `db:"id" json:"id"`
	Kind         OrderKind       `db:"kind" json:"kind"`
	Symbol       string          `db:"symbol" json:"symbol"`
	Quantity     decimal.Decimal `db:"quantity" json:"quantity"`
	TriggerPrice decimal.Decimal `db:"trigger_price" json:"trigger_price"`
	CreatedAt    int64           `db:"created_at" json:"created_at"` // epoch seconds
}

func NewOpenOrder(kind OrderKind, symbol string, quantity, triggerPrice decimal.Decimal) OpenOrder {
	return OpenOrder{
		Kind:         kind,
		Symbol:       symbol,
		Quantity:     quantity,
		TriggerPrice: triggerPrice,
		CreatedAt:    time.Now().UTC().Unix(),
	}
}

// Side is derived from the kind: a buy limit buys, stop loss and take profit
// sell.
func (o OpenOrder) Side() Side {
	if o.Kind == OrderKindBuyLimit {
		return SideBuy
	}
	return SideSell
}

// Triggered reports whether the live price satisfies the order's condition.
func (o OpenOrder) Triggered(price decimal.Decimal) bool {
	switch o.Kind {
	case OrderKindBuyLimit, OrderKindStopLoss:
		return price.LessThanOrEqual(o.TriggerPrice)
	case OrderKindTakeProfit:
		return price.GreaterThanOrEqual(o.TriggerPrice)
	}
	return false
}

// ExecutionPrice is the price a triggered order fills at. Take profit fills
// at its trigger price; buy limit and stop loss fill at the live price.
func (o OpenOrder) ExecutionPrice(livePrice decimal.Decimal) decimal.Decimal {
	if o.Kind == OrderKindTakeProfit {
		return o.TriggerPrice
	}
	return livePrice
}

// Matches reports structural equality on the identity tuple.
func (o OpenOrder) Matches(other OpenOrder) bool {
	return o.Kind == other.Kind &&
		o.Symbol == other.Symbol &&
		o.TriggerPrice.Equal(other.TriggerPrice) &&
		o.Quantity.Equal(other.Quantity)
}

func (o OpenOrder) String() string {
	return fmt.Sprintf("%s %s %s @ %s", o.Kind, o.Symbol, o.Quantity, o.TriggerPrice)
}

func (o OpenOrder) TableName() string {
	return "open_orders"
}
