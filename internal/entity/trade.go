package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is an immutable record of a completed buy or sell. The trade log is
// append-only: entries are never edited or removed, and ordering is insertion
// order even when imported timestamps arrive out of order.
type Trade struct {
	ID           int64           `db:"id" json:"id"`
	Symbol       string          `db:"symbol" json:"symbol"`
	Quantity     decimal.Decimal `db:"quantity" json:"quantity"`
	PricePerUnit decimal.Decimal `db:"price_per_unit" json:"price_per_unit"`
	Side         Side            `db:"side" json:"side"`
	ExecutedAt   int64           `db:"executed_at" json:"executed_at"` // epoch seconds
}

func NewBuyTrade(symbol string, quantity, pricePerUnit decimal.Decimal) Trade {
	return Trade{
		Symbol:       symbol,
		Quantity:     quantity,
		PricePerUnit: pricePerUnit,
		Side:         SideBuy,
		ExecutedAt:   time.Now().UTC().Unix(),
	}
}

func NewSellTrade(symbol string, quantity, pricePerUnit decimal.Decimal) Trade {
	return Trade{
		Symbol:       symbol,
		Quantity:     quantity,
		PricePerUnit: pricePerUnit,
		Side:         SideSell,
		ExecutedAt:   time.Now().UTC().Unix(),
	}
}

// Notional is the total cash value of the trade.
func (t Trade) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.PricePerUnit)
}

func (t Trade) TableName() string {
	return "trades"
}
