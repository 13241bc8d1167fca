package entity

import "github.com/shopspring/decimal"

// Holding is one symbol's position: quantity held and the weighted-average
// cost paid for it. Quantity is never negative; a holding that reaches
// exactly zero is removed from the ledger rather than kept as a zero row.
type Holding struct {
	Symbol   string          `db:"symbol" json:"symbol"`
	Quantity decimal.Decimal `db:"quantity" json:"quantity"`
	AvgCost  decimal.Decimal `db:"avg_cost" json:"avg_cost"`
}

// MarketValue is the position's value at the given price.
func (h Holding) MarketValue(price decimal.Decimal) decimal.Decimal {
	return h.Quantity.Mul(price)
}

// UnrealizedPnl is the gain or loss versus the average cost basis at the
// given price.
func (h Holding) UnrealizedPnl(price decimal.Decimal) decimal.Decimal {
	return price.Sub(h.AvgCost).Mul(h.Quantity)
}

func (h Holding) TableName() string {
	return "holdings"
}
