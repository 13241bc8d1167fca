package entity

import "github.com/shopspring/decimal"

// PortfolioSnapshot is the full persistable state of the ledger: everything
// needed to rehydrate it at process start.
type PortfolioSnapshot struct {
	CashBalance decimal.Decimal    `json:"cash_balance"`
	Holdings    map[string]Holding `json:"holdings"`
	Trades      []Trade            `json:"trades"`
	OpenOrders  []OpenOrder        `json:"open_orders"`
	Watchlist   []string           `json:"watchlist"`
}
