// Package ledger owns the portfolio aggregate: cash balance, holdings, the
// trade log, the open-order book and the watchlist. It is the only component
// allowed to mutate them. The command layer and the order monitor share one
// Ledger instance and all access is serialized by its mutex.
package ledger

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/samthambad/naviin/internal/entity"
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
)

// ParsePositiveAmount parses a user-supplied amount, quantity or price and
// rejects anything unparseable or not strictly positive.
func ParsePositiveAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

type Ledger struct {
	mu sync.Mutex

	cashBalance decimal.Decimal
	holdings    map[string]entity.Holding
	trades      []entity.Trade
	openOrders  []entity.OpenOrder
	watchlist   map[string]struct{}
}

// New returns an empty ledger: zero cash, no holdings, trades or orders.
func New() *Ledger {
	return &Ledger{
		cashBalance: decimal.Zero,
		holdings:    make(map[string]entity.Holding),
		watchlist:   make(map[string]struct{}),
	}
}

// FromSnapshot rehydrates a ledger from persisted state.
func FromSnapshot(snap entity.PortfolioSnapshot) *Ledger {
	l := New()
	l.Restore(snap)
	return l
}

// Deposit adds funds to the cash balance. There is no upper bound.
func (l *Ledger) Deposit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.cashBalance = l.cashBalance.Add(amount)
	return nil
}

// Withdraw removes funds from the cash balance. Fails without mutating
// anything when the amount is not positive or exceeds the balance.
func (l *Ledger) Withdraw(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.GreaterThan(l.cashBalance) {
		return ErrInsufficientBalance
	}

	l.cashBalance = l.cashBalance.Sub(amount)
	return nil
}

// ApplyBuy withdraws quantity*price from cash, folds the purchase into the
// weighted-average cost of the holding and appends a buy trade. It does not
// re-validate funds: callers are expected to have checked availability
// before committing to the buy.
func (l *Ledger) ApplyBuy(symbol string, quantity, price decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) || price.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.applyBuyLocked(symbol, quantity, price)
	return nil
}

// ApplySell deposits quantity*price into cash, reduces the holding (average
// cost unchanged, realized P&L stays implicit) and appends a sell trade.
// The holding is removed when its quantity reaches exactly zero.
func (l *Ledger) ApplySell(symbol string, quantity, price decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) || price.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	holding, ok := l.holdings[symbol]
	if !ok || quantity.GreaterThan(holding.Quantity) {
		return ErrInsufficientHoldings
	}

	l.applySellLocked(symbol, quantity, price)
	return nil
}

func (l *Ledger) applyBuyLocked(symbol string, quantity, price decimal.Decimal) {
	l.cashBalance = l.cashBalance.Sub(quantity.Mul(price))

	holding, ok := l.holdings[symbol]
	if !ok {
		l.holdings[symbol] = entity.Holding{Symbol: symbol, Quantity: quantity, AvgCost: price}
	} else {
		totalCost := holding.Quantity.Mul(holding.AvgCost).Add(quantity.Mul(price))
		newQuantity := holding.Quantity.Add(quantity)
		holding.AvgCost = totalCost.Div(newQuantity)
		holding.Quantity = newQuantity
		l.holdings[symbol] = holding
	}

	l.trades = append(l.trades, entity.NewBuyTrade(symbol, quantity, price))
}

func (l *Ledger) applySellLocked(symbol string, quantity, price decimal.Decimal) {
	l.cashBalance = l.cashBalance.Add(quantity.Mul(price))

	holding := l.holdings[symbol]
	holding.Quantity = holding.Quantity.Sub(quantity)
	if holding.Quantity.IsZero() {
		delete(l.holdings, symbol)
	} else {
		l.holdings[symbol] = holding
	}

	l.trades = append(l.trades, entity.NewSellTrade(symbol, quantity, price))
}

// AddOpenOrder validates the reservation invariants and appends the order to
// the book. A buy-side order must be coverable by available cash (cash net of
// every other buy limit's reservation); a sell-side order must be coverable
// by available holdings (position net of every other sell-side reservation).
// On failure the book is left unchanged.
func (l *Ledger) AddOpenOrder(order entity.OpenOrder) error {
	if order.Quantity.LessThanOrEqual(decimal.Zero) || order.TriggerPrice.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if order.Side() == entity.SideBuy {
		cost := order.Quantity.Mul(order.TriggerPrice)
		if l.availableCashLocked().LessThan(cost) {
			return ErrInsufficientFunds
		}
	} else {
		if l.availableHoldingsLocked(order.Symbol).Sub(order.Quantity).IsNegative() {
			return ErrInsufficientHoldings
		}
	}

	l.openOrders = append(l.openOrders, order)
	sortBook(l.openOrders)
	return nil
}

// RemoveOpenOrder deletes every open order structurally equal to the given
// one and reports how many were removed. Removing a tuple with no match is a
// no-op.
func (l *Ledger) RemoveOpenOrder(order entity.OpenOrder) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.openOrders[:0]
	removed := 0
	for _, existing := range l.openOrders {
		if existing.Matches(order) {
			removed++
			continue
		}
		kept = append(kept, existing)
	}
	l.openOrders = kept

	if removed > 0 {
		sortBook(l.openOrders)
	}
	return removed
}

// Fill pairs a snapshotted open order with the live price observed for its
// symbol during a monitor tick.
type Fill struct {
	Order     entity.OpenOrder
	LivePrice decimal.Decimal
}

// Execution is the outcome of applying one triggered fill.
type Execution struct {
	Order     entity.OpenOrder
	FillPrice decimal.Decimal
	Trade     entity.Trade
}

// ExecuteTriggered converts triggered open orders into trades inside a single
// critical section: each fill is re-validated against the live book, applied
// with the same buy/sell routine direct trades use, and all executed orders
// are removed from the book in one pass afterwards. A fill whose funds or
// holdings check fails is skipped, not cancelled; it stays pending for the
// next tick. Removal is count-limited: one book entry per executed fill, so
// a structural duplicate that was skipped this tick stays pending.
func (l *Ledger) ExecuteTriggered(fills []Fill) []Execution {
	if len(fills) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var executions []Execution
	var executed []entity.OpenOrder

	for _, fill := range fills {
		order := fill.Order
		if !l.containsOrderLocked(order) {
			continue // cancelled since the snapshot was taken
		}

		fillPrice := order.ExecutionPrice(fill.LivePrice)

		if order.Side() == entity.SideBuy {
			cost := order.Quantity.Mul(fill.LivePrice)
			if cost.GreaterThan(l.cashBalance) {
				continue // transient insufficiency, retry next tick
			}
			l.applyBuyLocked(order.Symbol, order.Quantity, fillPrice)
		} else {
			holding, ok := l.holdings[order.Symbol]
			if !ok || order.Quantity.GreaterThan(holding.Quantity) {
				continue
			}
			l.applySellLocked(order.Symbol, order.Quantity, fillPrice)
		}

		executions = append(executions, Execution{
			Order:     order,
			FillPrice: fillPrice,
			Trade:     l.trades[len(l.trades)-1],
		})
		executed = append(executed, order)
	}

	if len(executed) == 0 {
		return nil
	}

	kept := l.openOrders[:0]
	for _, existing := range l.openOrders {
		if idx := indexOfMatch(existing, executed); idx >= 0 {
			executed = append(executed[:idx], executed[idx+1:]...)
			continue
		}
		kept = append(kept, existing)
	}
	l.openOrders = kept
	sortBook(l.openOrders)

	return executions
}

func indexOfMatch(order entity.OpenOrder, against []entity.OpenOrder) int {
	for idx, candidate := range against {
		if order.Matches(candidate) {
			return idx
		}
	}
	return -1
}

func (l *Ledger) containsOrderLocked(order entity.OpenOrder) bool {
	for _, existing := range l.openOrders {
		if existing.Matches(order) {
			return true
		}
	}
	return false
}

// AvailableCash is the cash balance net of every buy limit reservation.
func (l *Ledger) AvailableCash() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.availableCashLocked()
}

func (l *Ledger) availableCashLocked() decimal.Decimal {
	available := l.cashBalance
	for _, order := range l.openOrders {
		if order.Side() == entity.SideBuy {
			available = available.Sub(order.Quantity.Mul(order.TriggerPrice))
		}
	}
	return available
}

// AvailableHoldings is the held quantity for a symbol net of every sell-side
// reservation on it.
func (l *Ledger) AvailableHoldings(symbol string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.availableHoldingsLocked(symbol)
}

func (l *Ledger) availableHoldingsLocked(symbol string) decimal.Decimal {
	available := decimal.Zero
	if holding, ok := l.holdings[symbol]; ok {
		available = holding.Quantity
	}
	for _, order := range l.openOrders {
		if order.Symbol == symbol && order.Side() == entity.SideSell {
			available = available.Sub(order.Quantity)
		}
	}
	return available
}

func (l *Ledger) CashBalance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cashBalance
}

// Holding returns the position for a symbol, if any.
func (l *Ledger) Holding(symbol string) (entity.Holding, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	holding, ok := l.holdings[symbol]
	return holding, ok
}

// HoldingQuantity returns the held quantity for a symbol, zero when there is
// no position.
func (l *Ledger) HoldingQuantity(symbol string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	if holding, ok := l.holdings[symbol]; ok {
		return holding.Quantity
	}
	return decimal.Zero
}

// Holdings returns a copy of the holdings map.
func (l *Ledger) Holdings() map[string]entity.Holding {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyHoldings(l.holdings)
}

// Trades returns a copy of the trade log in insertion order.
func (l *Ledger) Trades() []entity.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]entity.Trade(nil), l.trades...)
}

// OpenOrders returns a copy of the open-order book in canonical order.
func (l *Ledger) OpenOrders() []entity.OpenOrder {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]entity.OpenOrder(nil), l.openOrders...)
}

// Watch adds a symbol to the watchlist.
func (l *Ledger) Watch(symbol string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watchlist[symbol] = struct{}{}
}

// Unwatch removes a symbol from the watchlist and reports whether it was
// present.
func (l *Ledger) Unwatch(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.watchlist[symbol]
	delete(l.watchlist, symbol)
	return ok
}

// Watchlist returns the watched symbols in sorted order.
func (l *Ledger) Watchlist() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedWatchlist(l.watchlist)
}

// Snapshot returns a deep copy of the full ledger state for persistence.
func (l *Ledger) Snapshot() entity.PortfolioSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	return entity.PortfolioSnapshot{
		CashBalance: l.cashBalance,
		Holdings:    copyHoldings(l.holdings),
		Trades:      append([]entity.Trade(nil), l.trades...),
		OpenOrders:  append([]entity.OpenOrder(nil), l.openOrders...),
		Watchlist:   sortedWatchlist(l.watchlist),
	}
}

// Restore replaces the ledger state wholesale. Used only when rehydrating
// from storage.
func (l *Ledger) Restore(snap entity.PortfolioSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cashBalance = snap.CashBalance
	l.holdings = copyHoldings(snap.Holdings)
	l.trades = append([]entity.Trade(nil), snap.Trades...)
	l.openOrders = append([]entity.OpenOrder(nil), snap.OpenOrders...)
	sortBook(l.openOrders)

	l.watchlist = make(map[string]struct{}, len(snap.Watchlist))
	for _, symbol := range snap.Watchlist {
		l.watchlist[symbol] = struct{}{}
	}
}

// Reset returns the ledger to its empty state.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cashBalance = decimal.Zero
	l.holdings = make(map[string]entity.Holding)
	l.trades = nil
	l.openOrders = nil
	l.watchlist = make(map[string]struct{})
}

func copyHoldings(holdings map[string]entity.Holding) map[string]entity.Holding {
	copied := make(map[string]entity.Holding, len(holdings))
	for symbol, holding := range holdings {
		copied[symbol] = holding
	}
	return copied
}

func sortedWatchlist(watchlist map[string]struct{}) []string {
	symbols := make([]string, 0, len(watchlist))
	for symbol := range watchlist {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
