// Package portfolio exposes the user-facing command operations: funding,
// direct trades, conditional orders and watchlist management. Every mutating
// operation returns a short outcome string for direct display and persists a
// snapshot best-effort afterwards.
package portfolio

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/samthambad/naviin/internal/entity"
	"github.com/samthambad/naviin/internal/ledger"
)

// SnapshotStore persists the ledger after mutations. A nil store disables
// persistence (used by tests and ephemeral sessions).
type SnapshotStore interface {
	Save(ctx context.Context, snap entity.PortfolioSnapshot) error
	Reset(ctx context.Context) error
}

type Service struct {
	ledger *ledger.Ledger
	prices entity.PriceSource
	store  SnapshotStore
}

func NewService(l *ledger.Ledger, prices entity.PriceSource, store SnapshotStore) *Service {
	return &Service{
		ledger: l,
		prices: prices,
		store:  store,
	}
}

func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}

func (s *Service) Fund(ctx context.Context, rawAmount string) (string, error) {
	amount, err := ledger.ParsePositiveAmount(rawAmount)
	if err != nil {
		return "", err
	}
	if err := s.ledger.Deposit(amount); err != nil {
		return "", err
	}

	s.persist(ctx)
	return fmt.Sprintf("funded %s, cash balance is now %s", amount, s.ledger.CashBalance()), nil
}

func (s *Service) Withdraw(ctx context.Context, rawAmount string) (string, error) {
	amount, err := ledger.ParsePositiveAmount(rawAmount)
	if err != nil {
		return "", err
	}
	if err := s.ledger.Withdraw(amount); err != nil {
		return "", err
	}

	s.persist(ctx)
	return fmt.Sprintf("withdrew %s, cash balance is now %s", amount, s.ledger.CashBalance()), nil
}

// Buy executes a market buy at the live price. Availability is checked
// against cash net of buy-limit reservations before applying.
func (s *Service) Buy(ctx context.Context, symbol, rawQuantity string) (string, error) {
	quantity, err := ledger.ParsePositiveAmount(rawQuantity)
	if err != nil {
		return "", err
	}

	price, err := s.prices.CurrentPrice(ctx, symbol)
	if err != nil {
		return "", err
	}

	cost := quantity.Mul(price)
	if s.ledger.AvailableCash().LessThan(cost) {
		return "", ledger.ErrInsufficientFunds
	}
	if err := s.ledger.ApplyBuy(symbol, quantity, price); err != nil {
		return "", err
	}

	s.persist(ctx)
	return fmt.Sprintf("bought %s %s @ %s for %s", quantity, symbol, price, cost), nil
}

// Sell executes a market sell at the live price. Availability is checked
// against the holding net of sell-side reservations.
func (s *Service) Sell(ctx context.Context, symbol, rawQuantity string) (string, error) {
	quantity, err := ledger.ParsePositiveAmount(rawQuantity)
	if err != nil {
		return "", err
	}

	if s.ledger.AvailableHoldings(symbol).LessThan(quantity) {
		return "", ledger.ErrInsufficientHoldings
	}

	price, err := s.prices.CurrentPrice(ctx, symbol)
	if err != nil {
		return "", err
	}
	if err := s.ledger.ApplySell(symbol, quantity, price); err != nil {
		return "", err
	}

	s.persist(ctx)
	return fmt.Sprintf("sold %s %s @ %s for %s", quantity, symbol, price, quantity.Mul(price)), nil
}

// PlaceOrder queues a conditional order. The ledger enforces the reservation
// invariants for the order's side.
func (s *Service) PlaceOrder(ctx context.Context, kind entity.OrderKind, symbol, rawQuantity, rawTriggerPrice string) (string, error) {
	quantity, err := ledger.ParsePositiveAmount(rawQuantity)
	if err != nil {
		return "", err
	}
	triggerPrice, err := ledger.ParsePositiveAmount(rawTriggerPrice)
	if err != nil {
		return "", err
	}

	order := entity.NewOpenOrder(kind, symbol, quantity, triggerPrice)
	if err := s.ledger.AddOpenOrder(order); err != nil {
		return "", err
	}

	s.persist(ctx)
	return fmt.Sprintf("placed %s", order), nil
}

// CancelOrder removes every open order matching the (kind, symbol, quantity,
// trigger price) tuple and reports how many were removed.
func (s *Service) CancelOrder(ctx context.Context, kind entity.OrderKind, symbol, rawQuantity, rawTriggerPrice string) (string, error) {
	quantity, err := ledger.ParsePositiveAmount(rawQuantity)
	if err != nil {
		return "", err
	}
	triggerPrice, err := ledger.ParsePositiveAmount(rawTriggerPrice)
	if err != nil {
		return "", err
	}

	removed := s.ledger.RemoveOpenOrder(entity.OpenOrder{
		Kind:         kind,
		Symbol:       symbol,
		Quantity:     quantity,
		TriggerPrice: triggerPrice,
	})
	if removed == 0 {
		return "no matching open order", nil
	}

	s.persist(ctx)
	return fmt.Sprintf("cancelled %d order(s)", removed), nil
}

// Quote returns the live price and previous close for a symbol.
func (s *Service) Quote(ctx context.Context, symbol string) (current, previousClose decimal.Decimal, err error) {
	current, err = s.prices.CurrentPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	previousClose, err = s.prices.PreviousClose(ctx, symbol)
	if err != nil {
		// previous close is advisory only
		previousClose = decimal.Zero
	}

	return current, previousClose, nil
}

func (s *Service) Watch(ctx context.Context, symbol string) string {
	s.ledger.Watch(symbol)
	s.persist(ctx)
	return fmt.Sprintf("watching %s", symbol)
}

func (s *Service) Unwatch(ctx context.Context, symbol string) string {
	if !s.ledger.Unwatch(symbol) {
		return fmt.Sprintf("%s is not on the watchlist", symbol)
	}

	s.persist(ctx)
	return fmt.Sprintf("stopped watching %s", symbol)
}

func (s *Service) Snapshot() entity.PortfolioSnapshot {
	return s.ledger.Snapshot()
}

// Reset empties both the in-memory ledger and the persisted state.
func (s *Service) Reset(ctx context.Context) (string, error) {
	s.ledger.Reset()

	if s.store != nil {
		if err := s.store.Reset(ctx); err != nil {
			return "", fmt.Errorf("reset persisted state: %w", err)
		}
	}

	return "portfolio reset", nil
}

func (s *Service) persist(ctx context.Context) {
	if s.store == nil {
		return
	}

	if err := s.store.Save(ctx, s.ledger.Snapshot()); err != nil {
		logrus.WithError(err).Error("failed to persist snapshot")
	}
}
