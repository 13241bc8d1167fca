// Package ordermonitor polls live prices and executes conditional orders
// whose trigger condition is met.
package ordermonitor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/samthambad/naviin/internal/entity"
	"github.com/samthambad/naviin/internal/ledger"
)

const defaultPollInterval = 10 * time.Second

// SnapshotStore persists the ledger snapshot after a tick that executed
// orders. Persistence failures are logged, never fatal to the monitor.
type SnapshotStore interface {
	Save(ctx context.Context, snap entity.PortfolioSnapshot) error
}

// EventPublisher announces executed orders to downstream consumers.
type EventPublisher interface {
	PublishOrderExecuted(ctx context.Context, event entity.OrderExecutedEvent) error
}

type MonitorService struct {
	ledger    *ledger.Ledger
	prices    entity.PriceSource
	store     SnapshotStore  // nil disables persistence
	publisher EventPublisher // nil disables events
	interval  time.Duration
	running   atomic.Bool
}

func NewMonitorService(l *ledger.Ledger, prices entity.PriceSource, store SnapshotStore, publisher EventPublisher, interval time.Duration) *MonitorService {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	svc := &MonitorService{
		ledger:    l,
		prices:    prices,
		store:     store,
		publisher: publisher,
		interval:  interval,
	}
	svc.running.Store(true)

	return svc
}

// Pause stops order evaluation; the poll loop keeps ticking so Resume takes
// effect on the next tick.
func (s *MonitorService) Pause() {
	s.running.Store(false)
}

func (s *MonitorService) Resume() {
	s.running.Store(true)
}

func (s *MonitorService) Running() bool {
	return s.running.Load()
}

// Run polls until the context is cancelled. The first evaluation happens
// immediately rather than one interval in.
func (s *MonitorService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *MonitorService) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !s.running.Load() {
		return
	}

	s.RunOnce(ctx)
}

// RunOnce evaluates every open order against a fresh price per symbol and
// executes the triggered ones. Prices are fetched outside the ledger lock;
// the ledger re-validates each fill before applying it.
func (s *MonitorService) RunOnce(ctx context.Context) []ledger.Execution {
	orders := s.ledger.OpenOrders()
	if len(orders) == 0 {
		return nil
	}

	livePrices := s.fetchPrices(ctx, orders)

	var fills []ledger.Fill
	for _, order := range orders {
		price, ok := livePrices[order.Symbol]
		if !ok {
			continue
		}
		if order.Triggered(price) {
			fills = append(fills, ledger.Fill{Order: order, LivePrice: price})
		}
	}
	if len(fills) == 0 {
		return nil
	}

	executions := s.ledger.ExecuteTriggered(fills)
	if len(executions) == 0 {
		return nil
	}

	for _, execution := range executions {
		logrus.WithFields(logrus.Fields{
			"kind":       execution.Order.Kind,
			"symbol":     execution.Order.Symbol,
			"quantity":   execution.Order.Quantity.String(),
			"fill_price": execution.FillPrice.String(),
		}).Info("conditional order executed")
	}

	s.persist(ctx)
	s.publish(ctx, executions)

	return executions
}

// fetchPrices fetches one quote per distinct symbol. A failed fetch drops
// that symbol from the tick; its orders stay pending.
func (s *MonitorService) fetchPrices(ctx context.Context, orders []entity.OpenOrder) map[string]decimal.Decimal {
	livePrices := make(map[string]decimal.Decimal)

	for _, order := range orders {
		if _, seen := livePrices[order.Symbol]; seen {
			continue
		}

		price, err := s.prices.CurrentPrice(ctx, order.Symbol)
		if err != nil {
			logrus.WithField("symbol", order.Symbol).WithError(err).Warn("price fetch failed, skipping symbol this tick")
			continue
		}

		livePrices[order.Symbol] = price
	}

	return livePrices
}

func (s *MonitorService) persist(ctx context.Context) {
	if s.store == nil {
		return
	}

	if err := s.store.Save(ctx, s.ledger.Snapshot()); err != nil {
		logrus.WithError(err).Error("failed to persist snapshot after execution")
	}
}

func (s *MonitorService) publish(ctx context.Context, executions []ledger.Execution) {
	if s.publisher == nil {
		return
	}

	for _, execution := range executions {
		event := entity.OrderExecutedEvent{
			OrderKind:  execution.Order.Kind,
			Symbol:     execution.Order.Symbol,
			Quantity:   execution.Order.Quantity,
			FillPrice:  execution.FillPrice,
			ExecutedAt: execution.Trade.ExecutedAt,
		}
		if err := s.publisher.PublishOrderExecuted(ctx, event); err != nil {
			logrus.WithField("symbol", event.Symbol).WithError(err).Error("failed to publish execution event")
		}
	}
}
