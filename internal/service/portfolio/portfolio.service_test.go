package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samthambad/naviin/internal/entity"
	"github.com/samthambad/naviin/internal/ledger"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fixedPrices struct {
	current map[string]decimal.Decimal
	err     error
}

func (p *fixedPrices) CurrentPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	if p.err != nil {
		return decimal.Zero, p.err
	}
	return p.current[symbol], nil
}

func (p *fixedPrices) PreviousClose(_ context.Context, symbol string) (decimal.Decimal, error) {
	if p.err != nil {
		return decimal.Zero, p.err
	}
	return p.current[symbol].Sub(decimal.NewFromInt(1)), nil
}

type fakeStore struct {
	saves  int
	resets int
	err    error
}

func (s *fakeStore) Save(_ context.Context, _ entity.PortfolioSnapshot) error {
	s.saves++
	return s.err
}

func (s *fakeStore) Reset(_ context.Context) error {
	s.resets++
	return s.err
}

func newTestService(prices map[string]decimal.Decimal, store SnapshotStore) *Service {
	return NewService(ledger.New(), &fixedPrices{current: prices}, store)
}

func TestFundAndWithdraw(t *testing.T) {
	svc := newTestService(nil, nil)

	msg, err := svc.Fund(context.Background(), "1000")
	require.NoError(t, err)
	assert.Contains(t, msg, "1000")

	_, err = svc.Withdraw(context.Background(), "400")
	require.NoError(t, err)
	assert.True(t, svc.Ledger().CashBalance().Equal(dec("600")))
}

func TestFundRejectsBadInput(t *testing.T) {
	svc := newTestService(nil, nil)

	_, err := svc.Fund(context.Background(), "abc")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = svc.Fund(context.Background(), "-5")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestBuyAtLivePrice(t *testing.T) {
	svc := newTestService(map[string]decimal.Decimal{"AAPL": dec("150")}, nil)
	_, err := svc.Fund(context.Background(), "10000")
	require.NoError(t, err)

	msg, err := svc.Buy(context.Background(), "AAPL", "10")
	require.NoError(t, err)
	assert.Contains(t, msg, "AAPL")
	assert.True(t, svc.Ledger().CashBalance().Equal(dec("8500")))
	assert.True(t, svc.Ledger().HoldingQuantity("AAPL").Equal(dec("10")))
}

func TestBuyRespectsReservations(t *testing.T) {
	svc := newTestService(map[string]decimal.Decimal{"AAPL": dec("150"), "MSFT": dec("300")}, nil)
	_, err := svc.Fund(context.Background(), "2000")
	require.NoError(t, err)

	_, err = svc.PlaceOrder(context.Background(), entity.OrderKindBuyLimit, "MSFT", "10", "300")
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	// reserve 1500 with a buy limit, leaving 500 available
	_, err = svc.PlaceOrder(context.Background(), entity.OrderKindBuyLimit, "AAPL", "10", "150")
	require.NoError(t, err)

	_, err = svc.Buy(context.Background(), "AAPL", "10")
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.True(t, svc.Ledger().CashBalance().Equal(dec("2000")))
}

func TestSellRespectsReservations(t *testing.T) {
	svc := newTestService(map[string]decimal.Decimal{"AAPL": dec("150")}, nil)
	_, err := svc.Fund(context.Background(), "10000")
	require.NoError(t, err)
	_, err = svc.Buy(context.Background(), "AAPL", "10")
	require.NoError(t, err)

	_, err = svc.PlaceOrder(context.Background(), entity.OrderKindStopLoss, "AAPL", "6", "120")
	require.NoError(t, err)

	_, err = svc.Sell(context.Background(), "AAPL", "5")
	assert.ErrorIs(t, err, ledger.ErrInsufficientHoldings)

	_, err = svc.Sell(context.Background(), "AAPL", "4")
	assert.NoError(t, err)
}

func TestBuyPropagatesPriceFailure(t *testing.T) {
	svc := NewService(ledger.New(), &fixedPrices{err: errors.New("provider down")}, nil)
	_, err := svc.Fund(context.Background(), "1000")
	require.NoError(t, err)

	_, err = svc.Buy(context.Background(), "AAPL", "1")
	assert.Error(t, err)
	assert.True(t, svc.Ledger().CashBalance().Equal(dec("1000")))
}

func TestCancelOrderRemovesAllMatches(t *testing.T) {
	svc := newTestService(nil, nil)
	_, err := svc.Fund(context.Background(), "4000")
	require.NoError(t, err)

	_, err = svc.PlaceOrder(context.Background(), entity.OrderKindBuyLimit, "AAPL", "10", "150")
	require.NoError(t, err)
	_, err = svc.PlaceOrder(context.Background(), entity.OrderKindBuyLimit, "AAPL", "10", "150")
	require.NoError(t, err)

	msg, err := svc.CancelOrder(context.Background(), entity.OrderKindBuyLimit, "AAPL", "10", "150")
	require.NoError(t, err)
	assert.Contains(t, msg, "2")
	assert.Empty(t, svc.Ledger().OpenOrders())
}

func TestCancelMissingOrderIsNoOp(t *testing.T) {
	svc := newTestService(nil, nil)

	msg, err := svc.CancelOrder(context.Background(), entity.OrderKindStopLoss, "AAPL", "1", "100")
	require.NoError(t, err)
	assert.Equal(t, "no matching open order", msg)
}

func TestMutationsPersistSnapshots(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(ledger.New(), &fixedPrices{current: map[string]decimal.Decimal{"AAPL": dec("150")}}, store)

	_, err := svc.Fund(context.Background(), "10000")
	require.NoError(t, err)
	_, err = svc.Buy(context.Background(), "AAPL", "10")
	require.NoError(t, err)
	svc.Watch(context.Background(), "AAPL")

	assert.Equal(t, 3, store.saves)
}

func TestPersistFailureDoesNotFailCommand(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	svc := NewService(ledger.New(), &fixedPrices{}, store)

	_, err := svc.Fund(context.Background(), "100")
	require.NoError(t, err)
	assert.True(t, svc.Ledger().CashBalance().Equal(dec("100")))
}

func TestResetClearsLedgerAndStore(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(ledger.New(), &fixedPrices{}, store)
	_, err := svc.Fund(context.Background(), "100")
	require.NoError(t, err)

	msg, err := svc.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "portfolio reset", msg)
	assert.True(t, svc.Ledger().CashBalance().IsZero())
	assert.Equal(t, 1, store.resets)
}

func TestQuoteReturnsCurrentAndPreviousClose(t *testing.T) {
	svc := newTestService(map[string]decimal.Decimal{"AAPL": dec("150")}, nil)

	current, previousClose, err := svc.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, current.Equal(dec("150")))
	assert.True(t, previousClose.Equal(dec("149")))
}
