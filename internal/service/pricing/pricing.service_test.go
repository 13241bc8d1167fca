package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name  string
	price decimal.Decimal
	err   error
	calls int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) CurrentPrice(_ context.Context, _ string) (decimal.Decimal, error) {
	p.calls++
	return p.price, p.err
}

func (p *stubProvider) PreviousClose(_ context.Context, _ string) (decimal.Decimal, error) {
	p.calls++
	return p.price, p.err
}

func TestCurrentPriceUsesFirstHealthyProvider(t *testing.T) {
	primary := &stubProvider{name: "primary", price: decimal.NewFromInt(150)}
	secondary := &stubProvider{name: "secondary", price: decimal.NewFromInt(151)}
	svc := NewService([]Provider{primary, secondary}, nil, 0)

	price, err := svc.CurrentPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, secondary.calls)
}

func TestCurrentPriceFallsBackOnError(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("rate limited")}
	secondary := &stubProvider{name: "secondary", price: decimal.NewFromInt(151)}
	svc := NewService([]Provider{primary, secondary}, nil, 0)

	price, err := svc.CurrentPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(151)))
}

func TestCurrentPriceSkipsZeroQuotes(t *testing.T) {
	primary := &stubProvider{name: "primary", price: decimal.Zero}
	secondary := &stubProvider{name: "secondary", price: decimal.NewFromInt(99)}
	svc := NewService([]Provider{primary, secondary}, nil, 0)

	price, err := svc.CurrentPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(99)))
}

func TestCurrentPriceAllProvidersFail(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("down")}
	svc := NewService([]Provider{primary}, nil, 0)

	_, err := svc.CurrentPrice(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestPreviousCloseFallsBack(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("down")}
	secondary := &stubProvider{name: "secondary", price: decimal.NewFromInt(187)}
	svc := NewService([]Provider{primary, secondary}, nil, 0)

	price, err := svc.PreviousClose(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(187)))
}
