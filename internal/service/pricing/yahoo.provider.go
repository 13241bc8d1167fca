package pricing

import (
	"context"
	"fmt"

	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"
)

// YahooProvider fetches quotes from Yahoo Finance.
type YahooProvider struct{}

func NewYahooProvider() *YahooProvider {
	return &YahooProvider{}
}

func (p *YahooProvider) Name() string {
	return "yahoo"
}

func (p *YahooProvider) CurrentPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	q, err := quote.Get(symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("yahoo quote for %s: %w", symbol, err)
	}
	if q == nil {
		return decimal.Zero, fmt.Errorf("yahoo quote for %s: %w", symbol, ErrPriceUnavailable)
	}

	return decimal.NewFromFloat(q.RegularMarketPrice), nil
}

func (p *YahooProvider) PreviousClose(_ context.Context, symbol string) (decimal.Decimal, error) {
	q, err := quote.Get(symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("yahoo quote for %s: %w", symbol, err)
	}
	if q == nil {
		return decimal.Zero, fmt.Errorf("yahoo quote for %s: %w", symbol, ErrPriceUnavailable)
	}

	return decimal.NewFromFloat(q.RegularMarketPreviousClose), nil
}
