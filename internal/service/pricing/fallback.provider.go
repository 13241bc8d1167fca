package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const defaultFallbackTimeout = 10 * time.Second

// FallbackProvider queries a self-hosted quote endpoint, used when the
// primary provider is rate limited or down. Expected response shape:
//
//	{"symbol": "AAPL", "price": "189.30", "previous_close": "187.95"}
type FallbackProvider struct {
	client *resty.Client
}

type fallbackQuote struct {
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	PreviousClose string `json:"previous_close"`
}

func NewFallbackProvider(baseURL string, timeout time.Duration) *FallbackProvider {
	if timeout <= 0 {
		timeout = defaultFallbackTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2)

	return &FallbackProvider{client: client}
}

func (p *FallbackProvider) Name() string {
	return "fallback"
}

func (p *FallbackProvider) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q, err := p.fetch(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	price, err := decimal.NewFromString(q.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fallback quote for %s: bad price %q", symbol, q.Price)
	}

	return price, nil
}

func (p *FallbackProvider) PreviousClose(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q, err := p.fetch(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	price, err := decimal.NewFromString(q.PreviousClose)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fallback quote for %s: bad previous close %q", symbol, q.PreviousClose)
	}

	return price, nil
}

func (p *FallbackProvider) fetch(ctx context.Context, symbol string) (*fallbackQuote, error) {
	var q fallbackQuote
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&q).
		Get("/quote")
	if err != nil {
		return nil, fmt.Errorf("fallback quote for %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fallback quote for %s: status %d", symbol, resp.StatusCode())
	}

	return &q, nil
}
