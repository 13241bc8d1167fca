// Package pricing resolves market quotes through an ordered provider chain
// with an optional redis cache in front. A quote failure is never fatal to
// callers: they treat ErrPriceUnavailable as "no price, skip".
package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/samthambad/naviin/internal/constant"
)

var ErrPriceUnavailable = errors.New("price unavailable")

const defaultCacheTTL = 5 * time.Second

// Provider is one upstream quote source.
type Provider interface {
	Name() string
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	PreviousClose(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type Service struct {
	providers []Provider
	cache     *redis.Client // nil disables caching
	cacheTTL  time.Duration
}

func NewService(providers []Provider, cache *redis.Client, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	return &Service{
		providers: providers,
		cache:     cache,
		cacheTTL:  cacheTTL,
	}
}

func (s *Service) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return s.resolve(ctx, "last", symbol, Provider.CurrentPrice)
}

func (s *Service) PreviousClose(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return s.resolve(ctx, "close", symbol, Provider.PreviousClose)
}

func (s *Service) resolve(ctx context.Context, field, symbol string, fetch func(Provider, context.Context, string) (decimal.Decimal, error)) (decimal.Decimal, error) {
	cacheKey := constant.QuoteCacheKeyPrefix + field + ":" + symbol

	if cached, ok := s.cachedQuote(ctx, cacheKey); ok {
		return cached, nil
	}

	for _, provider := range s.providers {
		price, err := fetch(provider, ctx, symbol)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"provider": provider.Name(),
				"symbol":   symbol,
				"field":    field,
			}).WithError(err).Warn("quote provider failed")
			continue
		}
		if price.LessThanOrEqual(decimal.Zero) {
			continue
		}

		s.cacheQuote(ctx, cacheKey, price)
		return price, nil
	}

	return decimal.Zero, ErrPriceUnavailable
}

func (s *Service) cachedQuote(ctx context.Context, key string) (decimal.Decimal, bool) {
	if s.cache == nil {
		return decimal.Zero, false
	}

	raw, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logrus.WithError(err).Debug("quote cache read failed")
		}
		return decimal.Zero, false
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}

	return price, true
}

func (s *Service) cacheQuote(ctx context.Context, key string, price decimal.Decimal) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Set(ctx, key, price.String(), s.cacheTTL).Err(); err != nil {
		logrus.WithError(err).Debug("quote cache write failed")
	}
}
