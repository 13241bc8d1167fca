package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/samthambad/naviin/internal/config"
	"github.com/samthambad/naviin/internal/infrastructure"
	"github.com/samthambad/naviin/internal/ledger"
	"github.com/samthambad/naviin/internal/repository"
	"github.com/samthambad/naviin/internal/service/pricing"
)

type operation func(ctx context.Context) error

// gracefulShutdown waits for termination syscalls and doing clean up operations after received it.
func gracefulShutdown(ctx context.Context, timeout time.Duration, ops map[string]operation) <-chan struct{} {
	wait := make(chan struct{})
	go func() {
		s := make(chan os.Signal, 1)

		// add any other syscalls that you want to be notified with
		signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		<-s

		logrus.Info("shutting down")

		// set timeout for the ops to be done to prevent system hang
		timeoutFunc := time.AfterFunc(timeout, func() {
			logrus.Error(fmt.Sprintf("timeout %d ms has been elapsed, force exit", timeout.Milliseconds()))
			os.Exit(0)
		})

		defer timeoutFunc.Stop()

		var wg sync.WaitGroup

		// Do the operations asynchronously to save time
		for key, op := range ops {
			wg.Add(1)
			innerOp := op
			innerKey := key
			go func() {
				defer wg.Done()

				logrus.Info(fmt.Sprintf("cleaning up: %s", innerKey))
				if err := innerOp(ctx); err != nil {
					logrus.Error(fmt.Sprintf("%s: clean up failed: %s", innerKey, err.Error()))
					return
				}

				logrus.Info(fmt.Sprintf("%s was shutdown gracefully", innerKey))
			}()
		}

		wg.Wait()

		close(wait)
	}()

	return wait
}

// newPricingService builds the quote provider chain from config. The redis
// cache is optional: a missing or unreachable cache only disables caching.
// The returned client may be nil and must be closed by the caller when set.
func newPricingService(ctx context.Context) (*pricing.Service, *redis.Client) {
	var cache *redis.Client
	if cacheConfig, ok := config.Env.Redis["cache"]; ok && cacheConfig.CacheDSN != "" {
		client, err := infrastructure.NewRedisClient(ctx, cacheConfig)
		if err != nil {
			logrus.WithError(err).Warn("quote cache unavailable, continuing without it")
		} else {
			cache = client
		}
	}

	priority := config.Env.Pricing.ProviderPriority
	if len(priority) == 0 {
		priority = []string{"yahoo", "fallback"}
	}

	var providers []pricing.Provider
	for _, name := range priority {
		switch name {
		case "yahoo":
			providers = append(providers, pricing.NewYahooProvider())
		case "fallback":
			if config.Env.Pricing.FallbackBaseURL == "" {
				continue
			}
			providers = append(providers, pricing.NewFallbackProvider(config.Env.Pricing.FallbackBaseURL, config.Env.Pricing.RequestTimeout))
		default:
			logrus.WithField("provider", name).Warn("unknown quote provider in priority list")
		}
	}

	return pricing.NewService(providers, cache, config.Env.Pricing.CacheTTL), cache
}

// loadLedger rehydrates the ledger from the persisted snapshot, starting
// empty when none exists yet.
func loadLedger(ctx context.Context, repo *repository.PortfolioRepository) (*ledger.Ledger, error) {
	snap, found, err := repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		logrus.Info("no persisted portfolio found, starting empty")
		return ledger.New(), nil
	}

	logrus.WithFields(logrus.Fields{
		"holdings":    len(snap.Holdings),
		"open_orders": len(snap.OpenOrders),
		"trades":      len(snap.Trades),
	}).Info("portfolio loaded from storage")

	return ledger.FromSnapshot(snap), nil
}
