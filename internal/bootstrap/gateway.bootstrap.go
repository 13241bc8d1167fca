package bootstrap

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/samthambad/naviin/internal/config"
	"github.com/samthambad/naviin/internal/constant"
	portfoliohttp "github.com/samthambad/naviin/internal/handler/portfolio/http"
	"github.com/samthambad/naviin/internal/infrastructure"
	"github.com/samthambad/naviin/internal/repository"
	"github.com/samthambad/naviin/internal/service/portfolio"
	"github.com/samthambad/naviin/internal/util"
)

// StartGateway serves the read endpoints, order placement and the watchlist
// quote stream over HTTP.
func StartGateway(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	portfolioDB, err := infrastructure.NewPostgresConnection(ctx, config.Env.Database[constant.PortfolioDatabaseName])
	util.ContinueOrFatal(err)
	infrastructure.StartPostgresHealthCheck(ctx, portfolioDB, config.Env.Database[constant.PortfolioDatabaseName].PingInterval)

	portfolioRepo := repository.NewPortfolioRepository(portfolioDB)
	book, err := loadLedger(ctx, portfolioRepo)
	util.ContinueOrFatal(err)

	pricingService, cache := newPricingService(ctx)

	portfolioService := portfolio.NewService(book, pricingService, portfolioRepo)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	portfoliohttp.NewPortfolioHTTPHandler(portfolioService, config.Env.Pricing.StreamInterval).Register(mux)

	httpServer := infrastructure.NewHTTPServer(mux)
	go func() {
		err := httpServer.Start()
		util.ContinueOrFatal(err)
	}()

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"http server": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
		"portfolio database": func(ctx context.Context) error {
			cancel()
			return portfolioDB.Close()
		},
		"redis cache": func(ctx context.Context) error {
			if cache == nil {
				return nil
			}
			return cache.Close()
		},
	})

	<-wait
}
