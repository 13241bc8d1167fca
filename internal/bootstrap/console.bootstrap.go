package bootstrap

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/samthambad/naviin/internal/config"
	"github.com/samthambad/naviin/internal/console"
	"github.com/samthambad/naviin/internal/constant"
	"github.com/samthambad/naviin/internal/infrastructure"
	"github.com/samthambad/naviin/internal/repository"
	"github.com/samthambad/naviin/internal/service/ordermonitor"
	"github.com/samthambad/naviin/internal/service/portfolio"
	"github.com/samthambad/naviin/internal/util"
)

// StartConsole runs the interactive command loop with the order monitor in a
// background goroutine sharing the same ledger.
func StartConsole(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	portfolioDB, err := infrastructure.NewPostgresConnection(ctx, config.Env.Database[constant.PortfolioDatabaseName])
	util.ContinueOrFatal(err)
	defer portfolioDB.Close()
	infrastructure.StartPostgresHealthCheck(ctx, portfolioDB, config.Env.Database[constant.PortfolioDatabaseName].PingInterval)

	portfolioRepo := repository.NewPortfolioRepository(portfolioDB)
	book, err := loadLedger(ctx, portfolioRepo)
	util.ContinueOrFatal(err)

	pricingService, cache := newPricingService(ctx)
	if cache != nil {
		defer cache.Close()
	}

	portfolioService := portfolio.NewService(book, pricingService, portfolioRepo)
	monitorService := ordermonitor.NewMonitorService(book, pricingService, portfolioRepo, nil, config.Env.Monitor.PollInterval)
	if config.Env.Monitor.StartPaused {
		monitorService.Pause()
	}

	go monitorService.Run(ctx)

	err = console.New(portfolioService, monitorService, os.Stdin, os.Stdout).Run(ctx)
	util.ContinueOrFatal(err)
}
