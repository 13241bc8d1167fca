package bootstrap

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/samthambad/naviin/internal/config"
	"github.com/samthambad/naviin/internal/constant"
	"github.com/samthambad/naviin/internal/infrastructure"
	"github.com/samthambad/naviin/internal/repository"
	"github.com/samthambad/naviin/internal/service/notifier"
	"github.com/samthambad/naviin/internal/service/ordermonitor"
	"github.com/samthambad/naviin/internal/util"
)

// StartOrderMonitorWorker runs the execution engine headless: it polls
// prices, executes triggered conditional orders, persists snapshots and
// publishes one jetstream event per execution.
func StartOrderMonitorWorker(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	portfolioDB, err := infrastructure.NewPostgresConnection(ctx, config.Env.Database[constant.PortfolioDatabaseName])
	util.ContinueOrFatal(err)
	infrastructure.StartPostgresHealthCheck(ctx, portfolioDB, config.Env.Database[constant.PortfolioDatabaseName].PingInterval)

	nc, js, err := infrastructure.NewJetstream()
	util.ContinueOrFatal(err)

	orderNotifier := notifier.NewJetstreamNotifier(js)
	err = orderNotifier.JetstreamEventInit(ctx)
	util.ContinueOrFatal(err)

	portfolioRepo := repository.NewPortfolioRepository(portfolioDB)
	book, err := loadLedger(ctx, portfolioRepo)
	util.ContinueOrFatal(err)

	pricingService, cache := newPricingService(ctx)

	monitorService := ordermonitor.NewMonitorService(book, pricingService, portfolioRepo, orderNotifier, config.Env.Monitor.PollInterval)
	if config.Env.Monitor.StartPaused {
		monitorService.Pause()
	}

	go monitorService.Run(ctx)

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"portfolio database": func(ctx context.Context) error {
			cancel()
			return portfolioDB.Close()
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
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
