package bootstrap

import (
	"context"

	"github.com/perpsim/perpsim/internal/config"
	"github.com/perpsim/perpsim/internal/infrastructure"
	"github.com/perpsim/perpsim/internal/repository"
	"github.com/perpsim/perpsim/internal/service/tradehistory"
	"github.com/perpsim/perpsim/internal/util"
	"github.com/spf13/cobra"
)

func StartTradeHistoryWorker(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infrastructure.NewPostgresConnection(ctx, config.Env.Database)
	util.ContinueOrFatal(err)
	infrastructure.StartPostgresHealthCheck(ctx, db, config.Env.Database.PingInterval)

	nc, js, err := infrastructure.NewJetstream()
	util.ContinueOrFatal(err)

	tradeHistoryRepo := repository.NewTradeHistoryRepository(db)
	tradeHistoryService := tradehistory.NewTradeHistoryService(js, tradeHistoryRepo)

	err = tradeHistoryService.JetstreamEventSubscribe(ctx)
	util.ContinueOrFatal(err)

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"database": func(ctx context.Context) error {
			cancel()
			return db.Close()
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}
