package bootstrap

import (
	"context"
	"strings"

	"github.com/perpsim/perpsim/internal/config"
	"github.com/perpsim/perpsim/internal/infrastructure"
	"github.com/perpsim/perpsim/internal/service/command"
	"github.com/perpsim/perpsim/internal/service/engine"
	"github.com/perpsim/perpsim/internal/service/feed"
	"github.com/perpsim/perpsim/internal/service/simulator"
	"github.com/perpsim/perpsim/internal/service/tradehistory"
	"github.com/perpsim/perpsim/internal/util"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartEngine(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	simulatorConfig := resolveSimulatorConfig(cmd)

	redisClient, err := command.NewRedisClient(config.Env.Redis.CacheDSN)
	util.ContinueOrFatal(err)

	nc, js, err := infrastructure.NewJetstream()
	util.ContinueOrFatal(err)

	recorder := tradehistory.NewJetstreamTradeRecorder(js)
	err = recorder.JetstreamEventInit(ctx)
	util.ContinueOrFatal(err)

	eng, err := engine.New(engine.Config{
		Symbol:          simulatorConfig.Symbol,
		StartingBalance: simulatorConfig.StartingBalance,
		FeeRate:         simulatorConfig.FeeRate,
		MinNotional:     simulatorConfig.MinNotional,
	}, recorder)
	util.ContinueOrFatal(err)

	commands := command.NewRedisCommandStore(redisClient, eng.Symbol())
	snapshots := command.NewRedisSnapshotStore(redisClient, eng.Symbol())

	priceFeed := feed.NewBinanceFeed(simulatorConfig.Symbol, simulatorConfig.FeedWSURL)
	err = priceFeed.Subscribe(ctx)
	util.ContinueOrFatal(err)

	sim := simulator.New(eng, priceFeed, commands, snapshots)

	go func() {
		err := sim.Run(ctx)
		util.ContinueOrFatal(err)
	}()

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"binance feed": func(ctx context.Context) error {
			cancel()
			if err := priceFeed.Unsubscribe(); err != nil {
				logrus.Warnf("unsubscribe failed: %v", err)
			}
			return priceFeed.Close()
		},
		"redis connection": func(ctx context.Context) error {
			return redisClient.Close()
		},
		"nats connection": func(ctx context.Context) error {
			return infrastructure.CloseJetstream(nc)
		},
	})

	<-wait
}

func resolveSimulatorConfig(cmd *cobra.Command) config.SimulatorConfig {
	cfg := config.Env.Simulator

	if symbol, err := cmd.Flags().GetString("symbol"); err == nil && strings.TrimSpace(symbol) != "" {
		cfg.Symbol = strings.TrimSpace(symbol)
	}

	if balance, err := cmd.Flags().GetInt64("balance"); err == nil && cmd.Flags().Changed("balance") {
		cfg.StartingBalance = balance
	}

	if cmd.Flags().Changed("fee") {
		raw, _ := cmd.Flags().GetString("fee")
		feeRate, err := decimal.NewFromString(strings.TrimSpace(raw))
		util.ContinueOrFatal(err)
		cfg.FeeRate = feeRate
	}

	return cfg
}
