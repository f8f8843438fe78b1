package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/perpsim/perpsim/internal/config"
	httpHandler "github.com/perpsim/perpsim/internal/handler/gateway/http"
	"github.com/perpsim/perpsim/internal/infrastructure"
	"github.com/perpsim/perpsim/internal/service/command"
	"github.com/perpsim/perpsim/internal/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartGateway(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient, err := command.NewRedisClient(config.Env.Redis.CacheDSN)
	util.ContinueOrFatal(err)

	symbol := config.Env.Simulator.Symbol
	commands := command.NewRedisCommandStore(redisClient, symbol)
	snapshots := command.NewRedisSnapshotStore(redisClient, symbol)

	gatewayHTTPHandler := httpHandler.NewGatewayHTTPHandler(commands, snapshots)
	httpMux := http.NewServeMux()
	gatewayHTTPHandler.Register(httpMux)

	httpPort := fmt.Sprintf(":%s", config.Env.Port["gateway_http"])
	httpServer := infrastructure.NewHTTPServerWithConfig(infrastructure.HTTPServerConfig{
		Addr:            httpPort,
		ShutdownTimeout: config.Env.GracefulShutdownTimeout,
	}, httpMux)

	go func() {
		err := httpServer.Start()
		if err != nil {
			logrus.Error(err)
		}
	}()
	logrus.Info(fmt.Sprintf("http server started on %s", httpPort))

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"http": func(ctx context.Context) error {
			cancel()
			return httpServer.Shutdown(ctx)
		},
		"redis connection": func(ctx context.Context) error {
			return redisClient.Close()
		},
	})

	<-wait
}
