package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/perpsim/perpsim/internal/config"
	"github.com/perpsim/perpsim/internal/entity"
	"github.com/perpsim/perpsim/internal/infrastructure"
	"github.com/perpsim/perpsim/internal/repository"
	"github.com/perpsim/perpsim/internal/service/command"
	"github.com/perpsim/perpsim/internal/util"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const clientCommandTimeout = 5 * time.Second

// The client commands talk to a running engine through its redis command
// slots and snapshot key. They never touch engine state directly.

func StartSubmitOrder(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), clientCommandTimeout)
	defer cancel()

	side, _ := cmd.Flags().GetString("side")
	quantity, _ := cmd.Flags().GetString("quantity")
	price, _ := cmd.Flags().GetString("price")

	req := entity.OrderRequest{
		RequestID:   uuid.NewString(),
		Side:        entity.OrderSide(strings.ToUpper(strings.TrimSpace(side))),
		SubmittedAt: time.Now().UTC().UnixMilli(),
	}

	qty, err := decimal.NewFromString(quantity)
	util.ContinueOrFatal(err)
	req.Quantity = qty

	if price != "" {
		limitPrice, err := decimal.NewFromString(price)
		util.ContinueOrFatal(err)
		req.LimitPrice = &limitPrice
	}

	err = req.Validate()
	util.ContinueOrFatal(err)

	commands, _, redisClient := newClientStores(cmd)
	defer redisClient.Close()

	err = commands.SubmitOrder(ctx, req)
	util.ContinueOrFatal(err)

	logrus.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"side":       req.Side,
		"quantity":   req.Quantity.String(),
	}).Info("order queued")
}

func StartCancelOrder(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), clientCommandTimeout)
	defer cancel()

	orderID, _ := cmd.Flags().GetInt64("id")
	if orderID <= 0 {
		util.ContinueOrFatal(errors.New("order id is required"))
	}

	commands, _, redisClient := newClientStores(cmd)
	defer redisClient.Close()

	err := commands.RequestCancel(ctx, entity.CancelRequest{OrderID: orderID})
	util.ContinueOrFatal(err)

	logrus.WithField("order_id", orderID).Info("cancel queued")
}

func StartSetLeverage(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), clientCommandTimeout)
	defer cancel()

	leverage, _ := cmd.Flags().GetInt64("leverage")
	if leverage < 1 {
		util.ContinueOrFatal(errors.New("leverage must be at least 1"))
	}

	commands, _, redisClient := newClientStores(cmd)
	defer redisClient.Close()

	err := commands.RequestLeverage(ctx, entity.LeverageRequest{Leverage: leverage})
	util.ContinueOrFatal(err)

	logrus.WithField("leverage", leverage).Info("leverage change queued")
}

func StartStatus(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), clientCommandTimeout)
	defer cancel()

	_, snapshots, redisClient := newClientStores(cmd)
	defer redisClient.Close()

	snapshot, found, err := snapshots.Load(ctx)
	util.ContinueOrFatal(err)
	if !found {
		util.ContinueOrFatal(errors.New("no snapshot available, is the engine running?"))
	}

	payload, err := json.MarshalIndent(snapshot, "", "  ")
	util.ContinueOrFatal(err)

	fmt.Println(string(payload))
}

func StartClosePosition(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), clientCommandTimeout)
	defer cancel()

	price, _ := cmd.Flags().GetString("price")

	commands, snapshots, redisClient := newClientStores(cmd)
	defer redisClient.Close()

	snapshot, found, err := snapshots.Load(ctx)
	util.ContinueOrFatal(err)
	if !found {
		util.ContinueOrFatal(errors.New("no snapshot available, is the engine running?"))
	}
	if !snapshot.HasPosition() {
		util.ContinueOrFatal(errors.New("no open position to close"))
	}

	req := entity.OrderRequest{
		RequestID:   uuid.NewString(),
		Side:        entity.OrderSideSell,
		Quantity:    snapshot.Position.Quantity,
		SubmittedAt: time.Now().UTC().UnixMilli(),
	}
	if snapshot.Position.Side == entity.PositionSideShort.String() {
		req.Side = entity.OrderSideBuy
	}

	if price != "" {
		limitPrice, err := decimal.NewFromString(price)
		util.ContinueOrFatal(err)
		req.LimitPrice = &limitPrice
	}

	err = commands.SubmitOrder(ctx, req)
	util.ContinueOrFatal(err)

	logrus.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"side":       req.Side,
		"quantity":   req.Quantity.String(),
	}).Info("close order queued")
}

func StartTrades(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), clientCommandTimeout)
	defer cancel()

	limit, _ := cmd.Flags().GetUint64("limit")
	symbol := resolveClientSymbol(cmd)

	db, err := infrastructure.NewPostgresConnection(ctx, config.Env.Database)
	util.ContinueOrFatal(err)
	defer db.Close()

	tradeHistoryRepo := repository.NewTradeHistoryRepository(db)
	trades, err := tradeHistoryRepo.GetRecentBySymbol(ctx, symbol, limit)
	util.ContinueOrFatal(err)

	payload, err := json.MarshalIndent(trades, "", "  ")
	util.ContinueOrFatal(err)

	fmt.Println(string(payload))
}

func newClientStores(cmd *cobra.Command) (*command.RedisCommandStore, *command.RedisSnapshotStore, *redis.Client) {
	symbol := resolveClientSymbol(cmd)

	redisClient, err := command.NewRedisClient(config.Env.Redis.CacheDSN)
	util.ContinueOrFatal(err)

	commands := command.NewRedisCommandStore(redisClient, symbol)
	snapshots := command.NewRedisSnapshotStore(redisClient, symbol)

	return commands, snapshots, redisClient
}

func resolveClientSymbol(cmd *cobra.Command) string {
	symbol, _ := cmd.Flags().GetString("symbol")
	if symbol == "" {
		symbol = config.Env.Simulator.Symbol
	}
	if symbol == "" {
		util.ContinueOrFatal(errors.New("symbol is required"))
	}

	return symbol
}
