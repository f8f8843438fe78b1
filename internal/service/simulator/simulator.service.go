package simulator

import (
	"context"
	"time"

	"github.com/perpsim/perpsim/internal/entity"
	"github.com/perpsim/perpsim/internal/service/engine"
	"github.com/sirupsen/logrus"
)

// Simulator drives the engine: one blocking price fetch, one command
// ingestion, the liquidation check, the matching pass and one snapshot
// publish per tick. Everything runs on a single goroutine; the price
// fetch is the only suspension point.
type Simulator struct {
	engine    *engine.Engine
	feed      entity.PriceFeed
	commands  entity.CommandStore
	snapshots entity.SnapshotStore
}

func New(eng *engine.Engine, feed entity.PriceFeed, commands entity.CommandStore, snapshots entity.SnapshotStore) *Simulator {
	return &Simulator{
		engine:    eng,
		feed:      feed,
		commands:  commands,
		snapshots: snapshots,
	}
}

// Run loops until the context is cancelled or the feed fails for good.
// Snapshot publish failures are logged and the loop moves on to the next
// tick.
func (s *Simulator) Run(ctx context.Context) error {
	logrus.WithField("symbol", s.engine.Symbol()).Info("simulator started")

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		price, err := s.feed.NextPrice(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		s.ingestCommands(ctx)
		s.engine.Tick(ctx, price)

		snapshot := s.engine.Snapshot(time.Now(), price)
		if err := s.snapshots.Save(ctx, snapshot); err != nil {
			logrus.Errorf("failed to save snapshot: %v", err)
		}

		s.logTick(snapshot)
	}
}

// ingestCommands consumes at most one pending order, one leverage change
// and one cancellation from the command boundary. Commands are read once
// per tick and never mid-tick.
func (s *Simulator) ingestCommands(ctx context.Context) {
	leverageReq, err := s.commands.TakeLeverage(ctx)
	if err != nil {
		logrus.Errorf("failed to read leverage request: %v", err)
	} else if leverageReq != nil {
		effective := s.engine.SetLeverage(leverageReq.Leverage)
		logrus.WithFields(logrus.Fields{
			"requested": leverageReq.Leverage,
			"effective": effective,
		}).Info("leverage request ingested")
	}

	cancelReq, err := s.commands.TakeCancel(ctx)
	if err != nil {
		logrus.Errorf("failed to read cancel request: %v", err)
	} else if cancelReq != nil {
		cancelled := s.engine.Cancel(cancelReq.OrderID)
		logrus.WithFields(logrus.Fields{
			"order_id":  cancelReq.OrderID,
			"cancelled": cancelled,
		}).Info("cancel request ingested")
	}

	orderReq, err := s.commands.TakeOrder(ctx)
	if err != nil {
		logrus.Errorf("failed to read pending order: %v", err)
		return
	}
	if orderReq == nil {
		return
	}

	order, err := s.engine.Submit(*orderReq)
	if err != nil {
		logrus.WithField("request_id", orderReq.RequestID).Errorf("order rejected at submission: %v", err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"side":     order.Side,
		"quantity": order.Quantity,
		"type":     order.Type(),
	}).Info("order submitted")
}

func (s *Simulator) logTick(snapshot entity.Snapshot) {
	if !snapshot.HasPosition() {
		logrus.WithField("price", snapshot.Price).Debug("tick")
		return
	}

	logrus.WithFields(logrus.Fields{
		"price":             snapshot.Price,
		"position":          snapshot.Position.Side,
		"quantity":          snapshot.Position.Quantity,
		"entry_price":       snapshot.Position.EntryPrice,
		"leverage":          snapshot.Position.Leverage,
		"liquidation_price": snapshot.Position.LiquidationPrice,
		"pnl":               snapshot.Position.PnL,
		"margin":            snapshot.Position.Margin,
	}).Info("tick")
}
