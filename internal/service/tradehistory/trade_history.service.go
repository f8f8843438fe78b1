package tradehistory

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/perpsim/perpsim/internal/config"
	"github.com/perpsim/perpsim/internal/constant"
	"github.com/perpsim/perpsim/internal/entity"
	"github.com/perpsim/perpsim/internal/repository"
	"github.com/perpsim/perpsim/internal/util"
	"github.com/sirupsen/logrus"
)

// JetstreamTradeRecorder is the engine-side half of the trade history
// pipeline: every fill, rejection and liquidation is published as an
// event and persisted by the worker. Publish failures are logged only,
// they never affect matching.
type JetstreamTradeRecorder struct {
	js nats.JetStreamContext
}

func NewJetstreamTradeRecorder(js nats.JetStreamContext) *JetstreamTradeRecorder {
	return &JetstreamTradeRecorder{js: js}
}

func (r *JetstreamTradeRecorder) Record(ctx context.Context, trade entity.TradeHistory) {
	err := util.PublishEvent(r.js, constant.TradeStreamSubjectTrade, entity.TradeEvent{
		RetryCount: 0,
		Data:       trade,
	})
	if err != nil {
		logrus.Errorf("failed to publish trade event: %v", err)
	}
}

func (r *JetstreamTradeRecorder) JetstreamEventInit(ctx context.Context) error {
	return initTradeStream(ctx, r.js)
}

// TradeHistoryService is the worker-side half: it consumes trade events
// from JetStream and persists them to Postgres.
type TradeHistoryService struct {
	tradeHistoryRepo *repository.TradeHistoryRepository
	js               nats.JetStreamContext
}

func NewTradeHistoryService(js nats.JetStreamContext, tradeHistoryRepo *repository.TradeHistoryRepository) *TradeHistoryService {
	return &TradeHistoryService{
		js:               js,
		tradeHistoryRepo: tradeHistoryRepo,
	}
}

func (s *TradeHistoryService) JetstreamEventInit(ctx context.Context) error {
	return initTradeStream(ctx, s.js)
}

func (s *TradeHistoryService) JetstreamEventSubscribe(ctx context.Context) error {
	err := s.JetstreamEventInit(ctx)
	if err != nil {
		logrus.Error(err)
		return err
	}

	_, err = s.js.QueueSubscribe(
		constant.TradeStreamSubjectTrade,
		constant.TradeQueueGroup,
		func(msg *nats.Msg) {
			err := util.ProcessWithTimeout(config.Env.NatsJetstream.TimeoutHandler["insert_trade"], msg, s.handleTradeEvent)
			if err != nil {
				logrus.Errorf("error processing message: %v", err)
				return
			}

			err = msg.Ack()
			if err != nil {
				logrus.Errorf("failed to acknowledge message: %v", err)
				return
			}
		},
		nats.ManualAck(),
		nats.Durable(constant.TradeQueueGroup),
	)
	util.ContinueOrFatal(err)

	return nil
}

func (s *TradeHistoryService) handleTradeEvent(ctx context.Context, msg *nats.Msg) (err error) {
	logger := logrus.WithFields(logrus.Fields{
		"req": string(msg.Data),
	})

	var req *entity.TradeEvent
	err = json.Unmarshal(msg.Data, &req)
	if err != nil {
		logger.Error(err)
		return err
	}

	defer func() {
		if err != nil {
			logger.Error(err)
			req.RetryCount++
			if req.RetryCount >= config.Env.NatsJetstream.MaxRetries {
				return
			}

			err := util.PublishEvent(s.js, constant.TradeStreamSubjectTrade, req)
			if err != nil {
				logger.Error(err)
				return
			}
		}
	}()

	err = s.tradeHistoryRepo.Create(ctx, &req.Data)
	if err != nil {
		logger.Error(err)
		return err
	}

	return nil
}

func initTradeStream(ctx context.Context, js nats.JetStreamContext) error {
	streamConfig := &nats.StreamConfig{
		Name:      constant.TradeStreamName,
		Subjects:  []string{constant.TradeStreamSubjectAll},
		Retention: nats.WorkQueuePolicy,
		Storage:   nats.FileStorage,
		MaxAge:    24 * time.Hour,
	}

	stream, err := js.StreamInfo(constant.TradeStreamName, nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		logrus.Error(err)
		return err
	}

	if stream == nil {
		logrus.Infof("creating stream: %s", constant.TradeStreamName)
		_, err = js.AddStream(streamConfig, nats.Context(ctx))
		return err
	}

	logrus.Infof("updating stream: %s", constant.TradeStreamName)
	_, err = js.UpdateStream(streamConfig, nats.Context(ctx))
	if err != nil {
		logrus.Error(err)
		return err
	}

	logrus.Infof("stream %s is ready", constant.TradeStreamName)

	return nil
}
