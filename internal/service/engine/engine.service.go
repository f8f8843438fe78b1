package engine

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/perpsim/perpsim/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrSymbolRequired  = errors.New("symbol is required")
	ErrBalanceRequired = errors.New("starting balance must be greater than zero")
	ErrFeeRateRange    = errors.New("fee rate must be in [0, 1)")
)

type Config struct {
	Symbol          string
	StartingBalance int64
	FeeRate         decimal.Decimal
	MinNotional     decimal.Decimal
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Symbol) == "" {
		return ErrSymbolRequired
	}
	if c.StartingBalance <= 0 {
		return ErrBalanceRequired
	}
	if c.FeeRate.LessThan(decimal.Zero) || c.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return ErrFeeRateRange
	}

	return nil
}

// Engine owns the account, the position and the order queue. It is not
// safe for concurrent use: the tick loop is its only caller and all
// external mutation goes through the once-per-tick command ingestion.
type Engine struct {
	symbol      string
	account     entity.Account
	position    *entity.Position
	queue       []entity.Order
	nextOrderID int64
	recorder    entity.TradeRecorder
}

func New(cfg Config, recorder entity.TradeRecorder) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	minNotional := cfg.MinNotional
	if minNotional.LessThanOrEqual(decimal.Zero) {
		minNotional = decimal.NewFromInt(1)
	}

	return &Engine{
		symbol: strings.ToUpper(strings.TrimSpace(cfg.Symbol)),
		account: entity.Account{
			Balance:     decimal.NewFromInt(cfg.StartingBalance),
			FeeRate:     cfg.FeeRate,
			MinNotional: minNotional,
		},
		position: entity.NewPosition(),
		queue:    make([]entity.Order, 0),
		recorder: recorder,
	}, nil
}

func (e *Engine) Symbol() string {
	return e.symbol
}

func (e *Engine) Account() entity.Account {
	return e.account
}

func (e *Engine) Position() entity.Position {
	return *e.position
}

func (e *Engine) OpenOrders() []entity.Order {
	orders := make([]entity.Order, len(e.queue))
	copy(orders, e.queue)

	return orders
}

// Submit validates the request, assigns the next order id and enqueues
// the order. Malformed requests are never enqueued.
func (e *Engine) Submit(req entity.OrderRequest) (entity.Order, error) {
	if err := req.Validate(); err != nil {
		return entity.Order{}, err
	}

	e.nextOrderID++
	order := entity.Order{
		ID:         e.nextOrderID,
		Side:       req.Side,
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
	}
	e.queue = append(e.queue, order)

	return order, nil
}

// Cancel removes a queued order by id. It reports whether the order was
// still queued.
func (e *Engine) Cancel(orderID int64) bool {
	for idx, order := range e.queue {
		if order.ID == orderID {
			e.removeAt(idx)
			return true
		}
	}

	return false
}

// SetLeverage forwards to the position, which ignores the request while a
// position is open. The effective leverage is returned either way.
func (e *Engine) SetLeverage(leverage int64) int64 {
	return e.position.SetLeverage(leverage)
}

// Tick runs one matching iteration against the given price: the
// liquidation check first, then at most one queued order is fully
// processed, filled or rejected.
func (e *Engine) Tick(ctx context.Context, price decimal.Decimal) {
	e.checkLiquidation(ctx, price)
	e.processOrders(ctx, price)
}

func (e *Engine) Snapshot(now time.Time, price decimal.Decimal) entity.Snapshot {
	return entity.BuildSnapshot(now, e.symbol, price, e.account, e.position, e.OpenOrders())
}

// checkLiquidation force-closes the whole position when the tick price
// crosses the liquidation price. The realized proceeds are discarded:
// the remaining margin is treated as consumed, no balance credit.
func (e *Engine) checkLiquidation(ctx context.Context, price decimal.Decimal) bool {
	if e.position.Side == entity.PositionSideFlat {
		return false
	}

	liquidationPrice := e.position.LiquidationPrice(e.account.FeeRate)
	longLiquidated := e.position.Side == entity.PositionSideLong && price.LessThanOrEqual(liquidationPrice)
	shortLiquidated := e.position.Side == entity.PositionSideShort && price.GreaterThanOrEqual(liquidationPrice)
	if !longLiquidated && !shortLiquidated {
		return false
	}

	side := e.position.Side.String()
	quantity := e.position.Quantity
	_, pnl, err := e.position.Decrease(quantity, price)
	if err != nil {
		logrus.Error(err)
		return false
	}

	logrus.WithFields(logrus.Fields{
		"price":             price,
		"liquidation_price": liquidationPrice,
	}).Warn("position liquidated")

	e.record(ctx, entity.TradeHistory{
		Side:        side,
		Type:        string(entity.OrderTypeMarket),
		Price:       price,
		Quantity:    quantity,
		RealizedPnl: &pnl,
		Status:      entity.TradeStatusLiquidated,
	})

	return true
}

// processOrders picks the first eligible order and fully processes it at
// this tick, mutating balance, position and queue. Ineligible orders stay
// queued for the next tick; there is no cross-order netting.
func (e *Engine) processOrders(ctx context.Context, price decimal.Decimal) bool {
	for idx, order := range e.queue {
		if !order.EligibleAt(price) {
			continue
		}

		e.removeAt(idx)

		executionPrice := order.ExecutionPrice(price)
		leverage := decimal.NewFromInt(e.position.Leverage)

		if order.Quantity.Mul(executionPrice).Div(leverage).LessThan(e.account.MinNotional) {
			e.reject(ctx, order, executionPrice, "order value below minimum notional")
			return false
		}

		if e.position.Side == entity.PositionSideFlat || order.Side.PositionSide() == e.position.Side {
			return e.openOrIncrease(ctx, order, executionPrice, leverage)
		}

		return e.closeOrReverse(ctx, order, executionPrice, leverage)
	}

	return false
}

func (e *Engine) openOrIncrease(ctx context.Context, order entity.Order, price, leverage decimal.Decimal) bool {
	fee := order.Quantity.Mul(price).Mul(e.account.FeeRate)
	cost := order.Quantity.Mul(price).Div(leverage).Add(fee)

	if e.account.Balance.LessThan(cost) {
		e.reject(ctx, order, price, "not enough balance")
		return false
	}

	e.account.Balance = e.account.Balance.Sub(cost)
	if e.position.Side == entity.PositionSideFlat {
		e.position.Side = order.Side.PositionSide()
	}
	if err := e.position.Increase(order.Quantity, price); err != nil {
		logrus.Error(err)
		return false
	}

	e.logFill(order, price)
	e.record(ctx, e.fillTrade(order, price, fee, nil))

	return true
}

func (e *Engine) closeOrReverse(ctx context.Context, order entity.Order, price, leverage decimal.Decimal) bool {
	if order.Quantity.LessThanOrEqual(e.position.Quantity) {
		initial, pnl, err := e.position.Decrease(order.Quantity, price)
		if err != nil {
			logrus.Error(err)
			return false
		}

		fee := initial.Add(pnl).Mul(e.account.FeeRate)
		e.account.Balance = e.account.Balance.Add(initial.Div(leverage)).Add(pnl).Sub(fee)

		e.logFill(order, price)
		e.record(ctx, e.fillTrade(order, price, fee, &pnl))

		return true
	}

	// Full close plus reverse open: the close proceeds fund the reversal
	// in the same tick. If even the combined funds cannot cover the
	// remaining quantity, the whole order is rejected and the close does
	// not partially execute.
	remaining := order.Quantity.Sub(e.position.Quantity)
	openFee := remaining.Mul(price).Mul(e.account.FeeRate)
	cost := remaining.Mul(price).Div(leverage).Add(openFee)
	combined := e.account.Balance.Add(e.position.Value(price, e.account.FeeRate))

	if combined.LessThan(cost) {
		e.reject(ctx, order, price, "not enough balance")
		return false
	}

	initial, pnl, err := e.position.Decrease(e.position.Quantity, price)
	if err != nil {
		logrus.Error(err)
		return false
	}

	closeFee := initial.Add(pnl).Mul(e.account.FeeRate)
	e.account.Balance = e.account.Balance.Add(initial.Div(leverage)).Add(pnl).Sub(closeFee)

	e.account.Balance = e.account.Balance.Sub(cost)
	e.position.Side = order.Side.PositionSide()
	if err := e.position.Increase(remaining, price); err != nil {
		logrus.Error(err)
		return false
	}

	totalFee := closeFee.Add(openFee)
	e.logFill(order, price)
	e.record(ctx, e.fillTrade(order, price, totalFee, &pnl))

	return true
}

func (e *Engine) reject(ctx context.Context, order entity.Order, price decimal.Decimal, reason string) {
	logrus.WithFields(logrus.Fields{
		"price":    price,
		"order_id": order.ID,
		"side":     order.Side,
		"quantity": order.Quantity,
	}).Infof("order not processed: %s", reason)

	e.record(ctx, entity.TradeHistory{
		OrderID:  sql.NullInt64{Int64: order.ID, Valid: true},
		Side:     string(order.Side),
		Type:     string(order.Type()),
		Price:    price,
		Quantity: order.Quantity,
		Status:   entity.TradeStatusRejected,
		Reason:   sql.NullString{String: reason, Valid: true},
	})
}

func (e *Engine) fillTrade(order entity.Order, price, fee decimal.Decimal, realizedPnl *decimal.Decimal) entity.TradeHistory {
	return entity.TradeHistory{
		OrderID:     sql.NullInt64{Int64: order.ID, Valid: true},
		Side:        string(order.Side),
		Type:        string(order.Type()),
		Price:       price,
		Quantity:    order.Quantity,
		Fee:         &fee,
		RealizedPnl: realizedPnl,
		Status:      entity.TradeStatusFilled,
	}
}

func (e *Engine) logFill(order entity.Order, price decimal.Decimal) {
	logrus.WithFields(logrus.Fields{
		"price":    price,
		"order_id": order.ID,
		"side":     order.Side,
		"quantity": order.Quantity,
	}).Info("order processed")
}

func (e *Engine) record(ctx context.Context, trade entity.TradeHistory) {
	if e.recorder == nil {
		return
	}

	trade.ID = uuid.NewString()
	trade.Symbol = e.symbol
	trade.BalanceAfter = e.account.Balance
	trade.CreatedAt = time.Now().UTC()

	e.recorder.Record(ctx, trade)
}

func (e *Engine) removeAt(idx int) {
	e.queue = append(e.queue[:idx], e.queue[idx+1:]...)
}
