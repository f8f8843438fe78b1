package entity

import (
	"context"

	"github.com/shopspring/decimal"
)

// LeverageRequest asks the engine to change leverage. It only takes
// effect while the position is flat.
type LeverageRequest struct {
	Leverage int64 `json:"leverage"`
}

// CancelRequest asks the engine to drop a queued order by id.
type CancelRequest struct {
	OrderID int64 `json:"order_id"`
}

// CommandStore is the single mutator of desired state from outside the
// engine. Each slot holds at most one pending command; a new submission
// before the previous one is consumed replaces it. The engine consumes
// each slot at most once per tick.
type CommandStore interface {
	SubmitOrder(ctx context.Context, req OrderRequest) error
	RequestLeverage(ctx context.Context, req LeverageRequest) error
	RequestCancel(ctx context.Context, req CancelRequest) error

	TakeOrder(ctx context.Context) (*OrderRequest, error)
	TakeLeverage(ctx context.Context) (*LeverageRequest, error)
	TakeCancel(ctx context.Context) (*CancelRequest, error)
}

// SnapshotStore publishes the per-tick state snapshot for external
// readers. Save overwrites the previous snapshot wholesale.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context) (Snapshot, bool, error)
}

// PriceFeed yields one decimal tick per successful receive. NextPrice
// blocks until the next tick arrives.
type PriceFeed interface {
	Subscribe(ctx context.Context) error
	NextPrice(ctx context.Context) (decimal.Decimal, error)
	Unsubscribe() error
	Close() error
}

// TradeRecorder receives the outcome of every processed order and
// liquidation. Implementations must not block the tick loop.
type TradeRecorder interface {
	Record(ctx context.Context, trade TradeHistory)
}
