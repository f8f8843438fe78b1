package entity

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type TradeStatus string

const (
	TradeStatusFilled     TradeStatus = "FILLED"
	TradeStatusRejected   TradeStatus = "REJECTED"
	TradeStatusLiquidated TradeStatus = "LIQUIDATED"
)

// TradeHistory records the outcome of one engine decision: a fill, a
// rejection, or a forced liquidation. Rows are written by the history
// worker from trade events and never read back by the engine.
type TradeHistory struct {
	ID           string           `db:"id" json:"id"`
	Symbol       string           `db:"symbol" json:"symbol"`
	OrderID      sql.NullInt64    `db:"order_id" json:"order_id"`
	Side         string           `db:"side" json:"side"`
	Type         string           `db:"type" json:"type"`
	Price        decimal.Decimal  `db:"price" json:"price"`
	Quantity     decimal.Decimal  `db:"quantity" json:"quantity"`
	Fee          *decimal.Decimal `db:"fee" json:"fee"`
	RealizedPnl  *decimal.Decimal `db:"realized_pnl" json:"realized_pnl"`
	Status       TradeStatus      `db:"status" json:"status"`
	Reason       sql.NullString   `db:"reason" json:"reason"`
	BalanceAfter decimal.Decimal  `db:"balance_after" json:"balance_after"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

func (t TradeHistory) TableName() string {
	return "trade_histories"
}

type TradeEvent struct {
	RetryCount int          `json:"retry"`
	Data       TradeHistory `json:"data"`
}
