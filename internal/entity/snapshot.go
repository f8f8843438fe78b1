package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the full engine state published once per tick for external
// readers. It is overwritten wholesale, there is no schema versioning.
// All rounding to two decimal places happens here, at the reporting
// boundary, never inside the running state.
type Snapshot struct {
	Time       string           `json:"time"`
	Symbol     string           `json:"symbol"`
	Price      decimal.Decimal  `json:"price"`
	Balance    decimal.Decimal  `json:"balance"`
	TotalValue decimal.Decimal  `json:"total_value"`
	Leverage   int64            `json:"leverage"`
	Position   PositionSnapshot `json:"position"`
	OpenOrders []Order          `json:"open_orders"`
}

type PositionSnapshot struct {
	Side             string          `json:"side"`
	Quantity         decimal.Decimal `json:"quantity"`
	EntryPrice       decimal.Decimal `json:"entry_price"`
	Leverage         int64           `json:"leverage"`
	LiquidationPrice decimal.Decimal `json:"liquidation_price"`
	PnL              decimal.Decimal `json:"pnl"`
	Margin           decimal.Decimal `json:"margin"`
}

func (s Snapshot) HasPosition() bool {
	return s.Position.Side != PositionSideFlat.String()
}

func BuildSnapshot(now time.Time, symbol string, price decimal.Decimal, account Account, position *Position, openOrders []Order) Snapshot {
	return Snapshot{
		Time:       now.UTC().Format(time.RFC3339),
		Symbol:     symbol,
		Price:      price,
		Balance:    account.Balance.Round(2),
		TotalValue: account.Balance.Add(position.Value(price, account.FeeRate)).Round(2),
		Leverage:   position.Leverage,
		Position:   buildPositionSnapshot(price, account.FeeRate, position),
		OpenOrders: openOrders,
	}
}

func buildPositionSnapshot(price, feeRate decimal.Decimal, position *Position) PositionSnapshot {
	snapshot := PositionSnapshot{
		Side:     position.Side.String(),
		Leverage: position.Leverage,
	}

	if position.Side == PositionSideFlat {
		return snapshot
	}

	snapshot.Quantity = position.Quantity
	snapshot.EntryPrice = position.EntryPrice.Round(2)
	snapshot.LiquidationPrice = position.LiquidationPrice(feeRate).Round(2)
	snapshot.PnL = position.PnL(price).Round(2)
	snapshot.Margin = position.Margin(price).Round(2)

	return snapshot
}
