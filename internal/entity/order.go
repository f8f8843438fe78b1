package entity

import (
	"errors"

	"github.com/shopspring/decimal"
)

type OrderType string
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"

	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

var (
	ErrInvalidOrderSide = errors.New("order side must be BUY or SELL")
)

// PositionSide maps the order direction onto the position side it opens.
func (s OrderSide) PositionSide() PositionSide {
	if s == OrderSideBuy {
		return PositionSideLong
	}

	return PositionSideShort
}

// OrderRequest is what the command boundary delivers to the engine. The
// order id is assigned by the engine at ingestion, not by the submitter.
type OrderRequest struct {
	RequestID   string           `json:"request_id"`
	Side        OrderSide        `json:"side"`
	Quantity    decimal.Decimal  `json:"quantity"`
	LimitPrice  *decimal.Decimal `json:"limit_price,omitempty"`
	SubmittedAt int64            `json:"submitted_at"`
}

func (r OrderRequest) Validate() error {
	if r.Side != OrderSideBuy && r.Side != OrderSideSell {
		return ErrInvalidOrderSide
	}
	if r.Quantity.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidQuantity
	}
	if r.LimitPrice != nil && r.LimitPrice.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidPrice
	}

	return nil
}

// Order is a queued order waiting to be matched against a tick.
type Order struct {
	ID         int64            `json:"id"`
	Side       OrderSide        `json:"side"`
	Quantity   decimal.Decimal  `json:"quantity"`
	LimitPrice *decimal.Decimal `json:"limit_price,omitempty"`
}

func (o Order) Type() OrderType {
	if o.LimitPrice == nil {
		return OrderTypeMarket
	}

	return OrderTypeLimit
}

// EligibleAt reports whether the order may execute at the tick price.
// Market orders are always eligible. A limit buy waits for the price to
// reach its limit from above, a limit sell from below.
func (o Order) EligibleAt(price decimal.Decimal) bool {
	if o.LimitPrice == nil {
		return true
	}

	if o.Side == OrderSideBuy {
		return price.LessThanOrEqual(*o.LimitPrice)
	}

	return price.GreaterThanOrEqual(*o.LimitPrice)
}

// ExecutionPrice returns the price the order fills at for the given tick.
// A limit order whose fill would cross through its limit in the trader's
// favor is clamped to the limit price itself, so price improvement is not
// passed through.
func (o Order) ExecutionPrice(price decimal.Decimal) decimal.Decimal {
	if o.LimitPrice == nil {
		return price
	}

	if o.Side == OrderSideBuy && price.LessThan(*o.LimitPrice) {
		return *o.LimitPrice
	}
	if o.Side == OrderSideSell && price.GreaterThan(*o.LimitPrice) {
		return *o.LimitPrice
	}

	return price
}
