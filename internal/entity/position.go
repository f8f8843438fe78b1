package entity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrInvalidPrice     = errors.New("price must be greater than zero")
	ErrQuantityExceeded = errors.New("quantity exceeds position quantity")
)

type PositionSide int8

const (
	PositionSideFlat  PositionSide = 0
	PositionSideLong  PositionSide = 1
	PositionSideShort PositionSide = -1
)

func (s PositionSide) String() string {
	switch s {
	case PositionSideLong:
		return "LONG"
	case PositionSideShort:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Factor returns the side as a signed decimal multiplier for PnL math.
func (s PositionSide) Factor() decimal.Decimal {
	return decimal.NewFromInt(int64(s))
}

// Position is the single margin position owned by the engine. Invariant:
// Quantity is zero iff Side is flat iff EntryPrice is zero. Leverage is
// mutable only while flat and survives a full close.
type Position struct {
	Side       PositionSide
	Quantity   decimal.Decimal
	EntryPrice decimal.Decimal
	Leverage   int64
}

func NewPosition() *Position {
	return &Position{
		Side:       PositionSideFlat,
		Quantity:   decimal.Zero,
		EntryPrice: decimal.Zero,
		Leverage:   1,
	}
}

// SetLeverage applies the requested leverage only while the position is
// flat. It always returns the effective leverage, so callers must not
// assume the requested value took effect.
func (p *Position) SetLeverage(leverage int64) int64 {
	if p.Side == PositionSideFlat && leverage >= 1 {
		p.Leverage = leverage
	}

	return p.Leverage
}

// Increase adds quantity at price and moves the entry price to the
// quantity-weighted average of the contributing fills.
func (p *Position) Increase(quantity, price decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidQuantity
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidPrice
	}

	total := p.Quantity.Add(quantity)
	p.EntryPrice = p.Quantity.Mul(p.EntryPrice).Add(quantity.Mul(price)).Div(total)
	p.Quantity = total

	return nil
}

// Decrease closes quantity at price and returns the initial investment
// released (quantity times entry price) and the realized pnl. Crediting
// initial/leverage + pnl - fee back to the account is the caller's job.
// Reaching zero quantity resets the position to flat, keeping leverage.
func (p *Position) Decrease(quantity, price decimal.Decimal) (initial, pnl decimal.Decimal, err error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero, ErrInvalidQuantity
	}
	if quantity.GreaterThan(p.Quantity) {
		return decimal.Zero, decimal.Zero, ErrQuantityExceeded
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero, ErrInvalidPrice
	}

	initial = quantity.Mul(p.EntryPrice)
	pnl = p.Side.Factor().Mul(quantity).Mul(price.Sub(p.EntryPrice))

	p.Quantity = p.Quantity.Sub(quantity)
	if p.Quantity.IsZero() {
		p.Side = PositionSideFlat
		p.EntryPrice = decimal.Zero
	}

	return initial, pnl, nil
}

// PnL returns the unrealized profit or loss at price.
func (p *Position) PnL(price decimal.Decimal) decimal.Decimal {
	return p.Side.Factor().Mul(p.Quantity).Mul(price.Sub(p.EntryPrice))
}

// Margin returns unrealized pnl as a percentage of the posted margin.
// -100 means the margin is fully consumed, the liquidation threshold.
func (p *Position) Margin(price decimal.Decimal) decimal.Decimal {
	if p.Side == PositionSideFlat {
		return decimal.Zero
	}

	posted := p.Quantity.Mul(p.EntryPrice).Div(decimal.NewFromInt(p.Leverage))

	return decimal.NewFromInt(100).Mul(p.PnL(price)).Div(posted)
}

// Value returns the liquidation-adjusted position value in quote asset,
// net of the estimated fee for closing at price.
func (p *Position) Value(price, feeRate decimal.Decimal) decimal.Decimal {
	pnl := p.PnL(price)
	fee := p.Quantity.Mul(p.EntryPrice).Add(pnl).Mul(feeRate)

	return p.Quantity.Mul(p.EntryPrice).Div(decimal.NewFromInt(p.Leverage)).Add(pnl).Sub(fee)
}

// LiquidationPrice returns the price at which the posted margin would be
// fully consumed, adjusted for the closing fee.
func (p *Position) LiquidationPrice(feeRate decimal.Decimal) decimal.Decimal {
	base := p.EntryPrice.Sub(p.Side.Factor().Mul(p.EntryPrice).Div(decimal.NewFromInt(p.Leverage)))
	fee := base.Mul(p.Quantity).Mul(feeRate)

	return base.Add(p.Side.Factor().Mul(fee))
}

func (p *Position) String() string {
	return fmt.Sprintf("%s %s @ %s$", p.Side, p.Quantity.Round(8), p.EntryPrice.Round(2))
}
