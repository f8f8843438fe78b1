package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestNewPosition(t *testing.T) {
	t.Parallel()

	position := NewPosition()

	assert.Equal(t, PositionSideFlat, position.Side)
	assert.True(t, position.Quantity.IsZero())
	assert.True(t, position.EntryPrice.IsZero())
	assert.Equal(t, int64(1), position.Leverage)
}

func TestPositionSetLeverage(t *testing.T) {
	t.Parallel()

	position := NewPosition()

	assert.Equal(t, int64(10), position.SetLeverage(10))
	assert.Equal(t, int64(10), position.SetLeverage(0), "below-minimum leverage is ignored")

	position.Side = PositionSideLong
	require.NoError(t, position.Increase(d("1"), d("100")))
	assert.Equal(t, int64(10), position.SetLeverage(5), "leverage is frozen while a position is open")

	_, _, err := position.Decrease(d("1"), d("100"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), position.SetLeverage(5), "flat again, leverage unfrozen")
}

func TestPositionIncrease(t *testing.T) {
	t.Parallel()

	position := NewPosition()
	position.Side = PositionSideLong

	require.NoError(t, position.Increase(d("1"), d("100")))
	require.NoError(t, position.Increase(d("1"), d("200")))

	assert.True(t, position.Quantity.Equal(d("2")))
	assert.True(t, position.EntryPrice.Equal(d("150")), "entry price is the weighted average, got %s", position.EntryPrice)

	require.NoError(t, position.Increase(d("2"), d("150")))
	assert.True(t, position.EntryPrice.Equal(d("150")), "same-price fill keeps the average")

	assert.ErrorIs(t, position.Increase(d("0"), d("100")), ErrInvalidQuantity)
	assert.ErrorIs(t, position.Increase(d("1"), d("-5")), ErrInvalidPrice)
}

func TestPositionIncreaseAverageWithinBounds(t *testing.T) {
	t.Parallel()

	position := NewPosition()
	position.Side = PositionSideLong

	require.NoError(t, position.Increase(d("0.3"), d("101.17")))
	require.NoError(t, position.Increase(d("1.7"), d("99.43")))

	assert.True(t, position.EntryPrice.GreaterThan(d("99.43")))
	assert.True(t, position.EntryPrice.LessThan(d("101.17")))
}

func TestPositionDecrease(t *testing.T) {
	t.Parallel()

	position := NewPosition()
	position.Side = PositionSideLong
	position.SetLeverage(1)
	require.NoError(t, position.Increase(d("2"), d("100")))

	initial, pnl, err := position.Decrease(d("1"), d("110"))
	require.NoError(t, err)
	assert.True(t, initial.Equal(d("100")))
	assert.True(t, pnl.Equal(d("10")))
	assert.Equal(t, PositionSideLong, position.Side)
	assert.True(t, position.Quantity.Equal(d("1")))
	assert.True(t, position.EntryPrice.Equal(d("100")), "entry price unchanged by a partial close")

	_, _, err = position.Decrease(d("2"), d("110"))
	assert.ErrorIs(t, err, ErrQuantityExceeded)

	initial, pnl, err = position.Decrease(d("1"), d("90"))
	require.NoError(t, err)
	assert.True(t, initial.Equal(d("100")))
	assert.True(t, pnl.Equal(d("-10")))
	assert.Equal(t, PositionSideFlat, position.Side)
	assert.True(t, position.Quantity.IsZero())
	assert.True(t, position.EntryPrice.IsZero())
	assert.Equal(t, int64(1), position.Leverage, "leverage survives the full close")
}

func TestPositionDecreaseShort(t *testing.T) {
	t.Parallel()

	position := NewPosition()
	position.Side = PositionSideShort
	require.NoError(t, position.Increase(d("1"), d("100")))

	_, pnl, err := position.Decrease(d("1"), d("90"))
	require.NoError(t, err)
	assert.True(t, pnl.Equal(d("10")), "short profits when the price falls")
}

func TestPositionPnL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		side  PositionSide
		price string
		want  string
	}{
		{"long profit", PositionSideLong, "110", "20"},
		{"long loss", PositionSideLong, "95", "-10"},
		{"short profit", PositionSideShort, "95", "10"},
		{"short loss", PositionSideShort, "110", "-20"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			position := NewPosition()
			position.Side = tt.side
			require.NoError(t, position.Increase(d("2"), d("100")))

			got := position.PnL(d(tt.price))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestPositionMargin(t *testing.T) {
	t.Parallel()

	position := NewPosition()
	assert.True(t, position.Margin(d("100")).IsZero(), "flat position has no margin usage")

	position.SetLeverage(10)
	position.Side = PositionSideLong
	require.NoError(t, position.Increase(d("1"), d("100")))

	assert.True(t, position.Margin(d("100")).IsZero())
	assert.True(t, position.Margin(d("105")).Equal(d("50")))
	assert.True(t, position.Margin(d("95")).Equal(d("-50")))
}

func TestPositionMarginAtLiquidationPrice(t *testing.T) {
	t.Parallel()

	// With zero fee the liquidation price is exactly where the posted
	// margin is fully consumed.
	for _, side := range []PositionSide{PositionSideLong, PositionSideShort} {
		position := NewPosition()
		position.SetLeverage(10)
		position.Side = side
		require.NoError(t, position.Increase(d("2"), d("100")))

		liquidationPrice := position.LiquidationPrice(decimal.Zero)
		margin := position.Margin(liquidationPrice)
		assert.True(t, margin.Equal(d("-100")), "side %s: got %s", side, margin)
	}
}

func TestPositionLiquidationPrice(t *testing.T) {
	t.Parallel()

	position := NewPosition()
	position.SetLeverage(10)
	position.Side = PositionSideLong
	require.NoError(t, position.Increase(d("1"), d("100")))

	assert.True(t, position.LiquidationPrice(decimal.Zero).Equal(d("90")))

	// The closing fee eats into the margin, so the long threshold moves up.
	withFee := position.LiquidationPrice(d("0.001"))
	assert.True(t, withFee.Equal(d("90.09")), "got %s", withFee)

	short := NewPosition()
	short.SetLeverage(10)
	short.Side = PositionSideShort
	require.NoError(t, short.Increase(d("1"), d("100")))

	assert.True(t, short.LiquidationPrice(decimal.Zero).Equal(d("110")))
	assert.True(t, short.LiquidationPrice(d("0.001")).Equal(d("109.89")))
}

func TestPositionValue(t *testing.T) {
	t.Parallel()

	position := NewPosition()
	position.SetLeverage(10)
	position.Side = PositionSideLong
	require.NoError(t, position.Increase(d("1"), d("100")))

	// initial/leverage + pnl with zero fee
	assert.True(t, position.Value(d("105"), decimal.Zero).Equal(d("15")))

	// fee is charged on initial + pnl
	got := position.Value(d("105"), d("0.001"))
	assert.True(t, got.Equal(d("14.895")), "got %s", got)
}

func TestPositionString(t *testing.T) {
	t.Parallel()

	position := NewPosition()
	position.Side = PositionSideLong
	require.NoError(t, position.Increase(d("0.5"), d("42150.7")))

	assert.Equal(t, "LONG 0.5 @ 42150.7$", position.String())
}
