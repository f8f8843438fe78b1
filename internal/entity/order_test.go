package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func limitPrice(value string) *decimal.Decimal {
	price := decimal.RequireFromString(value)
	return &price
}

func TestOrderRequestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     OrderRequest
		wantErr error
	}{
		{"market buy", OrderRequest{Side: OrderSideBuy, Quantity: d("1")}, nil},
		{"limit sell", OrderRequest{Side: OrderSideSell, Quantity: d("0.5"), LimitPrice: limitPrice("100")}, nil},
		{"bad side", OrderRequest{Side: "HOLD", Quantity: d("1")}, ErrInvalidOrderSide},
		{"zero quantity", OrderRequest{Side: OrderSideBuy, Quantity: d("0")}, ErrInvalidQuantity},
		{"negative quantity", OrderRequest{Side: OrderSideSell, Quantity: d("-1")}, ErrInvalidQuantity},
		{"zero limit price", OrderRequest{Side: OrderSideBuy, Quantity: d("1"), LimitPrice: limitPrice("0")}, ErrInvalidPrice},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOrderType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, OrderTypeMarket, Order{Side: OrderSideBuy, Quantity: d("1")}.Type())
	assert.Equal(t, OrderTypeLimit, Order{Side: OrderSideBuy, Quantity: d("1"), LimitPrice: limitPrice("100")}.Type())
}

func TestOrderEligibleAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		order Order
		price string
		want  bool
	}{
		{"market always", Order{Side: OrderSideBuy, Quantity: d("1")}, "123.45", true},
		{"limit buy waits above", Order{Side: OrderSideBuy, Quantity: d("1"), LimitPrice: limitPrice("100")}, "101", false},
		{"limit buy at limit", Order{Side: OrderSideBuy, Quantity: d("1"), LimitPrice: limitPrice("100")}, "100", true},
		{"limit buy below limit", Order{Side: OrderSideBuy, Quantity: d("1"), LimitPrice: limitPrice("100")}, "99", true},
		{"limit sell waits below", Order{Side: OrderSideSell, Quantity: d("1"), LimitPrice: limitPrice("100")}, "99", false},
		{"limit sell at limit", Order{Side: OrderSideSell, Quantity: d("1"), LimitPrice: limitPrice("100")}, "100", true},
		{"limit sell above limit", Order{Side: OrderSideSell, Quantity: d("1"), LimitPrice: limitPrice("100")}, "101", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.order.EligibleAt(d(tt.price)))
		})
	}
}

func TestOrderExecutionPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		order Order
		price string
		want  string
	}{
		{"market fills at tick", Order{Side: OrderSideBuy, Quantity: d("1")}, "123.45", "123.45"},
		{"limit buy clamped to limit", Order{Side: OrderSideBuy, Quantity: d("1"), LimitPrice: limitPrice("100")}, "95", "100"},
		{"limit buy at limit", Order{Side: OrderSideBuy, Quantity: d("1"), LimitPrice: limitPrice("100")}, "100", "100"},
		{"limit sell clamped to limit", Order{Side: OrderSideSell, Quantity: d("1"), LimitPrice: limitPrice("100")}, "105", "100"},
		{"limit sell at limit", Order{Side: OrderSideSell, Quantity: d("1"), LimitPrice: limitPrice("100")}, "100", "100"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.order.ExecutionPrice(d(tt.price))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestOrderSidePositionSide(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PositionSideLong, OrderSideBuy.PositionSide())
	assert.Equal(t, PositionSideShort, OrderSideSell.PositionSide())
}
