package entity

import "github.com/shopspring/decimal"

// Account holds the quote-asset funds not committed to the open position's
// margin, plus the fee schedule applied to every fill.
type Account struct {
	Balance     decimal.Decimal
	FeeRate     decimal.Decimal
	MinNotional decimal.Decimal
}
