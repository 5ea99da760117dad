// Package pricing computes reservation totals.
package pricing

import "github.com/shopspring/decimal"

// Places is the number of decimal places totals are rounded to.
const Places = 2

// Price returns daily * days * quantity, rounded half-to-even once on the final product.
func Price(daily decimal.Decimal, days, quantity int) decimal.Decimal {
	units := decimal.NewFromInt(int64(days)).Mul(decimal.NewFromInt(int64(quantity)))
	return daily.Mul(units).RoundBank(Places)
}
