package mapping

import "github.com/shopspring/decimal"

// ToVenue converts a price quoted for the original symbol into the mapped
// instrument's price space.
func ToVenue(price, rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() {
		return price
	}
	return price.Mul(rate)
}

// ToDisplay converts a venue price back for user-facing output.
func ToDisplay(price, rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() {
		return price
	}
	return price.Div(rate)
}
