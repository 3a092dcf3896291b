package trading

import (
	"strings"

	"github.com/shopspring/decimal"
)

// StepDecimals returns the number of decimal places of a step or tick size,
// i.e. -log10(step) for the usual power-of-ten steps (0.001 -> 3, 1 -> 0).
// Steps such as 0.5 or 0.025 get the places they need to be represented.
func StepDecimals(step decimal.Decimal) int32 {
	if !step.IsPositive() {
		return 0
	}
	s := step.String()
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return int32(len(strings.TrimRight(s[i+1:], "0")))
}

// SnapDown rounds v down to a multiple of step.
func SnapDown(v, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return v
	}
	return v.Div(step).Floor().Mul(step).Truncate(StepDecimals(step))
}

// SnapPrice rounds v to the nearest multiple of tick.
func SnapPrice(v, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return v
	}
	return v.Div(tick).Round(0).Mul(tick).Truncate(StepDecimals(tick))
}
