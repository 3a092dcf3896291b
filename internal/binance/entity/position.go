package entity

import "github.com/shopspring/decimal"

type Position struct {
	Symbol     string          `json:"symbol"`
	Amount     decimal.Decimal `json:"amount"` // signed: negative for shorts
	EntryPrice decimal.Decimal `json:"entry_price"`
	MarkPrice  decimal.Decimal `json:"mark_price"`
	Leverage   int             `json:"leverage"`
}

func (p Position) IsOpen() bool { return !p.Amount.IsZero() }

func (p Position) IsLong() bool { return p.Amount.IsPositive() }

// Instrument holds the exchange filters needed for order precision.
type Instrument struct {
	Symbol   string          `json:"symbol"`
	StepSize decimal.Decimal `json:"step_size"`
	TickSize decimal.Decimal `json:"tick_size"`
	MinQty   decimal.Decimal `json:"min_qty"`
}
