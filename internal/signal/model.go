package signal

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type PositionType string

const (
	Long  PositionType = "LONG"
	Short PositionType = "SHORT"
)

// EntrySide is the order side that opens the position.
func (p PositionType) EntrySide() string {
	if p == Long {
		return "BUY"
	}
	return "SELL"
}

// CloseSide is the order side that closes the position.
func (p PositionType) CloseSide() string {
	if p == Long {
		return "SELL"
	}
	return "BUY"
}

// Title returns "Long" / "Short" as written in channel messages.
func (p PositionType) Title() string {
	if p == Long {
		return "Long"
	}
	return "Short"
}

type TakeProfitLevel struct {
	Price      decimal.Decimal `json:"price"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Signal is the normalized form of a channel message. It is either a
// profit update (ProfitTarget set, no levels) or a new position
// (Leverage set, at least one take-profit level).
type Signal struct {
	Symbol         string       `json:"symbol"`
	ExchangeSymbol string       `json:"exchange_symbol"`
	Position       PositionType `json:"position_type"`
	Leverage       int          `json:"leverage"`

	EntryPrice     decimal.Decimal     `json:"entry_price"`
	EntryPriceLow  decimal.Decimal     `json:"entry_price_low"`
	EntryPriceHigh decimal.Decimal     `json:"entry_price_high"`
	StopLoss       decimal.NullDecimal `json:"stop_loss"`

	TakeProfitLevels []TakeProfitLevel `json:"take_profit_levels"`
	ProfitTarget     int               `json:"profit_target,omitempty"`

	IsProfitMessage    bool `json:"is_profit_message"`
	IsRussianFormat    bool `json:"is_russian_format"`
	IsEntryRange       bool `json:"is_entry_range"`
	IsLimitOrderSignal bool `json:"is_limit_order_signal"`

	Grammar         string `json:"grammar"`
	OriginalMessage string `json:"original_message"`
}

var ErrInvalidSignal = errors.New("invalid signal")

// Validate checks the profit-update / new-position variant invariant.
func (s *Signal) Validate() error {
	if s.Symbol == "" || s.ExchangeSymbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidSignal)
	}
	if s.Position != Long && s.Position != Short {
		return fmt.Errorf("%w: unknown position type %q", ErrInvalidSignal, s.Position)
	}
	if !s.EntryPrice.IsPositive() {
		return fmt.Errorf("%w: entry price must be positive", ErrInvalidSignal)
	}

	if s.IsProfitMessage {
		if s.ProfitTarget <= 0 {
			return fmt.Errorf("%w: profit update without profit target", ErrInvalidSignal)
		}
		if len(s.TakeProfitLevels) > 0 {
			return fmt.Errorf("%w: profit update carries take-profit levels", ErrInvalidSignal)
		}
		return nil
	}

	if s.Leverage <= 0 {
		return fmt.Errorf("%w: leverage must be positive", ErrInvalidSignal)
	}
	if len(s.TakeProfitLevels) == 0 {
		return fmt.Errorf("%w: no take-profit levels", ErrInvalidSignal)
	}
	for i, tp := range s.TakeProfitLevels {
		if !tp.Price.IsPositive() {
			return fmt.Errorf("%w: take-profit %d has non-positive price", ErrInvalidSignal, i+1)
		}
	}
	return nil
}

// FirstTakeProfit returns the first target or false for profit updates.
func (s *Signal) FirstTakeProfit() (TakeProfitLevel, bool) {
	if len(s.TakeProfitLevels) == 0 {
		return TakeProfitLevel{}, false
	}
	return s.TakeProfitLevels[0], true
}
