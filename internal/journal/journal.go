package journal

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TradeResult is one closed trade as written to the profit log.
type TradeResult struct {
	TradeID        string          `json:"trade_id" db:"trade_id"`
	Symbol         string          `json:"symbol" db:"symbol"`
	OriginalSymbol string          `json:"original_symbol" db:"original_symbol"`
	Rate           decimal.Decimal `json:"rate" db:"rate"`
	Position       string          `json:"position" db:"position"`
	Leverage       int             `json:"leverage" db:"leverage"`
	EntryPrice     decimal.Decimal `json:"entry_price" db:"entry_price"`
	ExitPrice      decimal.Decimal `json:"exit_price" db:"exit_price"`
	Quantity       decimal.Decimal `json:"quantity" db:"quantity"`
	ExitType       string          `json:"exit_type" db:"exit_type"`
	PriceDiffPct   decimal.Decimal `json:"price_diff_pct" db:"price_diff_pct"`
	LeveragedPct   decimal.Decimal `json:"leveraged_pct" db:"leveraged_pct"`
	AbsolutePnL    decimal.Decimal `json:"absolute_pnl" db:"absolute_pnl"`
	OpenedAt       time.Time       `json:"opened_at" db:"opened_at"`
	ClosedAt       time.Time       `json:"closed_at" db:"closed_at"`
}

// Failure is a signal that could not be turned into a trade.
type Failure struct {
	Time           time.Time `json:"time" db:"created_at"`
	Symbol         string    `json:"symbol" db:"symbol"`
	OriginalSymbol string    `json:"original_symbol" db:"original_symbol"`
	Step           string    `json:"step" db:"step"`
	Reason         string    `json:"reason" db:"reason"`
	Error          string    `json:"error" db:"error"`
	Message        string    `json:"message" db:"message"`
}

// Journal is the durable record of trade outcomes.
type Journal interface {
	RecordTrade(ctx context.Context, r TradeResult) error
	RecordFailure(ctx context.Context, f Failure) error
}

// Multi writes to every journal and joins their errors.
type Multi []Journal

func (m Multi) RecordTrade(ctx context.Context, r TradeResult) error {
	var errs []error
	for _, j := range m {
		if err := j.RecordTrade(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) RecordFailure(ctx context.Context, f Failure) error {
	var errs []error
	for _, j := range m {
		if err := j.RecordFailure(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
