package trading

import (
	"time"

	"github.com/shopspring/decimal"

	"signaltrader/internal/journal"
	"signaltrader/internal/mapping"
	"signaltrader/internal/signal"
)

type ExitType string

const (
	ExitStopLoss   ExitType = "stop_loss"
	ExitTakeProfit ExitType = "take_profit"
	ExitManual     ExitType = "manual_or_liquidation"
)

var hundred = decimal.NewFromInt(100)

type PnL struct {
	PriceDiffPct decimal.Decimal `json:"price_diff_pct"`
	LeveragedPct decimal.Decimal `json:"leveraged_pct"`
	Absolute     decimal.Decimal `json:"absolute"`
}

// ComputePnL returns the price move in percent (signed for the position
// direction), the same figure times leverage, and the absolute result in the
// quote asset.
func ComputePnL(pos signal.PositionType, entry, exit, qty decimal.Decimal, leverage int) PnL {
	if !entry.IsPositive() || !exit.IsPositive() {
		return PnL{}
	}

	var pct, abs decimal.Decimal
	if pos == signal.Long {
		pct = exit.Div(entry).Sub(decimal.NewFromInt(1)).Mul(hundred)
		abs = exit.Sub(entry).Mul(qty)
	} else {
		pct = entry.Div(exit).Sub(decimal.NewFromInt(1)).Mul(hundred)
		abs = entry.Sub(exit).Mul(qty)
	}
	return PnL{
		PriceDiffPct: pct,
		LeveragedPct: pct.Mul(decimal.NewFromInt(int64(leverage))),
		Absolute:     abs,
	}
}

// ProfitReport is the outcome of a closed trade. Entry and exit prices are
// converted back to the original symbol's scale; AbsolutePnL stays in the
// quote asset.
type ProfitReport struct {
	TradeID        string              `json:"trade_id"`
	Symbol         string              `json:"symbol"`
	OriginalSymbol string              `json:"original_symbol"`
	Rate           decimal.Decimal     `json:"rate"`
	Position       signal.PositionType `json:"position"`
	Leverage       int                 `json:"leverage"`
	EntryPrice     decimal.Decimal     `json:"entry_price"`
	ExitPrice      decimal.Decimal     `json:"exit_price"`
	Quantity       decimal.Decimal     `json:"quantity"`
	ExitType       ExitType            `json:"exit_type"`
	PriceDiffPct   decimal.Decimal     `json:"price_diff_pct"`
	LeveragedPct   decimal.Decimal     `json:"leveraged_pct"`
	AbsolutePnL    decimal.Decimal     `json:"absolute_pnl"`
	OpenedAt       time.Time           `json:"opened_at"`
	ClosedAt       time.Time           `json:"closed_at"`
}

func newProfitReport(t *Trade, exit ExitType, exitPrice decimal.Decimal, closedAt time.Time) ProfitReport {
	pnl := ComputePnL(t.Position, t.EntryPrice, exitPrice, t.Quantity, t.Leverage)
	return ProfitReport{
		TradeID:        t.ID,
		Symbol:         t.Symbol,
		OriginalSymbol: t.OriginalSymbol,
		Rate:           t.Rate,
		Position:       t.Position,
		Leverage:       t.Leverage,
		EntryPrice:     mapping.ToDisplay(t.EntryPrice, t.Rate),
		ExitPrice:      mapping.ToDisplay(exitPrice, t.Rate),
		Quantity:       t.Quantity,
		ExitType:       exit,
		PriceDiffPct:   pnl.PriceDiffPct,
		LeveragedPct:   pnl.LeveragedPct,
		AbsolutePnL:    pnl.Absolute,
		OpenedAt:       t.OpenedAt,
		ClosedAt:       closedAt,
	}
}

func (r ProfitReport) record() journal.TradeResult {
	return journal.TradeResult{
		TradeID:        r.TradeID,
		Symbol:         r.Symbol,
		OriginalSymbol: r.OriginalSymbol,
		Rate:           r.Rate,
		Position:       string(r.Position),
		Leverage:       r.Leverage,
		EntryPrice:     r.EntryPrice,
		ExitPrice:      r.ExitPrice,
		Quantity:       r.Quantity,
		ExitType:       string(r.ExitType),
		PriceDiffPct:   r.PriceDiffPct,
		LeveragedPct:   r.LeveragedPct,
		AbsolutePnL:    r.AbsolutePnL,
		OpenedAt:       r.OpenedAt,
		ClosedAt:       r.ClosedAt,
	}
}
