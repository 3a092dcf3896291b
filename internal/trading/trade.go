package trading

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"signaltrader/internal/signal"
)

// Trade is everything a monitor needs to follow one open position. Prices
// are in the venue's price space of Symbol.
type Trade struct {
	ID             string              `json:"id"`
	Symbol         string              `json:"symbol"`
	OriginalSymbol string              `json:"original_symbol"`
	Rate           decimal.Decimal     `json:"rate"`
	Mapped         bool                `json:"mapped"`
	Position       signal.PositionType `json:"position"`
	Leverage       int                 `json:"leverage"`

	// EntryOrderID is zero for trades rebuilt from venue state at startup.
	EntryOrderID      int64 `json:"entry_order_id"`
	StopLossOrderID   int64 `json:"stop_loss_order_id"`
	TakeProfitOrderID int64 `json:"take_profit_order_id"`

	EntryPrice      decimal.Decimal `json:"entry_price"`
	Quantity        decimal.Decimal `json:"quantity"`
	StopLossPrice   decimal.Decimal `json:"stop_loss_price"`
	TakeProfitPrice decimal.Decimal `json:"take_profit_price"`

	OpenedAt time.Time `json:"opened_at"`
}

// Key identifies the trade in the monitor registry.
func (t *Trade) Key() string {
	return fmt.Sprintf("%s:%d", t.Symbol, t.EntryOrderID)
}

// Recovered reports whether the trade was rebuilt from open venue orders.
func (t *Trade) Recovered() bool {
	return t.EntryOrderID == 0
}
