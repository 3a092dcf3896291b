package signal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TakeProfitDisplay controls how localized signals list their targets.
type TakeProfitDisplay string

const (
	DisplayList    TakeProfitDisplay = "list"
	DisplayAverage TakeProfitDisplay = "average"
)

// Formatter renders signals back into channel text. The output of Format
// is itself parseable and formats to the same text again.
type Formatter struct {
	display TakeProfitDisplay
}

func NewFormatter(display TakeProfitDisplay) *Formatter {
	if display != DisplayAverage {
		display = DisplayList
	}
	return &Formatter{display: display}
}

func (f *Formatter) Format(s *Signal) string {
	if s.IsProfitMessage {
		return formatProfit(s)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s %s %dx\n", s.Symbol, s.Position.Title(), s.Leverage)
	fmt.Fprintf(&b, "Entry - %s\n", s.EntryPrice.String())
	if s.StopLoss.Valid {
		fmt.Fprintf(&b, "Stop Loss - %s\n", s.StopLoss.Decimal.String())
	}
	for i, tp := range f.levels(s) {
		fmt.Fprintf(&b, "TP%d: %s (%s%%)\n", i+1, tp.Price.String(), tp.Percentage.Round(2).String())
	}
	fmt.Fprintf(&b, "\n#Binance #%s", s.ExchangeSymbol)
	return b.String()
}

func (f *Formatter) levels(s *Signal) []TakeProfitLevel {
	if !s.IsRussianFormat || f.display != DisplayAverage || len(s.TakeProfitLevels) < 2 {
		return s.TakeProfitLevels
	}
	sum := decimal.Zero
	for _, tp := range s.TakeProfitLevels {
		sum = sum.Add(tp.Price)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(s.TakeProfitLevels)))).Round(8)
	return []TakeProfitLevel{{Price: avg, Percentage: decimal.NewFromInt(100)}}
}

func formatProfit(s *Signal) string {
	arrow := "📈"
	if s.Position == Short {
		arrow = "📉"
	}
	return fmt.Sprintf("#%s (%s%s, x%d)\n✅ Price - %s\n🔝 Profit - %d%%",
		s.Symbol, s.Position.Title(), arrow, s.Leverage, s.EntryPrice.String(), s.ProfitTarget)
}
