package trading

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"signaltrader/internal/mapping"
)

func entryMessage(res *ExecutionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚀 Trade opened: #%s %s x%d\n", res.OriginalSymbol, res.Position, res.Leverage)
	fmt.Fprintf(&b, "Entry: %s\n", display(res.EntryPrice, res.Rate))
	fmt.Fprintf(&b, "Size: %s\n", res.PositionSize)
	if res.StopLossOrder != nil {
		fmt.Fprintf(&b, "Stop Loss: %s\n", display(res.StopLossPrice, res.Rate))
	}
	if len(res.TakeProfitOrders) > 0 {
		fmt.Fprintf(&b, "Take Profit: %s\n", display(res.TakeProfitPrice, res.Rate))
	}
	if res.Symbol != res.OriginalSymbol {
		fmt.Fprintf(&b, "Traded as %s (rate %s)\n", res.Symbol, res.Rate)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "⚠️ %s\n", w)
	}
	return strings.TrimRight(b.String(), "\n")
}

func failureMessage(symbol, reason string, err error) string {
	return fmt.Sprintf("❌ Trading failure: #%s\nReason: %s\nError: %v", symbol, reason, err)
}

func profitMessage(r ProfitReport) string {
	var title string
	switch r.ExitType {
	case ExitTakeProfit:
		title = "✅ Take profit hit"
	case ExitStopLoss:
		title = "🛑 Stop loss hit"
	default:
		title = "⚠️ Position closed manually or liquidated"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: #%s %s x%d\n", title, r.OriginalSymbol, r.Position, r.Leverage)
	fmt.Fprintf(&b, "Entry: %s\n", r.EntryPrice)
	fmt.Fprintf(&b, "Exit: %s\n", r.ExitPrice)
	fmt.Fprintf(&b, "Price change: %s%%\n", r.PriceDiffPct.StringFixed(2))
	fmt.Fprintf(&b, "Result: %s%% (%s USDT)", r.LeveragedPct.StringFixed(2), r.AbsolutePnL.StringFixed(2))
	return b.String()
}

func display(price, rate decimal.Decimal) string {
	return mapping.ToDisplay(price, rate).String()
}
