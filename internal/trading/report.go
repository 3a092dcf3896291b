package trading

import (
	"context"

	"go.uber.org/zap"

	"signaltrader/internal/journal"
	"signaltrader/internal/metrics"
)

// ProfitReporter receives the outcome of every closed trade.
type ProfitReporter interface {
	Report(ctx context.Context, r ProfitReport)
}

// Reporter sends the profit notification and writes the profit journal.
type Reporter struct {
	notifier     Notifier
	journal      journal.Journal
	notifyProfit bool
	log          *zap.Logger
}

func NewReporter(notifier Notifier, j journal.Journal, notifyProfit bool, log *zap.Logger) *Reporter {
	return &Reporter{notifier: notifier, journal: j, notifyProfit: notifyProfit, log: log.Named("ProfitReporter")}
}

func (r *Reporter) Report(ctx context.Context, rep ProfitReport) {
	metrics.TradesClosed.WithLabelValues(string(rep.ExitType)).Inc()
	lev, _ := rep.LeveragedPct.Float64()
	metrics.TradeLeveragedReturn.WithLabelValues(string(rep.ExitType)).Observe(lev)

	r.log.Info("trade closed",
		zap.String("trade_id", rep.TradeID),
		zap.String("symbol", rep.Symbol),
		zap.String("original_symbol", rep.OriginalSymbol),
		zap.String("exit_type", string(rep.ExitType)),
		zap.String("entry", rep.EntryPrice.String()),
		zap.String("exit", rep.ExitPrice.String()),
		zap.String("leveraged_pct", rep.LeveragedPct.StringFixed(2)))

	if err := r.journal.RecordTrade(ctx, rep.record()); err != nil {
		r.log.Error("failed to journal trade result", zap.String("trade_id", rep.TradeID), zap.Error(err))
	}
	if !r.notifyProfit {
		return
	}
	if err := r.notifier.Send(ctx, profitMessage(rep)); err != nil {
		r.log.Error("failed to send profit notification", zap.String("trade_id", rep.TradeID), zap.Error(err))
	}
}
