package journal

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"signaltrader/pkg/logger"
)

const (
	ProfitLogName  = "trade_profits.log"
	FailureLogName = "trading_failures.log"
)

// FileJournal appends JSON lines to the profit and failure logs.
type FileJournal struct {
	profits  *zap.Logger
	failures *zap.Logger
}

func NewFileJournal(dir string) (*FileJournal, error) {
	profits, err := logger.NewFile(filepath.Join(dir, ProfitLogName))
	if err != nil {
		return nil, err
	}
	failures, err := logger.NewFile(filepath.Join(dir, FailureLogName))
	if err != nil {
		return nil, err
	}
	return NewLoggerJournal(profits, failures), nil
}

// NewLoggerJournal wraps already built loggers.
func NewLoggerJournal(profits, failures *zap.Logger) *FileJournal {
	return &FileJournal{profits: profits, failures: failures}
}

func (j *FileJournal) RecordTrade(_ context.Context, r TradeResult) error {
	j.profits.Info("trade closed",
		zap.String("trade_id", r.TradeID),
		zap.String("symbol", r.Symbol),
		zap.String("original_symbol", r.OriginalSymbol),
		zap.String("rate", r.Rate.String()),
		zap.String("position", r.Position),
		zap.Int("leverage", r.Leverage),
		zap.String("entry_price", r.EntryPrice.String()),
		zap.String("exit_price", r.ExitPrice.String()),
		zap.String("quantity", r.Quantity.String()),
		zap.String("exit_type", r.ExitType),
		zap.String("price_diff_pct", r.PriceDiffPct.StringFixed(4)),
		zap.String("leveraged_pct", r.LeveragedPct.StringFixed(4)),
		zap.String("absolute_pnl", r.AbsolutePnL.StringFixed(8)),
		zap.Time("opened_at", r.OpenedAt),
		zap.Time("closed_at", r.ClosedAt))
	return nil
}

func (j *FileJournal) RecordFailure(_ context.Context, f Failure) error {
	j.failures.Error("trade failed",
		zap.String("symbol", f.Symbol),
		zap.String("original_symbol", f.OriginalSymbol),
		zap.String("step", f.Step),
		zap.String("reason", f.Reason),
		zap.String("error", f.Error),
		zap.String("message", f.Message))
	return nil
}

func (j *FileJournal) Sync() error {
	if err := j.profits.Sync(); err != nil {
		return err
	}
	return j.failures.Sync()
}
