package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"signaltrader/internal/binance/entity"
	"signaltrader/internal/mapping"
	"signaltrader/internal/signal"
)

// ReverseResolver finds the original symbol of a mapped instrument.
type ReverseResolver interface {
	ReverseLookup(mapped string) (string, decimal.Decimal, bool)
}

// Recoverer rebuilds monitors for positions that were open before a restart.
type Recoverer struct {
	exchange Exchange
	resolver ReverseResolver
	active   *mapping.ActiveTrades
	monitors MonitorStarter
	log      *zap.Logger
}

func NewRecoverer(exchange Exchange, resolver ReverseResolver, active *mapping.ActiveTrades, monitors MonitorStarter, log *zap.Logger) *Recoverer {
	return &Recoverer{
		exchange: exchange,
		resolver: resolver,
		active:   active,
		monitors: monitors,
		log:      log.Named("Recovery"),
	}
}

// Recover starts a racing monitor for every open position that has both a
// stop-loss and a take-profit order. Positions missing a leg are logged and
// left unmonitored. Returns the number of monitors started.
func (r *Recoverer) Recover(ctx context.Context) (int, error) {
	positions, err := r.exchange.ListPositions(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("failed to list open positions: %w", err)
	}

	started := 0
	for _, pos := range positions {
		orders, err := r.exchange.ListOpenOrders(ctx, pos.Symbol)
		if err != nil {
			r.log.Warn("failed to list open orders", zap.String("symbol", pos.Symbol), zap.Error(err))
			continue
		}

		sl, tp := findBracket(orders)
		if sl == nil || tp == nil {
			r.log.Warn("open position without a complete bracket, not monitored",
				zap.String("symbol", pos.Symbol),
				zap.Bool("has_stop_loss", sl != nil),
				zap.Bool("has_take_profit", tp != nil))
			continue
		}

		trade := Trade{
			ID:                uuid.NewString(),
			Symbol:            pos.Symbol,
			OriginalSymbol:    pos.Symbol,
			Rate:              decimal.NewFromInt(1),
			Position:          signal.Short,
			Leverage:          pos.Leverage,
			StopLossOrderID:   sl.ID,
			TakeProfitOrderID: tp.ID,
			EntryPrice:        pos.EntryPrice,
			Quantity:          pos.Amount.Abs(),
			StopLossPrice:     sl.StopPrice,
			TakeProfitPrice:   tp.StopPrice,
			OpenedAt:          time.Now(),
		}
		if pos.IsLong() {
			trade.Position = signal.Long
		}
		if original, rate, ok := r.resolver.ReverseLookup(pos.Symbol); ok {
			trade.OriginalSymbol = original
			trade.Rate = rate
			trade.Mapped = true
			r.active.Acquire(pos.Symbol, mapping.ActiveTrade{OriginalSymbol: original, Rate: rate})
		}

		if _, err := r.monitors.Start(ctx, trade); err != nil {
			if trade.Mapped {
				r.active.Release(pos.Symbol)
			}
			if !errors.Is(err, ErrMonitorExists) {
				r.log.Warn("failed to start recovered monitor", zap.String("symbol", pos.Symbol), zap.Error(err))
			}
			continue
		}
		started++
		r.log.Info("monitor recovered",
			zap.String("symbol", pos.Symbol),
			zap.String("position", string(trade.Position)),
			zap.Int64("stop_loss_id", sl.ID),
			zap.Int64("take_profit_id", tp.ID))
	}

	r.log.Info("recovery finished", zap.Int("positions", len(positions)), zap.Int("monitors", started))
	return started, nil
}

func findBracket(orders []entity.Order) (sl, tp *entity.Order) {
	for i := range orders {
		switch orders[i].Type {
		case entity.OrderTypeStopMarket:
			if sl == nil {
				sl = &orders[i]
			}
		case entity.OrderTypeTakeProfitMarket:
			if tp == nil {
				tp = &orders[i]
			}
		}
	}
	return sl, tp
}
