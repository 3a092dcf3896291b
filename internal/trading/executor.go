package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"signaltrader/internal/binance/entity"
	"signaltrader/internal/journal"
	"signaltrader/internal/mapping"
	"signaltrader/internal/metrics"
	"signaltrader/internal/signal"
)

type EntryMode string

const (
	EntryMarket EntryMode = "market"
	// EntryAuto uses a market order when the signal entry is within
	// limitProximity of the last price and a GTC limit order otherwise.
	EntryAuto EntryMode = "auto"
)

type BracketMode string

const (
	// BracketManaged derives stop-loss and take-profit from the fill price
	// using the configured percentages divided by leverage.
	BracketManaged BracketMode = "managed"
	// BracketSignal uses the signal's own stop and first target.
	BracketSignal BracketMode = "signal"
)

var limitProximity = decimal.RequireFromString("0.003")

type ExecutorConfig struct {
	MaxLeverage       int
	StopLossPercent   decimal.Decimal
	TakeProfitPercent decimal.Decimal
	EntryMode         EntryMode
	BracketMode       BracketMode
	NotifyEntry       bool
	NotifyFailure     bool
}

// Step names the execution stage that failed.
type Step string

const (
	StepLeverage    Step = "leverage"
	StepSetLeverage Step = "set_leverage"
	StepSizing      Step = "sizing"
	StepEntry       Step = "entry"
)

type StepError struct {
	Step   Step
	Reason string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Step, e.Reason, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ExecutionResult describes what Execute did. Errors holds at most one
// entry, the fatal one; Warnings collects degraded bracket placement.
type ExecutionResult struct {
	TradeID          string              `json:"trade_id"`
	Symbol           string              `json:"symbol"`
	OriginalSymbol   string              `json:"original_symbol"`
	Rate             decimal.Decimal     `json:"rate"`
	Position         signal.PositionType `json:"position"`
	Leverage         int                 `json:"leverage"`
	EntryOrder       *entity.Order       `json:"entry_order,omitempty"`
	StopLossOrder    *entity.Order       `json:"stop_loss_order,omitempty"`
	TakeProfitOrders []*entity.Order     `json:"take_profit_orders,omitempty"`
	PositionSize     decimal.Decimal     `json:"position_size"`
	EntryPrice       decimal.Decimal     `json:"entry_price"`
	StopLossPrice    decimal.Decimal     `json:"stop_loss_price"`
	TakeProfitPrice  decimal.Decimal     `json:"take_profit_price"`
	MonitorKey       string              `json:"monitor_key,omitempty"`
	Errors           []string            `json:"errors"`
	Warnings         []string            `json:"warnings"`
}

func (r *ExecutionResult) Success() bool { return len(r.Errors) == 0 }

// MonitorStarter spawns the order monitor for a trade.
type MonitorStarter interface {
	Start(parent context.Context, trade Trade) (string, error)
}

type Executor struct {
	exchange Exchange
	resolver SymbolResolver
	active   *mapping.ActiveTrades
	sizer    *Sizer
	monitors MonitorStarter
	notifier Notifier
	journal  journal.Journal
	cfg      ExecutorConfig
	tracer   trace.Tracer
	log      *zap.Logger
}

func NewExecutor(
	exchange Exchange,
	resolver SymbolResolver,
	active *mapping.ActiveTrades,
	sizer *Sizer,
	monitors MonitorStarter,
	notifier Notifier,
	j journal.Journal,
	cfg ExecutorConfig,
	log *zap.Logger,
) *Executor {
	if cfg.EntryMode == "" {
		cfg.EntryMode = EntryMarket
	}
	if cfg.BracketMode == "" {
		cfg.BracketMode = BracketManaged
	}
	return &Executor{
		exchange: exchange,
		resolver: resolver,
		active:   active,
		sizer:    sizer,
		monitors: monitors,
		notifier: notifier,
		journal:  j,
		cfg:      cfg,
		tracer:   otel.Tracer("signaltrader/trading"),
		log:      log.Named("TradeExecutor"),
	}
}

// Execute opens the position described by sig. It never returns an error:
// a fatal failure is recorded in the result, journaled and notified.
func (e *Executor) Execute(ctx context.Context, sig *signal.Signal) *ExecutionResult {
	ctx, span := e.tracer.Start(ctx, "trading.execute", trace.WithAttributes(
		attribute.String("symbol", sig.ExchangeSymbol),
		attribute.String("position", string(sig.Position)),
		attribute.Int("leverage", sig.Leverage),
	))
	defer span.End()

	res := &ExecutionResult{
		TradeID:        uuid.NewString(),
		Symbol:         sig.ExchangeSymbol,
		OriginalSymbol: sig.ExchangeSymbol,
		Rate:           decimal.NewFromInt(1),
		Position:       sig.Position,
		Errors:         []string{},
		Warnings:       []string{},
	}

	if err := e.execute(ctx, sig, res); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.TradesExecuted.WithLabelValues("failed").Inc()
		e.fail(ctx, sig, res, err)
		return res
	}

	if len(res.Warnings) > 0 {
		metrics.TradesExecuted.WithLabelValues("degraded").Inc()
	} else {
		metrics.TradesExecuted.WithLabelValues("ok").Inc()
	}
	if e.cfg.NotifyEntry {
		if err := e.notifier.Send(ctx, entryMessage(res)); err != nil {
			e.log.Error("failed to send entry notification", zap.String("symbol", res.Symbol), zap.Error(err))
		}
	}
	return res
}

func (e *Executor) execute(ctx context.Context, sig *signal.Signal, res *ExecutionResult) error {
	var resolution mapping.Resolution
	err := e.traced(ctx, StepLeverage, func(ctx context.Context) error {
		var err error
		resolution, err = e.resolver.Resolve(ctx, sig.ExchangeSymbol)
		if err != nil {
			return &StepError{Step: StepLeverage, Reason: "unsupported instrument", Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	res.Symbol = resolution.Symbol
	res.Rate = resolution.Rate
	res.Leverage = effectiveLeverage(sig.Leverage, resolution.MaxLeverage, e.cfg.MaxLeverage)

	// Mapped symbols keep their original name and rate for the monitor;
	// the row is released here unless a monitor takes it over.
	monitored := false
	if resolution.Mapped {
		e.active.Acquire(res.Symbol, mapping.ActiveTrade{OriginalSymbol: sig.ExchangeSymbol, Rate: res.Rate})
		defer func() {
			if !monitored {
				e.active.Release(res.Symbol)
			}
		}()
	}

	err = e.traced(ctx, StepSetLeverage, func(ctx context.Context) error {
		if err := e.exchange.SetLeverage(ctx, res.Symbol, res.Leverage); err != nil {
			return &StepError{Step: StepSetLeverage, Reason: "failed to set leverage", Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	var sizing Sizing
	err = e.traced(ctx, StepSizing, func(ctx context.Context) error {
		var err error
		sizing, err = e.sizer.Size(ctx, res.Symbol, res.Leverage)
		if err != nil {
			return &StepError{Step: StepSizing, Reason: "failed to size position", Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}
	res.PositionSize = sizing.Quantity

	err = e.traced(ctx, StepEntry, func(ctx context.Context) error {
		order, price, err := e.placeEntry(ctx, sig, res, sizing)
		if err != nil {
			return &StepError{Step: StepEntry, Reason: "failed to place entry order", Err: err}
		}
		res.EntryOrder = order
		res.EntryPrice = price
		return nil
	})
	if err != nil {
		return err
	}

	e.placeBrackets(ctx, sig, res, sizing.Instrument)

	if res.StopLossOrder == nil || len(res.TakeProfitOrders) == 0 {
		e.log.Warn("trade is not monitored: bracket incomplete", zap.String("symbol", res.Symbol))
		return nil
	}

	trade := Trade{
		ID:                res.TradeID,
		Symbol:            res.Symbol,
		OriginalSymbol:    sig.ExchangeSymbol,
		Rate:              res.Rate,
		Mapped:            resolution.Mapped,
		Position:          sig.Position,
		Leverage:          res.Leverage,
		EntryOrderID:      res.EntryOrder.ID,
		StopLossOrderID:   res.StopLossOrder.ID,
		TakeProfitOrderID: res.TakeProfitOrders[0].ID,
		EntryPrice:        res.EntryPrice,
		Quantity:          res.PositionSize,
		StopLossPrice:     res.StopLossPrice,
		TakeProfitPrice:   res.TakeProfitPrice,
		OpenedAt:          time.Now(),
	}
	key, err := e.monitors.Start(ctx, trade)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("monitor not started: %v", err))
		e.log.Warn("failed to start monitor", zap.String("symbol", res.Symbol), zap.Error(err))
		return nil
	}
	monitored = true
	res.MonitorKey = key
	return nil
}

func (e *Executor) traced(ctx context.Context, step Step, fn func(ctx context.Context) error) error {
	ctx, span := e.tracer.Start(ctx, "trading."+string(step))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func effectiveLeverage(requested, venueMax, limit int) int {
	lev := requested
	if venueMax > 0 && lev > venueMax {
		lev = venueMax
	}
	if limit > 0 && lev > limit {
		lev = limit
	}
	if lev < 1 {
		lev = 1
	}
	return lev
}

// placeEntry returns the entry order and the price brackets are computed from.
func (e *Executor) placeEntry(ctx context.Context, sig *signal.Signal, res *ExecutionResult, sizing Sizing) (*entity.Order, decimal.Decimal, error) {
	req := entity.OrderRequest{
		Symbol:        res.Symbol,
		Side:          sig.Position.EntrySide(),
		Type:          entity.OrderTypeMarket,
		Quantity:      sizing.Quantity,
		ClientOrderID: uuid.NewString(),
	}
	price := sizing.ReferencePrice

	if e.cfg.EntryMode == EntryAuto {
		target := mapping.ToVenue(sig.EntryPrice, res.Rate)
		distance := target.Sub(sizing.ReferencePrice).Abs().Div(sizing.ReferencePrice)
		if distance.GreaterThan(limitProximity) {
			req.Type = entity.OrderTypeLimit
			req.Price = SnapPrice(target, sizing.Instrument.TickSize)
			price = req.Price
		}
		e.log.Info("entry mode chosen",
			zap.String("symbol", res.Symbol),
			zap.String("type", req.Type),
			zap.String("signal_entry", target.String()),
			zap.String("last_price", sizing.ReferencePrice.String()))
	}

	order, err := e.exchange.PlaceOrder(ctx, req)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if order.AvgPrice.IsPositive() {
		price = order.AvgPrice
	}
	return order, price, nil
}

// placeBrackets places the stop-loss and take-profit legs. Either leg may
// fail; that is recorded as a warning and the entry stands alone.
func (e *Executor) placeBrackets(ctx context.Context, sig *signal.Signal, res *ExecutionResult, inst entity.Instrument) {
	ctx, span := e.tracer.Start(ctx, "trading.brackets")
	defer span.End()

	sl, tp := e.bracketPrices(sig, res)
	res.StopLossPrice = SnapPrice(sl, inst.TickSize)
	res.TakeProfitPrice = SnapPrice(tp, inst.TickSize)

	closeSide := sig.Position.CloseSide()
	slOrder, err := e.exchange.PlaceOrder(ctx, entity.OrderRequest{
		Symbol:        res.Symbol,
		Side:          closeSide,
		Type:          entity.OrderTypeStopMarket,
		StopPrice:     res.StopLossPrice,
		ClosePosition: true,
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		metrics.BracketLegFailures.WithLabelValues("stop_loss").Inc()
		span.RecordError(err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("stop-loss not placed: %v", err))
		e.log.Warn("failed to place stop-loss", zap.String("symbol", res.Symbol), zap.Error(err))
	} else {
		res.StopLossOrder = slOrder
	}

	tpOrder, err := e.exchange.PlaceOrder(ctx, entity.OrderRequest{
		Symbol:        res.Symbol,
		Side:          closeSide,
		Type:          entity.OrderTypeTakeProfitMarket,
		StopPrice:     res.TakeProfitPrice,
		ClosePosition: true,
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		metrics.BracketLegFailures.WithLabelValues("take_profit").Inc()
		span.RecordError(err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("take-profit not placed: %v", err))
		e.log.Warn("failed to place take-profit", zap.String("symbol", res.Symbol), zap.Error(err))
	} else {
		res.TakeProfitOrders = append(res.TakeProfitOrders, tpOrder)
	}
}

// bracketPrices returns unsnapped stop-loss and take-profit prices in the
// venue's price space.
func (e *Executor) bracketPrices(sig *signal.Signal, res *ExecutionResult) (decimal.Decimal, decimal.Decimal) {
	entry := res.EntryPrice
	lev := decimal.NewFromInt(int64(res.Leverage))
	long := sig.Position == signal.Long

	if e.cfg.BracketMode == BracketSignal {
		sl, ok := signalStop(sig, res)
		if !ok {
			// min(5%, 20/leverage %) below (long) or above (short) the entry.
			pct := decimal.Min(decimal.NewFromInt(5), decimal.NewFromInt(20).Div(lev))
			sl = offset(entry, pct, !long)
		}
		tp, ok := signalTarget(sig, res)
		if !ok {
			tp = offset(entry, e.cfg.TakeProfitPercent.Div(lev), long)
		}
		return sl, tp
	}

	sl := offset(entry, e.cfg.StopLossPercent.Div(lev), !long)
	tp := offset(entry, e.cfg.TakeProfitPercent.Div(lev), long)
	return sl, tp
}

// offset moves price by pct percent, upwards when up is true.
func offset(price, pct decimal.Decimal, up bool) decimal.Decimal {
	f := pct.Div(hundred)
	if up {
		return price.Mul(decimal.NewFromInt(1).Add(f))
	}
	return price.Mul(decimal.NewFromInt(1).Sub(f))
}

func signalStop(sig *signal.Signal, res *ExecutionResult) (decimal.Decimal, bool) {
	if !sig.StopLoss.Valid || !sig.StopLoss.Decimal.IsPositive() {
		return decimal.Zero, false
	}
	sl := mapping.ToVenue(sig.StopLoss.Decimal, res.Rate)
	if sig.Position == signal.Long && sl.GreaterThanOrEqual(res.EntryPrice) {
		return decimal.Zero, false
	}
	if sig.Position == signal.Short && sl.LessThanOrEqual(res.EntryPrice) {
		return decimal.Zero, false
	}
	return sl, true
}

func signalTarget(sig *signal.Signal, res *ExecutionResult) (decimal.Decimal, bool) {
	first, ok := sig.FirstTakeProfit()
	if !ok {
		return decimal.Zero, false
	}
	tp := mapping.ToVenue(first.Price, res.Rate)
	if sig.Position == signal.Long && tp.LessThanOrEqual(res.EntryPrice) {
		return decimal.Zero, false
	}
	if sig.Position == signal.Short && tp.GreaterThanOrEqual(res.EntryPrice) {
		return decimal.Zero, false
	}
	return tp, true
}

func (e *Executor) fail(ctx context.Context, sig *signal.Signal, res *ExecutionResult, err error) {
	step, reason := "execute", "execution failed"
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		step, reason = string(stepErr.Step), stepErr.Reason
	}
	res.Errors = append(res.Errors, err.Error())

	e.log.Error("trade execution failed",
		zap.String("symbol", sig.ExchangeSymbol),
		zap.String("step", step),
		zap.Error(err))

	failure := journal.Failure{
		Time:           time.Now(),
		Symbol:         res.Symbol,
		OriginalSymbol: sig.ExchangeSymbol,
		Step:           step,
		Reason:         reason,
		Error:          err.Error(),
		Message:        sig.OriginalMessage,
	}
	if jerr := e.journal.RecordFailure(ctx, failure); jerr != nil {
		e.log.Error("failed to journal trading failure", zap.Error(jerr))
	}

	if !e.cfg.NotifyFailure {
		return
	}
	if nerr := e.notifier.Send(ctx, failureMessage(sig.ExchangeSymbol, reason, err)); nerr != nil {
		e.log.Error("failed to send failure notification", zap.Error(nerr))
	}
}
