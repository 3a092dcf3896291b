package trading

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"signaltrader/internal/binance/entity"
	"signaltrader/internal/mapping"
)

type MonitorState string

const (
	StateAwaitingEntryFill MonitorState = "awaiting_entry_fill"
	StateRacing            MonitorState = "racing"
	StateClosed            MonitorState = "closed"
	StateReported          MonitorState = "reported"
	StateDone              MonitorState = "done"
	StateAbandoned         MonitorState = "abandoned"
)

type MonitorConfig struct {
	// PollInterval is the first sleep; it doubles every BackoffEvery polls
	// up to MaxPollInterval.
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	BackoffEvery    int
	// EntryFillAttempts bounds the wait for the entry fill before racing anyway.
	EntryFillAttempts int
	// PositionCheckEvery: the position is looked up on every Nth racing poll.
	PositionCheckEvery int
	ErrorBackoff       time.Duration
	MaxLifetime        time.Duration
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		PollInterval:       2 * time.Second,
		MaxPollInterval:    30 * time.Second,
		BackoffEvery:       10,
		EntryFillAttempts:  30,
		PositionCheckEvery: 3,
		ErrorBackoff:       10 * time.Second,
		MaxLifetime:        7 * 24 * time.Hour,
	}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const cleanupTimeout = 15 * time.Second

// errEntryDead: the entry order reached a terminal status with nothing filled.
var errEntryDead = errors.New("entry order ended without a fill")

// closure is what ended the race.
type closure struct {
	exit  ExitType
	order *entity.Order // nil for manual_or_liquidation
}

// Monitor follows one trade from entry fill to the report of its exit.
type Monitor struct {
	trade    Trade
	exchange Exchange
	reporter ProfitReporter
	active   *mapping.ActiveTrades
	cfg      MonitorConfig
	sleep    Sleeper
	now      func() time.Time
	tracer   trace.Tracer
	log      *zap.Logger

	// entryFilled is owned by the Run goroutine. Recovered trades start
	// with it set: their position was found open.
	entryFilled bool

	mu        sync.RWMutex
	state     MonitorState
	polls     int
	processed atomic.Bool
}

func newMonitor(trade Trade, exchange Exchange, reporter ProfitReporter, active *mapping.ActiveTrades,
	cfg MonitorConfig, sleep Sleeper, log *zap.Logger) *Monitor {
	if sleep == nil {
		sleep = sleepContext
	}
	state := StateAwaitingEntryFill
	if trade.Recovered() {
		state = StateRacing
	}
	return &Monitor{
		trade:    trade,
		exchange: exchange,
		reporter: reporter,
		active:   active,
		cfg:      cfg,
		sleep:    sleep,
		now:      time.Now,
		tracer:   otel.Tracer("signaltrader/trading"),
		log: log.Named("OrderMonitor").With(
			zap.String("trade_id", trade.ID),
			zap.String("symbol", trade.Symbol)),
		state:       state,
		entryFilled: trade.Recovered(),
	}
}

func (m *Monitor) State() MonitorState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Monitor) setState(s MonitorState) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()
	m.log.Debug("monitor state changed", zap.String("from", string(prev)), zap.String("to", string(s)))
}

// Run drives the state machine until Done or Abandoned and returns the final state.
func (m *Monitor) Run(ctx context.Context) MonitorState {
	ctx, span := m.tracer.Start(ctx, "trading.monitor", trace.WithAttributes(
		attribute.String("symbol", m.trade.Symbol),
		attribute.String("trade_id", m.trade.ID),
	))
	defer span.End()

	if m.trade.Mapped {
		defer m.active.Release(m.trade.Symbol)
	}

	m.log.Info("monitor started", zap.String("state", string(m.State())))

	if m.State() == StateAwaitingEntryFill {
		if !m.awaitEntryFill(ctx) {
			return m.abandon(ctx)
		}
		m.setState(StateRacing)
	}

	c, ok := m.race(ctx)
	if !ok {
		return m.abandon(ctx)
	}
	m.setState(StateClosed)

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	m.report(cleanupCtx, c)
	m.sweep(cleanupCtx)
	m.setState(StateDone)
	span.SetAttributes(attribute.String("exit_type", string(c.exit)))
	m.log.Info("monitor done", zap.String("exit_type", string(c.exit)))
	return StateDone
}

// abandon ends the monitor without a report. Venue orders are left alone
// unless the entry itself died, in which case the bracket legs are removed.
func (m *Monitor) abandon(ctx context.Context) MonitorState {
	if ctx.Err() == nil {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		m.sweep(cleanupCtx)
	} else {
		m.log.Warn("monitor stopped before the trade closed; venue orders untouched", zap.Error(ctx.Err()))
	}
	m.setState(StateAbandoned)
	return StateAbandoned
}

// interval returns the next poll delay: PollInterval doubled once per
// BackoffEvery polls, capped at MaxPollInterval.
func (m *Monitor) interval() time.Duration {
	d := m.cfg.PollInterval
	if m.cfg.BackoffEvery > 0 {
		for i := 0; i < m.polls/m.cfg.BackoffEvery && d < m.cfg.MaxPollInterval; i++ {
			d *= 2
		}
	}
	if m.cfg.MaxPollInterval > 0 && d > m.cfg.MaxPollInterval {
		d = m.cfg.MaxPollInterval
	}
	m.polls++
	return d
}

// awaitEntryFill returns false when the entry will never fill or ctx is done.
func (m *Monitor) awaitEntryFill(ctx context.Context) bool {
	for attempt := 1; attempt <= m.cfg.EntryFillAttempts; attempt++ {
		order, err := m.exchange.GetOrder(ctx, m.trade.Symbol, m.trade.EntryOrderID)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			m.log.Warn("failed to poll entry order", zap.Int("attempt", attempt), zap.Error(err))
			if m.sleep(ctx, m.cfg.ErrorBackoff) != nil {
				return false
			}
			continue
		}

		if order.Status.IsTerminal() {
			if order.ExecutedQuantity.IsPositive() {
				m.captureFill(order)
				return true
			}
			m.log.Warn("entry order ended without a fill", zap.String("status", string(order.Status)))
			return false
		}

		if m.sleep(ctx, m.interval()) != nil {
			return false
		}
	}

	m.log.Warn("entry not filled within attempts, watching brackets until it fills or ends",
		zap.Int("attempts", m.cfg.EntryFillAttempts))
	return true
}

// captureFill replaces the placement estimates with the actual fill.
func (m *Monitor) captureFill(order *entity.Order) {
	m.entryFilled = true
	if order.AvgPrice.IsPositive() {
		m.trade.EntryPrice = order.AvgPrice
	}
	if order.ExecutedQuantity.IsPositive() {
		m.trade.Quantity = order.ExecutedQuantity
	}
	m.log.Info("entry filled",
		zap.String("price", m.trade.EntryPrice.String()),
		zap.String("quantity", m.trade.Quantity.String()))
}

func (m *Monitor) race(ctx context.Context) (closure, bool) {
	for iteration := 1; ; iteration++ {
		if ctx.Err() != nil {
			return closure{}, false
		}

		c, err := m.poll(ctx, iteration)
		if errors.Is(err, errEntryDead) {
			m.log.Warn("entry order ended without a fill while watching brackets")
			return closure{}, false
		}
		if err != nil {
			if ctx.Err() != nil {
				return closure{}, false
			}
			m.log.Warn("transient polling error", zap.Int("iteration", iteration), zap.Error(err))
			if m.sleep(ctx, m.cfg.ErrorBackoff) != nil {
				return closure{}, false
			}
			continue
		}
		if c != nil {
			return *c, true
		}

		if m.sleep(ctx, m.interval()) != nil {
			return closure{}, false
		}
	}
}

// poll checks the stop-loss, then the take-profit, then every Nth time the
// position itself. The first closed condition wins and the sibling leg is canceled.
func (m *Monitor) poll(ctx context.Context, iteration int) (*closure, error) {
	sl, err := m.exchange.GetOrder(ctx, m.trade.Symbol, m.trade.StopLossOrderID)
	if err != nil {
		return nil, err
	}
	if sl.Status.IsFilled() {
		m.cancelLeg(ctx, m.trade.TakeProfitOrderID, "take_profit")
		return &closure{exit: ExitStopLoss, order: sl}, nil
	}

	tp, err := m.exchange.GetOrder(ctx, m.trade.Symbol, m.trade.TakeProfitOrderID)
	if err != nil {
		return nil, err
	}
	if tp.Status.IsFilled() {
		m.cancelLeg(ctx, m.trade.StopLossOrderID, "stop_loss")
		return &closure{exit: ExitTakeProfit, order: tp}, nil
	}

	if m.cfg.PositionCheckEvery > 0 && iteration%m.cfg.PositionCheckEvery == 0 {
		positions, err := m.exchange.ListPositions(ctx, m.trade.Symbol)
		if err != nil {
			return nil, err
		}
		if !hasPosition(positions, m.trade.Symbol) {
			if !m.entryFilled {
				filled, err := m.recheckEntry(ctx)
				if err != nil || !filled {
					return nil, err
				}
			}
			m.log.Warn("position gone without a bracket fill")
			m.cancelOpenOrders(ctx)
			return &closure{exit: ExitManual}, nil
		}
	}
	return nil, nil
}

// recheckEntry looks at an entry that had not filled when racing began. An
// open entry keeps the race going untouched since it may still fill.
func (m *Monitor) recheckEntry(ctx context.Context) (bool, error) {
	order, err := m.exchange.GetOrder(ctx, m.trade.Symbol, m.trade.EntryOrderID)
	if err != nil {
		return false, err
	}
	if !order.Status.IsTerminal() {
		m.log.Debug("no position yet, entry order still open", zap.String("status", string(order.Status)))
		return false, nil
	}
	if !order.ExecutedQuantity.IsPositive() {
		return false, errEntryDead
	}
	m.captureFill(order)
	return true, nil
}

func hasPosition(positions []entity.Position, symbol string) bool {
	for _, p := range positions {
		if p.Symbol == symbol && p.IsOpen() {
			return true
		}
	}
	return false
}

func (m *Monitor) cancelLeg(ctx context.Context, orderID int64, leg string) {
	if orderID == 0 {
		return
	}
	if err := m.exchange.CancelOrder(ctx, m.trade.Symbol, orderID); err != nil {
		m.log.Warn("failed to cancel sibling order", zap.String("leg", leg), zap.Int64("order_id", orderID), zap.Error(err))
	}
}

// cancelOpenOrders removes every open order left on the symbol.
func (m *Monitor) cancelOpenOrders(ctx context.Context) {
	orders, err := m.exchange.ListOpenOrders(ctx, m.trade.Symbol)
	if err != nil {
		m.log.Warn("failed to list open orders for cleanup", zap.Error(err))
		return
	}
	for _, o := range orders {
		if err := m.exchange.CancelOrder(ctx, m.trade.Symbol, o.ID); err != nil {
			m.log.Warn("failed to cancel leftover order", zap.Int64("order_id", o.ID), zap.Error(err))
		}
	}
}

// sweep cancels this trade's bracket legs that are still open.
func (m *Monitor) sweep(ctx context.Context) {
	for _, id := range []int64{m.trade.StopLossOrderID, m.trade.TakeProfitOrderID} {
		if id == 0 {
			continue
		}
		order, err := m.exchange.GetOrder(ctx, m.trade.Symbol, id)
		if err != nil {
			m.log.Debug("sweep: order lookup failed", zap.Int64("order_id", id), zap.Error(err))
			continue
		}
		if order.Status.IsTerminal() {
			continue
		}
		if err := m.exchange.CancelOrder(ctx, m.trade.Symbol, id); err != nil {
			m.log.Warn("sweep: failed to cancel order", zap.Int64("order_id", id), zap.Error(err))
		}
	}
}

// exitPrice prefers the triggering order's fill, then its stop price, then
// the last market price, and finally the entry price.
func (m *Monitor) exitPrice(ctx context.Context, c closure) decimal.Decimal {
	if c.order != nil {
		if c.order.AvgPrice.IsPositive() {
			return c.order.AvgPrice
		}
		if c.order.StopPrice.IsPositive() {
			return c.order.StopPrice
		}
	}
	price, err := m.exchange.LastPrice(ctx, m.trade.Symbol)
	if err == nil && price.IsPositive() {
		return price
	}
	m.log.Warn("exit price unknown, using entry price", zap.Error(err))
	return m.trade.EntryPrice
}

// report runs at most once per trade.
func (m *Monitor) report(ctx context.Context, c closure) {
	if !m.processed.CompareAndSwap(false, true) {
		return
	}
	exit := m.exitPrice(ctx, c)
	m.reporter.Report(ctx, newProfitReport(&m.trade, c.exit, exit, m.now()))
	m.setState(StateReported)
}

// Info is a snapshot for the admin API.
func (m *Monitor) Info() MonitorInfo {
	return MonitorInfo{
		TradeID:        m.trade.ID,
		Symbol:         m.trade.Symbol,
		OriginalSymbol: m.trade.OriginalSymbol,
		Position:       string(m.trade.Position),
		Leverage:       m.trade.Leverage,
		State:          m.State(),
		OpenedAt:       m.trade.OpenedAt,
	}
}

type MonitorInfo struct {
	Key            string       `json:"key"`
	TradeID        string       `json:"trade_id"`
	Symbol         string       `json:"symbol"`
	OriginalSymbol string       `json:"original_symbol"`
	Position       string       `json:"position"`
	Leverage       int          `json:"leverage"`
	State          MonitorState `json:"state"`
	OpenedAt       time.Time    `json:"opened_at"`
}
