package trading

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"signaltrader/internal/binance/entity"
	"signaltrader/internal/mapping"
	"signaltrader/internal/mapping/repository"
	"signaltrader/internal/signal"
)

type executorFixture struct {
	fx       *fakeExchange
	active   *mapping.ActiveTrades
	starter  *recordingStarter
	notifier *recordingNotifier
	journal  *recordingJournal
	exec     *Executor
}

func newExecutorFixture(t *testing.T, cfg ExecutorConfig, mappings staticMappings) *executorFixture {
	t.Helper()
	f := &executorFixture{
		fx:       newFakeExchange(),
		active:   mapping.NewActiveTrades(),
		starter:  &recordingStarter{},
		notifier: &recordingNotifier{},
		journal:  &recordingJournal{},
	}
	if mappings == nil {
		mappings = staticMappings{}
	}
	resolver, err := mapping.NewResolver(mappings, f.fx, zap.NewNop())
	require.NoError(t, err)

	sizer := NewSizer(f.fx, SizerConfig{Mode: SizingWalletRatio, RiskPercent: d("2")}, zap.NewNop())
	f.exec = NewExecutor(f.fx, resolver, f.active, sizer, f.starter, f.notifier, f.journal, cfg, zap.NewNop())
	return f
}

func defaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxLeverage:       20,
		StopLossPercent:   d("5"),
		TakeProfitPercent: d("10"),
		NotifyEntry:       true,
		NotifyFailure:     true,
	}
}

func longSignal(symbol string, leverage int, entry string) *signal.Signal {
	return &signal.Signal{
		Symbol:           symbol,
		ExchangeSymbol:   signal.ExchangeSymbol(symbol),
		Position:         signal.Long,
		Leverage:         leverage,
		EntryPrice:       d(entry),
		TakeProfitLevels: []signal.TakeProfitLevel{{Price: d(entry).Mul(d("1.02")), Percentage: d("100")}},
	}
}

func TestExecuteManagedBracket(t *testing.T) {
	f := newExecutorFixture(t, defaultExecutorConfig(), nil)

	res := f.exec.Execute(context.Background(), longSignal("BTC/USDT", 10, "50000"))

	require.True(t, res.Success(), res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "BTCUSDT", res.Symbol)
	assert.Equal(t, 10, res.Leverage)
	assert.Equal(t, 10, f.fx.leverage["BTCUSDT"])
	assert.Equal(t, "0.004", res.PositionSize.String())
	assert.Equal(t, "50000", res.EntryPrice.String())
	// 5% / 10x below and 10% / 10x above the fill.
	assert.Equal(t, "49750", res.StopLossPrice.String())
	assert.Equal(t, "50500", res.TakeProfitPrice.String())

	placed := f.fx.placedOrders()
	require.Len(t, placed, 3)
	assert.Equal(t, entity.OrderTypeMarket, placed[0].Type)
	assert.Equal(t, entity.SideBuy, placed[0].Side)
	assert.NotEmpty(t, placed[0].ClientOrderID)
	for _, leg := range placed[1:] {
		assert.True(t, leg.ClosePosition)
		assert.True(t, leg.Quantity.IsZero())
		assert.Equal(t, entity.SideSell, leg.Side)
	}
	assert.Equal(t, entity.OrderTypeStopMarket, placed[1].Type)
	assert.Equal(t, entity.OrderTypeTakeProfitMarket, placed[2].Type)

	require.Len(t, f.starter.trades, 1)
	trade := f.starter.trades[0]
	assert.Equal(t, res.EntryOrder.ID, trade.EntryOrderID)
	assert.Equal(t, res.StopLossOrder.ID, trade.StopLossOrderID)
	assert.Equal(t, res.TakeProfitOrders[0].ID, trade.TakeProfitOrderID)
	assert.Equal(t, trade.Key(), res.MonitorKey)

	msgs := f.notifier.sent()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Trade opened")
	assert.Empty(t, f.journal.failures)
}

func TestExecuteShortBracketIsMirrored(t *testing.T) {
	f := newExecutorFixture(t, defaultExecutorConfig(), nil)
	sig := longSignal("BTC/USDT", 10, "50000")
	sig.Position = signal.Short

	res := f.exec.Execute(context.Background(), sig)
	require.True(t, res.Success())
	assert.Equal(t, "50250", res.StopLossPrice.String())
	assert.Equal(t, "49500", res.TakeProfitPrice.String())
	assert.Equal(t, entity.SideSell, f.fx.placedOrders()[0].Side)
}

func TestExecuteUnsupportedWithoutMapping(t *testing.T) {
	f := newExecutorFixture(t, defaultExecutorConfig(), nil)

	res := f.exec.Execute(context.Background(), longSignal("FOO/USDT", 10, "1"))

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "unsupported instrument")
	assert.Empty(t, f.fx.placedOrders())
	assert.Empty(t, f.starter.trades)

	require.Len(t, f.journal.failures, 1)
	assert.Equal(t, string(StepLeverage), f.journal.failures[0].Step)
	msgs := f.notifier.sent()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "FOOUSDT")
	assert.Contains(t, msgs[0], "no symbol mapping")
}

func TestExecuteLeverageIsCapped(t *testing.T) {
	cases := []struct {
		requested, venue, limit, want int
	}{
		{50, 125, 20, 20},
		{10, 5, 20, 5},
		{10, 125, 20, 10},
		{10, 125, 0, 10},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, effectiveLeverage(c.requested, c.venue, c.limit))
	}

	f := newExecutorFixture(t, defaultExecutorConfig(), nil)
	f.fx.maxLeverage["BTCUSDT"] = 8
	res := f.exec.Execute(context.Background(), longSignal("BTC/USDT", 50, "50000"))
	require.True(t, res.Success())
	assert.Equal(t, 8, res.Leverage)
}

func TestExecuteMappedSymbolUsesRate(t *testing.T) {
	cfg := defaultExecutorConfig()
	cfg.BracketMode = BracketSignal
	f := newExecutorFixture(t, cfg, staticMappings{
		"PEPEUSDT": repository.Entry{Symbol: "1000PEPEUSDT", Rate: d("1000")},
	})
	f.fx.instruments["1000PEPEUSDT"] = entity.Instrument{Symbol: "1000PEPEUSDT", StepSize: d("1"), TickSize: d("0.0000001"), MinQty: d("1")}
	f.fx.maxLeverage["1000PEPEUSDT"] = 50
	f.fx.prices["1000PEPEUSDT"] = d("0.0100000")

	sig := longSignal("PEPE/USDT", 10, "0.00001")
	sig.StopLoss = decimal.NewNullDecimal(d("0.0000095"))
	sig.TakeProfitLevels = []signal.TakeProfitLevel{{Price: d("0.000011"), Percentage: d("100")}}

	res := f.exec.Execute(context.Background(), sig)
	require.True(t, res.Success(), res.Errors)
	assert.Equal(t, "1000PEPEUSDT", res.Symbol)
	assert.Equal(t, "PEPEUSDT", res.OriginalSymbol)
	assert.Equal(t, "0.0095", res.StopLossPrice.String())
	assert.Equal(t, "0.011", res.TakeProfitPrice.String())

	at, ok := f.active.Get("1000PEPEUSDT")
	require.True(t, ok)
	assert.Equal(t, "PEPEUSDT", at.OriginalSymbol)

	require.Len(t, f.starter.trades, 1)
	assert.True(t, f.starter.trades[0].Mapped)

	msgs := f.notifier.sent()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Entry: 0.00001\n")
	assert.Contains(t, msgs[0], "Traded as 1000PEPEUSDT")
}

func TestExecuteSignalModeAutoStop(t *testing.T) {
	cfg := defaultExecutorConfig()
	cfg.BracketMode = BracketSignal
	f := newExecutorFixture(t, cfg, nil)

	// No stop in the signal: min(5, 20/10) = 2% below entry.
	res := f.exec.Execute(context.Background(), longSignal("BTC/USDT", 10, "50000"))
	require.True(t, res.Success())
	assert.Equal(t, "49000", res.StopLossPrice.String())
	assert.Equal(t, "51000", res.TakeProfitPrice.String())
}

func TestExecuteBracketLegFailureIsWarning(t *testing.T) {
	f := newExecutorFixture(t, defaultExecutorConfig(), staticMappings{
		"XBTUSDT": repository.Entry{Symbol: "BTCUSDT", Rate: d("1")},
	})
	f.fx.placeErr[entity.OrderTypeTakeProfitMarket] = errors.New("would immediately trigger")

	res := f.exec.Execute(context.Background(), longSignal("XBT/USDT", 10, "50000"))

	require.True(t, res.Success())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "take-profit not placed")
	assert.NotNil(t, res.StopLossOrder)
	assert.Empty(t, res.TakeProfitOrders)
	assert.Empty(t, f.starter.trades)
	// Nobody will monitor the trade, so the mapping row is released.
	assert.Equal(t, 0, f.active.Len())
}

func TestExecuteSizingFailure(t *testing.T) {
	f := newExecutorFixture(t, defaultExecutorConfig(), nil)
	f.fx.balanceErr = errors.New("balance endpoint down")

	res := f.exec.Execute(context.Background(), longSignal("BTC/USDT", 10, "50000"))

	require.Len(t, res.Errors, 1)
	assert.Empty(t, f.fx.placedOrders())
	require.Len(t, f.journal.failures, 1)
	assert.Equal(t, string(StepSizing), f.journal.failures[0].Step)
}

func TestExecuteEntryFailureAborts(t *testing.T) {
	f := newExecutorFixture(t, defaultExecutorConfig(), nil)
	f.fx.placeErr[entity.OrderTypeMarket] = errors.New("margin is insufficient")

	res := f.exec.Execute(context.Background(), longSignal("BTC/USDT", 10, "50000"))

	require.Len(t, res.Errors, 1)
	assert.Len(t, f.fx.placedOrders(), 1)
	assert.Nil(t, res.StopLossOrder)
	assert.Equal(t, string(StepEntry), f.journal.failures[0].Step)
}

func TestExecuteAutoEntryMode(t *testing.T) {
	cfg := defaultExecutorConfig()
	cfg.EntryMode = EntryAuto

	t.Run("far from market uses limit", func(t *testing.T) {
		f := newExecutorFixture(t, cfg, nil)
		res := f.exec.Execute(context.Background(), longSignal("BTC/USDT", 10, "49000"))
		require.True(t, res.Success())
		entry := f.fx.placedOrders()[0]
		assert.Equal(t, entity.OrderTypeLimit, entry.Type)
		assert.Equal(t, "49000", entry.Price.String())
		assert.Equal(t, "49000", res.EntryPrice.String())
	})

	t.Run("close to market uses market", func(t *testing.T) {
		f := newExecutorFixture(t, cfg, nil)
		res := f.exec.Execute(context.Background(), longSignal("BTC/USDT", 10, "50100"))
		require.True(t, res.Success())
		assert.Equal(t, entity.OrderTypeMarket, f.fx.placedOrders()[0].Type)
	})
}

func TestExecuteFailureNotificationToggle(t *testing.T) {
	cfg := defaultExecutorConfig()
	cfg.NotifyFailure = false
	f := newExecutorFixture(t, cfg, nil)

	res := f.exec.Execute(context.Background(), longSignal("FOO/USDT", 10, "1"))
	assert.Len(t, res.Errors, 1)
	assert.Empty(t, f.notifier.sent())
	assert.Len(t, f.journal.failures, 1)
}

func TestStepErrorUnwraps(t *testing.T) {
	base := errors.New("boom")
	err := error(&StepError{Step: StepEntry, Reason: "x", Err: base})
	assert.ErrorIs(t, err, base)

	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepEntry, se.Step)
}
