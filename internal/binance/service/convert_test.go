package service

import (
	"testing"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signaltrader/internal/binance/entity"
)

func TestInstrumentFromSymbolReadsFilters(t *testing.T) {
	sym := &futures.Symbol{
		Symbol: "BTCUSDT",
		Status: "TRADING",
		Filters: []map[string]interface{}{
			{"filterType": "PRICE_FILTER", "tickSize": "0.10", "minPrice": "556.80"},
			{"filterType": "LOT_SIZE", "stepSize": "0.001", "minQty": "0.001"},
			{"filterType": "MARKET_LOT_SIZE", "stepSize": "0.010"},
		},
	}

	inst, ok := instrumentFromSymbol(sym)
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", inst.Symbol)
	assert.True(t, inst.TickSize.Equal(decimal.RequireFromString("0.1")))
	assert.True(t, inst.StepSize.Equal(decimal.RequireFromString("0.001")))
	assert.True(t, inst.MinQty.Equal(decimal.RequireFromString("0.001")))
}

func TestInstrumentFromSymbolSkipsIncompleteOrHalted(t *testing.T) {
	_, ok := instrumentFromSymbol(&futures.Symbol{
		Symbol:  "ETHUSDT",
		Filters: []map[string]interface{}{{"filterType": "LOT_SIZE", "stepSize": "0.001"}},
	})
	assert.False(t, ok)

	_, ok = instrumentFromSymbol(&futures.Symbol{
		Symbol: "OLDUSDT",
		Status: "SETTLING",
		Filters: []map[string]interface{}{
			{"filterType": "PRICE_FILTER", "tickSize": "0.1"},
			{"filterType": "LOT_SIZE", "stepSize": "1"},
		},
	})
	assert.False(t, ok)
}

func TestMaxInitialLeverage(t *testing.T) {
	brackets := []*futures.LeverageBracket{{
		Symbol: "BTCUSDT",
		Brackets: []futures.Bracket{
			{Bracket: 1, InitialLeverage: 125},
			{Bracket: 2, InitialLeverage: 100},
		},
	}}
	assert.Equal(t, 125, maxInitialLeverage(brackets, "BTCUSDT"))
	assert.Equal(t, 0, maxInitialLeverage(brackets, "ETHUSDT"))
	assert.Equal(t, 0, maxInitialLeverage(nil, "BTCUSDT"))
}

func TestOrderFromFutures(t *testing.T) {
	o := orderFromFutures(&futures.Order{
		Symbol:           "BTCUSDT",
		OrderID:          7,
		Status:           futures.OrderStatusTypeFilled,
		Type:             futures.OrderTypeStopMarket,
		Side:             futures.SideTypeSell,
		AvgPrice:         "49000.5",
		StopPrice:        "49000",
		ExecutedQuantity: "0.010",
		ClosePosition:    true,
	})

	assert.Equal(t, int64(7), o.ID)
	assert.Equal(t, entity.OrderStatusFilled, o.Status)
	assert.Equal(t, entity.OrderTypeStopMarket, o.Type)
	assert.Equal(t, entity.SideSell, o.Side)
	assert.True(t, o.AvgPrice.Equal(decimal.RequireFromString("49000.5")))
	assert.True(t, o.ClosePosition)
	// Unparseable or empty values map to zero.
	assert.True(t, o.Price.IsZero())
}

func TestPositionFromRisk(t *testing.T) {
	p := positionFromRisk(&futures.PositionRisk{
		Symbol:      "ETHUSDT",
		PositionAmt: "-1.5",
		EntryPrice:  "3000",
		MarkPrice:   "2990",
		Leverage:    "20",
	})
	assert.True(t, p.IsOpen())
	assert.False(t, p.IsLong())
	assert.Equal(t, 20, p.Leverage)
}
