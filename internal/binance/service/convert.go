package service

import (
	"strconv"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"signaltrader/internal/binance/entity"
)

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func orderFromFutures(o *futures.Order) entity.Order {
	return entity.Order{
		ID:               o.OrderID,
		ClientOrderID:    o.ClientOrderID,
		Symbol:           o.Symbol,
		Side:             string(o.Side),
		Type:             string(o.Type),
		Status:           entity.OrderStatus(o.Status),
		Price:            parseDecimal(o.Price),
		StopPrice:        parseDecimal(o.StopPrice),
		AvgPrice:         parseDecimal(o.AvgPrice),
		OrigQuantity:     parseDecimal(o.OrigQuantity),
		ExecutedQuantity: parseDecimal(o.ExecutedQuantity),
		ClosePosition:    o.ClosePosition,
		UpdatedAt:        o.UpdateTime,
	}
}

func orderFromCreateResponse(o *futures.CreateOrderResponse) entity.Order {
	return entity.Order{
		ID:               o.OrderID,
		ClientOrderID:    o.ClientOrderID,
		Symbol:           o.Symbol,
		Side:             string(o.Side),
		Type:             string(o.Type),
		Status:           entity.OrderStatus(o.Status),
		Price:            parseDecimal(o.Price),
		StopPrice:        parseDecimal(o.StopPrice),
		AvgPrice:         parseDecimal(o.AvgPrice),
		OrigQuantity:     parseDecimal(o.OrigQuantity),
		ExecutedQuantity: parseDecimal(o.ExecutedQuantity),
		ClosePosition:    o.ClosePosition,
		UpdatedAt:        o.UpdateTime,
	}
}

func positionFromRisk(p *futures.PositionRisk) entity.Position {
	lev, _ := strconv.Atoi(p.Leverage)
	return entity.Position{
		Symbol:     p.Symbol,
		Amount:     parseDecimal(p.PositionAmt),
		EntryPrice: parseDecimal(p.EntryPrice),
		MarkPrice:  parseDecimal(p.MarkPrice),
		Leverage:   lev,
	}
}

// instrumentFromSymbol reads LOT_SIZE and PRICE_FILTER from the raw filters.
func instrumentFromSymbol(s *futures.Symbol) (entity.Instrument, bool) {
	if s.Status != "" && s.Status != "TRADING" {
		return entity.Instrument{}, false
	}

	inst := entity.Instrument{Symbol: s.Symbol}
	for _, f := range s.Filters {
		switch f["filterType"] {
		case "LOT_SIZE":
			inst.StepSize = filterDecimal(f, "stepSize")
			inst.MinQty = filterDecimal(f, "minQty")
		case "PRICE_FILTER":
			inst.TickSize = filterDecimal(f, "tickSize")
		}
	}
	if !inst.StepSize.IsPositive() || !inst.TickSize.IsPositive() {
		return entity.Instrument{}, false
	}
	return inst, true
}

func filterDecimal(f map[string]interface{}, key string) decimal.Decimal {
	v, ok := f[key].(string)
	if !ok {
		return decimal.Zero
	}
	return parseDecimal(v)
}

func maxInitialLeverage(brackets []*futures.LeverageBracket, symbol string) int {
	maxLev := 0
	for _, lb := range brackets {
		if lb.Symbol != "" && lb.Symbol != symbol {
			continue
		}
		for _, b := range lb.Brackets {
			if b.InitialLeverage > maxLev {
				maxLev = b.InitialLeverage
			}
		}
	}
	return maxLev
}
