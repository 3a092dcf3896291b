package service

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2/futures"

	"signaltrader/internal/binance/entity"
)

// ListPositions returns open positions. An empty symbol lists every market.
func (e *FuturesExchange) ListPositions(ctx context.Context, symbol string) ([]entity.Position, error) {
	resp, err := call(e, "position_risk", func() ([]*futures.PositionRisk, error) {
		svc := e.client.NewGetPositionRiskService()
		if symbol != "" {
			svc.Symbol(symbol)
		}
		return svc.Do(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get positions for %q: %w", symbol, err)
	}

	positions := make([]entity.Position, 0, len(resp))
	for _, p := range resp {
		pos := positionFromRisk(p)
		if pos.IsOpen() {
			positions = append(positions, pos)
		}
	}
	return positions, nil
}
