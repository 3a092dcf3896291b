package trading

import (
	"context"

	"github.com/shopspring/decimal"

	"signaltrader/internal/binance/entity"
	"signaltrader/internal/mapping"
)

// Exchange is the subset of the futures venue the engine needs.
type Exchange interface {
	Instrument(ctx context.Context, symbol string) (entity.Instrument, error)
	MaxLeverage(ctx context.Context, symbol string) (int, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	Balance(ctx context.Context, asset string) (decimal.Decimal, error)
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	PlaceOrder(ctx context.Context, req entity.OrderRequest) (*entity.Order, error)
	GetOrder(ctx context.Context, symbol string, orderID int64) (*entity.Order, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) error
	ListOpenOrders(ctx context.Context, symbol string) ([]entity.Order, error)
	ListPositions(ctx context.Context, symbol string) ([]entity.Position, error)
}

type SymbolResolver interface {
	Resolve(ctx context.Context, symbol string) (mapping.Resolution, error)
}

// Notifier delivers a text message to the destination channel.
type Notifier interface {
	Send(ctx context.Context, text string) error
}
