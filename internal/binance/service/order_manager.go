package service

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2/futures"
	"go.uber.org/zap"

	"signaltrader/internal/binance/entity"
)

func (e *FuturesExchange) PlaceOrder(ctx context.Context, req entity.OrderRequest) (*entity.Order, error) {
	svc := e.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(futures.SideType(req.Side)).
		Type(futures.OrderType(req.Type))

	if req.ClosePosition {
		svc.ClosePosition(true)
	} else {
		svc.Quantity(req.Quantity.String())
	}
	if req.Type == entity.OrderTypeLimit {
		svc.Price(req.Price.String()).TimeInForce(futures.TimeInForceTypeGTC)
	}
	if !req.StopPrice.IsZero() {
		svc.StopPrice(req.StopPrice.String()).WorkingType(futures.WorkingTypeMarkPrice)
	}
	if req.ClientOrderID != "" {
		svc.NewClientOrderID(req.ClientOrderID)
	}

	resp, err := call(e, "create_order", func() (*futures.CreateOrderResponse, error) {
		return svc.Do(ctx)
	})
	if err != nil {
		e.log.Error("order rejected",
			zap.String("symbol", req.Symbol), zap.String("side", req.Side), zap.String("type", req.Type), zap.Error(err))
		return nil, fmt.Errorf("binance futures API error: %w", err)
	}

	order := orderFromCreateResponse(resp)
	e.log.Info("order placed",
		zap.String("symbol", order.Symbol),
		zap.Int64("order_id", order.ID),
		zap.String("side", order.Side),
		zap.String("type", order.Type),
		zap.String("status", string(order.Status)))
	return &order, nil
}

func (e *FuturesExchange) GetOrder(ctx context.Context, symbol string, orderID int64) (*entity.Order, error) {
	resp, err := call(e, "get_order", func() (*futures.Order, error) {
		return e.client.NewGetOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get order %d on %s: %w", orderID, symbol, err)
	}
	order := orderFromFutures(resp)
	return &order, nil
}

func (e *FuturesExchange) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	_, err := call(e, "cancel_order", func() (*futures.CancelOrderResponse, error) {
		return e.client.NewCancelOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to cancel order %d on %s: %w", orderID, symbol, err)
	}
	e.log.Info("order canceled", zap.String("symbol", symbol), zap.Int64("order_id", orderID))
	return nil
}

func (e *FuturesExchange) ListOpenOrders(ctx context.Context, symbol string) ([]entity.Order, error) {
	resp, err := call(e, "open_orders", func() ([]*futures.Order, error) {
		svc := e.client.NewListOpenOrdersService()
		if symbol != "" {
			svc.Symbol(symbol)
		}
		return svc.Do(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list open orders for %s: %w", symbol, err)
	}

	orders := make([]entity.Order, 0, len(resp))
	for _, o := range resp {
		orders = append(orders, orderFromFutures(o))
	}
	return orders, nil
}
