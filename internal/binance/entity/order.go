package entity

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrUnsupportedInstrument = errors.New("instrument is not listed on the venue")

type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

func (s OrderStatus) IsFilled() bool { return s == OrderStatusFilled }

// IsTerminal: the order will not change any more.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return true
	}
	return false
}

const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	OrderTypeMarket           = "MARKET"
	OrderTypeLimit            = "LIMIT"
	OrderTypeStopMarket       = "STOP_MARKET"
	OrderTypeTakeProfitMarket = "TAKE_PROFIT_MARKET"
)

type Order struct {
	ID               int64           `json:"id"`
	ClientOrderID    string          `json:"client_order_id"`
	Symbol           string          `json:"symbol"`
	Side             string          `json:"side"` // BUY / SELL
	Type             string          `json:"type"`
	Status           OrderStatus     `json:"status"`
	Price            decimal.Decimal `json:"price"`
	StopPrice        decimal.Decimal `json:"stop_price"`
	AvgPrice         decimal.Decimal `json:"avg_price"`
	OrigQuantity     decimal.Decimal `json:"orig_quantity"`
	ExecutedQuantity decimal.Decimal `json:"executed_quantity"`
	ClosePosition    bool            `json:"close_position"`
	UpdatedAt        int64           `json:"updated_at"`
}

// OrderRequest describes a new order. Zero decimals are omitted; bracket
// legs set ClosePosition and carry no quantity.
type OrderRequest struct {
	Symbol        string
	Side          string
	Type          string
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	StopPrice     decimal.Decimal
	ClosePosition bool
	ClientOrderID string
}
