package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"signaltrader/internal/binance/entity"
	"signaltrader/internal/metrics"
	"signaltrader/pkg/safemap"
)

// Binance error code for an unknown symbol.
const codeInvalidSymbol = -1121

type ExchangeConfig struct {
	APIKey    string
	SecretKey string
	Testnet   bool
	// BaseURL overrides the REST endpoint (proxies, tests).
	BaseURL string
}

// FuturesExchange is the USDT-M futures adapter used by the trading engine.
// Exchange info and leverage brackets are cached; every call goes through a
// circuit breaker.
type FuturesExchange struct {
	client      *futures.Client
	cb          *gobreaker.CircuitBreaker
	instruments *safemap.SafeMap[string, entity.Instrument]
	leverage    *safemap.SafeMap[string, int]
	infoMu      sync.Mutex
	log         *zap.Logger
}

func NewFuturesExchange(cfg ExchangeConfig, log *zap.Logger) *FuturesExchange {
	futures.UseTestnet = cfg.Testnet
	client := binance.NewFuturesClient(cfg.APIKey, cfg.SecretKey)
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}

	e := &FuturesExchange{
		client:      client,
		instruments: safemap.New[string, entity.Instrument](),
		leverage:    safemap.New[string, int](),
		log:         log.Named("BinanceFutures"),
	}
	e.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "binance-futures",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// Rejections by the API are business errors, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || common.IsAPIError(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			e.log.Warn("circuit breaker state changed",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return e
}

// Client exposes the SDK client for the time sync service.
func (e *FuturesExchange) Client() *futures.Client {
	return e.client
}

func call[T any](e *FuturesExchange, endpoint string, fn func() (T, error)) (T, error) {
	start := time.Now()
	res, err := e.cb.Execute(func() (interface{}, error) {
		return fn()
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.BinanceAPIRequestsTotal.WithLabelValues(endpoint, status).Inc()
	metrics.BinanceAPIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

func isInvalidSymbol(err error) bool {
	var apiErr *common.APIError
	return errors.As(err, &apiErr) && apiErr.Code == codeInvalidSymbol
}

// Instrument returns step/tick filters, loading exchange info on a cache miss.
func (e *FuturesExchange) Instrument(ctx context.Context, symbol string) (entity.Instrument, error) {
	if inst, ok := e.instruments.Get(symbol); ok {
		return inst, nil
	}
	if err := e.refreshInstruments(ctx); err != nil {
		return entity.Instrument{}, err
	}
	if inst, ok := e.instruments.Get(symbol); ok {
		return inst, nil
	}
	return entity.Instrument{}, fmt.Errorf("%w: %s", entity.ErrUnsupportedInstrument, symbol)
}

func (e *FuturesExchange) refreshInstruments(ctx context.Context) error {
	e.infoMu.Lock()
	defer e.infoMu.Unlock()

	info, err := call(e, "exchange_info", func() (*futures.ExchangeInfo, error) {
		return e.client.NewExchangeInfoService().Do(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to load exchange info: %w", err)
	}

	table := make(map[string]entity.Instrument, len(info.Symbols))
	for i := range info.Symbols {
		if inst, ok := instrumentFromSymbol(&info.Symbols[i]); ok {
			table[inst.Symbol] = inst
		}
	}
	e.instruments.Replace(table)
	e.log.Info("exchange info loaded", zap.Int("symbols", len(table)))
	return nil
}

// MaxLeverage returns the highest initial leverage of the symbol's brackets.
func (e *FuturesExchange) MaxLeverage(ctx context.Context, symbol string) (int, error) {
	if n, ok := e.leverage.Get(symbol); ok {
		return n, nil
	}

	brackets, err := call(e, "leverage_bracket", func() ([]*futures.LeverageBracket, error) {
		return e.client.NewGetLeverageBracketService().Symbol(symbol).Do(ctx)
	})
	if err != nil {
		if isInvalidSymbol(err) {
			return 0, fmt.Errorf("%w: %s", entity.ErrUnsupportedInstrument, symbol)
		}
		return 0, fmt.Errorf("failed to get leverage brackets for %s: %w", symbol, err)
	}

	maxLev := maxInitialLeverage(brackets, symbol)
	if maxLev <= 0 {
		return 0, fmt.Errorf("%w: %s", entity.ErrUnsupportedInstrument, symbol)
	}
	e.leverage.Set(symbol, maxLev)
	return maxLev, nil
}

func (e *FuturesExchange) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	_, err := call(e, "change_leverage", func() (*futures.SymbolLeverage, error) {
		return e.client.NewChangeLeverageService().Symbol(symbol).Leverage(leverage).Do(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to set leverage %d for %s: %w", leverage, symbol, err)
	}
	e.log.Info("leverage set", zap.String("symbol", symbol), zap.Int("leverage", leverage))
	return nil
}

// Balance returns the wallet balance of asset.
func (e *FuturesExchange) Balance(ctx context.Context, asset string) (decimal.Decimal, error) {
	balances, err := call(e, "balance", func() ([]*futures.Balance, error) {
		return e.client.NewGetBalanceService().Do(ctx)
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balances: %w", err)
	}
	for _, b := range balances {
		if b.Asset == asset {
			return parseDecimal(b.Balance), nil
		}
	}
	return decimal.Zero, fmt.Errorf("no %s balance on futures wallet", asset)
}

func (e *FuturesExchange) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := call(e, "ticker_price", func() ([]*futures.SymbolPrice, error) {
		return e.client.NewListPricesService().Symbol(symbol).Do(ctx)
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get price for %s: %w", symbol, err)
	}
	for _, p := range prices {
		if p.Symbol == symbol {
			if price := parseDecimal(p.Price); price.IsPositive() {
				return price, nil
			}
		}
	}
	return decimal.Zero, fmt.Errorf("no price for %s", symbol)
}
