package trading

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"signaltrader/internal/binance/entity"
)

var ErrSizing = errors.New("position sizing failed")

type SizingMode string

const (
	SizingWalletRatio   SizingMode = "wallet_ratio"
	SizingFixedNotional SizingMode = "fixed_notional"
)

type SizerConfig struct {
	Mode SizingMode
	// RiskPercent is the share of the wallet balance used as margin (wallet_ratio).
	RiskPercent decimal.Decimal
	// FixedNotional is the margin per trade in the quote asset (fixed_notional).
	FixedNotional decimal.Decimal
	// SafetyBuffer is subtracted from the notional before the quantity is computed.
	SafetyBuffer decimal.Decimal
	QuoteAsset   string
}

type Sizing struct {
	Quantity       decimal.Decimal   `json:"quantity"`
	ReferencePrice decimal.Decimal   `json:"reference_price"`
	Notional       decimal.Decimal   `json:"notional"`
	Instrument     entity.Instrument `json:"instrument"`
}

type Sizer struct {
	exchange Exchange
	cfg      SizerConfig
	log      *zap.Logger
}

func NewSizer(exchange Exchange, cfg SizerConfig, log *zap.Logger) *Sizer {
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}
	return &Sizer{exchange: exchange, cfg: cfg, log: log.Named("PositionSizer")}
}

// Size computes the order quantity for symbol at the given leverage. The
// result is a multiple of the instrument's step size; there is no fallback
// quantity when metadata, balance or price is missing.
func (s *Sizer) Size(ctx context.Context, symbol string, leverage int) (Sizing, error) {
	if leverage <= 0 {
		return Sizing{}, fmt.Errorf("%w: leverage must be positive, got %d", ErrSizing, leverage)
	}

	inst, err := s.exchange.Instrument(ctx, symbol)
	if err != nil {
		return Sizing{}, fmt.Errorf("%w: instrument metadata for %s: %w", ErrSizing, symbol, err)
	}
	if !inst.StepSize.IsPositive() {
		return Sizing{}, fmt.Errorf("%w: no step size for %s", ErrSizing, symbol)
	}

	margin, err := s.margin(ctx)
	if err != nil {
		return Sizing{}, err
	}

	notional := margin.Mul(decimal.NewFromInt(int64(leverage))).Sub(s.cfg.SafetyBuffer)
	if !notional.IsPositive() {
		return Sizing{}, fmt.Errorf("%w: notional %s is not positive", ErrSizing, notional)
	}

	price, err := s.exchange.LastPrice(ctx, symbol)
	if err != nil {
		return Sizing{}, fmt.Errorf("%w: price for %s: %w", ErrSizing, symbol, err)
	}
	if !price.IsPositive() {
		return Sizing{}, fmt.Errorf("%w: non-positive price for %s", ErrSizing, symbol)
	}

	qty := SnapDown(notional.Div(price), inst.StepSize)
	if !qty.IsPositive() || qty.LessThan(inst.MinQty) {
		return Sizing{}, fmt.Errorf("%w: quantity %s below minimum %s for %s (notional %s at %s)",
			ErrSizing, qty, decimal.Max(inst.MinQty, inst.StepSize), symbol, notional.StringFixed(2), price)
	}

	s.log.Info("position sized",
		zap.String("symbol", symbol),
		zap.String("mode", string(s.cfg.Mode)),
		zap.Int("leverage", leverage),
		zap.String("notional", notional.StringFixed(2)),
		zap.String("price", price.String()),
		zap.String("quantity", qty.String()))

	return Sizing{Quantity: qty, ReferencePrice: price, Notional: notional, Instrument: inst}, nil
}

func (s *Sizer) margin(ctx context.Context) (decimal.Decimal, error) {
	switch s.cfg.Mode {
	case SizingFixedNotional:
		if !s.cfg.FixedNotional.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w: fixed notional is not configured", ErrSizing)
		}
		return s.cfg.FixedNotional, nil
	case SizingWalletRatio, "":
		balance, err := s.exchange.Balance(ctx, s.cfg.QuoteAsset)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %s balance: %w", ErrSizing, s.cfg.QuoteAsset, err)
		}
		if !balance.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w: %s balance is %s", ErrSizing, s.cfg.QuoteAsset, balance)
		}
		return balance.Mul(s.cfg.RiskPercent).Div(decimal.NewFromInt(100)), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown sizing mode %q", ErrSizing, s.cfg.Mode)
	}
}
