package mapping

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"signaltrader/internal/binance/entity"
	"signaltrader/internal/mapping/repository"
	"signaltrader/pkg/safemap"
)

var (
	// ErrNoMapping: the venue does not list the symbol and the table has no entry for it.
	ErrNoMapping = errors.New("no symbol mapping")
	// ErrUnsupportedInstrument: neither the symbol nor its mapping is tradable.
	ErrUnsupportedInstrument = errors.New("unsupported instrument")
)

// LeverageSource reports the venue's max leverage for a symbol. An error
// wrapping entity.ErrUnsupportedInstrument means the venue does not list it.
type LeverageSource interface {
	MaxLeverage(ctx context.Context, symbol string) (int, error)
}

type Loader interface {
	Load() (map[string]repository.Entry, error)
}

type Resolution struct {
	Symbol      string          `json:"symbol"`
	Rate        decimal.Decimal `json:"rate"`
	Mapped      bool            `json:"mapped"`
	MaxLeverage int             `json:"max_leverage"`
}

// Resolver maps requested symbols to tradable instruments.
type Resolver struct {
	repo  Loader
	venue LeverageSource
	table *safemap.SafeMap[string, repository.Entry]
	log   *zap.Logger
}

func NewResolver(repo Loader, venue LeverageSource, log *zap.Logger) (*Resolver, error) {
	r := &Resolver{
		repo:  repo,
		venue: venue,
		table: safemap.New[string, repository.Entry](),
		log:   log.Named("SymbolResolver"),
	}
	if _, err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the mapping file and swaps the table in one step.
func (r *Resolver) Reload() (int, error) {
	table, err := r.repo.Load()
	if err != nil {
		return 0, err
	}
	r.table.Replace(table)
	r.log.Info("symbol mappings loaded", zap.Int("count", len(table)))
	return len(table), nil
}

// Resolve returns the instrument to trade for symbol: the symbol itself when
// the venue lists it, otherwise its mapping.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (Resolution, error) {
	maxLev, err := r.venue.MaxLeverage(ctx, symbol)
	if err == nil && maxLev > 0 {
		return Resolution{Symbol: symbol, Rate: decimal.NewFromInt(1), MaxLeverage: maxLev}, nil
	}
	if err != nil && !errors.Is(err, entity.ErrUnsupportedInstrument) {
		return Resolution{}, fmt.Errorf("query max leverage for %s: %w", symbol, err)
	}
	r.log.Info("symbol not listed on venue, checking mappings", zap.String("symbol", symbol), zap.Error(err))

	res, ok := r.Lookup(symbol)
	if !ok {
		return Resolution{}, fmt.Errorf("%w for %s", ErrNoMapping, symbol)
	}

	maxLev, err = r.venue.MaxLeverage(ctx, res.Symbol)
	if err != nil || maxLev <= 0 {
		return Resolution{}, fmt.Errorf("%w: %s mapped to %s: %v", ErrUnsupportedInstrument, symbol, res.Symbol, err)
	}
	res.MaxLeverage = maxLev

	r.log.Info("symbol mapped",
		zap.String("symbol", symbol),
		zap.String("mapped", res.Symbol),
		zap.String("rate", res.Rate.String()))
	return res, nil
}

// Lookup searches the table with an exact key first, then case-insensitively.
func (r *Resolver) Lookup(symbol string) (Resolution, bool) {
	if e, ok := r.table.Get(symbol); ok {
		return Resolution{Symbol: e.Symbol, Rate: e.Rate, Mapped: true}, true
	}

	var keys []string
	r.table.ForEach(func(k string, _ repository.Entry) {
		if strings.EqualFold(k, symbol) {
			keys = append(keys, k)
		}
	})
	if len(keys) == 0 {
		return Resolution{}, false
	}
	sort.Strings(keys)
	e, _ := r.table.Get(keys[0])
	return Resolution{Symbol: e.Symbol, Rate: e.Rate, Mapped: true}, true
}

// ReverseLookup finds the original symbol for an instrument that was traded
// through a mapping. Used when rebuilding monitors after a restart.
func (r *Resolver) ReverseLookup(mapped string) (string, decimal.Decimal, bool) {
	var keys []string
	r.table.ForEach(func(k string, e repository.Entry) {
		if strings.EqualFold(e.Symbol, mapped) {
			keys = append(keys, k)
		}
	})
	if len(keys) == 0 {
		return "", decimal.Zero, false
	}
	sort.Strings(keys)
	e, _ := r.table.Get(keys[0])
	return keys[0], e.Rate, true
}

// Mappings returns a copy of the current table.
func (r *Resolver) Mappings() map[string]repository.Entry {
	out := make(map[string]repository.Entry, r.table.Len())
	r.table.ForEach(func(k string, e repository.Entry) { out[k] = e })
	return out
}
