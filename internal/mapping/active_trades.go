package mapping

import (
	"sync"

	"github.com/shopspring/decimal"
)

// ActiveTrade keeps the user-facing symbol and rate for an instrument that
// is being traded through a mapping.
type ActiveTrade struct {
	OriginalSymbol string          `json:"original_symbol"`
	Rate           decimal.Decimal `json:"rate"`
}

type activeEntry struct {
	trade ActiveTrade
	refs  int
}

// ActiveTrades is keyed by exchange symbol. Entries are reference counted so
// two open trades on the same instrument share one row, and the row goes
// away when the last of them finishes.
type ActiveTrades struct {
	mu     sync.Mutex
	trades map[string]*activeEntry
}

func NewActiveTrades() *ActiveTrades {
	return &ActiveTrades{trades: make(map[string]*activeEntry)}
}

func (a *ActiveTrades) Acquire(symbol string, trade ActiveTrade) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.trades[symbol]; ok {
		e.trade = trade
		e.refs++
		return
	}
	a.trades[symbol] = &activeEntry{trade: trade, refs: 1}
}

// Release drops one reference and removes the row at zero.
func (a *ActiveTrades) Release(symbol string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.trades[symbol]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(a.trades, symbol)
	}
}

func (a *ActiveTrades) Get(symbol string) (ActiveTrade, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.trades[symbol]
	if !ok {
		return ActiveTrade{}, false
	}
	return e.trade, true
}

func (a *ActiveTrades) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.trades)
}
