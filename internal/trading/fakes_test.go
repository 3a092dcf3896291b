package trading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"signaltrader/internal/binance/entity"
	"signaltrader/internal/journal"
	"signaltrader/internal/mapping/repository"
)

// fakeExchange is an in-memory venue. Market orders fill immediately at the
// configured price; everything else stays NEW until a test changes it.
type fakeExchange struct {
	mu sync.Mutex

	instruments map[string]entity.Instrument
	maxLeverage map[string]int
	prices      map[string]decimal.Decimal
	balance     decimal.Decimal
	balanceErr  error
	positions   []entity.Position

	orders    map[int64]*entity.Order
	nextID    int64
	placed    []entity.OrderRequest
	placeErr  map[string]error
	canceled  []int64
	leverage  map[string]int
	getErrs   map[int64][]error
	listCalls int
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		instruments: map[string]entity.Instrument{
			"BTCUSDT": {Symbol: "BTCUSDT", StepSize: d("0.001"), TickSize: d("0.1"), MinQty: d("0.001")},
		},
		maxLeverage: map[string]int{"BTCUSDT": 125},
		prices:      map[string]decimal.Decimal{"BTCUSDT": d("50000")},
		balance:     d("1000"),
		orders:      make(map[int64]*entity.Order),
		placeErr:    make(map[string]error),
		leverage:    make(map[string]int),
		getErrs:     make(map[int64][]error),
		nextID:      100,
	}
}

func (f *fakeExchange) Instrument(_ context.Context, symbol string) (entity.Instrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.instruments[symbol]
	if !ok {
		return entity.Instrument{}, fmt.Errorf("%w: %s", entity.ErrUnsupportedInstrument, symbol)
	}
	return inst, nil
}

func (f *fakeExchange) MaxLeverage(_ context.Context, symbol string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.maxLeverage[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", entity.ErrUnsupportedInstrument, symbol)
	}
	return n, nil
}

func (f *fakeExchange) SetLeverage(_ context.Context, symbol string, leverage int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leverage[symbol] = leverage
	return nil
}

func (f *fakeExchange) Balance(context.Context, string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, f.balanceErr
}

func (f *fakeExchange) LastPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prices[symbol]
	if !ok {
		return decimal.Zero, errors.New("no price")
	}
	return p, nil
}

func (f *fakeExchange) PlaceOrder(_ context.Context, req entity.OrderRequest) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, req)
	if err := f.placeErr[req.Type]; err != nil {
		return nil, err
	}

	f.nextID++
	o := &entity.Order{
		ID:            f.nextID,
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Status:        entity.OrderStatusNew,
		Price:         req.Price,
		StopPrice:     req.StopPrice,
		OrigQuantity:  req.Quantity,
		ClosePosition: req.ClosePosition,
	}
	if req.Type == entity.OrderTypeMarket {
		o.Status = entity.OrderStatusFilled
		o.AvgPrice = f.prices[req.Symbol]
		o.ExecutedQuantity = req.Quantity
	}
	f.orders[o.ID] = o
	cp := *o
	return &cp, nil
}

func (f *fakeExchange) GetOrder(_ context.Context, symbol string, id int64) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if errs := f.getErrs[id]; len(errs) > 0 {
		f.getErrs[id] = errs[1:]
		return nil, errs[0]
	}
	o, ok := f.orders[id]
	if !ok || o.Symbol != symbol {
		return nil, fmt.Errorf("order %d not found", id)
	}
	cp := *o
	return &cp, nil
}

func (f *fakeExchange) CancelOrder(_ context.Context, _ string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, id)
	o, ok := f.orders[id]
	if !ok {
		return fmt.Errorf("order %d not found", id)
	}
	if o.Status.IsTerminal() {
		return fmt.Errorf("order %d is %s", id, o.Status)
	}
	o.Status = entity.OrderStatusCanceled
	return nil
}

func (f *fakeExchange) ListOpenOrders(_ context.Context, symbol string) ([]entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Order
	for _, o := range f.orders {
		if (symbol == "" || o.Symbol == symbol) && !o.Status.IsTerminal() {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeExchange) ListPositions(_ context.Context, symbol string) ([]entity.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var out []entity.Position
	for _, p := range f.positions {
		if symbol == "" || p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out, nil
}

// addOrder inserts an order directly, as if placed before the test started.
func (f *fakeExchange) addOrder(o entity.Order) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.ID == 0 {
		f.nextID++
		o.ID = f.nextID
	}
	if o.Status == "" {
		o.Status = entity.OrderStatusNew
	}
	f.orders[o.ID] = &o
	return o.ID
}

func (f *fakeExchange) fill(id int64, avg decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.orders[id]
	o.Status = entity.OrderStatusFilled
	o.AvgPrice = avg
}

func (f *fakeExchange) status(id int64) entity.OrderStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id].Status
}

func (f *fakeExchange) placedOrders() []entity.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.OrderRequest(nil), f.placed...)
}

func (f *fakeExchange) canceledOrders() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.canceled...)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) Send(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return n.err
}

func (n *recordingNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type recordingJournal struct {
	mu       sync.Mutex
	trades   []journal.TradeResult
	failures []journal.Failure
}

func (j *recordingJournal) RecordTrade(_ context.Context, r journal.TradeResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, r)
	return nil
}

func (j *recordingJournal) RecordFailure(_ context.Context, f journal.Failure) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failures = append(j.failures, f)
	return nil
}

type recordingReporter struct {
	mu      sync.Mutex
	reports []ProfitReport
}

func (r *recordingReporter) Report(_ context.Context, rep ProfitReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
}

func (r *recordingReporter) all() []ProfitReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ProfitReport(nil), r.reports...)
}

type recordingStarter struct {
	mu     sync.Mutex
	trades []Trade
	err    error
}

func (s *recordingStarter) Start(_ context.Context, trade Trade) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.trades = append(s.trades, trade)
	return trade.Key(), nil
}

type staticMappings map[string]repository.Entry

func (s staticMappings) Load() (map[string]repository.Entry, error) {
	out := make(map[string]repository.Entry, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out, nil
}

// noSleep returns immediately unless ctx is already done.
func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
