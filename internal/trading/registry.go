package trading

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"signaltrader/internal/mapping"
	"signaltrader/internal/metrics"
	"signaltrader/pkg/safemap"
)

var (
	ErrMonitorExists  = errors.New("monitor already running for this trade")
	ErrRegistryClosed = errors.New("monitor registry is shut down")
)

type monitorHandle struct {
	monitor *Monitor
	cancel  context.CancelFunc
}

// Registry owns the running order monitors, keyed by symbol:entryOrderID.
// A monitor is removed when its goroutine returns.
type Registry struct {
	monitors *safemap.SafeMap[string, *monitorHandle]
	exchange Exchange
	reporter ProfitReporter
	active   *mapping.ActiveTrades
	cfg      MonitorConfig
	sleep    Sleeper
	log      *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewRegistry(exchange Exchange, reporter ProfitReporter, active *mapping.ActiveTrades, cfg MonitorConfig, log *zap.Logger) *Registry {
	return &Registry{
		monitors: safemap.New[string, *monitorHandle](),
		exchange: exchange,
		reporter: reporter,
		active:   active,
		cfg:      cfg,
		sleep:    sleepContext,
		log:      log,
	}
}

// Start spawns a monitor for trade. The monitor outlives parent's
// cancellation but is bounded by MaxLifetime and Shutdown.
func (r *Registry) Start(parent context.Context, trade Trade) (string, error) {
	key := trade.Key()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrRegistryClosed
	}

	base := context.WithoutCancel(parent)
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if r.cfg.MaxLifetime > 0 {
		ctx, cancel = context.WithTimeout(base, r.cfg.MaxLifetime)
	} else {
		ctx, cancel = context.WithCancel(base)
	}

	m := newMonitor(trade, r.exchange, r.reporter, r.active, r.cfg, r.sleep, r.log)
	if !r.monitors.SetIfAbsent(key, &monitorHandle{monitor: m, cancel: cancel}) {
		cancel()
		return "", ErrMonitorExists
	}

	r.wg.Add(1)
	metrics.ActiveMonitors.Inc()
	go func() {
		defer r.wg.Done()
		defer metrics.ActiveMonitors.Dec()
		defer r.monitors.Delete(key)
		defer cancel()
		m.Run(ctx)
	}()
	return key, nil
}

// Cancel stops the monitor for key. Venue orders are not touched.
func (r *Registry) Cancel(key string) bool {
	h, ok := r.monitors.Get(key)
	if !ok {
		return false
	}
	h.cancel()
	return true
}

// List returns the running monitors sorted by key.
func (r *Registry) List() []MonitorInfo {
	infos := make([]MonitorInfo, 0, r.monitors.Len())
	r.monitors.ForEach(func(key string, h *monitorHandle) {
		info := h.monitor.Info()
		info.Key = key
		infos = append(infos, info)
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos
}

func (r *Registry) Len() int {
	return r.monitors.Len()
}

// Shutdown cancels every monitor and waits for them to return or ctx to end.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.monitors.ForEach(func(_ string, h *monitorHandle) { h.cancel() })

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
