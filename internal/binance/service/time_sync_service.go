package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"go.uber.org/zap"

	"signaltrader/internal/metrics"
)

// Drift above this is logged as a warning; signed requests fail past recvWindow.
const driftWarnThreshold = time.Second

// TimeSyncService handles time synchronization with the exchange
type TimeSyncService struct {
	client     *futures.Client
	interval   time.Duration
	timeDiff   time.Duration
	lastUpdate time.Time
	mu         sync.RWMutex
	log        *zap.Logger
}

func NewTimeSyncService(client *futures.Client, interval time.Duration, log *zap.Logger) *TimeSyncService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &TimeSyncService{
		client:   client,
		interval: interval,
		log:      log.Named("TimeSyncService"),
	}
}

// Start applies the measured offset to the client and keeps monitoring drift
// until ctx is done. Call it before the client is shared with other goroutines:
// the offset is written only here.
func (t *TimeSyncService) Start(ctx context.Context) error {
	diff, err := t.SyncTime(ctx)
	if err != nil {
		return err
	}
	t.client.TimeOffset = diff.Milliseconds()

	go t.startPeriodicSync(ctx, diff)
	return nil
}

func (t *TimeSyncService) startPeriodicSync(ctx context.Context, applied time.Duration) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			diff, err := t.SyncTime(ctx)
			if err != nil {
				continue
			}
			if drift := (diff - applied).Abs(); drift > driftWarnThreshold {
				t.log.Warn("clock drifted since startup offset was applied", zap.Duration("drift", drift))
			}
		}
	}
}

// SyncTime measures local time minus server time.
func (t *TimeSyncService) SyncTime(ctx context.Context) (time.Duration, error) {
	localTimeBefore := time.Now()
	serverTime, err := t.client.NewServerTimeService().Do(ctx)
	if err != nil {
		t.log.Error("failed to get server time", zap.Error(err))
		return 0, fmt.Errorf("failed to get server time: %w", err)
	}
	localTimeAfter := time.Now()

	roundTripTime := localTimeAfter.Sub(localTimeBefore)
	estimatedTransmissionDelay := roundTripTime / 2

	// Server stamped its clock roughly at the middle of the round trip.
	timeDiff := localTimeBefore.Add(estimatedTransmissionDelay).Sub(time.UnixMilli(serverTime))

	t.mu.Lock()
	t.timeDiff = timeDiff
	t.lastUpdate = time.Now()
	t.mu.Unlock()

	metrics.BinanceClockDrift.Set(timeDiff.Seconds())
	t.log.Debug("time difference updated",
		zap.Duration("diff", timeDiff),
		zap.Duration("round_trip", roundTripTime))
	return timeDiff, nil
}

func (t *TimeSyncService) GetTimeDiff() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.timeDiff
}

func (t *TimeSyncService) LastUpdate() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastUpdate
}
