package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFileJournalWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFileJournal(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, j.RecordTrade(ctx, TradeResult{
		TradeID:      "t1",
		Symbol:       "BTCUSDT",
		Position:     "LONG",
		Leverage:     10,
		EntryPrice:   decimal.NewFromInt(50000),
		ExitPrice:    decimal.NewFromInt(51000),
		ExitType:     "take_profit",
		LeveragedPct: decimal.NewFromInt(20),
		ClosedAt:     time.Now(),
	}))
	require.NoError(t, j.RecordFailure(ctx, Failure{Symbol: "FOOUSDT", Step: "leverage", Reason: "unsupported instrument"}))
	_ = j.Sync()

	profits, err := os.ReadFile(filepath.Join(dir, ProfitLogName))
	require.NoError(t, err)
	assert.Contains(t, string(profits), `"trade_id":"t1"`)
	assert.Contains(t, string(profits), `"leveraged_pct":"20.0000"`)
	assert.Equal(t, 1, strings.Count(string(profits), "\n"))

	failures, err := os.ReadFile(filepath.Join(dir, FailureLogName))
	require.NoError(t, err)
	assert.Contains(t, string(failures), `"symbol":"FOOUSDT"`)
	assert.NotContains(t, string(failures), "BTCUSDT")
}

type failingJournal struct{ err error }

func (f failingJournal) RecordTrade(context.Context, TradeResult) error { return f.err }
func (f failingJournal) RecordFailure(context.Context, Failure) error   { return f.err }

func TestMultiWritesAllAndJoinsErrors(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ok := NewLoggerJournal(zap.New(core), zap.New(core))
	boom := errors.New("db down")

	m := Multi{failingJournal{err: boom}, ok}
	err := m.RecordTrade(context.Background(), TradeResult{TradeID: "t2"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, logs.FilterMessage("trade closed").Len())

	require.NoError(t, Multi{ok}.RecordFailure(context.Background(), Failure{Symbol: "X"}))
	assert.Equal(t, 1, logs.FilterMessage("trade failed").Len())
}
