package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"signaltrader/internal/trading"
)

type botServer struct {
	mu      sync.Mutex
	sent    []string
	chatIDs []string
	polls   atomic.Int32
	fail    bool
}

func (b *botServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !strings.HasPrefix(r.URL.Path, "/bottoken/") {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
		return
	}
	_ = r.ParseForm()

	switch {
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		if b.fail {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			return
		}
		b.mu.Lock()
		b.sent = append(b.sent, r.Form.Get("text"))
		b.chatIDs = append(b.chatIDs, r.Form.Get("chat_id"))
		b.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	case strings.HasSuffix(r.URL.Path, "/getUpdates"):
		if b.polls.Add(1) > 1 {
			time.Sleep(10 * time.Millisecond)
			_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":10,"channel_post":{"message_id":1,"chat":{"id":-100999,"type":"channel"},"text":"other channel"}},
			{"update_id":11,"channel_post":{"message_id":2,"chat":{"id":-100123,"type":"channel"},"text":"BTC/USDT Long 10x"}},
			{"update_id":12,"channel_post":{"message_id":3,"chat":{"id":-100123,"type":"channel"},"text":"nice","reply_to_message":{"message_id":2,"chat":{"id":-100123}}}},
			{"update_id":13,"message":{"message_id":4,"chat":{"id":-100123,"type":"supergroup"},"caption":"chart caption"}}
		]}`))
	}
}

func newBot(t *testing.T) (*TelegramClient, *botServer) {
	t.Helper()
	b := &botServer{}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	c := NewTelegramClient("token")
	c.BaseURL = srv.URL
	return c, b
}

func TestTelegramSinkSendsToChat(t *testing.T) {
	client, bot := newBot(t)

	err := NewTelegramSink(client, "-100500").Send(context.Background(), "hello")
	require.NoError(t, err)

	bot.mu.Lock()
	defer bot.mu.Unlock()
	assert.Equal(t, []string{"hello"}, bot.sent)
	assert.Equal(t, []string{"-100500"}, bot.chatIDs)
}

func TestTelegramSinkReportsAPIError(t *testing.T) {
	client, bot := newBot(t)
	bot.fail = true

	err := NewTelegramSink(client, "-1").Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestPollerForwardsSourceChatPosts(t *testing.T) {
	client, _ := newBot(t)
	poller := NewTelegramPoller(client, "-100123", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan trading.Inbound, 10)
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx, out) }()

	var got []trading.Inbound
	for len(got) < 3 {
		select {
		case msg := <-out:
			got = append(got, msg)
		case <-time.After(2 * time.Second):
			t.Fatalf("received only %d messages", len(got))
		}
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, trading.Inbound{Text: "BTC/USDT Long 10x"}, got[0])
	assert.Equal(t, trading.Inbound{Text: "nice", IsReply: true}, got[1])
	assert.Equal(t, trading.Inbound{Text: "chart caption"}, got[2])
}

type failingSink struct{ err error }

func (f failingSink) Send(context.Context, string) error { return f.err }

func TestMultiSendsEverywhere(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	boom := errors.New("down")

	err := Multi{failingSink{err: boom}, NewLogSink(zap.New(core))}.Send(context.Background(), "trade closed")

	assert.ErrorIs(t, err, boom)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "trade closed", logs.All()[0].ContextMap()["text"])
}
