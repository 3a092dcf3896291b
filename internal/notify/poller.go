package notify

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"signaltrader/internal/trading"
)

// TelegramPoller long-polls getUpdates and forwards posts from the source
// chat to the dispatcher.
type TelegramPoller struct {
	client       *TelegramClient
	sourceChatID string
	timeout      time.Duration
	retryDelay   time.Duration
	log          *zap.Logger
}

func NewTelegramPoller(client *TelegramClient, sourceChatID string, log *zap.Logger) *TelegramPoller {
	return &TelegramPoller{
		client:       client,
		sourceChatID: sourceChatID,
		timeout:      50 * time.Second,
		retryDelay:   5 * time.Second,
		log:          log.Named("TelegramPoller"),
	}
}

// Run polls until ctx is done. Polling errors are logged and retried.
func (p *TelegramPoller) Run(ctx context.Context, out chan<- trading.Inbound) error {
	p.log.Info("telegram polling started", zap.String("source_chat", p.sourceChatID))
	var offset int64
	for {
		updates, err := p.client.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Warn("getUpdates failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.retryDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			msg, ok := p.accept(u)
			if !ok {
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (p *TelegramPoller) accept(u Update) (trading.Inbound, bool) {
	post := u.Post()
	if post == nil || strconv.FormatInt(post.Chat.ID, 10) != p.sourceChatID {
		return trading.Inbound{}, false
	}
	text := post.Text
	if text == "" {
		text = post.Caption
	}
	if text == "" {
		return trading.Inbound{}, false
	}
	p.log.Debug("message received", zap.Int64("message_id", post.MessageID))
	return trading.Inbound{Text: text, IsReply: post.ReplyToMessage != nil}, true
}
