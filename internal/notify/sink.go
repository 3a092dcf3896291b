package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"signaltrader/internal/metrics"
)

// Sink delivers outbound text to the destination channel.
type Sink interface {
	Send(ctx context.Context, text string) error
}

// TelegramSink posts to one chat.
type TelegramSink struct {
	client *TelegramClient
	chatID string
}

func NewTelegramSink(client *TelegramClient, chatID string) *TelegramSink {
	return &TelegramSink{client: client, chatID: chatID}
}

func (s *TelegramSink) Send(ctx context.Context, text string) error {
	err := s.client.SendMessage(ctx, s.chatID, text)
	observe("telegram", err)
	return err
}

// LogSink writes notifications to the process log. Used when no chat is
// configured and as a second copy next to Telegram.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("Notification")}
}

func (s *LogSink) Send(_ context.Context, text string) error {
	s.log.Info("notification", zap.String("text", text))
	observe("log", nil)
	return nil
}

// Multi sends to every sink and joins their errors.
type Multi []Sink

func (m Multi) Send(ctx context.Context, text string) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func observe(sink string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.NotificationsSent.WithLabelValues(sink, status).Inc()
}
