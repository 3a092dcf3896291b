package trading

import (
	"context"

	"go.uber.org/zap"

	"signaltrader/internal/metrics"
	"signaltrader/internal/signal"
)

// Inbound is a message from the source channel.
type Inbound struct {
	Text    string `json:"text"`
	IsReply bool   `json:"is_reply"`
}

type SignalExecutor interface {
	Execute(ctx context.Context, sig *signal.Signal) *ExecutionResult
}

type DispatcherConfig struct {
	NotifyEntry  bool
	NotifyProfit bool
}

// Dispatcher is the single consumer of inbound messages. Messages are
// handled one at a time; monitors run on their own goroutines.
type Dispatcher struct {
	parser    *signal.Parser
	formatter *signal.Formatter
	executor  SignalExecutor
	notifier  Notifier
	cfg       DispatcherConfig
	log       *zap.Logger
}

func NewDispatcher(parser *signal.Parser, formatter *signal.Formatter, executor SignalExecutor,
	notifier Notifier, cfg DispatcherConfig, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		parser:    parser,
		formatter: formatter,
		executor:  executor,
		notifier:  notifier,
		cfg:       cfg,
		log:       log.Named("Dispatcher"),
	}
}

// Run consumes in until it is closed or ctx is done.
func (d *Dispatcher) Run(ctx context.Context, in <-chan Inbound) error {
	d.log.Info("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopped")
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				d.log.Info("inbound channel closed")
				return nil
			}
			d.Handle(ctx, msg)
		}
	}
}

// Handle processes one inbound message and returns the execution result for
// new positions (nil otherwise).
func (d *Dispatcher) Handle(ctx context.Context, msg Inbound) *ExecutionResult {
	if msg.IsReply {
		metrics.SignalsReceived.WithLabelValues("reply").Inc()
		d.log.Debug("reply ignored")
		return nil
	}

	sig, ok := d.parser.Parse(msg.Text)
	if !ok {
		metrics.SignalsReceived.WithLabelValues("unparsed").Inc()
		return nil
	}

	if sig.IsProfitMessage {
		metrics.SignalsReceived.WithLabelValues("profit").Inc()
		if d.cfg.NotifyProfit {
			d.forward(ctx, sig)
		}
		return nil
	}

	metrics.SignalsReceived.WithLabelValues("position").Inc()
	d.log.Info("signal received",
		zap.String("symbol", sig.Symbol),
		zap.String("position", string(sig.Position)),
		zap.Int("leverage", sig.Leverage),
		zap.String("grammar", sig.Grammar))

	if !d.cfg.NotifyEntry {
		d.forward(ctx, sig)
	}

	res := d.executor.Execute(ctx, sig)
	if res.Success() {
		d.log.Info("signal executed",
			zap.String("symbol", res.Symbol),
			zap.String("trade_id", res.TradeID),
			zap.Strings("warnings", res.Warnings))
	}
	return res
}

func (d *Dispatcher) forward(ctx context.Context, sig *signal.Signal) {
	if err := d.notifier.Send(ctx, d.formatter.Format(sig)); err != nil {
		d.log.Error("failed to forward formatted signal", zap.String("symbol", sig.Symbol), zap.Error(err))
	}
}
