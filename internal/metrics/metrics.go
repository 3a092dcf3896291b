package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTP метрики
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests in flight",
		},
	)

	// Binance API метрики
	BinanceAPIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binance_api_requests_total",
			Help: "Total number of Binance API requests",
		},
		[]string{"endpoint", "status"},
	)
	BinanceAPIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "binance_api_request_duration_seconds",
			Help: "Duration of Binance API requests in seconds",
		},
		[]string{"endpoint"},
	)
	BinanceClockDrift = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "binance_clock_drift_seconds",
			Help: "Local clock minus Binance server time",
		},
	)

	// Сигналы и сделки
	SignalsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_received_total",
			Help: "Inbound messages by parse outcome",
		},
		[]string{"result"},
	)
	TradesExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trades_executed_total",
			Help: "Trade executions by outcome",
		},
		[]string{"result"},
	)
	BracketLegFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracket_leg_failures_total",
			Help: "Stop-loss / take-profit orders that could not be placed",
		},
		[]string{"leg"},
	)
	ActiveMonitors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "order_monitors_active",
			Help: "Number of running order monitors",
		},
	)
	TradesClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trades_closed_total",
			Help: "Closed trades by exit type",
		},
		[]string{"exit_type"},
	)
	TradeLeveragedReturn = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trade_leveraged_return_percent",
			Help:    "Leveraged return of closed trades in percent",
			Buckets: []float64{-100, -50, -25, -10, -5, 0, 5, 10, 25, 50, 100, 200},
		},
		[]string{"exit_type"},
	)

	// Уведомления
	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Outbound notifications by sink and status",
		},
		[]string{"sink", "status"},
	)
)

func InitMetrics() {
	// Регистрация HTTP метрик
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestsInFlight)

	// Регистрация Binance метрик
	prometheus.MustRegister(BinanceAPIRequestsTotal)
	prometheus.MustRegister(BinanceAPIRequestDuration)
	prometheus.MustRegister(BinanceClockDrift)

	// Регистрация торговых метрик
	prometheus.MustRegister(SignalsReceived)
	prometheus.MustRegister(TradesExecuted)
	prometheus.MustRegister(BracketLegFailures)
	prometheus.MustRegister(ActiveMonitors)
	prometheus.MustRegister(TradesClosed)
	prometheus.MustRegister(TradeLeveragedReturn)

	prometheus.MustRegister(NotificationsSent)

	// Стандартные метрики Go
	prometheus.MustRegister(prometheus.NewGoCollector())
	prometheus.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}
