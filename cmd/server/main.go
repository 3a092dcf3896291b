package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	binance_service "signaltrader/internal/binance/service"
	"signaltrader/internal/config"
	"signaltrader/internal/journal"
	journalrepository "signaltrader/internal/journal/repository"
	"signaltrader/internal/mapping"
	mappingrepository "signaltrader/internal/mapping/repository"
	"signaltrader/internal/metrics"
	"signaltrader/internal/notify"
	"signaltrader/internal/signal"
	"signaltrader/internal/trading"
	tradinghttp "signaltrader/internal/trading/transport/http"
	"signaltrader/pkg/db"
	"signaltrader/pkg/logger"
	"signaltrader/pkg/middleware"
)

const (
	inboxSize       = 64
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		// No logger yet: the level and format come from the config.
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("signaltrader stopped with error", zap.Error(err))
	}
	log.Info("signaltrader stopped")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("signaltrader starting", zap.Bool("testnet", cfg.BinanceTestnet))
	metrics.InitMetrics()

	// --- Venue ---
	exchange := binance_service.NewFuturesExchange(binance_service.ExchangeConfig{
		APIKey:    cfg.BinanceAPIKey,
		SecretKey: cfg.BinanceSecretKey,
		Testnet:   cfg.BinanceTestnet,
		BaseURL:   cfg.BinanceBaseURL,
	}, log)
	timeSync := binance_service.NewTimeSyncService(exchange.Client(), cfg.TimeSyncInterval, log)
	if err := timeSync.Start(ctx); err != nil {
		log.Warn("initial time sync failed, signed requests may be rejected", zap.Error(err))
	}

	mappings := mappingrepository.NewJSONRepository(cfg.MappingFile)
	if !mappings.Exists() {
		log.Warn("symbol mapping file not found, only venue-listed symbols can be traded", zap.String("path", cfg.MappingFile))
	}
	resolver, err := mapping.NewResolver(mappings, exchange, log)
	if err != nil {
		return err
	}
	active := mapping.NewActiveTrades()

	// --- Journal ---
	files, err := journal.NewFileJournal(cfg.LogDir)
	if err != nil {
		return err
	}
	defer files.Sync()

	journals := journal.Multi{files}
	var history tradinghttp.TradeHistory
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		pg := journalrepository.NewPostgresJournal(database)
		journals = append(journals, pg)
		history = pg
		log.Info("trade journal database connected")
	}

	// --- Notifications ---
	sinks := notify.Multi{notify.NewLogSink(log)}
	var telegram *notify.TelegramClient
	if cfg.TelegramBotToken != "" {
		telegram = notify.NewTelegramClient(cfg.TelegramBotToken)
		sinks = append(sinks, notify.NewTelegramSink(telegram, cfg.TargetChannelID))
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, channel intake disabled and notifications go to the log only")
	}

	// --- Trading engine ---
	reporter := trading.NewReporter(sinks, journals, cfg.NotifyProfit, log)
	registry := trading.NewRegistry(exchange, reporter, active, trading.MonitorConfig{
		PollInterval:       cfg.PollInterval,
		MaxPollInterval:    cfg.MaxPollInterval,
		BackoffEvery:       cfg.BackoffEvery,
		EntryFillAttempts:  cfg.EntryFillAttempts,
		PositionCheckEvery: cfg.PositionCheckEvery,
		ErrorBackoff:       cfg.ErrorBackoff,
		MaxLifetime:        cfg.MaxLifetime,
	}, log)
	sizer := trading.NewSizer(exchange, trading.SizerConfig{
		Mode:          trading.SizingMode(cfg.SizingMode),
		RiskPercent:   decimal.NewFromFloat(cfg.RiskPercent),
		FixedNotional: decimal.NewFromFloat(cfg.FixedNotional),
		SafetyBuffer:  decimal.NewFromFloat(cfg.SafetyBuffer),
		QuoteAsset:    cfg.QuoteAsset,
	}, log)
	executor := trading.NewExecutor(exchange, resolver, active, sizer, registry, sinks, journals, trading.ExecutorConfig{
		MaxLeverage:       cfg.MaxLeverage,
		StopLossPercent:   decimal.NewFromFloat(cfg.StopLossPercent),
		TakeProfitPercent: decimal.NewFromFloat(cfg.TakeProfitPercent),
		EntryMode:         trading.EntryMode(cfg.EntryMode),
		BracketMode:       trading.BracketMode(cfg.BracketMode),
		NotifyEntry:       cfg.NotifyEntry,
		NotifyFailure:     cfg.NotifyFailure,
	}, log)

	parser := signal.NewParser(log)
	dispatcher := trading.NewDispatcher(parser, signal.NewFormatter(signal.TakeProfitDisplay(cfg.TakeProfitDisplay)),
		executor, sinks, trading.DispatcherConfig{
			NotifyEntry:  cfg.NotifyEntry,
			NotifyProfit: cfg.NotifyProfit,
		}, log)

	if cfg.RecoverOnStart {
		n, err := trading.NewRecoverer(exchange, resolver, active, registry, log).Recover(ctx)
		if err != nil {
			log.Error("monitor recovery failed", zap.Error(err))
		} else {
			log.Info("monitor recovery finished", zap.Int("recovered", n))
		}
	}

	inbox := make(chan trading.Inbound, inboxSize)

	// --- HTTP ---
	handler := tradinghttp.NewTradingHandler(parser, inbox, registry, resolver, exchange, history, log)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(cfg, handler, registry, timeSync, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx, inbox)
	})
	if telegram != nil {
		poller := notify.NewTelegramPoller(telegram, cfg.SourceChannelID, log)
		g.Go(func() error {
			return poller.Run(gctx, inbox)
		})
	}
	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", zap.Error(err))
		}
		// Venue orders stay in place; the next start recovers them.
		if err := registry.Shutdown(shutdownCtx); err != nil {
			log.Warn("monitors did not stop in time", zap.Error(err), zap.Int("remaining", registry.Len()))
		}
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newRouter(cfg *config.Config, h *tradinghttp.Handler, registry *trading.Registry,
	timeSync *binance_service.TimeSyncService, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.MetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":          "ok",
			"monitors":        registry.Len(),
			"clock_offset_ms": timeSync.GetTimeDiff().Milliseconds(),
			"clock_synced_at": timeSync.LastUpdate(),
		})
	})

	if cfg.MetricsUser != "" {
		r.With(middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPassword)).Handle("/metrics", promhttp.Handler())
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	limiter := middleware.NewRateLimiter(120, time.Minute, log)
	r.Group(func(pr chi.Router) {
		pr.Use(limiter.Middleware)
		pr.Use(middleware.JWTAuth(cfg.JWTSecret))
		pr.Use(middleware.ValidateRequest)
		h.Routes(pr)
	})

	return r
}
