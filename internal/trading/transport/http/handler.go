package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"signaltrader/internal/api/dto"
	"signaltrader/internal/binance/entity"
	"signaltrader/internal/journal"
	"signaltrader/internal/mapping/repository"
	"signaltrader/internal/signal"
	"signaltrader/internal/trading"
	"signaltrader/pkg/middleware"
)

type Monitors interface {
	List() []trading.MonitorInfo
	Cancel(key string) bool
}

type Mappings interface {
	Reload() (int, error)
	Mappings() map[string]repository.Entry
}

type Positions interface {
	ListPositions(ctx context.Context, symbol string) ([]entity.Position, error)
}

type TradeHistory interface {
	RecentTrades(ctx context.Context, limit int) ([]journal.TradeResult, error)
}

// Handler exposes the admin API: manual signal submission and views over
// running monitors, mappings and venue positions.
type Handler struct {
	Parser    *signal.Parser
	Inbox     chan<- trading.Inbound
	Monitors  Monitors
	Mappings  Mappings
	Positions Positions
	History   TradeHistory // nil when no database is configured
	log       *zap.Logger
}

func NewTradingHandler(parser *signal.Parser, inbox chan<- trading.Inbound, monitors Monitors,
	mappings Mappings, positions Positions, history TradeHistory, log *zap.Logger) *Handler {
	return &Handler{
		Parser:    parser,
		Inbox:     inbox,
		Monitors:  monitors,
		Mappings:  mappings,
		Positions: positions,
		History:   history,
		log:       log.Named("TradingHandler"),
	}
}

// Routes registers the handler under the caller's (authenticated) router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/signals", h.SubmitSignal)
	r.Post("/api/signals/parse", h.ParseSignal)
	r.Get("/api/trades", h.ListTrades)
	r.Get("/api/trades/history", h.TradeHistory)
	r.Delete("/api/trades/{key}", h.CancelTrade)
	r.Get("/api/mappings", h.ListMappings)
	r.Post("/api/mappings/reload", h.ReloadMappings)
	r.Get("/api/positions", h.ListPositions)
}

func (h *Handler) decodeSignal(w http.ResponseWriter, r *http.Request) (dto.SignalRequest, bool) {
	var req dto.SignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, middleware.ErrorResponse{Error: "invalid JSON"})
		return req, false
	}
	if err := dto.Validate.Struct(req); err != nil {
		middleware.HandleValidationError(w, err)
		return req, false
	}
	return req, true
}

// SubmitSignal queues text for the dispatcher exactly as if it had arrived
// from the source channel.
func (h *Handler) SubmitSignal(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSignal(w, r)
	if !ok {
		return
	}

	select {
	case h.Inbox <- trading.Inbound{Text: req.Text}:
		h.log.Info("signal submitted via API", zap.String("subject", middleware.Subject(r.Context())))
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	default:
		writeJSON(w, http.StatusServiceUnavailable, middleware.ErrorResponse{Error: "signal queue is full"})
	}
}

// ParseSignal is a dry run: it returns the parsed signal without trading.
func (h *Handler) ParseSignal(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSignal(w, r)
	if !ok {
		return
	}

	sig, ok := h.Parser.Parse(req.Text)
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, middleware.ErrorResponse{Error: "message is not a signal"})
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Monitors.List())
}

func (h *Handler) CancelTrade(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !h.Monitors.Cancel(key) {
		writeJSON(w, http.StatusNotFound, middleware.ErrorResponse{Error: "monitor not found"})
		return
	}
	h.log.Info("monitor canceled via API", zap.String("key", key))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) TradeHistory(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		writeJSON(w, http.StatusNotFound, middleware.ErrorResponse{Error: "trade history requires a database"})
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if l, err := strconv.Atoi(s); err == nil && l > 0 && l <= 500 {
			limit = l
		}
	}

	trades, err := h.History.RecentTrades(r.Context(), limit)
	if err != nil {
		h.log.Error("failed to load trade history", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, middleware.ErrorResponse{Error: "failed to load trade history"})
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (h *Handler) ListMappings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Mappings.Mappings())
}

func (h *Handler) ReloadMappings(w http.ResponseWriter, r *http.Request) {
	n, err := h.Mappings.Reload()
	if err != nil {
		h.log.Error("failed to reload symbol mappings", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, middleware.ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, dto.ReloadMappingsResponse{Count: n})
}

func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.Positions.ListPositions(r.Context(), r.URL.Query().Get("symbol"))
	if err != nil {
		h.log.Error("failed to list positions", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, middleware.ErrorResponse{Error: "venue request failed"})
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
