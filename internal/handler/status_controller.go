package handler

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/valyala/fasthttp"

	"straddlebot/internal/bybit"
	"straddlebot/internal/service"
	"straddlebot/pkg/config"
	apperrors "straddlebot/pkg/errors"
)

// StatusHandler serves the read-only inspection API. The strategy owns
// order placement, so nothing here mutates trading state.
type StatusHandler struct {
	cfg       *config.Config
	store     *service.CycleStore
	exchange  bybit.Exchange
	startedAt time.Time
}

func NewStatusController(cfg *config.Config, store *service.CycleStore, exchange bybit.Exchange, startedAt time.Time) *StatusHandler {
	return &StatusHandler{
		cfg:       cfg,
		store:     store,
		exchange:  exchange,
		startedAt: startedAt,
	}
}

func (h *StatusHandler) getParam(ctx *fasthttp.RequestCtx, key string) string {
	return ctx.UserValue(key).(string)
}

func (h *StatusHandler) sendResponse(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	ctx.Response.Header.Set("Content-Type", "application/json")
	ctx.Response.SetStatusCode(status)

	if data != nil {
		json.NewEncoder(ctx).Encode(data)
	}
}

func (h *StatusHandler) sendError(ctx *fasthttp.RequestCtx, err error) {
	status := 500
	message := err.Error()

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status = appErr.GetHTTPStatus()
	}

	ctx.Response.Header.Set("Content-Type", "application/json")
	ctx.Response.SetStatusCode(status)
	json.NewEncoder(ctx).Encode(map[string]string{"error": message})
}

func (h *StatusHandler) Health(ctx *fasthttp.RequestCtx) {
	h.sendResponse(ctx, 200, map[string]interface{}{
		"status":  "ok",
		"service": h.cfg.Base.ServiceID,
		"version": h.cfg.Base.Version,
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	})
}

func (h *StatusHandler) Status(ctx *fasthttp.RequestCtx) {
	strategy := h.cfg.Strategy
	h.sendResponse(ctx, 200, map[string]interface{}{
		"symbols":             strategy.Symbols,
		"amount_usdt":         strategy.AmountUSDT,
		"distance_narrow_pct": strategy.DistanceNarrowPercent,
		"distance_wide_pct":   strategy.DistanceWidePercent,
		"stop_loss_pct":       strategy.StopLossPercent,
		"take_profit_pct":     strategy.TakeProfitPercent,
		"testnet":             h.cfg.Bybit.Testnet,
		"active_cycles":       h.store.ActiveCount(),
	})
}

func (h *StatusHandler) Cycles(ctx *fasthttp.RequestCtx) {
	h.sendResponse(ctx, 200, map[string]interface{}{
		"cycles":    h.store.Snapshot(),
		"distances": h.store.DistanceSnapshot(),
	})
}

func (h *StatusHandler) OpenOrders(ctx *fasthttp.RequestCtx) {
	symbol := h.getParam(ctx, "symbol")
	if symbol == "" {
		h.sendError(ctx, apperrors.ValidationError("symbol", "is required"))
		return
	}

	orders, err := h.exchange.GetOpenOrders(ctx, symbol)
	if err != nil {
		h.sendError(ctx, err)
		return
	}

	h.sendResponse(ctx, 200, map[string]interface{}{
		"symbol": symbol,
		"orders": orders,
	})
}
