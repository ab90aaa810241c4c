package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"straddlebot/internal/bybit"
	"straddlebot/internal/domain"
	"straddlebot/internal/metrics"
	"straddlebot/internal/notifier"
)

// OpenMonitor polls tracked symbols waiting for one straddle leg to fill.
// On a fill it marks the cycle, cancels the opposite pending leg, and
// places the take-profit. One symbol's failure never interrupts the
// others; a failed iteration backs off before the next scan.
type OpenMonitor struct {
	exchange bybit.Exchange
	store    *CycleStore
	straddle *StraddleManager
	notifier notifier.Notifier
	log      *zap.Logger

	interval    time.Duration
	backoff     time.Duration
	settleDelay time.Duration
}

func NewOpenMonitor(
	exchange bybit.Exchange,
	store *CycleStore,
	straddle *StraddleManager,
	notif notifier.Notifier,
	log *zap.Logger,
	interval time.Duration,
) *OpenMonitor {
	return &OpenMonitor{
		exchange:    exchange,
		store:       store,
		straddle:    straddle,
		notifier:    notif,
		log:         log,
		interval:    interval,
		backoff:     domain.OpenMonitorBackoff,
		settleDelay: domain.TakeProfitSettleDelay,
	}
}

func (m *OpenMonitor) Run(ctx context.Context) {
	m.log.Info("position-open monitor started", zap.Duration("interval", m.interval))

	for {
		wait := m.interval
		if err := m.scan(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.log.Error("open monitor iteration failed", zap.Error(err))
			metrics.MonitorErrors.WithLabelValues("open").Inc()
			wait = m.backoff
		}

		select {
		case <-ctx.Done():
			m.log.Info("position-open monitor stopped")
			return
		case <-time.After(wait):
		}
	}
}

func (m *OpenMonitor) scan(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("open monitor panic: %v", r)
		}
	}()

	for _, symbol := range m.store.PendingSymbols() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if symErr := m.checkSymbol(ctx, symbol); symErr != nil {
			m.log.Error("failed to check symbol for fill",
				zap.String("symbol", symbol), zap.Error(symErr))
			metrics.MonitorErrors.WithLabelValues("open").Inc()
		}
	}
	return nil
}

func (m *OpenMonitor) checkSymbol(ctx context.Context, symbol string) error {
	state, exists := m.store.Get(symbol)
	if !exists || state.HasPosition {
		return nil
	}

	position, err := m.exchange.GetOpenPosition(ctx, symbol)
	if err != nil {
		return err
	}
	if position == nil {
		return nil
	}

	// Claim the fill before doing anything else; losing the claim means
	// another iteration already processed it.
	if !m.store.MarkPositionOpened(symbol) {
		return nil
	}

	m.log.Info("position detected",
		zap.String("symbol", symbol),
		zap.String("side", string(position.Side)),
		zap.String("size", position.Size.String()),
		zap.String("entry_price", position.EntryPrice.String()))
	metrics.FillsTotal.WithLabelValues(string(position.Side)).Inc()

	m.cancelOppositeLeg(ctx, state, position.Side)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.settleDelay):
	}

	m.straddle.PlaceTakeProfit(ctx, symbol, position.Side, position.EntryPrice, position.Size)

	m.notifier.Notify(notifier.PositionOpenedMessage(symbol, position.Side, position.EntryPrice, position.Size))
	return nil
}

// cancelOppositeLeg cancels the pending order on the other side of the
// fill. Best effort: a leg that was never placed is skipped, and a
// cancellation failure is logged without reverting the cycle.
func (m *OpenMonitor) cancelOppositeLeg(ctx context.Context, state domain.CycleState, filledSide domain.OrderSide) {
	var orderID string
	switch filledSide {
	case domain.OrderSideBuy:
		orderID = state.ShortOrderID
	case domain.OrderSideSell:
		orderID = state.LongOrderID
	}
	if orderID == "" {
		return
	}

	if err := m.exchange.CancelOrder(ctx, state.Symbol, orderID); err != nil {
		m.log.Error("failed to cancel opposite leg",
			zap.String("symbol", state.Symbol),
			zap.String("order_id", orderID),
			zap.Error(err))
		return
	}
	m.log.Info("opposite leg cancelled",
		zap.String("symbol", state.Symbol),
		zap.String("order_id", orderID))
}
