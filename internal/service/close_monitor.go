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

// CloseMonitor polls symbols whose cycle has an open position and waits
// for it to disappear. On closure it toggles the distance selector,
// reports the realized PnL, tears the cycle down, and starts the next
// one after a settle delay.
type CloseMonitor struct {
	exchange bybit.Exchange
	store    *CycleStore
	straddle *StraddleManager
	notifier notifier.Notifier
	log      *zap.Logger

	interval     time.Duration
	backoff      time.Duration
	restartDelay time.Duration

	// Symbols whose teardown/restart is still in flight, so a scan does
	// not process the same closure twice.
	processed map[string]struct{}
}

func NewCloseMonitor(
	exchange bybit.Exchange,
	store *CycleStore,
	straddle *StraddleManager,
	notif notifier.Notifier,
	log *zap.Logger,
	interval time.Duration,
) *CloseMonitor {
	return &CloseMonitor{
		exchange:     exchange,
		store:        store,
		straddle:     straddle,
		notifier:     notif,
		log:          log,
		interval:     interval,
		backoff:      domain.CloseMonitorBackoff,
		restartDelay: domain.CycleRestartDelay,
		processed:    make(map[string]struct{}),
	}
}

func (m *CloseMonitor) Run(ctx context.Context) {
	m.log.Info("position-close monitor started", zap.Duration("interval", m.interval))

	for {
		wait := m.interval
		if err := m.scan(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.log.Error("close monitor iteration failed", zap.Error(err))
			metrics.MonitorErrors.WithLabelValues("close").Inc()
			wait = m.backoff
		}

		select {
		case <-ctx.Done():
			m.log.Info("position-close monitor stopped")
			return
		case <-time.After(wait):
		}
	}
}

func (m *CloseMonitor) scan(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("close monitor panic: %v", r)
		}
	}()

	for _, symbol := range m.store.OpenSymbols() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if symErr := m.checkSymbol(ctx, symbol); symErr != nil {
			m.log.Error("failed to check symbol for closure",
				zap.String("symbol", symbol), zap.Error(symErr))
			metrics.MonitorErrors.WithLabelValues("close").Inc()
		}
	}
	return nil
}

func (m *CloseMonitor) checkSymbol(ctx context.Context, symbol string) error {
	state, exists := m.store.Get(symbol)
	if !exists || !state.HasPosition {
		return nil
	}

	position, err := m.exchange.GetOpenPosition(ctx, symbol)
	if err != nil {
		return err
	}
	if position != nil {
		return nil
	}

	if _, inFlight := m.processed[symbol]; inFlight {
		return nil
	}
	m.processed[symbol] = struct{}{}
	defer delete(m.processed, symbol)

	m.log.Info("position closed", zap.String("symbol", symbol))
	metrics.CyclesCompleted.WithLabelValues(symbol).Inc()

	next := m.store.ToggleDistance(symbol)

	m.reportRealizedPnl(ctx, symbol)
	m.notifier.Notify(notifier.PositionClosedMessage(symbol, m.straddle.CycleName(next)))

	m.store.Delete(symbol)
	metrics.ActiveCycles.Set(float64(m.store.ActiveCount()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.restartDelay):
	}

	m.log.Info("starting next cycle",
		zap.String("symbol", symbol),
		zap.String("cycle", m.straddle.CycleName(next)))
	if err := m.straddle.PlaceStraddle(ctx, symbol); err != nil {
		m.log.Error("failed to restart cycle",
			zap.String("symbol", symbol), zap.Error(err))
	}
	return nil
}

func (m *CloseMonitor) reportRealizedPnl(ctx context.Context, symbol string) {
	pnl, err := m.exchange.GetLastRealizedPnl(ctx, symbol)
	if err != nil {
		m.log.Error("failed to fetch realized pnl",
			zap.String("symbol", symbol), zap.Error(err))
		return
	}
	if pnl == nil {
		return
	}

	m.log.Info("realized pnl",
		zap.String("symbol", symbol),
		zap.String("closed_pnl", pnl.ClosedPnl.String()))
	metrics.RealizedPnl.Set(pnl.ClosedPnl.InexactFloat64())
	m.notifier.Notify(notifier.RealizedPnlMessage(pnl.ClosedPnl))
}
