package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"straddlebot/internal/bybit"
	"straddlebot/internal/domain"
)

func newTestCloseMonitor(ex *bybit.MockExchange) (*CloseMonitor, *CycleStore, *fakeNotifier) {
	store := NewCycleStore()
	notif := &fakeNotifier{}
	log := zap.NewNop()
	straddle := NewStraddleManager(ex, store, NewNormalizer(ex, log), notif, testStrategyConfig(), log)
	monitor := &CloseMonitor{
		exchange:     ex,
		store:        store,
		straddle:     straddle,
		notifier:     notif,
		log:          log,
		interval:     time.Millisecond,
		backoff:      time.Millisecond,
		restartDelay: 0,
		processed:    make(map[string]struct{}),
	}
	return monitor, store, notif
}

func TestCloseMonitorTogglesAndRestartsWide(t *testing.T) {
	ex := &bybit.MockExchange{}
	monitor, store, notif := newTestCloseMonitor(ex)

	store.Put(domain.CycleState{
		Symbol:      "LINKUSDT",
		LongOrderID: "long-1",
		HasPosition: true,
		Distance:    domain.CycleDistanceNarrow,
	})

	stubFilters(ex, "LINKUSDT", "0.1", "0.1")
	ex.On("GetOpenPosition", mock.Anything, "LINKUSDT").Return(nil, nil)
	ex.On("GetLastRealizedPnl", mock.Anything, "LINKUSDT").Return(&domain.RealizedPnl{
		Symbol:    "LINKUSDT",
		ClosedPnl: decimal.RequireFromString("0.41"),
	}, nil)
	ex.On("GetMarketPrice", mock.Anything, "LINKUSDT").Return(decimal.NewFromInt(10), nil)
	// Restart uses the wide 2.5% distance.
	ex.On("PlaceLimitOrderWithStopLoss", mock.Anything, bybit.LimitOrderRequest{
		Symbol:   "LINKUSDT",
		Side:     domain.OrderSideBuy,
		Qty:      "2.0",
		Price:    "9.7",
		StopLoss: "9.6",
	}).Return("long-2", nil)
	ex.On("PlaceLimitOrderWithStopLoss", mock.Anything, bybit.LimitOrderRequest{
		Symbol:   "LINKUSDT",
		Side:     domain.OrderSideSell,
		Qty:      "2.0",
		Price:    "10.2",
		StopLoss: "10.3",
	}).Return("short-2", nil)

	require.NoError(t, monitor.checkSymbol(context.Background(), "LINKUSDT"))

	state, exists := store.Get("LINKUSDT")
	require.True(t, exists, "a fresh cycle must be tracked after restart")
	assert.Equal(t, "long-2", state.LongOrderID)
	assert.Equal(t, "short-2", state.ShortOrderID)
	assert.False(t, state.HasPosition)
	assert.Equal(t, domain.CycleDistanceWide, state.Distance)
	assert.Equal(t, domain.CycleDistanceWide, store.Distance("LINKUSDT"))

	messages := notif.all()
	require.Len(t, messages, 3)
	assert.Contains(t, messages[0], "Realized PnL")
	assert.Contains(t, messages[0], "0.41")
	assert.Contains(t, messages[1], "Position closed")
	assert.Contains(t, messages[1], "2.5%")
	assert.Contains(t, messages[2], "Orders placed")

	assert.Empty(t, monitor.processed, "marker must be cleared after restart")
	ex.AssertExpectations(t)
}

func TestCloseMonitorIgnoresStillOpenPosition(t *testing.T) {
	ex := &bybit.MockExchange{}
	monitor, store, notif := newTestCloseMonitor(ex)

	store.Put(domain.CycleState{Symbol: "LINKUSDT", HasPosition: true})
	ex.On("GetOpenPosition", mock.Anything, "LINKUSDT").Return(&domain.Position{
		Symbol:     "LINKUSDT",
		Side:       domain.OrderSideBuy,
		Size:       decimal.NewFromInt(2),
		EntryPrice: decimal.RequireFromString("9.9"),
	}, nil)

	require.NoError(t, monitor.checkSymbol(context.Background(), "LINKUSDT"))

	_, exists := store.Get("LINKUSDT")
	assert.True(t, exists)
	assert.Empty(t, notif.all())
	ex.AssertNotCalled(t, "GetLastRealizedPnl", mock.Anything, mock.Anything)
}

func TestCloseMonitorPnlFailureDoesNotBlockRestart(t *testing.T) {
	ex := &bybit.MockExchange{}
	monitor, store, notif := newTestCloseMonitor(ex)

	store.Put(domain.CycleState{Symbol: "LINKUSDT", HasPosition: true})

	stubFilters(ex, "LINKUSDT", "0.1", "0.1")
	ex.On("GetOpenPosition", mock.Anything, "LINKUSDT").Return(nil, nil)
	ex.On("GetLastRealizedPnl", mock.Anything, "LINKUSDT").Return(nil, errors.New("unavailable"))
	ex.On("GetMarketPrice", mock.Anything, "LINKUSDT").Return(decimal.NewFromInt(10), nil)
	ex.On("PlaceLimitOrderWithStopLoss", mock.Anything, mock.Anything).Return("order-1", nil)

	require.NoError(t, monitor.checkSymbol(context.Background(), "LINKUSDT"))

	_, exists := store.Get("LINKUSDT")
	assert.True(t, exists, "restart must happen despite the missing pnl")

	messages := notif.all()
	require.Len(t, messages, 2)
	assert.Contains(t, messages[0], "Position closed")
}

func TestCloseMonitorProcessedMarkerBlocksReentry(t *testing.T) {
	ex := &bybit.MockExchange{}
	monitor, store, _ := newTestCloseMonitor(ex)

	store.Put(domain.CycleState{Symbol: "LINKUSDT", HasPosition: true})
	monitor.processed["LINKUSDT"] = struct{}{}

	ex.On("GetOpenPosition", mock.Anything, "LINKUSDT").Return(nil, nil)

	require.NoError(t, monitor.checkSymbol(context.Background(), "LINKUSDT"))

	// Teardown is someone else's in-flight work; nothing happened here.
	_, exists := store.Get("LINKUSDT")
	assert.True(t, exists)
	ex.AssertNotCalled(t, "GetLastRealizedPnl", mock.Anything, mock.Anything)
}

func TestCloseMonitorQueryFailureIsolated(t *testing.T) {
	ex := &bybit.MockExchange{}
	monitor, store, _ := newTestCloseMonitor(ex)

	store.Put(domain.CycleState{Symbol: "LINKUSDT", HasPosition: true})
	ex.On("GetOpenPosition", mock.Anything, "LINKUSDT").Return(nil, errors.New("timeout"))

	require.Error(t, monitor.checkSymbol(context.Background(), "LINKUSDT"))
	require.NoError(t, monitor.scan(context.Background()))

	_, exists := store.Get("LINKUSDT")
	assert.True(t, exists)
}
