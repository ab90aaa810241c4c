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

func newTestOpenMonitor(ex *bybit.MockExchange) (*OpenMonitor, *CycleStore, *fakeNotifier) {
	store := NewCycleStore()
	notif := &fakeNotifier{}
	log := zap.NewNop()
	straddle := NewStraddleManager(ex, store, NewNormalizer(ex, log), notif, testStrategyConfig(), log)
	monitor := &OpenMonitor{
		exchange:    ex,
		store:       store,
		straddle:    straddle,
		notifier:    notif,
		log:         log,
		interval:    time.Millisecond,
		backoff:     time.Millisecond,
		settleDelay: 0,
	}
	return monitor, store, notif
}

func TestOpenMonitorProcessesBuyFill(t *testing.T) {
	ex := &bybit.MockExchange{}
	monitor, store, notif := newTestOpenMonitor(ex)

	store.Put(domain.CycleState{
		Symbol:       "LINKUSDT",
		LongOrderID:  "long-1",
		ShortOrderID: "short-1",
	})

	stubFilters(ex, "LINKUSDT", "0.1", "0.1")
	ex.On("GetOpenPosition", mock.Anything, "LINKUSDT").Return(&domain.Position{
		Symbol:     "LINKUSDT",
		Side:       domain.OrderSideBuy,
		Size:       decimal.NewFromInt(2),
		EntryPrice: decimal.RequireFromString("9.9"),
	}, nil)
	ex.On("CancelOrder", mock.Anything, "LINKUSDT", "short-1").Run(func(mock.Arguments) {
		// The fill must be claimed before the cancel is attempted.
		state, _ := store.Get("LINKUSDT")
		assert.True(t, state.HasPosition)
	}).Return(nil)
	ex.On("PlaceReduceOnlyLimitOrder", mock.Anything, bybit.ReduceOnlyOrderRequest{
		Symbol: "LINKUSDT",
		Side:   domain.OrderSideSell,
		Qty:    "2.0",
		Price:  "10",
	}).Return("tp-1", nil)

	require.NoError(t, monitor.checkSymbol(context.Background(), "LINKUSDT"))

	state, exists := store.Get("LINKUSDT")
	require.True(t, exists)
	assert.True(t, state.HasPosition)

	messages := notif.all()
	require.Len(t, messages, 2)
	assert.Contains(t, messages[0], "Take Profit placed")
	assert.Contains(t, messages[1], "Position opened")

	ex.AssertExpectations(t)
}

func TestOpenMonitorToleratesMissingCounterpartLeg(t *testing.T) {
	ex := &bybit.MockExchange{}
	monitor, store, _ := newTestOpenMonitor(ex)

	// Long leg was rejected at placement; only the short leg exists.
	store.Put(domain.CycleState{
		Symbol:       "LINKUSDT",
		ShortOrderID: "short-1",
	})

	stubFilters(ex, "LINKUSDT", "0.1", "0.1")
	ex.On("GetOpenPosition", mock.Anything, "LINKUSDT").Return(&domain.Position{
		Symbol:     "LINKUSDT",
		Side:       domain.OrderSideSell,
		Size:       decimal.NewFromInt(2),
		EntryPrice: decimal.RequireFromString("10.1"),
	}, nil)
	ex.On("PlaceReduceOnlyLimitOrder", mock.Anything, mock.MatchedBy(func(req bybit.ReduceOnlyOrderRequest) bool {
		return req.Side == domain.OrderSideBuy
	})).Return("tp-1", nil)

	require.NoError(t, monitor.checkSymbol(context.Background(), "LINKUSDT"))

	ex.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything, mock.Anything)

	state, _ := store.Get("LINKUSDT")
	assert.True(t, state.HasPosition)
}

func TestOpenMonitorCancelFailureDoesNotRevertClaim(t *testing.T) {
	ex := &bybit.MockExchange{}
	monitor, store, _ := newTestOpenMonitor(ex)

	store.Put(domain.CycleState{
		Symbol:       "LINKUSDT",
		LongOrderID:  "long-1",
		ShortOrderID: "short-1",
	})

	stubFilters(ex, "LINKUSDT", "0.1", "0.1")
	ex.On("GetOpenPosition", mock.Anything, "LINKUSDT").Return(&domain.Position{
		Symbol:     "LINKUSDT",
		Side:       domain.OrderSideBuy,
		Size:       decimal.NewFromInt(2),
		EntryPrice: decimal.RequireFromString("9.9"),
	}, nil)
	ex.On("CancelOrder", mock.Anything, "LINKUSDT", "short-1").Return(errors.New("order already filled"))
	ex.On("PlaceReduceOnlyLimitOrder", mock.Anything, mock.Anything).Return("tp-1", nil)

	require.NoError(t, monitor.checkSymbol(context.Background(), "LINKUSDT"))

	state, _ := store.Get("LINKUSDT")
	assert.True(t, state.HasPosition)
	ex.AssertCalled(t, "PlaceReduceOnlyLimitOrder", mock.Anything, mock.Anything)
}

func TestOpenMonitorNoPositionYet(t *testing.T) {
	ex := &bybit.MockExchange{}
	monitor, store, notif := newTestOpenMonitor(ex)

	store.Put(domain.CycleState{Symbol: "LINKUSDT", LongOrderID: "long-1", ShortOrderID: "short-1"})
	ex.On("GetOpenPosition", mock.Anything, "LINKUSDT").Return(nil, nil)

	require.NoError(t, monitor.checkSymbol(context.Background(), "LINKUSDT"))

	state, _ := store.Get("LINKUSDT")
	assert.False(t, state.HasPosition)
	assert.Empty(t, notif.all())
}

func TestOpenMonitorPositionQueryFailureIsolated(t *testing.T) {
	ex := &bybit.MockExchange{}
	monitor, store, _ := newTestOpenMonitor(ex)

	store.Put(domain.CycleState{Symbol: "LINKUSDT", LongOrderID: "long-1", ShortOrderID: "short-1"})
	ex.On("GetOpenPosition", mock.Anything, "LINKUSDT").Return(nil, errors.New("timeout"))

	err := monitor.checkSymbol(context.Background(), "LINKUSDT")
	require.Error(t, err)

	state, _ := store.Get("LINKUSDT")
	assert.False(t, state.HasPosition, "a failed query must not mutate state")

	// A failing symbol does not break the scan itself.
	require.NoError(t, monitor.scan(context.Background()))
}

func TestOpenMonitorRunStopsOnContextCancel(t *testing.T) {
	ex := &bybit.MockExchange{}
	monitor, _, _ := newTestOpenMonitor(ex)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		monitor.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after context cancellation")
	}
}
