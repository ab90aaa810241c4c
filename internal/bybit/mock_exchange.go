package bybit

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"straddlebot/internal/domain"
)

type MockExchange struct {
	mock.Mock
}

var _ Exchange = (*MockExchange)(nil)

func (m *MockExchange) GetMarketPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockExchange) GetInstrumentFilters(ctx context.Context, symbol string) (*domain.InstrumentFilters, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstrumentFilters), args.Error(1)
}

func (m *MockExchange) PlaceLimitOrderWithStopLoss(ctx context.Context, req LimitOrderRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockExchange) PlaceReduceOnlyLimitOrder(ctx context.Context, req ReduceOnlyOrderRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockExchange) CancelOrder(ctx context.Context, symbol, orderID string) error {
	args := m.Called(ctx, symbol, orderID)
	return args.Error(0)
}

func (m *MockExchange) GetOpenOrders(ctx context.Context, symbol string) ([]domain.OpenOrder, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OpenOrder), args.Error(1)
}

func (m *MockExchange) GetOpenPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Position), args.Error(1)
}

func (m *MockExchange) GetLastRealizedPnl(ctx context.Context, symbol string) (*domain.RealizedPnl, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RealizedPnl), args.Error(1)
}
