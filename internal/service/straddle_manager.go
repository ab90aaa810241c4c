package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"straddlebot/internal/bybit"
	"straddlebot/internal/domain"
	"straddlebot/internal/metrics"
	"straddlebot/internal/notifier"
	"straddlebot/pkg/config"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// StraddleManager places the paired long/short limit orders that start a
// cycle and the reduce-only take-profit once a leg fills.
type StraddleManager struct {
	exchange   bybit.Exchange
	store      *CycleStore
	normalizer *Normalizer
	notifier   notifier.Notifier
	cfg        config.StrategyConfig
	log        *zap.Logger
}

func NewStraddleManager(
	exchange bybit.Exchange,
	store *CycleStore,
	normalizer *Normalizer,
	notif notifier.Notifier,
	cfg config.StrategyConfig,
	log *zap.Logger,
) *StraddleManager {
	return &StraddleManager{
		exchange:   exchange,
		store:      store,
		normalizer: normalizer,
		notifier:   notif,
		cfg:        cfg,
		log:        log,
	}
}

func (m *StraddleManager) distancePercent(d domain.CycleDistance) decimal.Decimal {
	if d == domain.CycleDistanceWide {
		return m.cfg.DistanceWidePercent
	}
	return m.cfg.DistanceNarrowPercent
}

// CycleName renders the distance as the operator sees it, e.g. "1%".
func (m *StraddleManager) CycleName(d domain.CycleDistance) string {
	return m.distancePercent(d).String() + "%"
}

// PlaceStraddle starts a new cycle for symbol: two opposing limit orders
// at ±distance from the current price, each with an attached stop loss.
// It refuses to place while any cycle state still exists for the symbol,
// pending or filled. The two legs are submitted independently; a failed
// leg leaves its order ID empty. State is recorded only if at least one
// leg was accepted.
func (m *StraddleManager) PlaceStraddle(ctx context.Context, symbol string) error {
	if state, exists := m.store.Get(symbol); exists {
		m.log.Info("cycle already tracked, skipping placement",
			zap.String("symbol", symbol),
			zap.Bool("has_position", state.HasPosition))
		return nil
	}

	distance := m.store.Distance(symbol)
	fraction := m.distancePercent(distance).Div(hundred)
	slFraction := m.cfg.StopLossPercent.Div(hundred)

	price, err := m.exchange.GetMarketPrice(ctx, symbol)
	if err != nil {
		return fmt.Errorf("failed to get market price for %s: %w", symbol, err)
	}

	qty := m.normalizer.NormalizeQuantity(ctx, symbol, m.cfg.AmountUSDT.Div(price))
	qtyStr := m.normalizer.FormatQuantity(ctx, symbol, qty)

	longPrice := m.normalizer.NormalizePrice(ctx, symbol, price.Mul(one.Sub(fraction)))
	shortPrice := m.normalizer.NormalizePrice(ctx, symbol, price.Mul(one.Add(fraction)))
	longStop := m.normalizer.NormalizePrice(ctx, symbol, price.Mul(one.Sub(fraction)).Mul(one.Sub(slFraction)))
	shortStop := m.normalizer.NormalizePrice(ctx, symbol, price.Mul(one.Add(fraction)).Mul(one.Add(slFraction)))

	m.log.Info("placing straddle",
		zap.String("symbol", symbol),
		zap.String("cycle", m.CycleName(distance)),
		zap.String("price", price.String()),
		zap.String("qty", qtyStr),
		zap.String("long_price", longPrice.String()),
		zap.String("long_stop", longStop.String()),
		zap.String("short_price", shortPrice.String()),
		zap.String("short_stop", shortStop.String()))

	longID := m.placeLeg(ctx, symbol, domain.OrderSideBuy, qtyStr, longPrice, longStop)
	shortID := m.placeLeg(ctx, symbol, domain.OrderSideSell, qtyStr, shortPrice, shortStop)

	if longID == "" && shortID == "" {
		return fmt.Errorf("no straddle legs placed for %s", symbol)
	}

	m.store.Put(domain.CycleState{
		ID:           uuid.New(),
		Symbol:       symbol,
		LongOrderID:  longID,
		ShortOrderID: shortID,
		HasPosition:  false,
		Distance:     distance,
		CreatedAt:    time.Now(),
	})
	metrics.ActiveCycles.Set(float64(m.store.ActiveCount()))

	m.notifier.Notify(notifier.StraddlePlacedMessage(notifier.StraddleSummary{
		Symbol:     symbol,
		CycleName:  m.CycleName(distance),
		Price:      price,
		Qty:        qtyStr,
		LongPrice:  longPrice.String(),
		LongStop:   longStop.String(),
		ShortPrice: shortPrice.String(),
		ShortStop:  shortStop.String(),
	}))

	return nil
}

func (m *StraddleManager) placeLeg(ctx context.Context, symbol string, side domain.OrderSide, qty string, price, stop decimal.Decimal) string {
	orderID, err := m.exchange.PlaceLimitOrderWithStopLoss(ctx, bybit.LimitOrderRequest{
		Symbol:   symbol,
		Side:     side,
		Qty:      qty,
		Price:    price.String(),
		StopLoss: stop.String(),
	})
	if err != nil {
		m.log.Error("failed to place straddle leg",
			zap.String("symbol", symbol),
			zap.String("side", string(side)),
			zap.Error(err))
		metrics.OrdersTotal.WithLabelValues(string(side), "rejected").Inc()
		return ""
	}

	m.log.Info("straddle leg placed",
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.String("order_id", orderID))
	metrics.OrdersTotal.WithLabelValues(string(side), "placed").Inc()
	return orderID
}

// PlaceTakeProfit submits the reduce-only limit order that closes a
// filled position at entry ± the take-profit percent. No retry on
// failure: a missed take-profit is reported and left to the operator.
func (m *StraddleManager) PlaceTakeProfit(ctx context.Context, symbol string, filledSide domain.OrderSide, entryPrice, quantity decimal.Decimal) bool {
	tpFraction := m.cfg.TakeProfitPercent.Div(hundred)

	var target decimal.Decimal
	if filledSide == domain.OrderSideBuy {
		target = entryPrice.Mul(one.Add(tpFraction))
	} else {
		target = entryPrice.Mul(one.Sub(tpFraction))
	}
	target = m.normalizer.NormalizePrice(ctx, symbol, target)

	closeSide := filledSide.Opposite()
	orderID, err := m.exchange.PlaceReduceOnlyLimitOrder(ctx, bybit.ReduceOnlyOrderRequest{
		Symbol: symbol,
		Side:   closeSide,
		Qty:    m.normalizer.FormatQuantity(ctx, symbol, quantity),
		Price:  target.String(),
	})
	if err != nil {
		m.log.Error("failed to place take profit",
			zap.String("symbol", symbol),
			zap.String("side", string(closeSide)),
			zap.Error(err))
		metrics.OrdersTotal.WithLabelValues(string(closeSide), "rejected").Inc()
		m.notifier.Notify(notifier.TakeProfitFailedMessage(symbol, err))
		return false
	}

	m.log.Info("take profit placed",
		zap.String("symbol", symbol),
		zap.String("side", string(closeSide)),
		zap.String("order_id", orderID),
		zap.String("price", target.String()))
	metrics.OrdersTotal.WithLabelValues(string(closeSide), "placed").Inc()
	m.notifier.Notify(notifier.TakeProfitMessage(symbol, filledSide, entryPrice, target.String()))
	return true
}
