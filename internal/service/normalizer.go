package service

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"straddlebot/internal/bybit"
	"straddlebot/internal/domain"
)

// Normalizer converts raw computed prices and quantities into values the
// exchange accepts, flooring to the instrument's tick and step sizes.
// Filter lookups are cached per symbol. A failed lookup degrades to the
// raw value instead of failing: a rejected order downstream is preferable
// to aborting the cycle over a formatting step.
type Normalizer struct {
	exchange bybit.Exchange
	log      *zap.Logger

	mu      sync.RWMutex
	filters map[string]domain.InstrumentFilters
}

func NewNormalizer(exchange bybit.Exchange, log *zap.Logger) *Normalizer {
	return &Normalizer{
		exchange: exchange,
		log:      log,
		filters:  make(map[string]domain.InstrumentFilters),
	}
}

func (n *Normalizer) filtersFor(ctx context.Context, symbol string) (domain.InstrumentFilters, error) {
	n.mu.RLock()
	cached, exists := n.filters[symbol]
	n.mu.RUnlock()
	if exists {
		return cached, nil
	}

	fetched, err := n.exchange.GetInstrumentFilters(ctx, symbol)
	if err != nil {
		return domain.InstrumentFilters{}, err
	}

	n.mu.Lock()
	n.filters[symbol] = *fetched
	n.mu.Unlock()
	return *fetched, nil
}

// NormalizePrice floors rawPrice to the nearest multiple of the symbol's
// tick size, never rounding up.
func (n *Normalizer) NormalizePrice(ctx context.Context, symbol string, rawPrice decimal.Decimal) decimal.Decimal {
	filters, err := n.filtersFor(ctx, symbol)
	if err != nil {
		n.log.Warn("price not normalized, using raw value",
			zap.String("symbol", symbol), zap.Error(err))
		return rawPrice
	}
	return floorToStep(rawPrice, filters.TickSize)
}

// NormalizeQuantity floors rawQty to the nearest multiple of the symbol's
// quantity step.
func (n *Normalizer) NormalizeQuantity(ctx context.Context, symbol string, rawQty decimal.Decimal) decimal.Decimal {
	filters, err := n.filtersFor(ctx, symbol)
	if err != nil {
		n.log.Warn("quantity not normalized, using raw value",
			zap.String("symbol", symbol), zap.Error(err))
		return rawQty
	}
	return floorToStep(rawQty, filters.QtyStep)
}

// FormatQuantity renders qty with the same number of decimal places as
// the symbol's step size (zero places for an integral step).
func (n *Normalizer) FormatQuantity(ctx context.Context, symbol string, qty decimal.Decimal) string {
	filters, err := n.filtersFor(ctx, symbol)
	if err != nil {
		return qty.String()
	}
	return qty.StringFixed(stepDecimalPlaces(filters.QtyStep))
}

func floorToStep(value, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return value
	}
	return value.Div(step).Floor().Mul(step)
}

func stepDecimalPlaces(step decimal.Decimal) int32 {
	if exp := step.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}
