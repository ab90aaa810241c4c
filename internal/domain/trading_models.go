package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

// Opposite returns the side that closes a position opened on s.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

type OrderType string

const (
	OrderTypeMarket OrderType = "Market"
	OrderTypeLimit  OrderType = "Limit"
)

// CycleDistance selects which straddle width the next cycle uses. It
// alternates every time a position closes.
type CycleDistance string

const (
	CycleDistanceNarrow CycleDistance = "narrow"
	CycleDistanceWide   CycleDistance = "wide"
)

func (d CycleDistance) Next() CycleDistance {
	if d == CycleDistanceNarrow {
		return CycleDistanceWide
	}
	return CycleDistanceNarrow
}

// CycleState tracks one straddle cycle for a symbol: the two pending leg
// order IDs and whether a fill has already been processed. An empty order
// ID means that leg was never placed. HasPosition only ever goes from
// false to true; a new cycle always gets a fresh CycleState.
type CycleState struct {
	ID           uuid.UUID     `json:"id"`
	Symbol       string        `json:"symbol"`
	LongOrderID  string        `json:"long_order_id,omitempty"`
	ShortOrderID string        `json:"short_order_id,omitempty"`
	HasPosition  bool          `json:"has_position"`
	Distance     CycleDistance `json:"distance"`
	CreatedAt    time.Time     `json:"created_at"`
}

// InstrumentFilters holds the per-symbol price and quantity increments the
// exchange accepts.
type InstrumentFilters struct {
	Symbol   string          `json:"symbol"`
	TickSize decimal.Decimal `json:"tick_size"`
	QtyStep  decimal.Decimal `json:"qty_step"`
}

type Position struct {
	Symbol     string          `json:"symbol"`
	Side       OrderSide       `json:"side"`
	Size       decimal.Decimal `json:"size"`
	EntryPrice decimal.Decimal `json:"entry_price"`
}

type RealizedPnl struct {
	Symbol    string          `json:"symbol"`
	ClosedPnl decimal.Decimal `json:"closed_pnl"`
}

type OpenOrder struct {
	OrderID     string    `json:"order_id"`
	Symbol      string    `json:"symbol"`
	Side        OrderSide `json:"side"`
	OrderType   OrderType `json:"order_type"`
	Price       string    `json:"price"`
	Qty         string    `json:"qty"`
	Status      string    `json:"status"`
	ReduceOnly  bool      `json:"reduce_only"`
	CreatedTime string    `json:"created_time"`
}
