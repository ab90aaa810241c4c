package domain

import "time"

const (
	CategoryLinear     = "linear"
	DefaultTimeInForce = "GTC"
)

// Stop-loss attachment parameters: server-side, full position, market
// order triggered by last price.
const (
	StopLossOrderType = "Market"
	StopLossTriggerBy = "LastPrice"
	TpSlModeFull      = "Full"
)

const (
	// Delay between detecting a fill and placing the take-profit, to let
	// the opposite-leg cancellation settle.
	TakeProfitSettleDelay = 1 * time.Second

	// Delay between tearing down a closed cycle and placing the next
	// straddle.
	CycleRestartDelay = 5 * time.Second

	// Backoff applied when a whole monitor iteration fails.
	OpenMonitorBackoff  = 5 * time.Second
	CloseMonitorBackoff = 10 * time.Second

	// Pause between symbols during initial placement at startup.
	StartupPlacementPause = 2 * time.Second

	HeartbeatInterval = 60 * time.Second
)
