package notifier

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"straddlebot/internal/domain"
)

// Message builders for the status events the bot emits. Formatting lives
// here so the services only decide *when* to notify.

type StraddleSummary struct {
	Symbol     string
	CycleName  string
	Price      decimal.Decimal
	Qty        string
	LongPrice  string
	LongStop   string
	ShortPrice string
	ShortStop  string
}

func StartupMessage(symbols []string, amount, narrow, wide, stopLoss, takeProfit decimal.Decimal, testnet bool) string {
	mode := "MAINNET"
	if testnet {
		mode = "TESTNET"
	}
	return fmt.Sprintf(
		"<b>🤖 Bot started</b>\n\n"+
			"📊 Symbols: %s\n"+
			"💰 Amount: %s USDT\n"+
			"🔄 Narrow cycle: %s%%\n"+
			"🔄 Wide cycle: %s%%\n"+
			"🛡️ Stop Loss: %s%%\n"+
			"🎯 Take Profit: %s%%\n"+
			"🌐 Mode: %s\n\n"+
			"ℹ️ The bot alternates between both cycles",
		strings.Join(symbols, ", "), amount, narrow, wide, stopLoss, takeProfit, mode,
	)
}

func StraddlePlacedMessage(s StraddleSummary) string {
	return fmt.Sprintf(
		"<b>🎯 Orders placed for %s</b>\n\n"+
			"🔄 <b>Cycle: %s</b>\n"+
			"💰 Current price: <b>$%s</b>\n"+
			"📊 Quantity: <b>%s</b>\n\n"+
			"<b>🟢 LONG ORDER:</b>\n"+
			"  └ Price: $%s\n"+
			"  └ Stop Loss: $%s\n\n"+
			"<b>🔴 SHORT ORDER:</b>\n"+
			"  └ Price: $%s\n"+
			"  └ Stop Loss: $%s\n\n"+
			"✅ Status: orders active",
		s.Symbol, s.CycleName, s.Price, s.Qty, s.LongPrice, s.LongStop, s.ShortPrice, s.ShortStop,
	)
}

func PositionOpenedMessage(symbol string, side domain.OrderSide, entry, size decimal.Decimal) string {
	emoji := "🟢"
	if side == domain.OrderSideSell {
		emoji = "🔴"
	}
	return fmt.Sprintf(
		"<b>%s Position opened!</b>\n\n"+
			"🪙 Symbol: <b>%s</b>\n"+
			"📊 Side: <b>%s</b>\n"+
			"💰 Entry price: <b>$%s</b>\n"+
			"📈 Size: <b>%s</b>\n\n"+
			"✅ Opposite order cancelled\n"+
			"🎯 Take Profit placed",
		emoji, symbol, side, entry, size,
	)
}

func TakeProfitMessage(symbol string, side domain.OrderSide, entry decimal.Decimal, tpPrice string) string {
	return fmt.Sprintf(
		"<b>🎯 Take Profit placed</b>\n\n"+
			"🪙 Symbol: <b>%s</b>\n"+
			"📊 Side: <b>%s</b>\n"+
			"💰 Entry price: $%s\n"+
			"🎯 TP price: <b>$%s</b>\n"+
			"✅ Order: Reduce Only",
		symbol, side, entry, tpPrice,
	)
}

func TakeProfitFailedMessage(symbol string, err error) string {
	return fmt.Sprintf(
		"<b>⚠️ Take Profit failed for %s</b>\n\n"+
			"The position is unmanaged until the next cycle.\n"+
			"Reason: %v",
		symbol, err,
	)
}

func RealizedPnlMessage(pnl decimal.Decimal) string {
	emoji := "✅"
	if pnl.IsNegative() {
		emoji = "❌"
	}
	return fmt.Sprintf(
		"<b>%s Realized PnL</b>\n"+
			"━━━━━━━━━━━━━━━\n"+
			"<b>Result:</b> %s USDT\n"+
			"━━━━━━━━━━━━━━━",
		emoji, pnl.StringFixed(2),
	)
}

func PositionClosedMessage(symbol, nextCycleName string) string {
	return fmt.Sprintf(
		"<b>✅ Position closed</b>\n\n"+
			"🪙 Symbol: <b>%s</b>\n"+
			"🔄 Next cycle: <b>%s</b>\n"+
			"⏳ Preparing new orders...",
		symbol, nextCycleName,
	)
}

func ShutdownMessage() string {
	return "<b>⚠️ Bot stopped</b>"
}

func FatalMessage(err error) string {
	return fmt.Sprintf("<b>❌ Critical bot error</b>\n\n%v", err)
}
