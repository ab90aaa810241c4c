package notifier

import (
	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier is a one-way output port. Delivery is best effort: trading
// logic never depends on a notification going through.
type Notifier interface {
	Notify(text string)
}

// Telegram sends HTML-formatted messages to a single chat. A Telegram
// built without a token (or with chat ID 0) is a no-op, so the bot can
// run without the side channel configured.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	log    *zap.Logger
}

func NewTelegram(token string, chatID int64, log *zap.Logger) (*Telegram, error) {
	if token == "" || chatID == 0 {
		log.Warn("telegram notifier disabled: token or chat id not configured")
		return &Telegram{log: log}, nil
	}

	bot, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: bot, chatID: chatID, log: log}, nil
}

func (t *Telegram) Notify(text string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}

	msg := tgbot.NewMessage(t.chatID, text)
	msg.ParseMode = tgbot.ModeHTML
	if _, err := t.bot.Send(msg); err != nil {
		t.log.Warn("failed to send telegram message", zap.Error(err))
	}
}
