package notify

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts alerts to an operations chat.
type Telegram struct {
	api    telegramAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, errors.New("telegram token and chat id are required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(_ context.Context, alert Alert) error {
	msg := tgbotapi.NewMessage(t.chatID, formatTelegram(alert))
	msg.DisableWebPagePreview = true
	_, err := t.api.Send(msg)
	return err
}

func formatTelegram(alert Alert) string {
	return fmt.Sprintf("⚠️ Loja #%d (%s)\n%s", alert.MerchantID, alert.Period, alert.Message)
}
