package error_notificator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of *tgbotapi.BotAPI we use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Infra struct {
	bot         sender
	adminChatID int64
}

const telegramTimeout = 10 * time.Second

// NewTelegramInfra connects to the Bot API (getMe) and sends to adminChatID.
// Every Bot API call is bounded by telegramTimeout.
func NewTelegramInfra(token string, adminChatID int64) (*Infra, error) {
	return newTelegramInfra(token, tgbotapi.APIEndpoint, adminChatID, telegramTimeout)
}

func newTelegramInfra(token, endpoint string, adminChatID int64, timeout time.Duration) (*Infra, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return NewInfra(bot, adminChatID), nil
}

func NewInfra(bot sender, adminChatID int64) *Infra {
	return &Infra{bot: bot, adminChatID: adminChatID}
}

func (i *Infra) Notify(ctx context.Context, source string, err error, details string) error {
	text := fmt.Sprintf(
		"❗ Ошибка в сервисе (%s)\n\nОшибка: %v\n\nДетали: %s",
		source,
		err,
		details,
	)

	msg := tgbotapi.NewMessage(i.adminChatID, text)

	if _, sendErr := i.bot.Send(msg); sendErr != nil {
		return fmt.Errorf("telegram send: %w", sendErr)
	}
	return nil
}
