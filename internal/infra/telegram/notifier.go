// File: internal/infra/telegram/notifier.go
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Notifier sends approval notifications to per-account Telegram channels.
// One attempt per message with a bounded client timeout; a failure is
// logged and reported, never retried here.
type Notifier struct {
	bot *tgbotapi.BotAPI
	log *zerolog.Logger
}

func NewNotifier(token string, logger *zerolog.Logger) (*Notifier, error) {
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, err
	}
	return &Notifier{bot: bot, log: logger}, nil
}

// Send delivers text to channelID ("@channel" or a numeric chat id) with
// HTML parse mode. Returns false on any transport or API-level failure.
func (n *Notifier) Send(ctx context.Context, channelID, text string) bool {
	if channelID == "" {
		n.log.Error().Msg("send: empty channel id")
		return false
	}
	if err := ctx.Err(); err != nil {
		n.log.Warn().Err(err).Str("channel", channelID).Msg("send: context already done")
		return false
	}

	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(channelID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		username := channelID
		if !strings.HasPrefix(username, "@") {
			username = "@" + username
		}
		msg = tgbotapi.NewMessageToChannel(username, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := n.bot.Send(msg); err != nil {
		n.log.Error().Err(err).Str("channel", channelID).Msg("telegram send failed")
		return false
	}
	return true
}
