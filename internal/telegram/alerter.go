// Package telegram posts complaint alerts to the admins' Telegram chat and
// answers a few admin commands sent from that chat.
package telegram

import (
	"context"
	"fmt"
	"strings"

	"resolveflow/backend/internal/localization"
	"resolveflow/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Sender is the part of *tgbotapi.BotAPI the alerter uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Alerter sends admin alerts to one chat.
type Alerter struct {
	BotAPI *tgbotapi.BotAPI

	sender    Sender
	chatID    int64
	lang      string
	localizer *localization.Localizer
	log       zerolog.Logger
}

// NewAlerter authorizes the bot and returns an Alerter posting to chatID.
func NewAlerter(token string, chatID int64, lang string, l *localization.Localizer, logger zerolog.Logger) (*Alerter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: authorize bot: %w", err)
	}
	bot.Debug = false
	a := NewAlerterWithSender(bot, chatID, lang, l, logger)
	a.BotAPI = bot
	a.log.Info().Str("account", bot.Self.UserName).Msg("telegram bot authorized")
	return a, nil
}

// NewAlerterWithSender builds an Alerter on an existing sender.
func NewAlerterWithSender(s Sender, chatID int64, lang string, l *localization.Localizer, logger zerolog.Logger) *Alerter {
	return &Alerter{
		sender:    s,
		chatID:    chatID,
		lang:      lang,
		localizer: l,
		log:       logger.With().Str("component", "telegram").Logger(),
	}
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "[", "\\[", "`", "\\`")

// escape makes user text safe inside a legacy Markdown message.
func escape(s string) string { return markdownEscaper.Replace(s) }

func (a *Alerter) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := a.sender.Send(msg); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}

// ComplaintRegistered posts a new-complaint alert.
func (a *Alerter) ComplaintRegistered(_ context.Context, c *models.Complaint, customer *models.User) error {
	name := c.CustomerID
	if customer != nil && customer.Name != "" {
		name = customer.Name
	}
	text := a.localizer.Format(a.lang, "alert_registered", escape(c.Title), escape(name), c.ID)
	return a.send(a.chatID, text)
}

// ComplaintResolved posts a resolution alert.
func (a *Alerter) ComplaintResolved(_ context.Context, c *models.Complaint, _ *models.User) error {
	text := a.localizer.Format(a.lang, "alert_resolved", escape(c.Title), c.ID, escape(c.ResolutionDetails))
	return a.send(a.chatID, text)
}
