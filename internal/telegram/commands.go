package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	"resolveflow/backend/internal/models"
	"resolveflow/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CommandStore defines the storage methods the admin commands need.
type CommandStore interface {
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	BlockUser(ctx context.Context, id string, ttl time.Duration) error
	UnblockUser(ctx context.Context, id string) error
}

// HandleCommand processes /complaint, /block and /unblock. Commands are only
// accepted from the admin chat.
func (a *Alerter) HandleCommand(ctx context.Context, update *tgbotapi.Update, s CommandStore) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	chatID := update.Message.Chat.ID
	if chatID != a.chatID {
		a.reply(chatID, a.localizer.GetString(a.lang, "cmd_unauthorized"))
		return
	}

	command := update.Message.Command()
	arg := strings.TrimSpace(update.Message.CommandArguments())

	var responseText string
	switch command {
	case "complaint", "block", "unblock":
		if arg == "" {
			a.reply(chatID, a.localizer.Format(a.lang, "cmd_usage", command))
			return
		}
	default:
		a.reply(chatID, a.localizer.GetString(a.lang, "cmd_unknown"))
		return
	}

	switch command {
	case "complaint":
		c, err := s.GetComplaint(ctx, arg)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			responseText = a.localizer.Format(a.lang, "cmd_not_found", escape(arg))
		case err != nil:
			a.log.Error().Err(err).Str("complaint", arg).Msg("command lookup failed")
			responseText = a.localizer.GetString(a.lang, "cmd_failed")
		default:
			assignee := c.AssignedTo
			if assignee == "" {
				assignee = a.localizer.GetString(a.lang, "cmd_unassigned")
			}
			responseText = a.localizer.Format(a.lang, "cmd_complaint",
				escape(c.Title), c.Status, escape(assignee), c.UpdatedAt.Format(time.RFC822))
		}
	case "block":
		if err := s.BlockUser(ctx, arg, 0); err != nil {
			a.log.Error().Err(err).Str("user", arg).Msg("block failed")
			responseText = a.localizer.GetString(a.lang, "cmd_failed")
		} else {
			a.log.Info().Str("user", arg).Msg("user blocked from telegram")
			responseText = a.localizer.Format(a.lang, "cmd_blocked", escape(arg))
		}
	case "unblock":
		if err := s.UnblockUser(ctx, arg); err != nil {
			a.log.Error().Err(err).Str("user", arg).Msg("unblock failed")
			responseText = a.localizer.GetString(a.lang, "cmd_failed")
		} else {
			responseText = a.localizer.Format(a.lang, "cmd_unblocked", escape(arg))
		}
	}

	a.reply(chatID, responseText)
}

func (a *Alerter) reply(chatID int64, text string) {
	if err := a.send(chatID, text); err != nil {
		a.log.Warn().Err(err).Msg("error sending command reply")
	}
}

// Run is the main loop for receiving Telegram updates. It returns when ctx
// is done. It needs a live bot, so it is a no-op for alerters built on a
// plain Sender.
func (a *Alerter) Run(ctx context.Context, s CommandStore) {
	if a.BotAPI == nil {
		return
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := a.BotAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.BotAPI.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			a.HandleCommand(ctx, &update, s)
		}
	}
}
