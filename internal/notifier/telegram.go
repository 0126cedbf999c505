// Package notifier pushes monitor updates to external channels.
package notifier

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/wen-tracker-go/internal/models"
)

// Telegram sends a chat message whenever the WEN count rises between cycles
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *logrus.Logger
}

// NewTelegram creates a Telegram notifier
func NewTelegram(token string, chatID int64, logger *logrus.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.WithField("username", bot.Self.UserName).Info("Telegram notifier authorized")

	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: logger,
	}, nil
}

// NotifyIncrease reports a count increase with the newest matching message
func (t *Telegram) NotifyIncrease(ctx context.Context, previous, current int, summary *models.AnalysisSummary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "WEN count up: %d -> %d\n", previous, current)
	fmt.Fprintf(&b, "%d of %d messages contain WEN\n", summary.MessagesWithMatch, summary.TotalMessagesSeen)

	if len(summary.Matches) > 0 {
		newest := summary.Matches[0]
		fmt.Fprintf(&b, "Latest from @%s: %s", newest.Message.SenderName(),
			strings.Join(newest.MatchedSubstrings, ", "))
	}

	msg := tgbotapi.NewMessage(t.chatID, b.String())
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}

	t.logger.WithFields(logrus.Fields{
		"previous": previous,
		"current":  current,
	}).Debug("Sent count increase notification")

	return nil
}
