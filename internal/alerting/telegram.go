package alerting

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// TelegramConfig holds configuration for Telegram alerter.
type TelegramConfig struct {
	BotToken string
	ChatID   string
	Timeout  time.Duration
}

// messageSender is the part of tgbot.BotAPI the alerter needs.
type messageSender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// TelegramAlerter sends alerts via Telegram.
type TelegramAlerter struct {
	chatID int64
	bot    messageSender
	now    func() time.Time
}

// NewTelegramAlerter creates a new Telegram alerter. It contacts the Bot API
// once to validate the token.
func NewTelegramAlerter(cfg TelegramConfig) (*TelegramAlerter, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "telegram chat_id %q", cfg.ChatID)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	bot, err := tgbot.NewBotAPIWithClient(cfg.BotToken, tgbot.APIEndpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, errors.Wrap(err, "telegram bot")
	}
	return newTelegramAlerter(chatID, bot), nil
}

func newTelegramAlerter(chatID int64, bot messageSender) *TelegramAlerter {
	return &TelegramAlerter{chatID: chatID, bot: bot, now: time.Now}
}

// Name returns the name of the alerter.
func (t *TelegramAlerter) Name() string {
	return "telegram"
}

// Alert sends an alert via Telegram.
func (t *TelegramAlerter) Alert(ctx context.Context, severity Severity, message string, fields ...any) error {
	return t.send(ctx, t.formatMessage(severity, message, fields...))
}

func (t *TelegramAlerter) send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbot.NewMessage(t.chatID, text)
	msg.ParseMode = tgbot.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		return errors.Wrap(err, "telegram send")
	}
	return nil
}

// formatMessage formats the alert message for Telegram.
func (t *TelegramAlerter) formatMessage(severity Severity, message string, fields ...any) string {
	text := fmt.Sprintf("%s <b>[%s]</b>\n%s", severity.Emoji(), severity.String(), html.EscapeString(message))

	if len(fields) > 0 {
		fieldsStr := FormatFields(fields...)
		if fieldsStr != "" {
			text += "\n\n<b>Details:</b>\n" + html.EscapeString(fieldsStr)
		}
	}

	text += fmt.Sprintf("\n\n<i>%s</i>", t.now().Format("2006-01-02 15:04:05 MST"))

	return text
}

// SendBulkCloseSummary sends a formatted bulk close report.
func (t *TelegramAlerter) SendBulkCloseSummary(ctx context.Context, s BulkCloseSummary) error {
	return t.send(ctx, t.formatBulkCloseSummary(s))
}

func (t *TelegramAlerter) formatBulkCloseSummary(s BulkCloseSummary) string {
	emoji := "✅"
	switch {
	case s.Succeeded == 0 && s.Failed > 0:
		emoji = "🚨"
	case s.Failed > 0:
		emoji = "⚠️"
	}

	text := fmt.Sprintf(`%s <b>Bulk Close Report</b>
<b>Filter:</b> %s

<b>Positions:</b>
• Targeted: %d
• Closed: %d
• Failed: %d`,
		emoji,
		html.EscapeString(s.Filter),
		s.Targeted(),
		s.Succeeded,
		s.Failed,
	)

	if len(s.Failures) > 0 {
		text += "\n\n<b>Failures:</b>"
		for _, f := range s.Failures {
			text += fmt.Sprintf("\n• #%d %s: %s", f.Ticket, html.EscapeString(f.Symbol), html.EscapeString(f.Reason))
		}
	}

	return text
}
