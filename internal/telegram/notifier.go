// Package telegram is the outbound notification sink. Delivery is
// fire-and-forget: no retries, and a failure is reported to the caller as an
// error that the engine downgrades to a response flag.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"signal-relay/internal/ledger"
)

// Notifier sends formatted trade notifications to one Telegram chat.
type Notifier struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	botName string
}

// NewNotifier creates a notifier. With an empty token or chat ID it returns
// an unconfigured notifier that reports Configured() == false instead of an
// error, so the relay still runs without Telegram wired up.
func NewNotifier(token string, chatID int64, botName string) (*Notifier, error) {
	n := &Notifier{chatID: chatID, botName: botName}
	if token == "" || chatID == 0 {
		return n, nil
	}

	client := &http.Client{Timeout: 20 * time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	n.api = api
	return n, nil
}

// Configured reports whether messages can actually be delivered.
func (n *Notifier) Configured() bool {
	return n.api != nil && n.chatID != 0
}

// NotifyEntry sends the new-trade notification.
func (n *Notifier) NotifyEntry(ctx context.Context, t ledger.Trade, setupWinRate float64) error {
	return n.send(ctx, EntryMessage(n.botName, t, setupWinRate))
}

// NotifyResolve sends the trade-closed notification.
func (n *Notifier) NotifyResolve(ctx context.Context, t ledger.Trade, result string, r float64, total ledger.Bucket) error {
	return n.send(ctx, ResolveMessage(n.botName, t, result, r, total))
}

// Broadcast sends freeform text.
func (n *Notifier) Broadcast(ctx context.Context, text string) error {
	return n.send(ctx, "🤖 "+n.botName+"\n\n"+text)
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if !n.Configured() {
		return fmt.Errorf("telegram not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
