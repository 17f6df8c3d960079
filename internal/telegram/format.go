package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"signal-relay/internal/ledger"
)

// FormatPrice renders a price with at most 5 decimal places, trailing zeros
// trimmed, never scientific notation.
func FormatPrice(v float64) string {
	s := strconv.FormatFloat(v, 'f', 5, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

func directionEmoji(direction string) string {
	switch direction {
	case "BUY":
		return "🟢"
	case "SELL":
		return "🔴"
	}
	return "🟡"
}

// EntryMessage renders the notification for a newly opened trade.
func EntryMessage(botName string, t ledger.Trade, setupWinRate float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🤖 %s\n\n", botName)
	fmt.Fprintf(&b, "%s %s %s\n", directionEmoji(t.Direction), t.Direction, t.Asset)
	fmt.Fprintf(&b, "💰 Entry: %s\n", FormatPrice(t.Entry))
	fmt.Fprintf(&b, "🛡 SL: %s\n", FormatPrice(t.StopLoss))

	targets := []string{FormatPrice(t.TP1), FormatPrice(t.TP2)}
	if t.TP3 > 0 {
		targets = append(targets, FormatPrice(t.TP3))
	}
	fmt.Fprintf(&b, "🎯 Targets: %s\n", strings.Join(targets, " | "))

	fmt.Fprintf(&b, "📋 Setup: %s", t.Setup)
	if setupWinRate > 0 {
		fmt.Fprintf(&b, " (%.0f%% wr)", setupWinRate)
	}
	b.WriteString("\n")
	if t.Session != "" {
		fmt.Fprintf(&b, "🕐 Session: %s\n", t.Session)
	}
	if t.Bias != "" {
		fmt.Fprintf(&b, "🧭 Bias: %s\n", t.Bias)
	}
	if t.Confidence > 0 {
		fmt.Fprintf(&b, "📊 Confidence: %d%%\n", t.Confidence)
	}
	fmt.Fprintf(&b, "\n🆔 %s\n", t.TradeID)
	fmt.Fprintf(&b, "🕒 %s", t.OpenedAt.UTC().Format("2006-01-02 15:04:05"))
	return b.String()
}

// ResolveMessage renders the notification for a closed trade.
func ResolveMessage(botName string, t ledger.Trade, result string, r float64, total ledger.Bucket) string {
	emoji := "🟡"
	switch {
	case r > 0:
		emoji = "✅"
	case r < 0:
		emoji = "❌"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🤖 %s\n\n", botName)
	fmt.Fprintf(&b, "%s %s closed: %s\n", emoji, t.Asset, result)
	fmt.Fprintf(&b, "📈 R: %+.1f\n", r)
	fmt.Fprintf(&b, "📊 Record: %d trades, %.0f%% wr, %+.1fR\n", total.Trades, total.WinRate(), total.RSum)
	fmt.Fprintf(&b, "\n🆔 %s\n", t.TradeID)
	fmt.Fprintf(&b, "🕒 %s", time.Now().UTC().Format("2006-01-02 15:04:05"))
	return b.String()
}
