// Package report sends the periodic performance digest to the notification
// sink.
package report

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"signal-relay/internal/engine"
)

// Reporter pushes a performance summary on a fixed interval.
type Reporter struct {
	engine  *engine.Engine
	botName string
	every   time.Duration
}

// New builds a reporter. every <= 0 disables the periodic loop; SendNow
// still works.
func New(eng *engine.Engine, botName string, every time.Duration) *Reporter {
	return &Reporter{engine: eng, botName: botName, every: every}
}

// Run sends a digest every interval until the context is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	if r.every <= 0 {
		return
	}
	ticker := time.NewTicker(r.every)
	defer ticker.Stop()

	log.Printf("[REPORT] periodic digest every %s", r.every)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := r.SendNow(ctx)
			log.Printf("[REPORT] digest sent: telegram=%s", status)
		}
	}
}

// SendNow builds and broadcasts the digest immediately, returning the
// delivery status.
func (r *Reporter) SendNow(ctx context.Context) string {
	return r.engine.Broadcast(ctx, r.Summary())
}

// Summary renders the current statistics as Telegram-ready text.
func (r *Reporter) Summary() string {
	m := r.engine.Metrics()

	var b strings.Builder
	fmt.Fprintf(&b, "📈 %s — Performance Report\n\n", r.botName)
	fmt.Fprintf(&b, "Total: %s\n", bucketLine(m.Total))

	if len(m.ByAsset) > 0 {
		b.WriteString("\nBy asset:\n")
		for _, k := range sortedKeys(m.ByAsset) {
			fmt.Fprintf(&b, "  %s: %s\n", k, bucketLine(m.ByAsset[k]))
		}
	}
	if len(m.BySetup) > 0 {
		b.WriteString("\nBy setup:\n")
		for _, k := range sortedKeys(m.BySetup) {
			fmt.Fprintf(&b, "  %s: %s\n", k, bucketLine(m.BySetup[k]))
		}
	}

	if n := len(m.Window); n > 0 {
		wins := 0
		rsum := 0.0
		for _, o := range m.Window {
			if o.R > 0 {
				wins++
			}
			rsum += o.R
		}
		fmt.Fprintf(&b, "\nLast %d: %d wins, %+.1fR", n, wins, rsum)
	}
	return strings.TrimRight(b.String(), "\n")
}

func bucketLine(v engine.BucketView) string {
	if v.Trades == 0 {
		return "no trades yet"
	}
	return fmt.Sprintf("%d trades, %.0f%% wr, %+.1fR, exp %+.2f",
		v.Trades, v.WinRate, v.RSum, v.Expectancy)
}

func sortedKeys(m map[string]engine.BucketView) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
