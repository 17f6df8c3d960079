// Package scanner is the polling ingress: instead of waiting for alerts it
// samples a quote feed, derives momentum entries, and feeds synthetic events
// into the same pipeline the webhook uses.
package scanner

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"signal-relay/internal/engine"
	"signal-relay/internal/event"
)

// QuoteFeed supplies the latest quote for an asset.
type QuoteFeed interface {
	Quote(ctx context.Context, asset string) (float64, error)
}

// Options configures a Scanner.
type Options struct {
	Assets    []string
	Interval  time.Duration // poll interval, jittered ±10%
	SignalGap time.Duration // minimum spacing between entries per asset

	// Lookback is how many samples momentum is measured over.
	Lookback int
	// Threshold is the absolute percent move over the lookback that
	// triggers an entry.
	Threshold float64
	// FeedRate caps quote requests per second across all assets.
	FeedRate rate.Limit
}

// Scanner polls quotes and turns sustained moves into synthetic trade events.
type Scanner struct {
	engine    *engine.Engine
	feed      QuoteFeed
	assets    []string
	interval  time.Duration
	signalGap time.Duration
	lookback  int
	threshold float64
	limiter   *rate.Limiter

	history    map[string][]float64
	lastSignal map[string]time.Time
	now        func() time.Time
}

// New builds a scanner. Zero options fall back to conservative defaults.
func New(eng *engine.Engine, feed QuoteFeed, opts Options) *Scanner {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.SignalGap <= 0 {
		opts.SignalGap = 30 * time.Minute
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 20
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 0.35
	}
	if opts.FeedRate <= 0 {
		opts.FeedRate = 5
	}
	return &Scanner{
		engine:     eng,
		feed:       feed,
		assets:     opts.Assets,
		interval:   opts.Interval,
		signalGap:  opts.SignalGap,
		lookback:   opts.Lookback,
		threshold:  opts.Threshold,
		limiter:    rate.NewLimiter(opts.FeedRate, 1),
		history:    make(map[string][]float64),
		lastSignal: make(map[string]time.Time),
		now:        time.Now,
	}
}

// Run polls until the context is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	log.Printf("[SCANNER] polling %d assets every %s", len(s.assets), s.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(jitter(s.interval)):
			s.scanOnce(ctx)
		}
	}
}

// jitter spreads poll timing ±10% so restarts do not phase-lock against the
// feed's own rate limits.
func jitter(d time.Duration) time.Duration {
	spread := int64(d / 10)
	if spread == 0 {
		return d
	}
	return d + time.Duration(rand.Int63n(2*spread)-spread)
}

func (s *Scanner) scanOnce(ctx context.Context) {
	for _, asset := range s.assets {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		price, err := s.feed.Quote(ctx, asset)
		if err != nil {
			log.Printf("[SCANNER] quote %s failed: %v", asset, err)
			continue
		}
		if price <= 0 {
			continue
		}
		s.observe(ctx, asset, price)
	}
}

// observe records one sample and emits whatever events it implies: a price
// note, a resolve when the active trade hit a level, or a fresh entry.
func (s *Scanner) observe(ctx context.Context, asset string, price float64) {
	s.apply(ctx, event.Event{
		Type: event.TypePrice, Asset: asset, Price: price, HasPrice: true,
	})

	if s.resolveActive(ctx, asset, price) {
		return
	}

	hist := append(s.history[asset], price)
	if len(hist) > s.lookback {
		hist = hist[len(hist)-s.lookback:]
	}
	s.history[asset] = hist
	if len(hist) < s.lookback {
		return
	}

	movePct := (price - hist[0]) / hist[0] * 100
	if movePct < s.threshold && movePct > -s.threshold {
		return
	}

	now := s.now()
	if last, ok := s.lastSignal[asset]; ok && now.Sub(last) < s.signalGap {
		return
	}

	ev := s.entrySignal(asset, price, movePct, hist)
	out, err := s.apply(ctx, ev)
	if err != nil {
		log.Printf("[SCANNER] entry %s rejected: %v", asset, err)
		return
	}
	if out != nil && !out.Ignored {
		s.lastSignal[asset] = now
		log.Printf("[SCANNER] signal %s %s move=%.2f%%", ev.Direction, asset, movePct)
	}
}

// entrySignal derives trade levels from the observed move: the stop sits one
// lookback-range behind the entry, targets at 1R/2R ahead.
func (s *Scanner) entrySignal(asset string, price, movePct float64, hist []float64) event.Event {
	lo, hi := hist[0], hist[0]
	for _, p := range hist {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	risk := hi - lo
	if risk <= 0 {
		risk = price * s.threshold / 100
	}

	direction := "BUY"
	sl := price - risk
	tp1 := price + risk
	tp2 := price + 2*risk
	if movePct < 0 {
		direction = "SELL"
		sl = price + risk
		tp1 = price - risk
		tp2 = price - 2*risk
	}

	confidence := 55 + int(minFloat(40, absFloat(movePct)/s.threshold*10))

	return event.Event{
		Type:          event.TypeEntry,
		TradeID:       "SCAN-" + uuid.NewString()[:8],
		Asset:         asset,
		Direction:     direction,
		Entry:         price,
		StopLoss:      sl,
		TP1:           tp1,
		TP2:           tp2,
		HasEntry:      true,
		HasSL:         true,
		HasTP1:        true,
		HasTP2:        true,
		Setup:         "MOMENTUM",
		Session:       "ALL",
		Confidence:    confidence,
		HasConfidence: true,
	}
}

// resolveActive closes the open trade when price crosses its stop or first
// target. Returns true when a resolve was emitted.
func (s *Scanner) resolveActive(ctx context.Context, asset string, price float64) bool {
	state := s.engine.State()
	trade, ok := state.Active[asset]
	if !ok {
		return false
	}

	var result string
	switch trade.Direction {
	case "BUY":
		switch {
		case price <= trade.StopLoss:
			result = "SL"
		case price >= trade.TP1:
			result = "TP1"
		}
	case "SELL":
		switch {
		case price >= trade.StopLoss:
			result = "SL"
		case price <= trade.TP1:
			result = "TP1"
		}
	}
	if result == "" {
		return false
	}

	_, err := s.apply(ctx, event.Event{
		Type:    event.TypeResolve,
		TradeID: trade.TradeID,
		Asset:   asset,
		Result:  result,
	})
	if err != nil {
		log.Printf("[SCANNER] resolve %s failed: %v", asset, err)
		return false
	}
	log.Printf("[SCANNER] resolved %s id=%s result=%s at %v", asset, trade.TradeID, result, price)
	return true
}

func (s *Scanner) apply(ctx context.Context, ev event.Event) (*engine.Outcome, error) {
	out, err := s.engine.Apply(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", ev.Type, err)
	}
	return out, nil
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
