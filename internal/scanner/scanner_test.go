package scanner

import (
	"context"
	"testing"
	"time"

	"signal-relay/internal/engine"
	"signal-relay/internal/event"
	"signal-relay/internal/ledger"
	"signal-relay/internal/risk"
)

type scriptedFeed struct {
	prices map[string][]float64
	idx    map[string]int
}

func (f *scriptedFeed) Quote(_ context.Context, asset string) (float64, error) {
	series := f.prices[asset]
	i := f.idx[asset]
	if i >= len(series) {
		i = len(series) - 1
	}
	f.idx[asset]++
	return series[i], nil
}

type silentNotifier struct{}

func (silentNotifier) Configured() bool                                         { return false }
func (silentNotifier) NotifyEntry(context.Context, ledger.Trade, float64) error { return nil }
func (silentNotifier) NotifyResolve(context.Context, ledger.Trade, string, float64, ledger.Bucket) error {
	return nil
}
func (silentNotifier) Broadcast(context.Context, string) error { return nil }

func newScannerEnv(t *testing.T, feed QuoteFeed) (*Scanner, *engine.Engine) {
	t.Helper()

	store := ledger.NewStore(t.TempDir() + "/state.json")
	doc, err := store.Load()
	if err != nil {
		t.Fatalf("store.Load: %v", err)
	}
	rules := risk.DefaultRules()
	eng := engine.New(engine.Options{
		WebhookSecret: "x",
		AllowedAssets: []string{"XAUUSD"},
		Ledger:        ledger.New(doc, 0, rules.BreakerWindow, 0),
		Store:         store,
		Governor:      risk.NewGovernor(rules),
		Notifier:      silentNotifier{},
	})
	sc := New(eng, feed, Options{
		Assets:    []string{"XAUUSD"},
		Interval:  time.Second,
		SignalGap: time.Minute,
		Lookback:  3,
		Threshold: 0.1,
	})
	return sc, eng
}

func TestScannerOpensOnMomentum(t *testing.T) {
	feed := &scriptedFeed{
		prices: map[string][]float64{
			// +0.25% over the lookback window, above the 0.1% threshold.
			"XAUUSD": {2000, 2002, 2005},
		},
		idx: map[string]int{},
	}
	sc, eng := newScannerEnv(t, feed)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		sc.scanOnce(ctx)
	}

	state := eng.State()
	trade, ok := state.Active["XAUUSD"]
	if !ok {
		t.Fatal("expected an open trade after sustained move")
	}
	if trade.Direction != "BUY" {
		t.Fatalf("direction = %s, want BUY", trade.Direction)
	}
	if trade.Setup != "MOMENTUM" {
		t.Fatalf("setup = %s, want MOMENTUM", trade.Setup)
	}
	if trade.StopLoss >= trade.Entry || trade.TP1 <= trade.Entry {
		t.Fatalf("levels inverted: entry=%v sl=%v tp1=%v", trade.Entry, trade.StopLoss, trade.TP1)
	}
}

func TestScannerFlatMarketStaysOut(t *testing.T) {
	feed := &scriptedFeed{
		prices: map[string][]float64{
			"XAUUSD": {2000, 2000.2, 2000.1, 2000.3},
		},
		idx: map[string]int{},
	}
	sc, eng := newScannerEnv(t, feed)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		sc.scanOnce(ctx)
	}

	if len(eng.State().Active) != 0 {
		t.Fatal("flat market must not open trades")
	}
}

func TestScannerResolvesAtTarget(t *testing.T) {
	feed := &scriptedFeed{
		prices: map[string][]float64{"XAUUSD": {2000}},
		idx:    map[string]int{},
	}
	sc, eng := newScannerEnv(t, feed)
	ctx := context.Background()

	if _, err := eng.Apply(ctx, event.Event{
		Type: event.TypeEntry, TradeID: "T-1", Asset: "XAUUSD", Direction: "BUY",
		Entry: 2000, StopLoss: 1995, TP1: 2006, TP2: 2012,
		HasEntry: true, HasSL: true, HasTP1: true, HasTP2: true,
		Setup: "CORE", Session: "ALL",
	}); err != nil {
		t.Fatalf("open: %v", err)
	}

	sc.observe(ctx, "XAUUSD", 2007)

	state := eng.State()
	if len(state.Active) != 0 {
		t.Fatal("trade should be resolved after crossing tp1")
	}
	m := eng.Metrics()
	if m.Total.Trades != 1 || m.Total.Wins != 1 {
		t.Fatalf("total = %+v, want one win", m.Total)
	}
}

func TestScannerResolvesAtStop(t *testing.T) {
	feed := &scriptedFeed{
		prices: map[string][]float64{"XAUUSD": {2000}},
		idx:    map[string]int{},
	}
	sc, eng := newScannerEnv(t, feed)
	ctx := context.Background()

	if _, err := eng.Apply(ctx, event.Event{
		Type: event.TypeEntry, TradeID: "T-1", Asset: "XAUUSD", Direction: "SELL",
		Entry: 2000, StopLoss: 2005, TP1: 1994, TP2: 1988,
		HasEntry: true, HasSL: true, HasTP1: true, HasTP2: true,
		Setup: "CORE", Session: "ALL",
	}); err != nil {
		t.Fatalf("open: %v", err)
	}

	sc.observe(ctx, "XAUUSD", 2006)

	m := eng.Metrics()
	if m.Total.Trades != 1 || m.Total.Losses != 1 {
		t.Fatalf("total = %+v, want one loss", m.Total)
	}
}

func TestScannerSignalGap(t *testing.T) {
	feed := &scriptedFeed{
		prices: map[string][]float64{
			"XAUUSD": {2000, 2002, 2005, 2007, 2008},
		},
		idx: map[string]int{},
	}
	sc, eng := newScannerEnv(t, feed)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		sc.scanOnce(ctx)
	}

	// One trade opened; later samples within the gap (and while a trade is
	// active) must not stack a second signal timestamp.
	if len(sc.lastSignal) != 1 {
		t.Fatalf("lastSignal entries = %d, want 1", len(sc.lastSignal))
	}
	if len(eng.State().Active) != 1 {
		t.Fatal("expected exactly one active trade")
	}
}
