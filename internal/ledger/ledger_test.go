package ledger

import (
	"os"
	"testing"
	"time"
)

func testTrade(asset, id string) Trade {
	return Trade{
		TradeID:   id,
		Asset:     asset,
		Direction: "BUY",
		Entry:     2000,
		StopLoss:  1995,
		TP1:       2006,
		TP2:       2012,
		Setup:     "CORE",
		Session:   "ALL",
		OpenedAt:  time.Now(),
	}
}

func TestOpenOccupiedSlotIgnored(t *testing.T) {
	l := New(nil, 0, 0, 0)

	if !l.Open(testTrade("XAUUSD", "T-1")) {
		t.Fatal("first entry should open")
	}
	if l.Open(testTrade("XAUUSD", "T-2")) {
		t.Fatal("second entry must be ignored while a trade is active")
	}
	if got := l.ActiveTrade("XAUUSD"); got == nil || got.TradeID != "T-1" {
		t.Fatalf("active trade = %+v, want T-1", got)
	}
	// Another asset is unaffected.
	if !l.Open(testTrade("BTCUSD", "T-3")) {
		t.Fatal("other asset slot should be free")
	}
}

func TestResolveLifecycle(t *testing.T) {
	l := New(nil, 0, 0, 0)
	l.Open(testTrade("XAUUSD", "T-1"))

	trade, status := l.Resolve("XAUUSD", "T-1", "TP1", time.Now())
	if status != Resolved {
		t.Fatalf("status = %v, want Resolved", status)
	}
	if trade.Status != StatusResolved {
		t.Fatalf("trade status = %s", trade.Status)
	}
	if l.ActiveTrade("XAUUSD") != nil {
		t.Fatal("asset slot should be free after resolve")
	}
}

func TestResolveNoActiveTrade(t *testing.T) {
	l := New(nil, 0, 0, 0)
	if _, status := l.Resolve("XAUUSD", "T-404", "TP1", time.Now()); status != NoActiveTrade {
		t.Fatalf("status = %v, want NoActiveTrade", status)
	}
}

func TestResolveTradeIDMismatchLeavesState(t *testing.T) {
	l := New(nil, 0, 0, 0)
	l.Open(testTrade("XAUUSD", "T-1"))

	if _, status := l.Resolve("XAUUSD", "T-STALE", "SL", time.Now()); status != TradeIDMismatch {
		t.Fatalf("status = %v, want TradeIDMismatch", status)
	}
	if got := l.ActiveTrade("XAUUSD"); got == nil || got.TradeID != "T-1" {
		t.Fatal("mismatched resolve must not mutate the slot")
	}
}

func TestClassifyResult(t *testing.T) {
	cases := []struct {
		result string
		r      float64
		class  string
	}{
		{"TP1", 1, OutcomeWin},
		{"win", 1, OutcomeWin},
		{"TP", 1, OutcomeWin},
		{"SL", -1, OutcomeLoss},
		{"loss", -1, OutcomeLoss},
		{"TP2", 0, OutcomeNeutral},
		{"TP3", 0, OutcomeNeutral},
		{"BE", 0, OutcomeNeutral},
	}
	for _, c := range cases {
		r, class := ClassifyResult(c.result)
		if r != c.r || class != c.class {
			t.Errorf("ClassifyResult(%q) = %v,%s want %v,%s", c.result, r, class, c.r, c.class)
		}
	}
}

func TestHistoryBounded(t *testing.T) {
	l := New(nil, 5, 0, 0)
	for i := 0; i < 12; i++ {
		l.AppendHistory(HistoryRecord{Type: "ENTRY", Time: time.Now()})
	}
	if n := len(l.Document().History); n != 5 {
		t.Fatalf("history length = %d, want 5", n)
	}
}

func TestWindowTrimmedOnAppend(t *testing.T) {
	l := New(nil, 0, 3, 0)
	for i := 0; i < 7; i++ {
		l.AppendOutcome(Outcome{Asset: "XAUUSD", Setup: "CORE", Result: "SL", R: -1})
	}
	if n := len(l.Document().Window); n != 3 {
		t.Fatalf("window length = %d, want 3", n)
	}
}

func TestDedupeFIFO(t *testing.T) {
	l := New(nil, 0, 0, 3)
	for _, k := range []string{"a", "b", "c", "d"} {
		l.MarkSeen(k)
	}
	if l.SeenEvent("a") {
		t.Fatal("oldest key should have been evicted")
	}
	for _, k := range []string{"b", "c", "d"} {
		if !l.SeenEvent(k) {
			t.Fatalf("key %s should still be present", k)
		}
	}
}

func TestResetActiveKeepsStats(t *testing.T) {
	l := New(nil, 0, 0, 0)
	l.Open(testTrade("XAUUSD", "T-1"))
	l.Document().Perf.Total = Bucket{Trades: 4, Wins: 2, Losses: 2}

	if n := l.ResetActive(); n != 1 {
		t.Fatalf("reset cleared %d trades, want 1", n)
	}
	if l.Document().Perf.Total.Trades != 4 {
		t.Fatal("reset of active trades must not touch performance buckets")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/state.json"
	store := NewStore(path)

	doc, err := store.Load()
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}

	l := New(doc, 0, 0, 0)
	l.Open(testTrade("XAUUSD", "T-1"))
	l.MarkSeen("XAUUSD|ENTRY|T-1|")
	now := time.Now().Add(30 * time.Minute).UTC()
	l.Document().CB.FrozenUntil = &now
	l.Document().DisabledSetups["XAUUSD|CORE"] = now

	if err := store.Save(l.Document()); err != nil {
		t.Fatalf("save: %v", err)
	}

	back, err := store.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	trade, ok := back.Active["XAUUSD"]
	if !ok || trade.TradeID != "T-1" || trade.Status != StatusActive {
		t.Fatalf("reloaded trade = %+v", trade)
	}
	if !back.Dedupe.Contains("XAUUSD|ENTRY|T-1|") {
		t.Fatal("dedupe set lost")
	}
	if back.CB.FrozenUntil == nil || !back.CB.FrozenUntil.Equal(now) {
		t.Fatalf("frozen_until lost: %v", back.CB.FrozenUntil)
	}
	if _, ok := back.DisabledSetups["XAUUSD|CORE"]; !ok {
		t.Fatal("disabled setups lost")
	}
}

func TestStoreLoadCorruptFile(t *testing.T) {
	path := t.TempDir() + "/state.json"
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(path).Load(); err == nil {
		t.Fatal("corrupt state must surface an error")
	}
}

func TestCircuitStateFrozen(t *testing.T) {
	var cb CircuitState
	now := time.Now()
	if cb.Frozen(now) {
		t.Fatal("empty state should not be frozen")
	}
	until := now.Add(time.Minute)
	cb.FrozenUntil = &until
	if !cb.Frozen(now) {
		t.Fatal("future expiry should freeze")
	}
	if cb.Frozen(until.Add(time.Second)) {
		t.Fatal("freeze must lapse after expiry")
	}
}
