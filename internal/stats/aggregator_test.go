package stats

import (
	"testing"
	"time"

	"signal-relay/internal/ledger"
)

func TestRecordUpdatesAllScopes(t *testing.T) {
	led := ledger.New(nil, 0, 0, 0)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	r, class := Record(led, "XAUUSD", "CORE", "TP1", now)
	if r != 1 || class != ledger.OutcomeWin {
		t.Fatalf("classified %v %s", r, class)
	}
	Record(led, "XAUUSD", "CORE", "SL", now)
	Record(led, "XAUUSD", "SWEEP", "TP3", now) // neutral
	Record(led, "BTCUSD", "CORE", "SL", now)

	doc := led.Document()
	total := doc.Perf.Total
	if total.Trades != 4 || total.Wins != 1 || total.Losses != 2 {
		t.Fatalf("total = %+v", total)
	}
	if total.RSum != -1 {
		t.Fatalf("total r_sum = %v, want -1", total.RSum)
	}

	gold := doc.Perf.ByAsset["XAUUSD"]
	if gold.Trades != 3 || gold.Wins != 1 || gold.Losses != 1 {
		t.Fatalf("by_asset XAUUSD = %+v", gold)
	}

	core := SetupBucket(doc, "XAUUSD", "CORE")
	if core.Trades != 2 || core.Wins != 1 || core.Losses != 1 || core.RSum != 0 {
		t.Fatalf("by_setup XAUUSD|CORE = %+v", core)
	}

	day := doc.Perf.Daily["2026-03-14"]
	if day.Trades != 4 {
		t.Fatalf("daily = %+v", day)
	}

	if len(doc.Window) != 4 {
		t.Fatalf("window length = %d", len(doc.Window))
	}
}

func TestBucketInvariants(t *testing.T) {
	led := ledger.New(nil, 0, 0, 0)
	now := time.Now()
	results := []string{"TP1", "SL", "TP2", "WIN", "LOSS", "BE", "TP", "SL"}
	for _, r := range results {
		Record(led, "XAUUSD", "CORE", r, now)
	}
	b := led.Document().Perf.Total
	if b.Wins+b.Losses > b.Trades {
		t.Fatalf("wins+losses %d exceeds trades %d", b.Wins+b.Losses, b.Trades)
	}
	if b.Trades != len(results) {
		t.Fatalf("trades = %d, want %d", b.Trades, len(results))
	}
}

func TestWindowBucket(t *testing.T) {
	led := ledger.New(nil, 0, 20, 0)
	now := time.Now()
	for i := 0; i < 3; i++ {
		Record(led, "XAUUSD", "CORE", "SL", now)
	}
	Record(led, "XAUUSD", "CORE", "TP1", now)

	w := WindowBucket(led.Document())
	if w.Trades != 4 || w.Wins != 1 || w.Losses != 3 {
		t.Fatalf("window bucket = %+v", w)
	}
	if w.RSum != -2 {
		t.Fatalf("window r_sum = %v", w.RSum)
	}
	if wr := w.WinRate(); wr != 25 {
		t.Fatalf("window win rate = %v", wr)
	}
}

func TestDerivedMetrics(t *testing.T) {
	var b ledger.Bucket
	if b.WinRate() != 0 || b.Expectancy() != 0 {
		t.Fatal("empty bucket must not divide by zero")
	}
	b = ledger.Bucket{Trades: 4, Wins: 3, Losses: 1, RSum: 2}
	if b.WinRate() != 75 {
		t.Fatalf("win rate = %v", b.WinRate())
	}
	if b.Expectancy() != 0.5 {
		t.Fatalf("expectancy = %v", b.Expectancy())
	}
}
