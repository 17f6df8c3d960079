package risk

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"signal-relay/internal/ledger"
	"signal-relay/internal/stats"
)

func testRules() Rules {
	r := DefaultRules()
	r.BreakerMinTrades = 4
	r.SetupMinTrades = 3
	return r
}

func TestGateLowConfidence(t *testing.T) {
	g := NewGovernor(testRules())
	led := ledger.New(nil, 0, 0, 0)
	now := time.Now()

	if reason := g.GateEntry(led.Document(), "XAUUSD", "CORE", 10, true, now); reason != ReasonLowConfidence {
		t.Fatalf("reason = %q, want low_confidence", reason)
	}
	if reason := g.GateEntry(led.Document(), "XAUUSD", "CORE", 90, true, now); reason != "" {
		t.Fatalf("high confidence rejected: %q", reason)
	}
	// Confidence is advisory; absent means not gated.
	if reason := g.GateEntry(led.Document(), "XAUUSD", "CORE", 0, false, now); reason != "" {
		t.Fatalf("absent confidence rejected: %q", reason)
	}
}

func TestBreakerTriggersOnLosingWindow(t *testing.T) {
	g := NewGovernor(testRules())
	led := ledger.New(nil, 0, 10, 0)
	now := time.Now()

	for i := 0; i < 4; i++ {
		stats.Record(led, "XAUUSD", "CORE", "SL", now)
	}
	froze, _ := g.Reevaluate(led.Document(), "XAUUSD", "CORE", now)
	if !froze {
		t.Fatal("breaker should freeze on an all-loss window")
	}

	// Every asset is rejected while frozen.
	if reason := g.GateEntry(led.Document(), "BTCUSD", "CORE", 90, true, now); reason != ReasonBreakerFrozen {
		t.Fatalf("reason = %q, want circuit_breaker_frozen", reason)
	}

	// The freeze lapses naturally.
	after := now.Add(time.Duration(g.Rules().BreakerCooldownMin)*time.Minute + time.Second)
	if reason := g.GateEntry(led.Document(), "BTCUSD", "CORE", 90, true, after); reason != "" {
		t.Fatalf("entry rejected after freeze expiry: %q", reason)
	}
	if led.Document().CB.FrozenUntil != nil {
		t.Fatal("lapsed freeze should be cleared")
	}
}

func TestBreakerDoesNotExtendWhileFrozen(t *testing.T) {
	g := NewGovernor(testRules())
	led := ledger.New(nil, 0, 10, 0)
	now := time.Now()

	for i := 0; i < 4; i++ {
		stats.Record(led, "XAUUSD", "CORE", "SL", now)
	}
	g.Reevaluate(led.Document(), "XAUUSD", "CORE", now)
	first := *led.Document().CB.FrozenUntil

	// More losses while frozen must not push the expiry out.
	stats.Record(led, "XAUUSD", "CORE", "SL", now)
	g.Reevaluate(led.Document(), "XAUUSD", "CORE", now.Add(time.Minute))
	if !led.Document().CB.FrozenUntil.Equal(first) {
		t.Fatalf("freeze extended from %v to %v", first, led.Document().CB.FrozenUntil)
	}
}

func TestBreakerRFloor(t *testing.T) {
	rules := testRules()
	rules.BreakerMinWinRate = 0 // isolate the R floor condition
	rules.BreakerRFloor = -3
	g := NewGovernor(rules)
	led := ledger.New(nil, 0, 10, 0)
	now := time.Now()

	for i := 0; i < 3; i++ {
		stats.Record(led, "XAUUSD", "CORE", "SL", now)
	}
	if froze, _ := g.Reevaluate(led.Document(), "XAUUSD", "CORE", now); froze {
		t.Fatal("frozen below the minimum trade count")
	}
	stats.Record(led, "XAUUSD", "CORE", "SL", now)
	if froze, _ := g.Reevaluate(led.Document(), "XAUUSD", "CORE", now); !froze {
		t.Fatal("cumulative -4R should trip the floor")
	}
}

func TestSetupAutoDisableScopedToPair(t *testing.T) {
	g := NewGovernor(testRules())
	led := ledger.New(nil, 0, 60, 0)
	now := time.Now()

	// XAUUSD|SWEEP loses; other pairs stay healthy.
	for i := 0; i < 3; i++ {
		stats.Record(led, "XAUUSD", "SWEEP", "SL", now)
	}
	_, disabled := g.Reevaluate(led.Document(), "XAUUSD", "SWEEP", now)
	if !disabled {
		t.Fatal("losing setup should be disabled")
	}

	doc := led.Document()
	if reason := g.GateEntry(doc, "XAUUSD", "SWEEP", 90, true, now); reason != ReasonSetupDisabled {
		t.Fatalf("reason = %q, want setup_disabled", reason)
	}
	if reason := g.GateEntry(doc, "XAUUSD", "CORE", 90, true, now); reason != "" {
		t.Fatalf("other setup affected: %q", reason)
	}
	if reason := g.GateEntry(doc, "BTCUSD", "SWEEP", 90, true, now); reason != "" {
		t.Fatalf("other asset affected: %q", reason)
	}

	// Lazy expiry prunes the registry at read.
	after := now.Add(time.Duration(g.Rules().SetupCooldownMin)*time.Minute + time.Second)
	if reason := g.GateEntry(doc, "XAUUSD", "SWEEP", 90, true, after); reason != "" {
		t.Fatalf("setup still disabled after cooldown: %q", reason)
	}
	if _, ok := doc.DisabledSetups["XAUUSD|SWEEP"]; ok {
		t.Fatal("expired entry should be pruned")
	}
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.yaml")
	content := "min_confidence: 70\nbreaker_cooldown_min: 30\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if rules.MinConfidence != 70 || rules.BreakerCooldownMin != 30 {
		t.Fatalf("overrides not applied: %+v", rules)
	}
	// Unset fields keep defaults.
	if rules.SetupMinTrades != DefaultRules().SetupMinTrades {
		t.Fatalf("defaults lost: %+v", rules)
	}

	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing explicit rule file should error")
	}
	if rules, err := LoadRules(""); err != nil || rules != DefaultRules() {
		t.Fatalf("empty path should return defaults, got %+v err=%v", rules, err)
	}
}
