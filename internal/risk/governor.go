// Package risk implements the admission governor: a feedback loop that
// throttles new entries when the system's own recent track record is poor.
// The signal generator is untrusted and noisy, so the service applies
// backpressure to itself instead of trusting every alert.
package risk

import (
	"log"
	"time"

	"signal-relay/internal/ledger"
	"signal-relay/internal/stats"
)

// Gate rejection reasons, returned to the event source verbatim.
const (
	ReasonLowConfidence = "low_confidence"
	ReasonBreakerFrozen = "circuit_breaker_frozen"
	ReasonSetupDisabled = "setup_disabled"
)

// Governor evaluates ENTRY admission against the ledger document. It holds
// no state of its own; freeze and disable expiries live in the document so
// they survive restarts.
type Governor struct {
	rules Rules
}

// NewGovernor creates a governor with the given thresholds.
func NewGovernor(rules Rules) *Governor {
	return &Governor{rules: rules}
}

// Rules returns the active thresholds.
func (g *Governor) Rules() Rules { return g.rules }

// GateEntry decides whether a new entry may proceed. Returns "" when
// admitted, otherwise the rejection reason. Checked before the ledger's
// occupancy check; any gate rejecting short-circuits.
func (g *Governor) GateEntry(doc *ledger.Document, asset, setup string, confidence int, hasConfidence bool, now time.Time) string {
	if hasConfidence && confidence < g.rules.MinConfidence {
		return ReasonLowConfidence
	}

	if doc.CB.Frozen(now) {
		return ReasonBreakerFrozen
	}
	if doc.CB.FrozenUntil != nil && !now.Before(*doc.CB.FrozenUntil) {
		// Freeze lapsed; clear it so re-evaluation starts clean.
		doc.CB.FrozenUntil = nil
	}

	key := ledger.SetupKey(asset, setup)
	if until, ok := doc.DisabledSetups[key]; ok {
		if now.Before(until) {
			return ReasonSetupDisabled
		}
		delete(doc.DisabledSetups, key) // lazy expiry
	}
	return ""
}

// Reevaluate runs both gates' trigger conditions against freshly updated
// buckets. Called after every resolve. Returns whether this call froze the
// breaker or disabled the setup, for logging and notification.
func (g *Governor) Reevaluate(doc *ledger.Document, asset, setup string, now time.Time) (froze, disabled bool) {
	// The breaker never re-triggers while already frozen; it is re-evaluated
	// only after the freeze naturally expires.
	if !doc.CB.Frozen(now) {
		w := stats.WindowBucket(doc)
		if w.Trades >= g.rules.BreakerMinTrades &&
			(w.WinRate() < g.rules.BreakerMinWinRate || w.RSum <= g.rules.BreakerRFloor) {
			until := now.Add(time.Duration(g.rules.BreakerCooldownMin) * time.Minute)
			doc.CB.FrozenUntil = &until
			froze = true
			log.Printf("[RISK] circuit breaker frozen until %s (window: %d trades, %.1f%% wr, %.1fR)",
				until.UTC().Format(time.RFC3339), w.Trades, w.WinRate(), w.RSum)
		}
	}

	b := stats.SetupBucket(doc, asset, setup)
	if b.Trades >= g.rules.SetupMinTrades && b.WinRate() < g.rules.SetupMinWinRate {
		key := ledger.SetupKey(asset, setup)
		until := now.Add(time.Duration(g.rules.SetupCooldownMin) * time.Minute)
		doc.DisabledSetups[key] = until
		disabled = true
		log.Printf("[RISK] setup %s disabled until %s (%d trades, %.1f%% wr)",
			key, until.UTC().Format(time.RFC3339), b.Trades, b.WinRate())
	}
	return froze, disabled
}
