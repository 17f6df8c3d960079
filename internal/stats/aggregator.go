// Package stats maintains running trade-outcome statistics. Buckets are
// lazily initialized and only ever incremented; administrative reset is the
// sole way to shrink them.
package stats

import (
	"time"

	"signal-relay/internal/ledger"
)

// Record applies one resolved trade to every bucket scope (global, per-asset,
// per-setup, per-day) and the rolling outcome window. Called exactly once per
// successful RESOLVE; idempotency is the caller's dedupe responsibility.
func Record(led *ledger.Ledger, asset, setup, result string, now time.Time) (float64, string) {
	r, class := ledger.ClassifyResult(result)
	doc := led.Document()

	doc.Perf.Total = bump(doc.Perf.Total, class, r)
	doc.Perf.ByAsset[asset] = bump(doc.Perf.ByAsset[asset], class, r)
	doc.Perf.BySetup[ledger.SetupKey(asset, setup)] = bump(doc.Perf.BySetup[ledger.SetupKey(asset, setup)], class, r)
	doc.Perf.Daily[ledger.DayKey(now)] = bump(doc.Perf.Daily[ledger.DayKey(now)], class, r)

	led.AppendOutcome(ledger.Outcome{Asset: asset, Setup: setup, Result: class, R: r})
	return r, class
}

func bump(b ledger.Bucket, class string, r float64) ledger.Bucket {
	b.Trades++
	switch class {
	case ledger.OutcomeWin:
		b.Wins++
	case ledger.OutcomeLoss:
		b.Losses++
	}
	b.RSum += r
	return b
}

// SetupBucket returns the bucket for an (asset, setup) pair, zero when unseen.
func SetupBucket(doc *ledger.Document, asset, setup string) ledger.Bucket {
	return doc.Perf.BySetup[ledger.SetupKey(asset, setup)]
}

// WindowBucket folds the rolling outcome window into a single bucket for the
// circuit breaker's win-rate and cumulative-R checks.
func WindowBucket(doc *ledger.Document) ledger.Bucket {
	var b ledger.Bucket
	for _, o := range doc.Window {
		b = bump(b, o.Result, o.R)
	}
	return b
}
