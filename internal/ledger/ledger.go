package ledger

import (
	"strings"
	"time"
)

// ResolveStatus describes the outcome of a RESOLVE transition.
type ResolveStatus int

const (
	Resolved ResolveStatus = iota
	NoActiveTrade
	TradeIDMismatch
)

// Ledger owns the state document and applies the per-asset trade state
// machine: NONE -> ACTIVE on a valid ENTRY, ACTIVE -> NONE on a matching
// RESOLVE, everything else a no-op. It is not goroutine-safe; the engine
// serializes access.
type Ledger struct {
	doc          *Document
	historyLimit int
	windowLimit  int
	dedupeLimit  int
}

// New wraps a loaded document. Zero limits fall back to sane bounds.
func New(doc *Document, historyLimit, windowLimit, dedupeLimit int) *Ledger {
	if doc == nil {
		doc = NewDocument()
	}
	doc.normalize()
	if historyLimit <= 0 {
		historyLimit = 600
	}
	if windowLimit <= 0 {
		windowLimit = 10
	}
	if dedupeLimit <= 0 {
		dedupeLimit = 400
	}
	return &Ledger{doc: doc, historyLimit: historyLimit, windowLimit: windowLimit, dedupeLimit: dedupeLimit}
}

// Document exposes the underlying state for persistence and read endpoints.
func (l *Ledger) Document() *Document { return l.doc }

// ActiveTrade returns the open trade for an asset, nil when the slot is free.
func (l *Ledger) ActiveTrade(asset string) *Trade {
	return l.doc.Active[asset]
}

// Open places a trade in the asset slot. Returns false without mutation when
// a trade is already active; the incoming entry is neither queued nor
// replaces the existing one.
func (l *Ledger) Open(t Trade) bool {
	if _, busy := l.doc.Active[t.Asset]; busy {
		return false
	}
	t.Status = StatusActive
	cp := t
	l.doc.Active[t.Asset] = &cp
	l.AppendHistory(HistoryRecord{
		Time:    t.OpenedAt,
		Type:    "ENTRY",
		Asset:   t.Asset,
		TradeID: t.TradeID,
		Detail:  t.Direction + " " + t.Setup,
	})
	return true
}

// Resolve finalizes the active trade for an asset. The trade_id must match
// the active trade or the event is ignored; a stale alert must never close a
// trade opened after a fast re-entry.
func (l *Ledger) Resolve(asset, tradeID, result string, now time.Time) (*Trade, ResolveStatus) {
	active, ok := l.doc.Active[asset]
	if !ok {
		return nil, NoActiveTrade
	}
	if active.TradeID != tradeID {
		return nil, TradeIDMismatch
	}
	delete(l.doc.Active, asset)
	active.Status = StatusResolved

	r, _ := ClassifyResult(result)
	l.AppendHistory(HistoryRecord{
		Time:    now,
		Type:    "RESOLVE",
		Asset:   asset,
		TradeID: tradeID,
		Result:  result,
		R:       r,
	})
	return active, Resolved
}

// ClassifyResult maps a RESOLVE result string to its R value and class.
// TP1/WIN/TP count as wins, SL/LOSS as losses; anything else is a neutral
// informational close so partial-target alerts never force a binary outcome.
func ClassifyResult(result string) (float64, string) {
	switch strings.ToUpper(strings.TrimSpace(result)) {
	case "TP1", "WIN", "TP":
		return 1, OutcomeWin
	case "SL", "LOSS":
		return -1, OutcomeLoss
	}
	return 0, OutcomeNeutral
}

// AppendHistory adds an immutable record, keeping only the most recent entries.
func (l *Ledger) AppendHistory(rec HistoryRecord) {
	l.doc.History = append(l.doc.History, rec)
	if len(l.doc.History) > l.historyLimit {
		l.doc.History = l.doc.History[len(l.doc.History)-l.historyLimit:]
	}
}

// AppendOutcome feeds the rolling window used by the circuit breaker,
// trimming to the configured bound on every append.
func (l *Ledger) AppendOutcome(o Outcome) {
	l.doc.Window = append(l.doc.Window, o)
	if len(l.doc.Window) > l.windowLimit {
		l.doc.Window = l.doc.Window[len(l.doc.Window)-l.windowLimit:]
	}
}

// SeenEvent reports whether an identical delivery was recently applied.
func (l *Ledger) SeenEvent(key string) bool {
	return l.doc.Dedupe.Contains(key)
}

// MarkSeen records an applied event for replay suppression.
func (l *Ledger) MarkSeen(key string) {
	l.doc.Dedupe.Add(key, l.dedupeLimit)
}

// SetPrice updates the last-known-price cache. Reporting only.
func (l *Ledger) SetPrice(asset string, price float64, ts time.Time) {
	l.doc.LastPrice[asset] = PricePoint{Price: price, TS: ts}
}

// ResetActive administratively clears open trades without touching stats.
func (l *Ledger) ResetActive() int {
	n := len(l.doc.Active)
	l.doc.Active = make(map[string]*Trade)
	return n
}

// ResetAll replaces the whole document with a fresh one.
func (l *Ledger) ResetAll() {
	l.doc = NewDocument()
}
