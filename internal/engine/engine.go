// Package engine owns the event pipeline: authenticate, validate, dedupe,
// gate, mutate, persist, journal, notify. A single mutex serializes every
// mutation of the ledger document, so the rest of the system can stay free
// of locking concerns.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"signal-relay/internal/event"
	"signal-relay/internal/events"
	"signal-relay/internal/ledger"
	"signal-relay/internal/risk"
	"signal-relay/internal/stats"
	"signal-relay/pkg/db"
)

// notifyTimeout bounds the outbound Telegram call; there is no retry queue,
// so the handler waits for delivery or gives up.
const notifyTimeout = 20 * time.Second

// Notifier is the outbound notification sink. Failures are swallowed by the
// engine and downgraded to the Outcome.Telegram flag.
type Notifier interface {
	Configured() bool
	NotifyEntry(ctx context.Context, t ledger.Trade, setupWinRate float64) error
	NotifyResolve(ctx context.Context, t ledger.Trade, result string, r float64, total ledger.Bucket) error
	Broadcast(ctx context.Context, text string) error
}

// Options configures an Engine.
type Options struct {
	WebhookSecret string
	AllowedAssets []string

	Ledger   *ledger.Ledger
	Store    *ledger.Store
	Governor *risk.Governor
	Bus      *events.Bus
	Journal  *db.Database // optional
	Notifier Notifier     // optional

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Engine is the single controller owning ledger state.
type Engine struct {
	mu sync.Mutex

	secret   string
	allowed  map[string]bool
	led      *ledger.Ledger
	store    *ledger.Store
	gov      *risk.Governor
	bus      *events.Bus
	journal  *db.Database
	notifier Notifier
	now      func() time.Time
}

// New wires an engine from options.
func New(opts Options) *Engine {
	allowed := make(map[string]bool, len(opts.AllowedAssets))
	for _, a := range opts.AllowedAssets {
		allowed[a] = true
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		secret:   opts.WebhookSecret,
		allowed:  allowed,
		led:      opts.Ledger,
		store:    opts.Store,
		gov:      opts.Governor,
		bus:      opts.Bus,
		journal:  opts.Journal,
		notifier: opts.Notifier,
		now:      now,
	}
}

// HandleWebhook authenticates and applies an event from the untrusted
// boundary. The secret comparison is constant-time.
func (e *Engine) HandleWebhook(ctx context.Context, secret string, ev event.Event) (*Outcome, error) {
	if e.secret == "" {
		return nil, ErrSecretUnset
	}
	if secret == "" || !event.SecretEqual(secret, e.secret) {
		return nil, ErrUnauthorized
	}
	return e.Apply(ctx, ev)
}

// Apply runs one already-authenticated event through the pipeline. The
// scanner feeds synthetic events here directly.
func (e *Engine) Apply(ctx context.Context, ev event.Event) (*Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Type {
	case event.TypeEntry:
		return e.applyEntry(ctx, ev)
	case event.TypeResolve:
		return e.applyResolve(ctx, ev)
	case event.TypePrice:
		return e.applyPrice(ctx, ev)
	case event.TypeSkip:
		log.Printf("[EVENT] skip advisory: asset=%s setup=%s", ev.Asset, ev.Setup)
		return accepted(StatusSkipNoted), nil
	}
	// Unrecognized alert text must never hard-fail; the platform would
	// retry or, worse, the operator would never see why.
	log.Printf("[EVENT] unknown event type %q ignored", ev.Type)
	return ignored(ReasonUnknownEvent), nil
}

func (e *Engine) applyEntry(ctx context.Context, ev event.Event) (*Outcome, error) {
	if !e.allowed[ev.Asset] {
		return nil, &InvalidAssetError{Asset: ev.Asset}
	}
	if e.led.SeenEvent(ev.DedupeKey()) {
		e.journalIgnored(ctx, ev, ReasonDuplicateEvent)
		return ignored(ReasonDuplicateEvent), nil
	}
	if missing := ev.MissingEntryFields(); len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	now := e.now()
	if reason := e.gov.GateEntry(e.led.Document(), ev.Asset, ev.Setup, ev.Confidence, ev.HasConfidence, now); reason != "" {
		e.publish(events.TopicEventIgnored, map[string]string{"asset": ev.Asset, "reason": reason})
		log.Printf("[GATE] entry rejected: asset=%s setup=%s reason=%s", ev.Asset, ev.Setup, reason)
		e.journalIgnored(ctx, ev, reason)
		return ignored(reason), nil
	}

	tradeID := ev.TradeID
	if tradeID == "" {
		tradeID = uuid.NewString()
	}
	trade := ledger.Trade{
		TradeID:    tradeID,
		Asset:      ev.Asset,
		Exchange:   ev.Exchange,
		Direction:  ev.Direction,
		Entry:      ev.Entry,
		StopLoss:   ev.StopLoss,
		TP1:        ev.TP1,
		TP2:        ev.TP2,
		TP3:        ev.TP3,
		Setup:      ev.Setup,
		Confidence: ev.Confidence,
		Score:      ev.Score,
		Session:    ev.Session,
		Bias:       ev.Bias,
		OpenedAt:   now,
	}
	if !e.led.Open(trade) {
		e.journalIgnored(ctx, ev, ReasonActiveTradeExists)
		return ignored(ReasonActiveTradeExists), nil
	}
	e.led.MarkSeen(ev.DedupeKey())

	if err := e.persist(); err != nil {
		return nil, err
	}
	e.journalEntry(ctx, db.JournalEntry{
		ID: uuid.NewString(), TS: now, Type: ev.Type, Asset: ev.Asset,
		TradeID: tradeID, Direction: ev.Direction, Setup: ev.Setup, Status: StatusActiveSet,
	})

	opened := e.led.ActiveTrade(ev.Asset)
	out := accepted(StatusActiveSet)
	out.Trade = opened
	setupWR := stats.SetupBucket(e.led.Document(), ev.Asset, ev.Setup).WinRate()
	out.Telegram = e.notify(func(nctx context.Context) error {
		return e.notifier.NotifyEntry(nctx, *opened, setupWR)
	})
	e.publish(events.TopicTradeOpened, opened)
	log.Printf("[TRADE] opened %s %s id=%s entry=%v", opened.Direction, opened.Asset, opened.TradeID, opened.Entry)
	return out, nil
}

func (e *Engine) applyResolve(ctx context.Context, ev event.Event) (*Outcome, error) {
	if !e.allowed[ev.Asset] {
		return nil, &InvalidAssetError{Asset: ev.Asset}
	}
	if e.led.SeenEvent(ev.DedupeKey()) {
		e.journalIgnored(ctx, ev, ReasonDuplicateEvent)
		return ignored(ReasonDuplicateEvent), nil
	}
	if ev.Result == "" {
		return nil, &MissingFieldsError{Fields: []string{"result"}}
	}

	now := e.now()
	trade, status := e.led.Resolve(ev.Asset, ev.TradeID, ev.Result, now)
	switch status {
	case ledger.NoActiveTrade:
		e.journalIgnored(ctx, ev, ReasonNoActiveTrade)
		return ignored(ReasonNoActiveTrade), nil
	case ledger.TradeIDMismatch:
		log.Printf("[TRADE] stale resolve ignored: asset=%s id=%s", ev.Asset, ev.TradeID)
		e.journalIgnored(ctx, ev, ReasonTradeIDMismatch)
		return ignored(ReasonTradeIDMismatch), nil
	}

	r, class := stats.Record(e.led, trade.Asset, trade.Setup, ev.Result, now)
	froze, disabled := e.gov.Reevaluate(e.led.Document(), trade.Asset, trade.Setup, now)
	e.led.MarkSeen(ev.DedupeKey())

	if err := e.persist(); err != nil {
		return nil, err
	}
	e.journalEntry(ctx, db.JournalEntry{
		ID: uuid.NewString(), TS: now, Type: ev.Type, Asset: trade.Asset,
		TradeID: trade.TradeID, Direction: trade.Direction, Setup: trade.Setup,
		Result: ev.Result, R: r, Status: StatusClosed,
	})

	out := accepted(StatusClosed)
	out.Trade = trade
	out.Result = class
	out.R = r
	total := e.led.Document().Perf.Total
	out.Telegram = e.notify(func(nctx context.Context) error {
		return e.notifier.NotifyResolve(nctx, *trade, ev.Result, r, total)
	})
	e.publish(events.TopicTradeClosed, map[string]any{"trade": trade, "result": class, "r": r})
	log.Printf("[TRADE] closed %s id=%s result=%s r=%+.1f", trade.Asset, trade.TradeID, class, r)

	if froze {
		e.publish(events.TopicBreakerFrozen, e.led.Document().CB)
		e.notify(func(nctx context.Context) error {
			return e.notifier.Broadcast(nctx, "⛔ Circuit breaker: new entries frozen after a losing streak.")
		})
	}
	if disabled {
		key := ledger.SetupKey(trade.Asset, trade.Setup)
		e.publish(events.TopicSetupDisabled, key)
		e.notify(func(nctx context.Context) error {
			return e.notifier.Broadcast(nctx, "⚠️ Setup "+key+" auto-disabled on poor win rate.")
		})
	}
	return out, nil
}

func (e *Engine) applyPrice(ctx context.Context, ev event.Event) (*Outcome, error) {
	if !e.allowed[ev.Asset] {
		return nil, &InvalidAssetError{Asset: ev.Asset}
	}
	if !ev.HasPrice || ev.Price <= 0 {
		return nil, &MissingFieldsError{Fields: []string{"price"}}
	}
	now := e.now()
	e.led.SetPrice(ev.Asset, ev.Price, now)
	if err := e.persist(); err != nil {
		return nil, err
	}
	e.journalEntry(ctx, db.JournalEntry{
		ID: uuid.NewString(), TS: now, Type: ev.Type, Asset: ev.Asset, Status: StatusPriceNoted,
	})
	e.publish(events.TopicPriceUpdate, map[string]any{"asset": ev.Asset, "price": ev.Price, "ts": now})
	return accepted(StatusPriceNoted), nil
}

// persist writes the state document before the response goes out; losing the
// write silently would desynchronize the durable and in-memory views.
func (e *Engine) persist() error {
	if err := e.store.Save(e.led.Document()); err != nil {
		log.Printf("[STATE] persist failed: %v", err)
		return &PersistError{Err: err}
	}
	return nil
}

// journalIgnored records a skipped event so the dashboard can show why
// entries never happened.
func (e *Engine) journalIgnored(ctx context.Context, ev event.Event, reason string) {
	e.journalEntry(ctx, db.JournalEntry{
		ID: uuid.NewString(), TS: e.now(), Type: ev.Type, Asset: ev.Asset,
		TradeID: ev.TradeID, Direction: ev.Direction, Setup: ev.Setup,
		Result: ev.Result, Status: StatusIgnored, Reason: reason,
	})
}

// journalEntry appends to the sqlite journal, best-effort.
func (e *Engine) journalEntry(ctx context.Context, entry db.JournalEntry) {
	if e.journal == nil {
		return
	}
	if err := e.journal.InsertEvent(ctx, entry); err != nil {
		log.Printf("[JOURNAL] insert failed: %v", err)
	}
}

// notify runs one outbound notification with a bounded timeout and maps the
// result to the response flag. Never fails the request.
func (e *Engine) notify(send func(context.Context) error) string {
	if e.notifier == nil || !e.notifier.Configured() {
		return TelegramNotConfigured
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := send(ctx); err != nil {
		log.Printf("[TELEGRAM] send failed: %v", err)
		return TelegramFailed
	}
	return TelegramSent
}

func (e *Engine) publish(topic events.Topic, payload any) {
	if e.bus != nil {
		e.bus.Publish(topic, payload)
	}
}
