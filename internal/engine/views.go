package engine

import (
	"context"
	"time"

	"signal-relay/internal/ledger"
)

// BucketView is a bucket plus its derived metrics, for the read-only API.
type BucketView struct {
	Trades     int     `json:"trades"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	RSum       float64 `json:"r_sum"`
	WinRate    float64 `json:"win_rate"`
	Expectancy float64 `json:"expectancy"`
}

func viewOf(b ledger.Bucket) BucketView {
	return BucketView{
		Trades:     b.Trades,
		Wins:       b.Wins,
		Losses:     b.Losses,
		RSum:       b.RSum,
		WinRate:    b.WinRate(),
		Expectancy: b.Expectancy(),
	}
}

// StateView is a point-in-time copy of ledger state for the read endpoints.
type StateView struct {
	Active         map[string]ledger.Trade      `json:"active"`
	FrozenUntil    *time.Time                   `json:"frozen_until,omitempty"`
	DisabledSetups map[string]time.Time         `json:"disabled_setups"`
	LastPrice      map[string]ledger.PricePoint `json:"last_price"`
}

// MetricsView is the aggregate statistics snapshot.
type MetricsView struct {
	Total   BucketView            `json:"total"`
	ByAsset map[string]BucketView `json:"by_asset"`
	BySetup map[string]BucketView `json:"by_setup"`
	Daily   map[string]BucketView `json:"daily"`
	Window  []ledger.Outcome      `json:"window"`
}

// State returns a copy of the current ledger state; callers never see the
// live document.
func (e *Engine) State() StateView {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc := e.led.Document()
	view := StateView{
		Active:         make(map[string]ledger.Trade, len(doc.Active)),
		DisabledSetups: make(map[string]time.Time, len(doc.DisabledSetups)),
		LastPrice:      make(map[string]ledger.PricePoint, len(doc.LastPrice)),
	}
	for k, t := range doc.Active {
		view.Active[k] = *t
	}
	for k, v := range doc.DisabledSetups {
		view.DisabledSetups[k] = v
	}
	for k, v := range doc.LastPrice {
		view.LastPrice[k] = v
	}
	if doc.CB.FrozenUntil != nil {
		until := *doc.CB.FrozenUntil
		view.FrozenUntil = &until
	}
	return view
}

// Metrics returns a copy of all performance buckets with derived rates.
func (e *Engine) Metrics() MetricsView {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc := e.led.Document()
	view := MetricsView{
		Total:   viewOf(doc.Perf.Total),
		ByAsset: make(map[string]BucketView, len(doc.Perf.ByAsset)),
		BySetup: make(map[string]BucketView, len(doc.Perf.BySetup)),
		Daily:   make(map[string]BucketView, len(doc.Perf.Daily)),
		Window:  append([]ledger.Outcome(nil), doc.Window...),
	}
	for k, b := range doc.Perf.ByAsset {
		view.ByAsset[k] = viewOf(b)
	}
	for k, b := range doc.Perf.BySetup {
		view.BySetup[k] = viewOf(b)
	}
	for k, b := range doc.Perf.Daily {
		view.Daily[k] = viewOf(b)
	}
	return view
}

// History returns the most recent history records, newest last.
func (e *Engine) History(limit int) []ledger.HistoryRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	hist := e.led.Document().History
	if limit > 0 && len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}
	return append([]ledger.HistoryRecord(nil), hist...)
}

// ResetActive administratively clears open trades, keeping statistics.
func (e *Engine) ResetActive() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.led.ResetActive()
	if err := e.persist(); err != nil {
		return n, err
	}
	return n, nil
}

// ResetAll wipes the whole state document.
func (e *Engine) ResetAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.led.ResetAll()
	return e.persist()
}

// Broadcast pushes freeform text to the notification sink.
func (e *Engine) Broadcast(ctx context.Context, text string) string {
	return e.notify(func(nctx context.Context) error {
		return e.notifier.Broadcast(nctx, text)
	})
}
