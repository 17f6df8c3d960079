package ledger

import "time"

// Trade statuses.
const (
	StatusActive   = "ACTIVE"
	StatusResolved = "RESOLVED"
)

// Result classes produced by ClassifyResult.
const (
	OutcomeWin     = "WIN"
	OutcomeLoss    = "LOSS"
	OutcomeNeutral = "NEUTRAL"
)

// Trade is the single tracked position for an asset. At most one exists per
// asset at any time.
type Trade struct {
	TradeID    string    `json:"trade_id"`
	Asset      string    `json:"asset"`
	Exchange   string    `json:"exchange,omitempty"`
	Direction  string    `json:"direction"`
	Entry      float64   `json:"entry"`
	StopLoss   float64   `json:"stop_loss"`
	TP1        float64   `json:"take_profit_1"`
	TP2        float64   `json:"take_profit_2"`
	TP3        float64   `json:"take_profit_3,omitempty"`
	Setup      string    `json:"setup"`
	Confidence int       `json:"confidence"`
	Score      int       `json:"score,omitempty"`
	Session    string    `json:"session"`
	Bias       string    `json:"bias,omitempty"`
	OpenedAt   time.Time `json:"opened_at"`
	Status     string    `json:"status"`
}

// HistoryRecord is one immutable entry in the bounded event log.
type HistoryRecord struct {
	Time    time.Time `json:"ts"`
	Type    string    `json:"type"`
	Asset   string    `json:"asset,omitempty"`
	TradeID string    `json:"trade_id,omitempty"`
	Result  string    `json:"result,omitempty"`
	R       float64   `json:"r,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// Bucket accumulates trade outcomes for one scope (global, asset, setup, day).
type Bucket struct {
	Trades int     `json:"trades"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	RSum   float64 `json:"r_sum"`
}

// WinRate returns wins/trades as a percentage, 0 for an empty bucket.
func (b Bucket) WinRate() float64 {
	if b.Trades == 0 {
		return 0
	}
	return float64(b.Wins) / float64(b.Trades) * 100
}

// Expectancy returns accumulated R per trade, 0 for an empty bucket.
func (b Bucket) Expectancy() float64 {
	if b.Trades == 0 {
		return 0
	}
	return b.RSum / float64(b.Trades)
}

// Perf holds all outcome buckets. Maps are lazily initialized on update.
type Perf struct {
	Total   Bucket            `json:"total"`
	ByAsset map[string]Bucket `json:"by_asset"`
	BySetup map[string]Bucket `json:"by_setup"`
	Daily   map[string]Bucket `json:"daily"`
}

// Outcome is one resolved trade in the rolling window feeding the breaker.
type Outcome struct {
	Asset  string  `json:"asset"`
	Setup  string  `json:"setup"`
	Result string  `json:"result"`
	R      float64 `json:"r"`
}

// DedupeSet is a bounded FIFO of recently-seen event keys.
type DedupeSet struct {
	Seen []string `json:"seen"`
}

// Contains reports whether the key was recently applied.
func (d *DedupeSet) Contains(key string) bool {
	for _, s := range d.Seen {
		if s == key {
			return true
		}
	}
	return false
}

// Add records a key, trimming the oldest entries beyond limit.
func (d *DedupeSet) Add(key string, limit int) {
	d.Seen = append(d.Seen, key)
	if limit > 0 && len(d.Seen) > limit {
		d.Seen = d.Seen[len(d.Seen)-limit:]
	}
}

// CircuitState carries the global entry freeze, if any.
type CircuitState struct {
	FrozenUntil *time.Time `json:"frozen_until,omitempty"`
}

// Frozen reports whether entries are globally halted at now.
func (c CircuitState) Frozen(now time.Time) bool {
	return c.FrozenUntil != nil && now.Before(*c.FrozenUntil)
}

// PricePoint is the last known price for an asset, reporting-only.
type PricePoint struct {
	Price float64   `json:"price"`
	TS    time.Time `json:"ts"`
}

// Document is the full persisted state: one JSON file, one owner.
type Document struct {
	Active         map[string]*Trade     `json:"active"`
	History        []HistoryRecord       `json:"history"`
	Perf           Perf                  `json:"perf"`
	Window         []Outcome             `json:"window"`
	Dedupe         DedupeSet             `json:"dedupe"`
	CB             CircuitState          `json:"cb"`
	DisabledSetups map[string]time.Time  `json:"disabled_setups"`
	LastPrice      map[string]PricePoint `json:"last_price"`
}

// NewDocument returns an empty state document.
func NewDocument() *Document {
	return &Document{
		Active:         make(map[string]*Trade),
		Perf:           Perf{ByAsset: map[string]Bucket{}, BySetup: map[string]Bucket{}, Daily: map[string]Bucket{}},
		DisabledSetups: make(map[string]time.Time),
		LastPrice:      make(map[string]PricePoint),
	}
}

// normalize repairs nil maps after a JSON reload of an older document.
func (d *Document) normalize() {
	if d.Active == nil {
		d.Active = make(map[string]*Trade)
	}
	if d.Perf.ByAsset == nil {
		d.Perf.ByAsset = make(map[string]Bucket)
	}
	if d.Perf.BySetup == nil {
		d.Perf.BySetup = make(map[string]Bucket)
	}
	if d.Perf.Daily == nil {
		d.Perf.Daily = make(map[string]Bucket)
	}
	if d.DisabledSetups == nil {
		d.DisabledSetups = make(map[string]time.Time)
	}
	if d.LastPrice == nil {
		d.LastPrice = make(map[string]PricePoint)
	}
}

// SetupKey builds the per-setup bucket key.
func SetupKey(asset, setup string) string {
	return asset + "|" + setup
}

// DayKey buckets a timestamp by UTC calendar day.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
