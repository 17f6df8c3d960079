package engine

import "signal-relay/internal/ledger"

// Statuses of applied events. StatusIgnored only ever appears in the
// journal; ignored responses carry the Ignored flag and a reason instead.
const (
	StatusActiveSet  = "active_set"
	StatusClosed     = "closed"
	StatusPriceNoted = "price_noted"
	StatusSkipNoted  = "skip_noted"
	StatusIgnored    = "ignored"
)

// Ignore reasons owned by the engine; the governor contributes its own
// (low_confidence, circuit_breaker_frozen, setup_disabled).
const (
	ReasonDuplicateEvent    = "duplicate_event"
	ReasonActiveTradeExists = "active_trade_exists"
	ReasonNoActiveTrade     = "no_active_trade"
	ReasonTradeIDMismatch   = "trade_id_mismatch"
	ReasonUnknownEvent      = "unknown_event"
)

// Telegram delivery states reported back to the event source. Delivery is
// best-effort; none of these affect ledger state.
const (
	TelegramSent          = "sent"
	TelegramNotConfigured = "not_configured"
	TelegramFailed        = "failed"
)

// Outcome is the tagged result of applying one event: either accepted (with
// a status) or ignored (with a machine-readable reason). Ignoring is not an
// error; alerting platforms cannot interpret error codes and must not
// retry-storm.
type Outcome struct {
	OK       bool          `json:"ok"`
	Ignored  bool          `json:"ignored,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Status   string        `json:"status,omitempty"`
	Trade    *ledger.Trade `json:"trade,omitempty"`
	Result   string        `json:"result,omitempty"`
	R        float64       `json:"r,omitempty"`
	Telegram string        `json:"telegram,omitempty"`
}

func accepted(status string) *Outcome {
	return &Outcome{OK: true, Status: status}
}

func ignored(reason string) *Outcome {
	return &Outcome{OK: true, Ignored: true, Reason: reason}
}
