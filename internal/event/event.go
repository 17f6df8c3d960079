package event

import (
	"fmt"
	"strconv"
	"strings"
)

// Event types recognized by the gateway. Anything else is ignored, never
// rejected, because alerting platforms cannot act on hard failures.
const (
	TypeEntry   = "ENTRY"
	TypeResolve = "RESOLVE"
	TypePrice   = "PRICE"
	TypeSkip    = "SKIP"
)

// Event is the canonical inbound trade event. Payloads arrive with either
// long or short field names; Decode folds both alias sets into this struct so
// nothing downstream ever sees a raw payload key.
type Event struct {
	Type      string
	TradeID   string
	Asset     string
	Exchange  string
	Direction string

	Entry      float64
	StopLoss   float64
	TP1        float64
	TP2        float64
	TP3        float64
	HasEntry   bool
	HasSL      bool
	HasTP1     bool
	HasTP2     bool
	HasTP3     bool

	Bias    string
	Session string
	Setup   string

	Confidence    int
	HasConfidence bool
	Score         int

	Result string

	Price    float64
	HasPrice bool
}

// aliases maps a canonical field to its accepted payload keys, long name first.
var aliases = map[string][]string{
	"event":      {"event", "e"},
	"trade_id":   {"trade_id", "id"},
	"asset":      {"asset", "a", "symbol", "ticker"},
	"exchange":   {"exchange", "x"},
	"direction":  {"direction", "d", "side"},
	"entry":      {"entry", "en"},
	"sl":         {"sl", "stop", "stoploss"},
	"tp1":        {"tp1", "t1"},
	"tp2":        {"tp2", "t2"},
	"tp3":        {"tp3", "t3"},
	"bias_15m":   {"bias_15m", "b", "bias"},
	"confidence": {"confidence", "c"},
	"session":    {"session", "se"},
	"setup":      {"setup", "st"},
	"score":      {"score", "sc"},
	"result":     {"result", "r"},
	"price":      {"price", "p"},
}

// Decode builds a canonical Event from a loosely-typed payload and applies
// normalization: assets uppercased, LONG/SHORT folded to BUY/SELL, result
// uppercased, setup defaulting to CORE and session to ALL.
func Decode(payload map[string]any) Event {
	ev := Event{
		Type:      strings.ToUpper(firstString(payload, aliases["event"])),
		TradeID:   firstString(payload, aliases["trade_id"]),
		Asset:     strings.ToUpper(strings.TrimSpace(firstString(payload, aliases["asset"]))),
		Exchange:  firstString(payload, aliases["exchange"]),
		Direction: normalizeDirection(firstString(payload, aliases["direction"])),
		Bias:      firstString(payload, aliases["bias_15m"]),
		Session:   firstString(payload, aliases["session"]),
		Setup:     strings.ToUpper(strings.TrimSpace(firstString(payload, aliases["setup"]))),
		Result:    strings.ToUpper(strings.TrimSpace(firstString(payload, aliases["result"]))),
	}

	ev.Entry, ev.HasEntry = firstFloat(payload, aliases["entry"])
	ev.StopLoss, ev.HasSL = firstFloat(payload, aliases["sl"])
	ev.TP1, ev.HasTP1 = firstFloat(payload, aliases["tp1"])
	ev.TP2, ev.HasTP2 = firstFloat(payload, aliases["tp2"])
	ev.TP3, ev.HasTP3 = firstFloat(payload, aliases["tp3"])
	ev.Price, ev.HasPrice = firstFloat(payload, aliases["price"])

	if c, ok := firstFloat(payload, aliases["confidence"]); ok {
		ev.Confidence = int(c)
		ev.HasConfidence = true
	}
	if s, ok := firstFloat(payload, aliases["score"]); ok {
		ev.Score = int(s)
	}

	if ev.Setup == "" {
		ev.Setup = "CORE"
	}
	if ev.Session == "" {
		ev.Session = "ALL"
	}
	return ev
}

// normalizeDirection folds LONG/SHORT aliases to BUY/SELL. Unknown values
// pass through uppercased; direction alone never rejects an event.
func normalizeDirection(d string) string {
	up := strings.ToUpper(strings.TrimSpace(d))
	switch up {
	case "LONG":
		return "BUY"
	case "SHORT":
		return "SELL"
	}
	return up
}

// MissingEntryFields reports which required ENTRY price levels are absent or
// non-positive. Callers need the names to fix their alert templates.
func (e Event) MissingEntryFields() []string {
	var missing []string
	if !e.HasEntry || e.Entry <= 0 {
		missing = append(missing, "entry")
	}
	if !e.HasSL || e.StopLoss <= 0 {
		missing = append(missing, "sl")
	}
	if !e.HasTP1 || e.TP1 <= 0 {
		missing = append(missing, "tp1")
	}
	if !e.HasTP2 || e.TP2 <= 0 {
		missing = append(missing, "tp2")
	}
	return missing
}

// DedupeKey identifies an event delivery for replay suppression.
func (e Event) DedupeKey() string {
	return fmt.Sprintf("%s|%s|%s|%s", e.Asset, e.Type, e.TradeID, e.Result)
}

func firstString(payload map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := payload[k]; ok && v != nil {
			switch t := v.(type) {
			case string:
				if s := strings.TrimSpace(t); s != "" {
					return s
				}
			case float64:
				return strconv.FormatFloat(t, 'f', -1, 64)
			case int:
				return strconv.Itoa(t)
			case bool:
				return strconv.FormatBool(t)
			}
		}
	}
	return ""
}

func firstFloat(payload map[string]any, keys []string) (float64, bool) {
	for _, k := range keys {
		v, ok := payload[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t, true
		case int:
			return float64(t), true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
