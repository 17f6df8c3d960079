package event

import "strings"

// ParseKVText parses raw TradingView alert text of the form
//
//	secret=XXXX|side=BUY|symbol=XAUUSD|price=2345.6
//
// or with ";" / "," / newline separators and ":" pairs. The original text is
// preserved under "raw" so unstructured alerts still reach the notifier.
func ParseKVText(text string) map[string]any {
	out := map[string]any{"raw": text}
	normalized := strings.NewReplacer("\n", "|", ";", "|", ",", "|").Replace(text)
	for _, p := range strings.Split(normalized, "|") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		var k, v string
		if i := strings.Index(p, "="); i >= 0 {
			k, v = p[:i], p[i+1:]
		} else if i := strings.Index(p, ":"); i >= 0 {
			k, v = p[:i], p[i+1:]
		} else {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}
