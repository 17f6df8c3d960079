package event

import (
	"crypto/subtle"
	"strings"
)

// secretKeys are the accepted payload keys for the shared webhook secret.
var secretKeys = []string{"secret", "s", "token", "passphrase", "webhook_secret"}

// ExtractSecret pulls the shared secret out of a payload and returns the
// payload without it, so the secret never reaches formatting or logging.
func ExtractSecret(payload map[string]any) (string, map[string]any) {
	for _, k := range secretKeys {
		v, ok := payload[k]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		rest := make(map[string]any, len(payload))
		for pk, pv := range payload {
			rest[pk] = pv
		}
		for _, sk := range secretKeys {
			delete(rest, sk)
		}
		return strings.TrimSpace(s), rest
	}
	return "", payload
}

// SecretEqual compares secrets in constant time.
func SecretEqual(provided, configured string) bool {
	return subtle.ConstantTimeCompare([]byte(provided), []byte(configured)) == 1
}
