package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"signal-relay/internal/engine"
	"signal-relay/internal/event"
)

// maxBodyBytes caps webhook payloads; alert texts are tiny.
const maxBodyBytes = 64 << 10

// webhook receives alerts on POST /tv. TradingView sends whatever the alert
// template holds: JSON, form-encoded pairs, or free key=value text, often
// with a misleading Content-Type, so the body is sniffed rather than trusted.
func (s *Server) webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "failed to read body"})
		return
	}

	payload, err := decodeBody(c.ContentType(), body)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "error": "malformed payload: " + err.Error()})
		return
	}

	secret, payload := event.ExtractSecret(payload)
	ev := event.Decode(payload)

	out, err := s.Engine.HandleWebhook(c.Request.Context(), secret, ev)
	if err != nil {
		s.webhookError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// decodeBody turns the raw body into a flat payload map.
func decodeBody(contentType string, body []byte) (map[string]any, error) {
	trimmed := strings.TrimSpace(string(body))

	switch {
	case strings.Contains(contentType, "application/json"):
		return decodeJSON(trimmed)
	case strings.Contains(contentType, "application/x-www-form-urlencoded"):
		values, err := url.ParseQuery(trimmed)
		if err != nil {
			return nil, err
		}
		payload := make(map[string]any, len(values))
		for k, v := range values {
			if len(v) > 0 {
				payload[strings.ToLower(strings.TrimSpace(k))] = v[0]
			}
		}
		return payload, nil
	}

	// No trustworthy Content-Type: JSON if it looks like JSON, otherwise
	// treat it as alert text.
	if strings.HasPrefix(trimmed, "{") {
		return decodeJSON(trimmed)
	}
	payload := event.ParseKVText(trimmed)
	if len(payload) <= 1 {
		// Only the raw text survived; nothing key/value shaped in there.
		return nil, errors.New("no key/value pairs in body")
	}
	return payload, nil
}

func decodeJSON(body string) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// webhookError maps pipeline errors onto HTTP statuses.
func (s *Server) webhookError(c *gin.Context, err error) {
	var invalidAsset *engine.InvalidAssetError
	var missingFields *engine.MissingFieldsError
	var persist *engine.PersistError

	switch {
	case errors.Is(err, engine.ErrSecretUnset):
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, engine.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": err.Error()})
	case errors.As(err, &invalidAsset):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error(), "asset": invalidAsset.Asset})
	case errors.As(err, &missingFields):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error(), "missing": missingFields.Fields})
	case errors.As(err, &persist):
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}
