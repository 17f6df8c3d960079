package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.State())
}

func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.Metrics())
}

// getHistory serves recent trade history. With ?source=journal it reads the
// sqlite journal instead of the in-memory ring, which goes back further.
func (s *Server) getHistory(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  "INVALID_LIMIT",
				"error": "limit must be an integer between 1 and 1000",
			})
			return
		}
		limit = n
	}

	if c.Query("source") == "journal" {
		if s.DB == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":  "JOURNAL_DISABLED",
				"error": "journal database is not configured",
			})
			return
		}
		entries, err := s.DB.RecentEvents(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":  "INTERNAL_ERROR",
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"source": "journal", "history": entries})
		return
	}

	c.JSON(http.StatusOK, gin.H{"source": "state", "history": s.Engine.History(limit)})
}

// getDashboard bundles everything the frontend polls into one response.
func (s *Server) getDashboard(c *gin.Context) {
	resp := gin.H{
		"bot":     s.BotName,
		"state":   s.Engine.State(),
		"metrics": s.Engine.Metrics(),
	}
	if s.DB != nil {
		if daily, err := s.DB.DailyOutcomes(c.Request.Context(), 14); err == nil {
			resp["daily_outcomes"] = daily
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) adminPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "bot": s.BotName})
}

// adminNotify broadcasts freeform text through the notification sink.
func (s *Server) adminNotify(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "invalid request payload",
		})
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "MISSING_TEXT",
			"error": "text is required",
		})
		return
	}
	status := s.Engine.Broadcast(c.Request.Context(), req.Text)
	c.JSON(http.StatusOK, gin.H{"ok": true, "telegram": status})
}

// adminReset clears state. scope=active drops open trades and keeps the
// statistics; scope=all wipes the document.
func (s *Server) adminReset(c *gin.Context) {
	var req struct {
		Scope string `json:"scope"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_PAYLOAD",
			"error": "invalid request payload",
		})
		return
	}

	switch req.Scope {
	case "active":
		n, err := s.Engine.ResetActive()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":  "INTERNAL_ERROR",
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "scope": "active", "cleared": n})
	case "all":
		if err := s.Engine.ResetAll(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":  "INTERNAL_ERROR",
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "scope": "all"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "INVALID_SCOPE",
			"error": `scope must be "active" or "all"`,
		})
	}
}

// adminReportNow triggers the periodic performance report out of cycle.
func (s *Server) adminReportNow(c *gin.Context) {
	if s.Reporter == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":  "REPORTER_DISABLED",
			"error": "periodic reporting is not configured",
		})
		return
	}
	status := s.Reporter.SendNow(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"ok": true, "telegram": status})
}
