package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"signal-relay/internal/engine"
	"signal-relay/internal/events"
	"signal-relay/internal/report"
	"signal-relay/pkg/db"
)

// Server wires HTTP endpoints around the engine.
type Server struct {
	Router      *gin.Engine
	Engine      *engine.Engine
	Bus         *events.Bus
	DB          *db.Database // optional journal
	Reporter    *report.Reporter
	AdminSecret string
	JWTSecret   string
	BotName     string
}

// NewServer builds the router with the middleware stack and routes.
func NewServer(eng *engine.Engine, bus *events.Bus, database *db.Database, reporter *report.Reporter, botName, adminSecret, jwtSecret string) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))

	s := &Server{
		Router:      r,
		Engine:      eng,
		Bus:         bus,
		DB:          database,
		Reporter:    reporter,
		AdminSecret: adminSecret,
		JWTSecret:   jwtSecret,
		BotName:     botName,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/", s.root)
	s.Router.POST("/tv", s.webhook)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.POST("/admin/login", s.adminLogin)

		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.GET("/state", s.getState)
			protected.GET("/metrics", s.getMetrics)
			protected.GET("/history", s.getHistory)
			protected.GET("/dashboard", s.getDashboard)

			protected.POST("/admin/ping", s.adminPing)
			protected.POST("/admin/notify", s.adminNotify)
			protected.POST("/admin/reset", s.adminReset)
			protected.POST("/admin/report-now", s.adminReportNow)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "service": s.BotName})
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "hint": "Use /health or POST /tv"})
}

// Start runs the HTTP server.
func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
