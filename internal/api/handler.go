package api

import (
	"net/http"
	"sync"
	"time"

	"execution-core/internal/advisory"
	"execution-core/internal/approval"
	"execution-core/internal/events"
	"execution-core/internal/execution"
	"execution-core/internal/killswitch"
	"execution-core/internal/monitor"
	"execution-core/pkg/db"

	"github.com/gin-gonic/gin"
)

// Server wires the control-plane HTTP endpoints around the event bus.
type Server struct {
	Router    *gin.Engine
	Bus       *events.Bus
	DB        *db.Database
	Approvals *approval.Manager
	Switches  *killswitch.Manager
	Engine    *execution.Engine
	ExecLog   *execution.Logger
	Metrics   *monitor.SystemMetrics
	JWTSecret string
	Meta      SystemMeta

	pendingMu sync.RWMutex
	pending   map[string]advisory.Snapshot
}

// SystemMeta describes runtime status exposed to the UI.
type SystemMeta struct {
	BrokerMode string
	Symbols    []string
	Version    string
}

func NewServer(bus *events.Bus, database *db.Database, approvals *approval.Manager, switches *killswitch.Manager, engine *execution.Engine, execLog *execution.Logger, metrics *monitor.SystemMetrics, meta SystemMeta, jwtSecret string) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(metrics))
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:    r,
		Bus:       bus,
		DB:        database,
		Approvals: approvals,
		Switches:  switches,
		Engine:    engine,
		ExecLog:   execLog,
		Metrics:   metrics,
		JWTSecret: jwtSecret,
		Meta:      meta,
		pending:   make(map[string]advisory.Snapshot),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.GET("/system/status", s.getSystemStatus)
		api.GET("/metrics", s.getMetrics)

		// Auth endpoints (no auth required)
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.registerUser)
			auth.POST("/login", s.loginUser)
		}

		// Protected API
		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.POST("/advisories", s.submitAdvisory)
			protected.GET("/advisories/pending", s.listPendingAdvisories)
			protected.POST("/advisories/:id/decision", s.decideAdvisory)
			protected.GET("/advisories/:id/audit", s.getAuditTrail)

			protected.GET("/executions", s.listExecutions)
			protected.GET("/executions/:id", s.getExecution)
			protected.GET("/executions/:id/log", s.getExecutionLog)

			protected.GET("/killswitch", s.getKillSwitch)
			protected.POST("/killswitch", s.setKillSwitch)
			protected.GET("/killswitch/history", s.getKillSwitchHistory)

			protected.GET("/reconciliations", s.listReconciliations)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
