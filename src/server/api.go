package server

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"signal-engine/src/logger"
	"signal-engine/src/models"
	"signal-engine/src/session"
	"signal-engine/src/utils"
)

// -----------------------------------------------------------------------------
// PushServer
// -----------------------------------------------------------------------------

type PushServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Manager *session.Manager
	engine  *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MLatestData // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client

	// Local cache
	latestState *models.MLatestData
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewPushServer(cfg *models.MConfig, manager *session.Manager, log *logger.Logger) *PushServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &PushServer{
		Config:  cfg,
		Logger:  log,
		Manager: manager,
		engine:  gin.Default(),
		clients: make(map[*Client]struct{}),
		// Buffered channel to prevent lock/blocking
		broadcast:  make(chan *models.MLatestData, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		latestState: &models.MLatestData{
			Type:     "INITIAL",
			Sessions: make(map[string]models.MSession),
			Signals:  make(map[string]models.MSignalResult),
		},
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *PushServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/assets", s.getAssets)
	s.engine.GET("/api/sessions", s.listSessions)
	s.engine.POST("/api/sessions", s.startSession)
	s.engine.DELETE("/api/sessions/:id", s.stopSession)
	s.engine.GET("/api/sessions/:id/candles", s.getSessionCandles)
	s.engine.GET("/api/signal/debug", s.getDebugSignal)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *PushServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *PushServer) Stop() error {
	close(s.broadcast)
	close(s.register)
	close(s.unregister)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *PushServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":          "ok",
		"connections":     connections,
		"active_sessions": s.Manager.GetActiveSessionsCount(),
		"feed_connected":  s.Manager.Feed.IsConnected(),
		"latest_update":   timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *PushServer) getConfig(c *gin.Context) {
	c.JSON(200, gin.H{
		"signal":     s.Config.Signal,
		"volatility": s.Config.Volatility,
	})
}

// -----------------------------------------------------------------------------

func (s *PushServer) getAssets(c *gin.Context) {
	c.JSON(200, gin.H{"assets": utils.AllAssets()})
}

// -----------------------------------------------------------------------------

func (s *PushServer) listSessions(c *gin.Context) {
	c.JSON(200, gin.H{"sessions": s.Manager.ListSessions()})
}

// -----------------------------------------------------------------------------

type startSessionRequest struct {
	ID               string                  `json:"id"`
	ChatID           string                  `json:"chat_id"`
	Symbol           string                  `json:"symbol" binding:"required"`
	TimeframeSeconds int64                   `json:"timeframe_seconds" binding:"required"`
	Options          *models.MSessionOptions `json:"options"`
}

func (s *PushServer) startSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	created, err := s.Manager.StartSession(c.Request.Context(), req.ID, req.ChatID, req.Symbol, req.TimeframeSeconds, req.Options)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	s.UpdateSession(created)
	c.JSON(201, created)
}

// -----------------------------------------------------------------------------

func (s *PushServer) stopSession(c *gin.Context) {
	stopped, err := s.Manager.StopSession(c.Param("id"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	s.UpdateSession(stopped)
	c.JSON(200, stopped)
}

// -----------------------------------------------------------------------------

func (s *PushServer) getSessionCandles(c *gin.Context) {
	limit := s.Config.Signal.ChartCandles
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	closed, forming, err := s.Manager.GetSessionCandles(c.Param("id"), limit)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{"closed": closed, "forming": forming})
}

// -----------------------------------------------------------------------------

func (s *PushServer) getDebugSignal(c *gin.Context) {
	symbol := c.Query("symbol")
	timeframe, err := strconv.ParseInt(c.Query("timeframe"), 10, 64)
	if symbol == "" || err != nil {
		c.JSON(400, gin.H{"error": "symbol and timeframe query params required"})
		return
	}

	result, err := s.Manager.GetDebugSignal(c.Request.Context(), symbol, timeframe)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, result)
}
