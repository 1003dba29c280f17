package server

import (
	"fmt"
	"net/http"
	"strings"

	"tradewatch/src/interfaces"
	"tradewatch/src/logger"
	"tradewatch/src/models"
	"tradewatch/src/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

type Server struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine

	hub           *Hub
	subscriptions *service.SubscriptionService
	alerts        interfaces.IAlertRepo
	rules         interfaces.ITradeRuleRepo
	transactions  interfaces.ITransactionRepo
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewServer(
	cfg *models.MConfig,
	log *logger.Logger,
	hub *Hub,
	subs *service.SubscriptionService,
	alerts interfaces.IAlertRepo,
	rules interfaces.ITradeRuleRepo,
	transactions interfaces.ITransactionRepo,
) *Server {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		Config:        cfg,
		Logger:        log,
		engine:        gin.Default(),
		hub:           hub,
		subscriptions: subs,
		alerts:        alerts,
		rules:         rules,
		transactions:  transactions,
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)

	s.engine.POST("/api/subscriptions/candles", s.createStockSubscription)
	s.engine.DELETE("/api/subscriptions/candles/:id", s.cancelStockSubscription)
	s.engine.POST("/api/subscriptions/alerts", s.createAlertSubscription)
	s.engine.DELETE("/api/subscriptions/alerts/:id", s.cancelAlertSubscription)
	s.engine.POST("/api/subscriptions/trades", s.createTradeSubscription)
	s.engine.DELETE("/api/subscriptions/trades/:id", s.cancelTradeSubscription)

	s.engine.POST("/api/alerts", s.createAlert)
	s.engine.GET("/api/alerts", s.listAlerts)
	s.engine.DELETE("/api/alerts/:id", s.deleteAlert)

	s.engine.POST("/api/rules", s.createRule)
	s.engine.GET("/api/rules", s.listRules)
	s.engine.PATCH("/api/rules/:id/active", s.setRuleActive)
	s.engine.DELETE("/api/rules/:id", s.deleteRule)

	s.engine.GET("/api/portfolios/:id/transactions", s.listTransactions)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)
	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------
// WebSocket upgrade
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket upgrades the connection, mints a session id and hands the
// connection its CONNECTED frame before the pumps start. The session id is
// what clients pass back in subscription requests; when the connection
// drops, everything created under it is cancelled.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Error("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:       s.hub,
		conn:      conn,
		sessionID: uuid.NewString(),
		send:      make(chan interface{}, sendBufferSize),
	}

	s.hub.registerClient(client)
	client.send <- models.MConnectedFrame{Type: "CONNECTED", SessionID: client.sessionID}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Health
// -----------------------------------------------------------------------------

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":      "ok",
		"connections": s.hub.ConnectionCount(),
	})
}
