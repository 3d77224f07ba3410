package server

import (
	"context"
	"net/http"
	"time"

	"planning-poker/internal/config"
	"planning-poker/internal/logger"
	"planning-poker/internal/poker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	poker  *poker.Service
	cfg    config.Config
	log    *zap.SugaredLogger
	ws     *wsHub
	engine *gin.Engine
}

func New(svc *poker.Service, cfg config.Config, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	registerValidators()
	s := &Server{
		poker: svc,
		cfg:   cfg,
		log:   log,
		ws:    newWSHub(),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/", s.handleHome)
	r.GET("/join", s.handleJoinView)
	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	api.GET("/cards", s.handleCards)
	api.POST("/rooms", s.handleCreateRoom)
	rooms := api.Group("/rooms/:code")
	rooms.GET("", s.handleGetRoom)
	rooms.POST("/join", s.handleJoinRoom)
	rooms.POST("/votes", s.handleCastVote)
	rooms.POST("/reveal", s.handleReveal)
	rooms.POST("/reset", s.handleReset)
	rooms.POST("/story", s.handleSetStory)
	rooms.POST("/leave", s.handleLeave)

	r.GET("/ws/rooms/:code", s.handleRoomWebsocket)
	return r
}

// Shutdown closes every live websocket. Each connection's session leaves its
// room as it unwinds.
func (s *Server) Shutdown(ctx context.Context) {
	s.ws.CloseAll(ctx)
}

func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugw("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
