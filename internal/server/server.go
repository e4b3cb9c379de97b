// Package server implements the HTTP server functionality for the roomhub server.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/roomhub/internal/room"
	"github.com/Tyrowin/roomhub/internal/router"
)

// Server bundles the hub, the WebSocket upgrader and the gin engine that
// fronts them.
type Server struct {
	cfg           Config
	hub           *Hub
	upgrader      websocket.Upgrader
	createLimiter *ipLimiter
	log           *logrus.Logger
	engine        *gin.Engine
}

// New builds a Server from cfg. A nil cfg selects the defaults. Store
// options are appended after the ones derived from cfg.
func New(cfg *Config, logger *logrus.Logger, storeOpts ...room.Option) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c := sanitizeConfig(*cfg)

	opts := append([]room.Option{
		room.WithCodeLength(c.Room.CodeLength),
		room.WithMaxMembers(c.Room.MaxMembers),
		room.WithCooldown(c.Room.MessageCooldown),
	}, storeOpts...)

	origins := newOriginPolicy(c.AllowedOrigins, logger.WithField("component", "origin"))
	s := &Server{
		cfg: c,
		hub: NewHub(room.NewStore(opts...), logger, c.Room.PendingTTL,
			router.WithMaxTextLength(c.Room.MaxTextLength)),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
		createLimiter: newIPLimiter(c.CreateRoomPerMinute),
		log:           logger,
	}

	gin.SetMode(c.GinMode)
	s.engine = SetupRoutes(s)
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Hub returns the hub the server feeds.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Config returns the sanitized configuration in effect.
func (s *Server) Config() Config {
	return s.cfg
}
