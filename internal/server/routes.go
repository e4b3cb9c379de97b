// Package server wires HTTP handlers into a gin engine for the roomhub
// application via routing helpers.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes configures and returns a gin engine with all application routes.
func SetupRoutes(s *Server) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(LoggerMiddleware(s.log))

	engine.GET("/", HealthHandler)
	engine.GET("/health", HealthHandler)

	api := engine.Group("/api")
	{
		api.POST("/rooms", s.createLimiter.middleware(), s.createRoomHandler)
		api.GET("/rooms/:code", s.getRoomHandler)
	}

	engine.GET("/ws", s.webSocketHandler)
	return engine
}

// LoggerMiddleware logs one line per request at a level matching its status.
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := log.WithFields(logrus.Fields{
			"component":  "http",
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		})

		switch {
		case len(c.Errors) > 0:
			entry.Error(c.Errors.String())
		case status >= http.StatusInternalServerError:
			entry.Error("Server error")
		case status >= http.StatusBadRequest:
			entry.Warn("Client error")
		default:
			entry.Debug("Request handled")
		}
	}
}
