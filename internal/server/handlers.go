// Package server exposes HTTP handlers, including the room API, WebSocket
// upgrades and health checks.
package server

import (
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/roomhub/internal/room"
	"github.com/Tyrowin/roomhub/internal/router"
)

const healthMessage = "roomhub server is running!"

// errNameTooLong is returned for display names over the configured bound.
var errNameTooLong = errors.New("display name is too long")

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(c *gin.Context) {
	c.String(http.StatusOK, healthMessage)
}

// createRoomHandler opens a pending room and returns its code.
func (s *Server) createRoomHandler(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request body."})
		return
	}

	var (
		code    string
		mode    room.Mode
		roomErr error
	)
	err := s.hub.Do(c.Request.Context(), func(rt *router.Router) {
		code, mode, roomErr = rt.CreateRoom(req.Mode)
	})
	switch {
	case err != nil:
		s.log.WithError(err).Error("Create room failed")
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "Server is shutting down."})
	case errors.Is(roomErr, room.ErrInvalidMode):
		c.JSON(http.StatusBadRequest, errorResponse{Error: `Mode must be "full" or "privacy".`})
	case roomErr != nil:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Could not create room."})
	default:
		c.JSON(http.StatusCreated, roomResponse{Code: code, Mode: mode})
	}
}

// getRoomHandler reports whether a room exists and how many members it has.
func (s *Server) getRoomHandler(c *gin.Context) {
	code := normalizeCode(c.Param("code"))

	var (
		resp  roomResponse
		found bool
	)
	err := s.hub.Do(c.Request.Context(), func(rt *router.Router) {
		r, ok := rt.Store().Get(code)
		if !ok {
			return
		}
		found = true
		resp = roomResponse{Code: r.Code, Mode: r.Mode, Members: r.Count()}
	})
	switch {
	case err != nil:
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "Server is shutting down."})
	case !found:
		c.JSON(http.StatusNotFound, errorResponse{Error: "Room not found."})
	default:
		c.JSON(http.StatusOK, resp)
	}
}

// webSocketHandler validates the room binding, upgrades the connection and
// hands the client to the hub. Invalid bindings are refused before upgrade.
func (s *Server) webSocketHandler(c *gin.Context) {
	code := normalizeCode(c.Query("room"))
	name, err := sanitizeName(c.Query("name"), s.cfg.Room.MaxNameLength)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var exists, full bool
	if err := s.hub.Do(c.Request.Context(), func(rt *router.Router) {
		r, ok := rt.Store().Get(code)
		exists = ok
		full = ok && s.cfg.Room.MaxMembers > 0 && r.Count() >= s.cfg.Room.MaxMembers
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "Server is shutting down."})
		return
	}
	switch {
	case !exists:
		c.JSON(http.StatusNotFound, errorResponse{Error: "Room not found."})
		return
	case full:
		c.JSON(http.StatusConflict, errorResponse{Error: "Room is full."})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := NewClient(conn, s.hub, c.ClientIP(), s.cfg, s.log)
	if err := s.hub.Register(client, code, name); err != nil {
		// The room vanished or filled up between the check and the join.
		client.log.WithError(err).WithFields(logrus.Fields{"room": code, "name": name}).Warn("Join refused after upgrade")
		closeWithReason(conn, joinFailureReason(err))
	}
}

func closeWithReason(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = conn.Close()
}

func joinFailureReason(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "Room not found."
	case errors.Is(err, room.ErrRoomFull):
		return "Room is full."
	case errors.Is(err, ErrHubClosed):
		return "Server is shutting down."
	default:
		return "Could not join room."
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// sanitizeName trims, bounds and HTML-escapes a display name.
func sanitizeName(name string, maxLength int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", room.ErrInvalidName
	}
	if maxLength > 0 && utf8.RuneCountInString(name) > maxLength {
		return "", fmt.Errorf("%w (max %d characters)", errNameTooLong, maxLength)
	}
	return html.EscapeString(name), nil
}
