// Package server defines shared payload types and utility helpers that are
// reused across client, hub and HTTP logic.
package server

import (
	"strings"

	"github.com/Tyrowin/roomhub/internal/room"
)

// createRoomRequest is the body of POST /api/rooms.
type createRoomRequest struct {
	Mode string `json:"mode"`
}

// roomResponse describes a room over the HTTP API.
type roomResponse struct {
	Code    string    `json:"code"`
	Mode    room.Mode `json:"mode"`
	Members int       `json:"members"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// inboundFrame is a raw frame read from a bound client, queued for the hub.
type inboundFrame struct {
	client  *Client
	payload []byte
}

// registration asks the hub to bind an upgraded client to a room.
type registration struct {
	client *Client
	code   string
	name   string
	result chan error
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
