// Package server implements the HTTP and WebSocket entry layer of roomhub.
//
// A single Hub goroutine owns the room coordinator; client pumps, HTTP
// handlers and the pending-room sweeper reach it only through channels. The
// implementation is organized into specialized files for configuration, hub
// management, clients, routing, and HTTP handlers.
package server
