// Package server coordinates client registration, event dispatch, and
// connection cleanup for the roomhub WebSocket system via the Hub type.
package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/roomhub/internal/room"
	"github.com/Tyrowin/roomhub/internal/router"
)

// ErrHubClosed is returned to callers that reach the hub after Shutdown.
var ErrHubClosed = errors.New("hub is shut down")

// Hub owns every bound client and the room coordinator. All room state is
// touched only from the Run goroutine; everything else enters through its
// channels.
type Hub struct {
	router     *router.Router
	clients    map[string]*Client
	dropped    []*Client
	inbound    chan inboundFrame
	register   chan registration
	unregister chan *Client
	exec       chan func()
	pendingTTL time.Duration
	log        *logrus.Entry
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub over store. Rooms nobody joins within pendingTTL are
// swept; zero disables sweeping.
func NewHub(store *room.Store, logger *logrus.Logger, pendingTTL time.Duration, opts ...router.Option) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:    make(map[string]*Client),
		inbound:    make(chan inboundFrame, 256),
		register:   make(chan registration),
		unregister: make(chan *Client),
		exec:       make(chan func()),
		pendingTTL: pendingTTL,
		log:        logger.WithField("component", "hub"),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	h.router = router.New(store, h, logger, opts...)
	return h
}

// Deliver queues payload on the client bound to handle. It implements
// router.Outbox and must only be called from the Run goroutine. A client
// whose buffer is full is dropped once the current event completes.
func (h *Hub) Deliver(handle string, payload []byte) {
	client, ok := h.clients[handle]
	if !ok || client.closed {
		return
	}
	select {
	case client.send <- payload:
	default:
		client.closed = true
		h.dropped = append(h.dropped, client)
	}
}

// Do runs fn on the hub goroutine and waits for it to return.
func (h *Hub) Do(ctx context.Context, fn func(rt *router.Router)) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn(h.router)
	}

	select {
	case h.exec <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubClosed
	}
}

// Register binds an upgraded client to room code under name. On success the
// hub owns the client and has started its pumps.
func (h *Hub) Register(client *Client, code, name string) error {
	reg := registration{client: client, code: code, name: name, result: make(chan error, 1)}
	select {
	case h.register <- reg:
	case <-h.done:
		return ErrHubClosed
	}
	select {
	case err := <-reg.result:
		return err
	case <-h.done:
		return ErrHubClosed
	}
}

// Run starts the hub's main event loop. It returns once Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	var sweep <-chan time.Time
	if h.pendingTTL > 0 {
		ticker := time.NewTicker(sweepInterval(h.pendingTTL))
		defer ticker.Stop()
		sweep = ticker.C
	}

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case reg := <-h.register:
			h.handleRegister(reg)

		case client := <-h.unregister:
			h.detach(client, "connection closed")

		case frame := <-h.inbound:
			h.handleInbound(frame)

		case task := <-h.exec:
			h.safeExec(task)

		case <-sweep:
			h.router.Sweep(h.pendingTTL)
		}

		h.flushDropped()
	}
}

func sweepInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, time.Second)
}

func (h *Hub) handleRegister(reg registration) {
	if reg.client == nil {
		h.log.Warn("Received nil client registration; skipping")
		reg.result <- errors.New("nil client")
		return
	}

	member, err := h.router.Join(reg.code, reg.name)
	if err != nil {
		reg.result <- err
		return
	}

	client := reg.client
	client.handle = member.Handle
	client.log = client.log.WithFields(logrus.Fields{"conn": member.Handle, "room": reg.code})
	client.closed = false
	h.clients[member.Handle] = client

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()

	h.router.Welcome(member.Handle)
	h.log.WithFields(logrus.Fields{
		"addr":    client.addr,
		"conn":    member.Handle,
		"clients": len(h.clients),
	}).Info("Client registered")
	reg.result <- nil
}

func (h *Hub) handleInbound(frame inboundFrame) {
	client := frame.client
	if current, ok := h.clients[client.handle]; !ok || current != client {
		return
	}
	if err := h.router.Dispatch(client.handle, frame.payload); err != nil {
		client.log.WithError(err).Debug("Frame rejected")
	}
}

func (h *Hub) safeExec(task func()) {
	defer func() {
		if r := recover(); r != nil {
			h.log.WithField("panic", r).Error("Recovered from panic in hub task")
		}
	}()
	task()
}

// detach unbinds client, closes its send channel and removes it from its
// room. It is a no-op for clients that are already gone.
func (h *Hub) detach(client *Client, reason string) {
	if client == nil {
		return
	}
	current, ok := h.clients[client.handle]
	if !ok || current != client {
		return
	}
	delete(h.clients, client.handle)
	client.closed = true
	close(client.send)

	h.router.Disconnect(client.handle)
	h.log.WithFields(logrus.Fields{
		"addr":    client.addr,
		"conn":    client.handle,
		"reason":  reason,
		"clients": len(h.clients),
	}).Info("Client unregistered")
}

// flushDropped detaches clients whose buffers overflowed. Detaching notifies
// their rooms, which can overflow further clients, so it loops until stable.
func (h *Hub) flushDropped() {
	for len(h.dropped) > 0 {
		client := h.dropped[0]
		h.dropped = h.dropped[1:]
		h.detach(client, "send buffer full")
	}
}

// shutdownClients gracefully closes all active client connections.
func (h *Hub) shutdownClients() {
	h.log.Info("Shutting down all client connections...")

	for handle, client := range h.clients {
		delete(h.clients, handle)
		client.closed = true
		close(client.send)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				client.log.WithError(err).Warn("Error closing client connection")
			}
		}
	}

	h.log.Info("Closed all client connections")
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("Initiating hub shutdown...")

	h.cancel()

	done := make(chan struct{})
	go func() {
		<-h.done
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
