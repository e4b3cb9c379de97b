// Package router dispatches inbound room events to their handlers and fans
// the resulting notifications out to room members.
package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/roomhub/internal/room"
)

// DefaultMaxTextLength bounds a chat message, in runes.
const DefaultMaxTextLength = 1000

// Outbox delivers an encoded frame to one connection. Delivery must not
// block; a full or closed connection simply drops the frame.
type Outbox interface {
	Deliver(handle string, payload []byte)
}

type request struct {
	handle string
	room   *room.Room
	member room.Member
	data   json.RawMessage
}

type handlerFunc func(req *request) error

// Router is the event dispatcher of the coordinator. Like room.Store it is
// driven by a single goroutine and holds no locks.
type Router struct {
	store         *room.Store
	out           Outbox
	log           *logrus.Entry
	handlers      map[string]handlerFunc
	maxTextLength int
}

// Option configures a Router.
type Option func(*Router)

// WithMaxTextLength bounds chat messages.
func WithMaxTextLength(n int) Option {
	return func(rt *Router) {
		if n > 0 {
			rt.maxTextLength = n
		}
	}
}

// New builds a Router over store that writes through out.
func New(store *room.Store, out Outbox, logger *logrus.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	rt := &Router{
		store:         store,
		out:           out,
		log:           logger.WithField("component", "router"),
		maxTextLength: DefaultMaxTextLength,
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.handlers = map[string]handlerFunc{
		EventMessage:          rt.handleMessage,
		EventTyping:           rt.handleTyping,
		EventCallRequest:      rt.handleCallRequest,
		EventCallResponse:     rt.handleCallResponse,
		EventOffer:            rt.relay(EventOffer),
		EventAnswer:           rt.relay(EventAnswer),
		EventICECandidate:     rt.relay(EventICECandidate),
		EventCallEnd:          rt.handleCallEnd,
		EventGameStartRequest: rt.handleGameStart,
		EventGameMove:         rt.handleGameMove,
		EventGameResetRequest: rt.handleGameReset,
	}
	return rt
}

// Store returns the underlying room store.
func (rt *Router) Store() *room.Store {
	return rt.store
}

// CreateRoom opens a new pending room and returns its code.
func (rt *Router) CreateRoom(mode string) (string, room.Mode, error) {
	m, err := room.ParseMode(mode)
	if err != nil {
		return "", "", err
	}
	r, err := rt.store.CreateRoom(m)
	if err != nil {
		return "", "", err
	}
	rt.log.WithFields(logrus.Fields{"room": r.Code, "mode": r.Mode}).Info("Room created")
	return r.Code, r.Mode, nil
}

// Connect binds a new connection named name to the room code, replays the
// room backlog to it and announces it to the room.
func (rt *Router) Connect(code, name string) (room.Member, error) {
	m, err := rt.Join(code, name)
	if err != nil {
		return room.Member{}, err
	}
	rt.Welcome(m.Handle)
	return m, nil
}

// Join binds a new connection to the room without emitting anything. The
// caller must follow up with Welcome once it can deliver to the handle.
func (rt *Router) Join(code, name string) (room.Member, error) {
	_, m, err := rt.store.JoinRoom(code, name)
	if err != nil {
		rt.log.WithFields(logrus.Fields{"room": code, "name": name}).WithError(err).Warn("Join refused")
		return room.Member{}, fmt.Errorf("join %s: %w", code, err)
	}
	return m, nil
}

// Welcome sends the session, backlog and presence updates for a freshly
// joined handle.
func (rt *Router) Welcome(handle string) {
	r, m, ok := rt.store.Lookup(handle)
	if !ok {
		return
	}

	rt.send(m.Handle, EventSession, SessionOut{
		ID:    m.Handle,
		Room:  r.Code,
		Name:  m.Name,
		Mode:  r.Mode,
		Color: m.Color,
	})
	rt.send(m.Handle, EventHistory, HistoryOut{Messages: r.History.View()})

	rt.systemMessage(r, fmt.Sprintf("%s has joined the room.", m.Name), m.Handle)
	rt.send(m.Handle, EventMessage, rt.system(fmt.Sprintf("Welcome to room %s, %s!", r.Code, m.Name)))
	rt.presence(r)

	switch {
	case r.Game.Active():
		x, o := r.Game.Players()
		rt.send(m.Handle, EventGameStatus, TextOut{Message: fmt.Sprintf(
			"An XOX game is active with %s (X) and %s (O).", r.NameOf(x, "Player X"), r.NameOf(o, "Player O"))})
	case r.Count() >= 2:
		rt.broadcast(r, EventEnableGameStart, nil, "")
	default:
		rt.send(m.Handle, EventDisableGameStart, nil)
	}

	rt.log.WithFields(logrus.Fields{
		"room":    r.Code,
		"conn":    m.Handle,
		"name":    m.Name,
		"members": r.Count(),
	}).Info("Connection joined room")
}

// Disconnect removes handle from its room and notifies whoever remains.
func (rt *Router) Disconnect(handle string) {
	d, err := rt.store.Leave(handle)
	if err != nil {
		rt.log.WithField("conn", handle).WithError(err).Debug("Disconnect of unbound connection")
		return
	}
	r, name := d.Room, d.Member.Name
	entry := rt.log.WithFields(logrus.Fields{"room": r.Code, "conn": handle, "name": name})

	if d.CallPeer != "" {
		rt.send(d.CallPeer, EventCallEnd, NameOut{Name: name})
		entry.WithField("peer", d.CallPeer).Info("Call ended by disconnect")
	}

	if d.Deleted {
		entry.Info("Room is now empty and has been deleted")
		return
	}

	if d.GameReset {
		rt.broadcast(r, EventGameReset, ReasonOut{Reason: fmt.Sprintf("%s left the game. Game reset.", name)}, "")
		entry.Info("Game reset by disconnect")
	}
	rt.systemMessage(r, fmt.Sprintf("%s has left the room.", name), "")
	rt.presence(r)
	rt.gameStartAvailability(r)

	entry.WithField("members", r.Count()).Info("Connection left room")
}

// Dispatch decodes one inbound frame from handle and runs its handler. A
// failing or panicking handler only affects this event.
func (rt *Router) Dispatch(handle string, frame []byte) (err error) {
	defer func() {
		if p := recover(); p != nil {
			rt.log.WithFields(logrus.Fields{"conn": handle, "panic": p}).Error("Recovered from panic in event handler")
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()

	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil || env.Event == "" {
		rt.send(handle, EventError, TextOut{Message: "Invalid message format."})
		return fmt.Errorf("decode frame: %w", ErrValidation)
	}

	handler, ok := rt.handlers[env.Event]
	if !ok {
		rt.send(handle, EventError, TextOut{Message: fmt.Sprintf("Unknown event %q.", env.Event)})
		return fmt.Errorf("event %q: %w", env.Event, ErrValidation)
	}

	r, m, ok := rt.store.Lookup(handle)
	if !ok {
		rt.log.WithFields(logrus.Fields{"conn": handle, "event": env.Event}).Warn("Event from connection without a room")
		return fmt.Errorf("event %q: %w", env.Event, room.ErrNotConnected)
	}

	if err := handler(&request{handle: handle, room: r, member: m, data: env.Data}); err != nil {
		rt.log.WithFields(logrus.Fields{
			"room":  r.Code,
			"conn":  handle,
			"event": env.Event,
			"kind":  kindOf(err),
		}).WithError(err).Warn("Event rejected")
		return fmt.Errorf("event %q: %w", env.Event, err)
	}
	return nil
}

// Sweep deletes rooms created more than maxAge ago that nobody joined.
func (rt *Router) Sweep(maxAge time.Duration) []string {
	removed := rt.store.SweepPending(maxAge)
	for _, code := range removed {
		rt.log.WithField("room", code).Info("Pending room expired")
	}
	return removed
}

func (rt *Router) decode(req *request, v any) error {
	if len(req.data) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.data, v); err != nil {
		return errors.Join(ErrValidation, err)
	}
	return nil
}

func (rt *Router) send(handle, event string, data any) {
	payload, err := encode(event, data)
	if err != nil {
		rt.log.WithField("event", event).WithError(err).Error("Failed to encode event")
		return
	}
	rt.out.Deliver(handle, payload)
}

// broadcast sends to every member of r except the handle in except.
func (rt *Router) broadcast(r *room.Room, event string, data any, except string) {
	payload, err := encode(event, data)
	if err != nil {
		rt.log.WithField("event", event).WithError(err).Error("Failed to encode event")
		return
	}
	for _, h := range r.Handles() {
		if h != except {
			rt.out.Deliver(h, payload)
		}
	}
}

func (rt *Router) system(text string) MessageOut {
	return MessageOut{Name: SystemName, Message: text, Timestamp: rt.store.Now(), System: true}
}

func (rt *Router) systemMessage(r *room.Room, text, except string) {
	rt.broadcast(r, EventMessage, rt.system(text), except)
}

func (rt *Router) presence(r *room.Room) {
	rt.broadcast(r, EventUserCount, CountOut{Count: r.Count()}, "")
	rt.broadcast(r, EventUsersList, UsersOut{Users: r.Members()}, "")
}

func (rt *Router) gameStartAvailability(r *room.Room) {
	switch {
	case r.Count() < 2:
		rt.broadcast(r, EventDisableGameStart, nil, "")
	case !r.Game.Active():
		rt.broadcast(r, EventEnableGameStart, nil, "")
	}
}
