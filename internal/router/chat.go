package router

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/Tyrowin/roomhub/internal/history"
)

const slowDownMessage = "Please slow down! You are sending messages too fast."

func (rt *Router) handleMessage(req *request) error {
	var in messageIn
	if err := rt.decode(req, &in); err != nil {
		rt.send(req.handle, EventError, TextOut{Message: "Invalid message format."})
		return err
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return fmt.Errorf("empty message: %w", ErrValidation)
	}
	if utf8.RuneCountInString(text) > rt.maxTextLength {
		rt.send(req.handle, EventError, TextOut{Message: fmt.Sprintf("Message too long (max %d characters).", rt.maxTextLength)})
		return fmt.Errorf("message of %d runes: %w", utf8.RuneCountInString(text), ErrValidation)
	}

	if !rt.store.AllowMessage(req.handle) {
		rt.send(req.handle, EventError, TextOut{Message: slowDownMessage})
		return fmt.Errorf("cooldown: %w", ErrStateConflict)
	}

	msg := history.Message{
		Name:      req.member.Name,
		Text:      html.EscapeString(text),
		Color:     req.member.Color,
		Timestamp: rt.store.Now(),
	}
	req.room.History.Append(msg)
	rt.broadcast(req.room, EventMessage, MessageOut{
		Name:      msg.Name,
		Message:   msg.Text,
		Color:     msg.Color,
		Timestamp: msg.Timestamp,
	}, "")
	return nil
}

func (rt *Router) handleTyping(req *request) error {
	rt.broadcast(req.room, EventTyping, NameOut{Name: req.member.Name}, req.handle)
	return nil
}
