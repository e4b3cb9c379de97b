// Package room owns every live room and the registry binding connections to
// the room and display name they joined with.
package room

import (
	"fmt"
	"strings"
	"time"

	"github.com/Tyrowin/roomhub/internal/call"
	"github.com/Tyrowin/roomhub/internal/game"
	"github.com/Tyrowin/roomhub/internal/history"
)

// Mode is a room's retention policy, fixed at creation.
type Mode string

const (
	ModeFull    Mode = "full"
	ModePrivacy Mode = "privacy"
)

// Retention limits per mode.
const (
	FullCapacity    = 1000
	PrivacyCapacity = 8
	PrivacyView     = 5
)

// ParseMode maps user input to a Mode. Empty input selects ModeFull.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeFull:
		return ModeFull, nil
	case ModePrivacy:
		return ModePrivacy, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

func newLog(mode Mode) *history.Log {
	if mode == ModePrivacy {
		return history.New(PrivacyCapacity, PrivacyView)
	}
	return history.New(FullCapacity, FullCapacity)
}

// Member is one connection inside a room.
type Member struct {
	Handle   string    `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"-"`
}

// Room is the state of one live room. It is only reachable through a Store.
type Room struct {
	Code      string
	Mode      Mode
	CreatedAt time.Time

	History *history.Log
	Call    call.Pairing
	Game    game.Game

	order   []string
	members map[string]Member
	joins   int
}

func newRoom(code string, mode Mode, now time.Time) *Room {
	return &Room{
		Code:      code,
		Mode:      mode,
		CreatedAt: now,
		History:   newLog(mode),
		members:   make(map[string]Member),
	}
}

// Count returns the number of members.
func (r *Room) Count() int {
	return len(r.order)
}

// Handles returns member handles in join order.
func (r *Room) Handles() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Members returns members in join order.
func (r *Room) Members() []Member {
	out := make([]Member, 0, len(r.order))
	for _, h := range r.order {
		out = append(out, r.members[h])
	}
	return out
}

// Member looks up a member by handle.
func (r *Room) Member(handle string) (Member, bool) {
	m, ok := r.members[handle]
	return m, ok
}

// NameOf returns the display name of handle, or fallback if it left.
func (r *Room) NameOf(handle, fallback string) string {
	if m, ok := r.members[handle]; ok {
		return m.Name
	}
	return fallback
}

func (r *Room) add(m Member) {
	r.members[m.Handle] = m
	r.order = append(r.order, m.Handle)
	r.joins++
}

func (r *Room) remove(handle string) (Member, bool) {
	m, ok := r.members[handle]
	if !ok {
		return Member{}, false
	}
	delete(r.members, handle)
	for i, h := range r.order {
		if h == handle {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return m, true
}
