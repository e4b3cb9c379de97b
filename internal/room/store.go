package room

import (
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Tyrowin/roomhub/internal/ratelimit"
)

var (
	ErrRoomNotFound = errors.New("room does not exist")
	ErrRoomFull     = errors.New("room is full")
	ErrInvalidName  = errors.New("display name is required")
	ErrInvalidMode  = errors.New("invalid room mode")
	ErrNotConnected = errors.New("connection is not in a room")
)

const (
	// Alphabet is the set of characters room codes are drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	DefaultCodeLength = 6
)

// Palette holds the colours handed out to members in join order.
var Palette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#42d4f4", "#f032e6", "#9a6324",
}

// Store is the sole owner of room state. It is not safe for concurrent use:
// the hub event loop serialises every call.
type Store struct {
	rooms      map[string]*Room
	conns      map[string]string // handle -> room code
	cooldown   *ratelimit.Cooldown
	rnd        *rand.Rand
	now        func() time.Time
	newHandle  func() string
	codeLength int
	maxMembers int
}

// Option configures a Store.
type Option func(*Store)

// WithRand makes code generation, opponent and symbol draws reproducible.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.rnd = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCodeLength sets the number of characters in a room code.
func WithCodeLength(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.codeLength = n
		}
	}
}

// WithMaxMembers caps room size. Zero means unlimited.
func WithMaxMembers(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.maxMembers = n
		}
	}
}

// WithCooldown sets the minimum gap between accepted chat messages.
func WithCooldown(d time.Duration) Option {
	return func(s *Store) { s.cooldown = ratelimit.NewCooldown(d) }
}

// WithHandleGenerator replaces the UUID handle source.
func WithHandleGenerator(fn func() string) Option {
	return func(s *Store) { s.newHandle = fn }
}

// NewStore returns an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		rooms:      make(map[string]*Room),
		conns:      make(map[string]string),
		cooldown:   ratelimit.NewCooldown(ratelimit.DefaultWindow),
		rnd:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:        time.Now,
		newHandle:  func() string { return uuid.NewString() },
		codeLength: DefaultCodeLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rand exposes the store's random source so game draws share its seed.
func (s *Store) Rand() *rand.Rand {
	return s.rnd
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// CreateRoom allocates a code not used by any live room and registers an
// empty room under it. The room stays pending until its first join.
func (s *Store) CreateRoom(mode Mode) (*Room, error) {
	if mode != ModeFull && mode != ModePrivacy {
		return nil, ErrInvalidMode
	}
	code := s.generateCode()
	r := newRoom(code, mode, s.now())
	s.rooms[code] = r
	return r, nil
}

func (s *Store) generateCode() string {
	var b strings.Builder
	for {
		b.Reset()
		for i := 0; i < s.codeLength; i++ {
			b.WriteByte(Alphabet[s.rnd.IntN(len(Alphabet))])
		}
		if _, taken := s.rooms[b.String()]; !taken {
			return b.String()
		}
	}
}

// JoinRoom adds a connection named name to the room with the given code and
// returns the new member, whose Handle identifies the connection from now on.
func (s *Store) JoinRoom(code, name string) (*Room, Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Member{}, ErrInvalidName
	}
	r, ok := s.rooms[code]
	if !ok {
		return nil, Member{}, ErrRoomNotFound
	}
	if s.maxMembers > 0 && r.Count() >= s.maxMembers {
		return nil, Member{}, ErrRoomFull
	}

	m := Member{
		Handle:   s.newHandle(),
		Name:     name,
		Color:    Palette[r.joins%len(Palette)],
		JoinedAt: s.now(),
	}
	r.add(m)
	s.conns[m.Handle] = code
	return r, m, nil
}

// Departure describes everything a Leave tore down.
type Departure struct {
	Room    *Room
	Member  Member
	Deleted bool

	// CallPeer is the remaining call participant when the leaver was paired.
	CallPeer  string
	CallEnded bool

	// GameReset is set when a running game was stopped by this departure.
	GameReset bool
}

// Leave removes handle from its room, releases its rate-limit state, ends any
// call or game it took part in and deletes the room once it is empty.
func (s *Store) Leave(handle string) (Departure, error) {
	code, ok := s.conns[handle]
	if !ok {
		return Departure{}, ErrNotConnected
	}
	delete(s.conns, handle)
	s.cooldown.Release(handle)

	r, ok := s.rooms[code]
	if !ok {
		return Departure{}, ErrRoomNotFound
	}
	m, _ := r.remove(handle)
	d := Departure{Room: r, Member: m}

	if peer, ended := r.Call.End(handle); ended {
		d.CallEnded = true
		if _, stillHere := r.members[peer]; stillHere {
			d.CallPeer = peer
		}
	}
	if r.Game.Active() && (r.Game.Involves(handle) || r.Count() < 2) {
		d.GameReset = r.Game.Reset()
	}

	if r.Count() == 0 {
		r.Call.Reset()
		r.Game.Reset()
		delete(s.rooms, code)
		d.Deleted = true
	}
	return d, nil
}

// Get returns the live room with code.
func (s *Store) Get(code string) (*Room, bool) {
	r, ok := s.rooms[code]
	return r, ok
}

// Lookup resolves a connection to its room and member record.
func (s *Store) Lookup(handle string) (*Room, Member, bool) {
	code, ok := s.conns[handle]
	if !ok {
		return nil, Member{}, false
	}
	r, ok := s.rooms[code]
	if !ok {
		return nil, Member{}, false
	}
	m, ok := r.Member(handle)
	return r, m, ok
}

// AllowMessage applies the chat cooldown to handle at the store clock.
func (s *Store) AllowMessage(handle string) bool {
	return s.cooldown.AllowAt(handle, s.now())
}

// SweepPending deletes rooms nobody has joined within maxAge of creation and
// returns their codes.
func (s *Store) SweepPending(maxAge time.Duration) []string {
	if maxAge <= 0 {
		return nil
	}
	cutoff := s.now().Add(-maxAge)
	var removed []string
	for code, r := range s.rooms {
		if r.joins == 0 && r.CreatedAt.Before(cutoff) {
			delete(s.rooms, code)
			removed = append(removed, code)
		}
	}
	return removed
}

// Len returns the number of rooms, pending ones included.
func (s *Store) Len() int {
	return len(s.rooms)
}

// Connections returns the number of bound connections.
func (s *Store) Connections() int {
	return len(s.conns)
}

// TrackedCooldowns returns how many connections hold rate-limit state.
func (s *Store) TrackedCooldowns() int {
	return s.cooldown.Len()
}
