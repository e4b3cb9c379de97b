package router

import (
	"encoding/json"
	"time"

	"github.com/Tyrowin/roomhub/internal/history"
	"github.com/Tyrowin/roomhub/internal/room"
)

// Inbound event names.
const (
	EventMessage          = "message"
	EventTyping           = "typing"
	EventCallRequest      = "call_request"
	EventCallResponse     = "call_response"
	EventOffer            = "offer"
	EventAnswer           = "answer"
	EventICECandidate     = "ice_candidate"
	EventCallEnd          = "call_end"
	EventGameStartRequest = "game_start_request"
	EventGameMove         = "game_move"
	EventGameResetRequest = "game_reset_request"
)

// Outbound-only event names.
const (
	EventSession          = "session"
	EventHistory          = "history"
	EventUserCount        = "user_count"
	EventUsersList        = "room_users_list"
	EventEnableGameStart  = "enable_game_start"
	EventDisableGameStart = "disable_game_start"
	EventCallStatus       = "call_status"
	EventCallAccepted     = "call_accepted"
	EventCallRejected     = "call_rejected"
	EventGameStart        = "game_start"
	EventGameStatus       = "game_status"
	EventGameUpdate       = "game_update"
	EventGameResult       = "game_result"
	EventGameReset        = "game_reset"
	EventError            = "error"
)

// SystemName is the sender shown on presence and game notices.
const SystemName = "System"

// Envelope is the frame exchanged in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func encode(event string, data any) ([]byte, error) {
	if data == nil {
		data = struct{}{}
	}
	return json.Marshal(outbound{Event: event, Data: data})
}

// Inbound payloads.

type messageIn struct {
	Text string `json:"text"`
}

type callRequestIn struct {
	TargetID string `json:"targetId"`
}

type callResponseIn struct {
	RequesterID string `json:"requesterId"`
	Action      string `json:"action"`
}

type relayIn struct {
	Payload  json.RawMessage `json:"payload"`
	TargetID string          `json:"targetId"`
}

type gameMoveIn struct {
	Index  *int   `json:"index"`
	Symbol string `json:"symbol"`
}

// Outbound payloads.

// SessionOut tells a freshly joined connection who it is.
type SessionOut struct {
	ID    string    `json:"id"`
	Room  string    `json:"room"`
	Name  string    `json:"name"`
	Mode  room.Mode `json:"mode"`
	Color string    `json:"color"`
}

// HistoryOut replays the room backlog to a joining connection.
type HistoryOut struct {
	Messages []history.Message `json:"messages"`
}

// MessageOut is a chat line or a system notice.
type MessageOut struct {
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Color     string    `json:"color,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	System    bool      `json:"system,omitempty"`
}

// NameOut names the member behind a typing or call_end notice.
type NameOut struct {
	Name string `json:"name"`
}

// CountOut carries the room member count.
type CountOut struct {
	Count int `json:"count"`
}

// UsersOut lists the room members in join order.
type UsersOut struct {
	Users []room.Member `json:"users"`
}

// TextOut is a free-form status or error notice.
type TextOut struct {
	Message string `json:"message"`
}

// CallRequestOut invites the callee to answer a call.
type CallRequestOut struct {
	From        string `json:"from"`
	RequesterID string `json:"requesterId"`
}

// CallAcceptedOut tells the requester the callee accepted.
type CallAcceptedOut struct {
	From       string `json:"from"`
	AcceptedID string `json:"acceptedId"`
}

// CallRejectedOut tells a participant the call will not happen.
type CallRejectedOut struct {
	From   string `json:"from"`
	Reason string `json:"reason"`
}

// RelayOut forwards an opaque signalling payload to the call peer.
type RelayOut struct {
	Payload json.RawMessage `json:"payload"`
	FromID  string          `json:"fromId"`
}

// GameStartOut announces a new game to one of its players.
type GameStartOut struct {
	PlayerX    string `json:"playerX"`
	PlayerO    string `json:"playerO"`
	PlayerXID  string `json:"playerXId"`
	PlayerOID  string `json:"playerOId"`
	YourSymbol string `json:"yourSymbol"`
	IsYourTurn bool   `json:"isYourTurn"`
	Turn       string `json:"turn"`
}

// GameUpdateOut reports an accepted move and whose turn is next.
type GameUpdateOut struct {
	Index      int      `json:"index"`
	Symbol     string   `json:"symbol"`
	PlayerName string   `json:"playerName"`
	Board      []string `json:"board"`
	NextTurn   string   `json:"nextTurn,omitempty"`
	NextTurnID string   `json:"nextTurnId,omitempty"`
}

// GameResultOut reports a win or a draw.
type GameResultOut struct {
	Winner  string `json:"winner,omitempty"`
	Draw    bool   `json:"draw"`
	Message string `json:"message"`
	Line    []int  `json:"line,omitempty"`
}

// ReasonOut explains why a game was reset.
type ReasonOut struct {
	Reason string `json:"reason"`
}
