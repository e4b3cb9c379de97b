package router

import (
	"errors"

	"github.com/Tyrowin/roomhub/internal/call"
	"github.com/Tyrowin/roomhub/internal/game"
	"github.com/Tyrowin/roomhub/internal/room"
)

// Error classes every rejected event falls into.
var (
	ErrValidation    = errors.New("validation error")
	ErrAuthorization = errors.New("authorization error")
	ErrNotFound      = errors.New("not found")
	ErrStateConflict = errors.New("state conflict")
)

// Classify maps a component error onto its class. Unknown errors map to nil.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation),
		errors.Is(err, game.ErrInvalidCell),
		errors.Is(err, game.ErrInvalidSymbol),
		errors.Is(err, room.ErrInvalidName),
		errors.Is(err, room.ErrInvalidMode):
		return ErrValidation
	case errors.Is(err, ErrAuthorization),
		errors.Is(err, call.ErrNotInCall),
		errors.Is(err, call.ErrNotCallee),
		errors.Is(err, call.ErrTargetMismatch),
		errors.Is(err, game.ErrNotPlayer),
		errors.Is(err, game.ErrNotYourTurn):
		return ErrAuthorization
	case errors.Is(err, ErrNotFound),
		errors.Is(err, room.ErrRoomNotFound),
		errors.Is(err, room.ErrNotConnected),
		errors.Is(err, call.ErrPeerUnavailable),
		errors.Is(err, call.ErrNoAvailablePeer):
		return ErrNotFound
	case errors.Is(err, ErrStateConflict),
		errors.Is(err, call.ErrPairingMismatch),
		errors.Is(err, call.ErrAlreadyInCall),
		errors.Is(err, game.ErrGameActive),
		errors.Is(err, game.ErrNotActive),
		errors.Is(err, game.ErrCellTaken),
		errors.Is(err, game.ErrNotEnoughPlayers),
		errors.Is(err, room.ErrRoomFull):
		return ErrStateConflict
	default:
		return nil
	}
}

func kindOf(err error) string {
	if k := Classify(err); k != nil {
		return k.Error()
	}
	return "internal"
}
