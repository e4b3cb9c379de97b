package router

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/roomhub/internal/game"
)

func (rt *Router) handleGameStart(req *request) error {
	r := req.room
	x, o, err := r.Game.Start(req.handle, r.Handles(), rt.store.Rand())
	if err != nil {
		msg := "Need 2 players to start XOX."
		if errors.Is(err, game.ErrGameActive) {
			msg = "A game is already active. Please wait or ask players to reset."
		}
		rt.send(req.handle, EventGameStatus, TextOut{Message: msg})
		return err
	}

	xName, oName := r.NameOf(x, "Player X"), r.NameOf(o, "Player O")
	start := GameStartOut{PlayerX: xName, PlayerO: oName, PlayerXID: x, PlayerOID: o, Turn: game.X.String()}

	forX := start
	forX.YourSymbol, forX.IsYourTurn = game.X.String(), true
	rt.send(x, EventGameStart, forX)

	forO := start
	forO.YourSymbol, forO.IsYourTurn = game.O.String(), false
	rt.send(o, EventGameStart, forO)

	banner := fmt.Sprintf("XOX game started! %s (X) vs %s (O).", xName, oName)
	for _, h := range r.Handles() {
		if h != x && h != o {
			rt.send(h, EventGameStatus, TextOut{Message: banner})
		}
	}
	rt.systemMessage(r, banner, "")
	rt.broadcast(r, EventDisableGameStart, nil, "")

	rt.log.WithFields(logrus.Fields{"room": r.Code, "x": x, "o": o}).Info("XOX game started")
	return nil
}

func (rt *Router) handleGameMove(req *request) error {
	var in gameMoveIn
	if err := rt.decode(req, &in); err != nil || in.Index == nil {
		rt.send(req.handle, EventGameStatus, TextOut{Message: "Invalid move data received."})
		if err == nil {
			err = fmt.Errorf("move without index: %w", ErrValidation)
		}
		return err
	}
	symbol, err := game.ParseMark(in.Symbol)
	if err != nil {
		rt.send(req.handle, EventGameStatus, TextOut{Message: "Invalid move data received."})
		return err
	}

	r := req.room
	out, err := r.Game.Move(req.handle, *in.Index, symbol)
	if err != nil {
		msg := "Invalid move: that cell is not available."
		switch {
		case errors.Is(err, game.ErrNotActive):
			msg = "Game not active."
		case errors.Is(err, game.ErrNotPlayer), errors.Is(err, game.ErrNotYourTurn):
			msg = "It's not your turn or you are not an active player in this game."
		}
		rt.send(req.handle, EventGameStatus, TextOut{Message: msg})
		return err
	}

	update := GameUpdateOut{
		Index:      out.Index,
		Symbol:     out.Symbol.String(),
		PlayerName: req.member.Name,
		Board:      out.Board.Strings(),
	}
	if !out.Over {
		update.NextTurn = out.Next.String()
		update.NextTurnID = out.NextPlayer
	}
	rt.broadcast(r, EventGameUpdate, update, "")

	if !out.Over {
		return nil
	}

	result := GameResultOut{Draw: out.Draw, Message: "It's a draw!"}
	if !out.Draw {
		result.Winner = out.Winner.String()
		result.Line = out.Line[:]
		result.Message = fmt.Sprintf("%s (%s) wins!", req.member.Name, out.Winner)
	}
	rt.broadcast(r, EventGameResult, result, "")
	if r.Count() >= 2 {
		rt.broadcast(r, EventEnableGameStart, nil, "")
	}

	rt.log.WithFields(logrus.Fields{"room": r.Code, "result": result.Message}).Info("XOX game ended")
	return nil
}

// handleGameReset lets any member end the current game, so a room whose
// players went idle can always start over.
func (rt *Router) handleGameReset(req *request) error {
	r := req.room
	wasActive := r.Game.Reset()
	rt.broadcast(r, EventGameReset, ReasonOut{Reason: fmt.Sprintf("%s requested a new game.", req.member.Name)}, "")
	if r.Count() >= 2 {
		rt.broadcast(r, EventEnableGameStart, nil, "")
	}

	rt.log.WithFields(logrus.Fields{"room": r.Code, "conn": req.handle, "active": wasActive}).Info("XOX game reset")
	return nil
}
