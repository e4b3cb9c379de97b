package game

import (
	"errors"
	"math/rand/v2"
)

var (
	ErrNotEnoughPlayers = errors.New("need 2 players to start XOX")
	ErrGameActive       = errors.New("a game is already active")
	ErrNotActive        = errors.New("game not active")
	ErrNotPlayer        = errors.New("not an active player in this game")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrInvalidCell      = errors.New("cell index out of range")
	ErrCellTaken        = errors.New("cell already taken")
	ErrInvalidSymbol    = errors.New("invalid symbol")
)

// Outcome describes the effect of an accepted move.
type Outcome struct {
	Index  int
	Symbol Mark
	Board  Board

	// Set while the game continues.
	Next       Mark
	NextPlayer string

	// Set once the game is over.
	Over   bool
	Winner Mark
	Line   [3]int
	Draw   bool
}

// Game is the per-room tic-tac-toe state. The zero value is an inactive game.
type Game struct {
	playerX string
	playerO string
	board   Board
	turn    Mark
	active  bool
}

// Start begins a game between requester and one other member picked
// uniformly at random, then assigns X and O at random. X moves first.
func (g *Game) Start(requester string, members []string, rnd *rand.Rand) (x, o string, err error) {
	if len(members) < 2 {
		return "", "", ErrNotEnoughPlayers
	}
	if g.active {
		return "", "", ErrGameActive
	}

	others := make([]string, 0, len(members)-1)
	for _, m := range members {
		if m != requester {
			others = append(others, m)
		}
	}
	if len(others) == 0 {
		return "", "", ErrNotEnoughPlayers
	}

	opponent := others[rnd.IntN(len(others))]
	x, o = requester, opponent
	if rnd.IntN(2) == 1 {
		x, o = o, x
	}

	g.playerX = x
	g.playerO = o
	g.board = Board{}
	g.turn = X
	g.active = true
	return x, o, nil
}

// Move validates and applies a move by handle. Validation order: the game
// must be active, handle must be a player, symbol must be both the mover's
// and the current turn's, and index must name an empty cell. A rejected move
// leaves the game untouched.
func (g *Game) Move(handle string, index int, symbol Mark) (Outcome, error) {
	if !g.active {
		return Outcome{}, ErrNotActive
	}
	own, ok := g.symbolOf(handle)
	if !ok {
		return Outcome{}, ErrNotPlayer
	}
	if symbol != g.turn || own != g.turn {
		return Outcome{}, ErrNotYourTurn
	}
	if index < 0 || index >= len(g.board) {
		return Outcome{}, ErrInvalidCell
	}
	if g.board[index] != Empty {
		return Outcome{}, ErrCellTaken
	}

	g.board[index] = symbol
	out := Outcome{Index: index, Symbol: symbol, Board: g.board}

	if winner, line, won := g.board.Winner(); won {
		out.Over, out.Winner, out.Line = true, winner, line
		g.finish()
		return out, nil
	}
	if g.board.Full() {
		out.Over, out.Draw = true, true
		g.finish()
		return out, nil
	}

	g.turn = g.turn.Other()
	out.Next = g.turn
	out.NextPlayer = g.playerFor(g.turn)
	return out, nil
}

// Reset forces the game inactive. It reports whether a game was running.
func (g *Game) Reset() bool {
	wasActive := g.active
	g.finish()
	g.board = Board{}
	return wasActive
}

// Active reports whether a game is in progress.
func (g *Game) Active() bool {
	return g.active
}

// Players returns the X and O handles of the running game.
func (g *Game) Players() (x, o string) {
	return g.playerX, g.playerO
}

// Involves reports whether handle plays in the running game.
func (g *Game) Involves(handle string) bool {
	_, ok := g.symbolOf(handle)
	return g.active && ok
}

// Board returns a copy of the grid.
func (g *Game) Board() Board {
	return g.board
}

// Turn returns whose move it is.
func (g *Game) Turn() Mark {
	return g.turn
}

func (g *Game) symbolOf(handle string) (Mark, bool) {
	switch {
	case handle == "":
		return Empty, false
	case handle == g.playerX:
		return X, true
	case handle == g.playerO:
		return O, true
	default:
		return Empty, false
	}
}

func (g *Game) playerFor(m Mark) string {
	if m == X {
		return g.playerX
	}
	return g.playerO
}

func (g *Game) finish() {
	g.active = false
	g.playerX = ""
	g.playerO = ""
	g.turn = X
}
