package game_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomhub/internal/game"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func boardOf(xs, os []int) game.Board {
	var b game.Board
	for _, i := range xs {
		b[i] = game.X
	}
	for _, i := range os {
		b[i] = game.O
	}
	return b
}

func TestBoardWinner(t *testing.T) {
	tests := []struct {
		name     string
		board    game.Board
		winner   game.Mark
		line     [3]int
		won      bool
		fullDraw bool
	}{
		{
			name:   "column win for X",
			board:  boardOf([]int{0, 3, 6}, []int{1, 2}),
			winner: game.X,
			line:   [3]int{0, 3, 6},
			won:    true,
		},
		{
			name:   "row win for O",
			board:  boardOf([]int{0, 1, 8}, []int{3, 4, 5}),
			winner: game.O,
			line:   [3]int{3, 4, 5},
			won:    true,
		},
		{
			name:   "anti-diagonal",
			board:  boardOf([]int{2, 4, 6}, []int{0, 1}),
			winner: game.X,
			line:   [3]int{2, 4, 6},
			won:    true,
		},
		{
			name:     "full board without a line is a draw",
			board:    boardOf([]int{0, 2, 3, 7, 8}, []int{1, 4, 5, 6}),
			fullDraw: true,
		},
		{
			name:  "empty board",
			board: game.Board{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner, line, won := tt.board.Winner()
			assert.Equal(t, tt.won, won)
			assert.Equal(t, tt.winner, winner)
			if tt.won {
				assert.Equal(t, tt.line, line)
			}
			assert.Equal(t, tt.fullDraw, tt.board.Full() && !won)
		})
	}
}

func TestParseMark(t *testing.T) {
	m, err := game.ParseMark("X")
	require.NoError(t, err)
	assert.Equal(t, game.X, m)
	assert.Equal(t, game.O, m.Other())

	_, err = game.ParseMark("Z")
	assert.ErrorIs(t, err, game.ErrInvalidSymbol)
}

func TestStartPreconditions(t *testing.T) {
	var g game.Game
	_, _, err := g.Start("a", []string{"a"}, seeded(1))
	assert.ErrorIs(t, err, game.ErrNotEnoughPlayers)

	_, _, err = g.Start("a", []string{"a", "b"}, seeded(1))
	require.NoError(t, err)

	_, _, err = g.Start("b", []string{"a", "b"}, seeded(1))
	assert.ErrorIs(t, err, game.ErrGameActive)
}

func TestStartPicksRequesterAndOneOther(t *testing.T) {
	members := []string{"a", "b", "c", "d"}
	seenOpponents := map[string]bool{}
	seenRequesterAsX := map[bool]bool{}

	for seed := uint64(0); seed < 64; seed++ {
		var g game.Game
		x, o, err := g.Start("b", members, seeded(seed))
		require.NoError(t, err)

		require.NotEqual(t, x, o)
		require.True(t, x == "b" || o == "b", "requester must play")
		opponent := x
		if x == "b" {
			opponent = o
		}
		seenOpponents[opponent] = true
		seenRequesterAsX[x == "b"] = true

		assert.True(t, g.Active())
		assert.Equal(t, game.X, g.Turn())
		assert.True(t, g.Involves(x))
		assert.True(t, g.Involves(o))
	}

	assert.NotContains(t, seenOpponents, "b")
	assert.Len(t, seenOpponents, 3, "every other member should be drawn eventually")
	assert.Len(t, seenRequesterAsX, 2, "requester should get both symbols across seeds")
}

func startFixed(t *testing.T) (*game.Game, string, string) {
	t.Helper()
	var g game.Game
	x, o, err := g.Start("a", []string{"a", "b"}, seeded(7))
	require.NoError(t, err)
	return &g, x, o
}

func TestMoveValidation(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(g *game.Game, x, o string)
		mover   func(x, o string) string
		index   int
		symbol  game.Mark
		wantErr error
	}{
		{
			name:    "not active",
			prepare: func(g *game.Game, _, _ string) { g.Reset() },
			mover:   func(x, _ string) string { return x },
			index:   0,
			symbol:  game.X,
			wantErr: game.ErrNotActive,
		},
		{
			name:    "spectator",
			mover:   func(_, _ string) string { return "spectator" },
			index:   0,
			symbol:  game.X,
			wantErr: game.ErrNotPlayer,
		},
		{
			name:    "O moves first",
			mover:   func(_, o string) string { return o },
			index:   0,
			symbol:  game.O,
			wantErr: game.ErrNotYourTurn,
		},
		{
			name:    "O claims X",
			mover:   func(_, o string) string { return o },
			index:   0,
			symbol:  game.X,
			wantErr: game.ErrNotYourTurn,
		},
		{
			name:    "index too high",
			mover:   func(x, _ string) string { return x },
			index:   9,
			symbol:  game.X,
			wantErr: game.ErrInvalidCell,
		},
		{
			name:    "negative index",
			mover:   func(x, _ string) string { return x },
			index:   -1,
			symbol:  game.X,
			wantErr: game.ErrInvalidCell,
		},
		{
			name: "occupied cell",
			prepare: func(g *game.Game, x, o string) {
				_, _ = g.Move(x, 4, game.X)
			},
			mover:   func(_, o string) string { return o },
			index:   4,
			symbol:  game.O,
			wantErr: game.ErrCellTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, x, o := startFixed(t)
			if tt.prepare != nil {
				tt.prepare(g, x, o)
			}
			before := g.Board()
			turn := g.Turn()

			_, err := g.Move(tt.mover(x, o), tt.index, tt.symbol)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, g.Board(), "rejected move must not change the board")
			assert.Equal(t, turn, g.Turn())
		})
	}
}

func TestMoveFlipsTurn(t *testing.T) {
	g, x, o := startFixed(t)

	out, err := g.Move(x, 4, game.X)
	require.NoError(t, err)
	assert.False(t, out.Over)
	assert.Equal(t, game.O, out.Next)
	assert.Equal(t, o, out.NextPlayer)
	assert.Equal(t, game.X, out.Board[4])
	assert.Equal(t, game.O, g.Turn())
}

func TestMoveWin(t *testing.T) {
	g, x, o := startFixed(t)

	moves := []struct {
		who    string
		index  int
		symbol game.Mark
	}{
		{x, 0, game.X}, {o, 1, game.O}, {x, 3, game.X}, {o, 2, game.O},
	}
	for _, m := range moves {
		_, err := g.Move(m.who, m.index, m.symbol)
		require.NoError(t, err)
	}

	out, err := g.Move(x, 6, game.X)
	require.NoError(t, err)
	assert.True(t, out.Over)
	assert.False(t, out.Draw)
	assert.Equal(t, game.X, out.Winner)
	assert.Equal(t, [3]int{0, 3, 6}, out.Line)

	assert.False(t, g.Active())
	px, po := g.Players()
	assert.Empty(t, px)
	assert.Empty(t, po)
}

func TestMoveDraw(t *testing.T) {
	g, x, o := startFixed(t)

	// X: 0 2 3 7 8, O: 1 4 5 6
	seq := []int{0, 1, 2, 4, 3, 5, 7, 6}
	for i, idx := range seq {
		who, sym := x, game.X
		if i%2 == 1 {
			who, sym = o, game.O
		}
		out, err := g.Move(who, idx, sym)
		require.NoError(t, err)
		require.False(t, out.Over, "move %d ended the game early", i)
	}

	out, err := g.Move(x, 8, game.X)
	require.NoError(t, err)
	assert.True(t, out.Over)
	assert.True(t, out.Draw)
	assert.Equal(t, game.Empty, out.Winner)
	assert.False(t, g.Active())
}

func TestReset(t *testing.T) {
	g, x, _ := startFixed(t)
	_, _ = g.Move(x, 0, game.X)

	assert.True(t, g.Reset())
	assert.False(t, g.Active())
	assert.Equal(t, game.Board{}, g.Board())
	assert.False(t, g.Involves(x))
	assert.False(t, g.Reset(), "second reset has nothing to stop")
}
