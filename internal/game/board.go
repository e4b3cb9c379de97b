// Package game implements the two-player tic-tac-toe played inside a room.
package game

import "fmt"

// Mark is the content of a cell, or a player's symbol.
type Mark uint8

const (
	Empty Mark = iota
	X
	O
)

func (m Mark) String() string {
	switch m {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return ""
	}
}

// Other returns the opposing symbol.
func (m Mark) Other() Mark {
	if m == X {
		return O
	}
	return X
}

// ParseMark accepts "X" or "O".
func ParseMark(s string) (Mark, error) {
	switch s {
	case "X":
		return X, nil
	case "O":
		return O, nil
	default:
		return Empty, fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}
}

// Board is a 3x3 grid in row-major order.
type Board [9]Mark

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Winner returns the mark completing a line, together with that line.
func (b Board) Winner() (Mark, [3]int, bool) {
	for _, l := range lines {
		m := b[l[0]]
		if m != Empty && m == b[l[1]] && m == b[l[2]] {
			return m, l, true
		}
	}
	return Empty, [3]int{}, false
}

// Full reports whether no empty cell is left.
func (b Board) Full() bool {
	for _, m := range b {
		if m == Empty {
			return false
		}
	}
	return true
}

// Strings renders the board for the wire, empty cells as "".
func (b Board) Strings() []string {
	out := make([]string, len(b))
	for i, m := range b {
		out[i] = m.String()
	}
	return out
}
