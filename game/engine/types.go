package engine

import "fmt"

// Player identifies a seat in a two-player match. On boards it doubles as the
// owner mark of a cell, with NoPlayer meaning empty.
type Player int

const (
	NoPlayer Player = 0
	Player1  Player = 1
	Player2  Player = 2
)

// Opponent returns the other seat
func (p Player) Opponent() Player {
	if p == Player1 {
		return Player2
	}
	return Player1
}

// Valid reports whether p is one of the two seats
func (p Player) Valid() bool {
	return p == Player1 || p == Player2
}

// GameType is the tag used to select an engine
type GameType string

const (
	ConnectFour GameType = "connect_four"
	Checkers    GameType = "checkers"
	Battleship  GameType = "battleship"
	Chess       GameType = "chess"
)

// State is the complete serializable snapshot of one match for a given engine.
type State interface {
	GameType() GameType
	Turn() Player
}

// Untimed is implemented by states that can be in a phase played off the
// clock, such as fleet placement
type Untimed interface {
	Untimed() bool
}

// ClockRunning reports whether player's clock is running in state: it is
// their turn and the state is not in an untimed phase
func ClockRunning(state State, player Player) bool {
	if u, ok := state.(Untimed); ok && u.Untimed() {
		return false
	}
	return state.Turn() == player
}

// Move is a decoded move payload for a given engine.
type Move interface {
	GameType() GameType
}

// Coord is a (row, col) pair, encoded as a two-element JSON array
type Coord [2]int

// Row returns the row index
func (c Coord) Row() int { return c[0] }

// Col returns the column index
func (c Coord) Col() int { return c[1] }

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c[0], c[1])
}

// BySeat holds one value per player and encodes as {"1": ..., "2": ...}.
type BySeat[T any] struct {
	One T `json:"1"`
	Two T `json:"2"`
}

// Get returns the value for player p
func (b BySeat[T]) Get(p Player) T {
	if p == Player2 {
		return b.Two
	}
	return b.One
}

// With returns a copy of b with p's value replaced
func (b BySeat[T]) With(p Player, v T) BySeat[T] {
	if p == Player2 {
		b.Two = v
	} else {
		b.One = v
	}
	return b
}

// intPtr and boolPtr build optional move fields
func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }
