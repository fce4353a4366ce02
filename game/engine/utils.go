package engine

import "strings"

var chessValues = map[string]int{"P": 1, "N": 3, "B": 3, "R": 5, "Q": 9}

// CountPieces counts the pieces each player has on the board. For battleship
// it counts ships still afloat.
func CountPieces(state State) BySeat[int] {
	var counts BySeat[int]
	add := func(p Player, n int) {
		if p.Valid() {
			counts = counts.With(p, counts.Get(p)+n)
		}
	}

	switch s := state.(type) {
	case *ConnectFourState:
		for _, row := range s.Board {
			for _, cell := range row {
				add(cell, 1)
			}
		}
	case *CheckersState:
		for _, row := range s.Board {
			for _, cell := range row {
				add(cell.Owner(), 1)
			}
		}
	case *BattleshipState:
		for _, p := range []Player{Player1, Player2} {
			for _, ship := range s.Boards.Get(p).Ships {
				if !ship.Sunk {
					add(p, 1)
				}
			}
		}
	case *ChessState:
		for _, row := range s.Board {
			for _, cell := range row {
				add(pieceOwner(cell), 1)
			}
		}
	}

	return counts
}

// CountKings counts checkers kings per player
func CountKings(s *CheckersState) BySeat[int] {
	var counts BySeat[int]
	for _, row := range s.Board {
		for _, cell := range row {
			if cell.IsKing() {
				counts = counts.With(cell.Owner(), counts.Get(cell.Owner())+1)
			}
		}
	}
	return counts
}

// ChessMaterial sums standard piece values per player, kings excluded
func ChessMaterial(s *ChessState) BySeat[int] {
	var material BySeat[int]
	for _, row := range s.Board {
		for _, cell := range row {
			if cell == "" {
				continue
			}
			p := pieceOwner(cell)
			material = material.With(p, material.Get(p)+chessValues[strings.ToUpper(cell)])
		}
	}
	return material
}

// MoveCount returns the number of entries in the state's move log
func MoveCount(state State) int {
	switch s := state.(type) {
	case *ConnectFourState:
		return len(s.Moves)
	case *CheckersState:
		return len(s.Moves)
	case *BattleshipState:
		return len(s.Moves)
	case *ChessState:
		return len(s.Moves)
	}
	return 0
}

// Outcome describes how a finished match ended
func Outcome(e Engine, state State) string {
	if !e.IsGameOver(state) {
		return "in progress"
	}
	if winner, ok := e.CheckWinner(state); ok {
		if winner == Player1 {
			return "player 1 wins"
		}
		return "player 2 wins"
	}
	return "draw"
}
