package engine

import (
	"fmt"
	"slices"
)

const CheckersSize = 8

// CheckersPiece is the content of one checkers square
type CheckersPiece int

const (
	CheckersEmpty CheckersPiece = 0
	CheckersMan1  CheckersPiece = 1
	CheckersMan2  CheckersPiece = 2
	CheckersKing1 CheckersPiece = 3
	CheckersKing2 CheckersPiece = 4
)

// Owner returns the seat owning the piece, NoPlayer for an empty square
func (p CheckersPiece) Owner() Player {
	switch p {
	case CheckersMan1, CheckersKing1:
		return Player1
	case CheckersMan2, CheckersKing2:
		return Player2
	default:
		return NoPlayer
	}
}

// IsKing reports whether the piece moves in both directions
func (p CheckersPiece) IsKing() bool {
	return p == CheckersKing1 || p == CheckersKing2
}

// CheckersState is the match snapshot for checkers. MustJumpFrom is set while
// a multi-jump sequence is in progress.
type CheckersState struct {
	Board         [CheckersSize][CheckersSize]CheckersPiece `json:"board"`
	CurrentPlayer Player                                    `json:"current_player"`
	Moves         []CheckersLogEntry                        `json:"moves"`
	MustJumpFrom  *Coord                                    `json:"must_jump_from"`
}

// CheckersLogEntry records one applied step
type CheckersLogEntry struct {
	Player   Player `json:"player"`
	FromRow  int    `json:"from_row"`
	FromCol  int    `json:"from_col"`
	ToRow    int    `json:"to_row"`
	ToCol    int    `json:"to_col"`
	IsJump   bool   `json:"is_jump"`
	Promoted bool   `json:"promoted,omitempty"`
}

// CheckersMove moves one piece a single diagonal step or jumps an opponent
type CheckersMove struct {
	FromRow *int `json:"from_row"`
	FromCol *int `json:"from_col"`
	ToRow   *int `json:"to_row"`
	ToCol   *int `json:"to_col"`
	IsJump  bool `json:"is_jump,omitempty"`
}

func (*CheckersState) GameType() GameType { return Checkers }
func (s *CheckersState) Turn() Player     { return s.CurrentPlayer }
func (CheckersMove) GameType() GameType   { return Checkers }

// NewCheckersMove builds a move payload from plain coordinates
func NewCheckersMove(fromRow, fromCol, toRow, toCol int) CheckersMove {
	return CheckersMove{
		FromRow: intPtr(fromRow),
		FromCol: intPtr(fromCol),
		ToRow:   intPtr(toRow),
		ToCol:   intPtr(toCol),
		IsJump:  abs(toRow-fromRow) == 2,
	}
}

func (m CheckersMove) complete() bool {
	return m.FromRow != nil && m.FromCol != nil && m.ToRow != nil && m.ToCol != nil
}

// CheckersEngine implements American checkers with forced capture
type CheckersEngine struct{}

// NewCheckersEngine creates a checkers engine
func NewCheckersEngine() *CheckersEngine {
	return &CheckersEngine{}
}

func (e *CheckersEngine) Type() GameType { return Checkers }

func (e *CheckersEngine) CreateInitialState() State {
	s := &CheckersState{
		CurrentPlayer: Player1,
		Moves:         []CheckersLogEntry{},
	}
	for row := 0; row < CheckersSize; row++ {
		for col := 0; col < CheckersSize; col++ {
			if (row+col)%2 != 1 {
				continue
			}
			switch {
			case row < 3:
				s.Board[row][col] = CheckersMan2
			case row >= 5:
				s.Board[row][col] = CheckersMan1
			}
		}
	}
	return s
}

func (e *CheckersEngine) ValidateMove(state State, player Player, move Move) (bool, string) {
	s, ok := state.(*CheckersState)
	if !ok {
		return false, "Unsupported game state"
	}
	if s.CurrentPlayer != player {
		return false, "Not your turn"
	}
	if _, over := e.CheckWinner(s); over {
		return false, "Game is over"
	}

	m, ok := moveAs[CheckersMove](move)
	if !ok || !m.complete() {
		return false, "Move requires from_row, from_col, to_row, to_col"
	}
	from := Coord{*m.FromRow, *m.FromCol}
	to := Coord{*m.ToRow, *m.ToCol}

	if s.pieceAt(from.Row(), from.Col()).Owner() != player {
		return false, "Not your piece"
	}
	if s.MustJumpFrom != nil && *s.MustJumpFrom != from {
		return false, "Must continue jumping with the same piece"
	}

	if jumps := s.allJumps(player); len(jumps) > 0 {
		if containsStep(jumps, from, to) {
			return true, ""
		}
		return false, "Must make a jump move"
	}

	if containsStep(s.simpleMoves(from.Row(), from.Col(), player), from, to) {
		return true, ""
	}
	return false, "Invalid move"
}

func (e *CheckersEngine) ApplyMove(state State, player Player, move Move) State {
	s := mustState[*CheckersState](state, Checkers)
	m := mustMove[CheckersMove](move, Checkers)
	if !m.complete() {
		panic("checkers engine: incomplete move")
	}
	fromRow, fromCol, toRow, toCol := *m.FromRow, *m.FromCol, *m.ToRow, *m.ToCol

	next := *s
	piece := next.Board[fromRow][fromCol]
	next.Board[fromRow][fromCol] = CheckersEmpty
	next.Board[toRow][toCol] = piece

	isJump := abs(toRow-fromRow) == 2
	if isJump {
		next.Board[(fromRow+toRow)/2][(fromCol+toCol)/2] = CheckersEmpty
	}

	promoted := false
	if !piece.IsKing() {
		if player == Player1 && toRow == 0 {
			next.Board[toRow][toCol] = CheckersKing1
			promoted = true
		} else if player == Player2 && toRow == CheckersSize-1 {
			next.Board[toRow][toCol] = CheckersKing2
			promoted = true
		}
	}

	next.MustJumpFrom = nil
	next.CurrentPlayer = player.Opponent()
	if isJump && len(next.jumpsFrom(toRow, toCol, player)) > 0 {
		next.MustJumpFrom = &Coord{toRow, toCol}
		next.CurrentPlayer = player
	}

	next.Moves = append(slices.Clip(s.Moves), CheckersLogEntry{
		Player:   player,
		FromRow:  fromRow,
		FromCol:  fromCol,
		ToRow:    toRow,
		ToCol:    toCol,
		IsJump:   isJump,
		Promoted: promoted,
	})

	return &next
}

func (e *CheckersEngine) CheckWinner(state State) (Player, bool) {
	s := mustState[*CheckersState](state, Checkers)

	hasP1, hasP2 := false, false
	for _, row := range s.Board {
		for _, cell := range row {
			switch cell.Owner() {
			case Player1:
				hasP1 = true
			case Player2:
				hasP2 = true
			}
		}
	}
	if !hasP1 {
		return Player2, true
	}
	if !hasP2 {
		return Player1, true
	}

	if len(s.legalMoves(s.CurrentPlayer)) == 0 {
		return s.CurrentPlayer.Opponent(), true
	}
	return NoPlayer, false
}

func (e *CheckersEngine) IsGameOver(state State) bool {
	_, over := e.CheckWinner(state)
	return over
}

func (e *CheckersEngine) GetValidMoves(state State, player Player) []Move {
	s := mustState[*CheckersState](state, Checkers)
	moves := []Move{}
	if s.CurrentPlayer != player {
		return moves
	}
	for _, m := range s.legalMoves(player) {
		moves = append(moves, m)
	}
	return moves
}

func (e *CheckersEngine) SerializeState(state State) ([]byte, error) {
	return marshalState(state, Checkers)
}

func (e *CheckersEngine) DeserializeState(data []byte) (State, error) {
	return unmarshalState[CheckersState](data, Checkers)
}

func (e *CheckersEngine) DecodeMove(data []byte) (Move, error) {
	return unmarshalMove[CheckersMove](data, Checkers)
}

// legalMoves applies must_jump_from and the forced capture rule
func (s *CheckersState) legalMoves(player Player) []CheckersMove {
	if s.MustJumpFrom != nil {
		return s.jumpsFrom(s.MustJumpFrom.Row(), s.MustJumpFrom.Col(), player)
	}
	if jumps := s.allJumps(player); len(jumps) > 0 {
		return jumps
	}

	var moves []CheckersMove
	for row := 0; row < CheckersSize; row++ {
		for col := 0; col < CheckersSize; col++ {
			if s.Board[row][col].Owner() == player {
				moves = append(moves, s.simpleMoves(row, col, player)...)
			}
		}
	}
	return moves
}

func (s *CheckersState) allJumps(player Player) []CheckersMove {
	var jumps []CheckersMove
	for row := 0; row < CheckersSize; row++ {
		for col := 0; col < CheckersSize; col++ {
			if s.Board[row][col].Owner() == player {
				jumps = append(jumps, s.jumpsFrom(row, col, player)...)
			}
		}
	}
	return jumps
}

func (s *CheckersState) jumpsFrom(row, col int, player Player) []CheckersMove {
	var jumps []CheckersMove
	for _, d := range checkersDirections(s.Board[row][col], player) {
		mid := s.pieceAt(row+d[0], col+d[1]).Owner()
		if mid == NoPlayer || mid == player {
			continue
		}
		endRow, endCol := row+2*d[0], col+2*d[1]
		if inBounds(endRow, endCol, CheckersSize, CheckersSize) && s.Board[endRow][endCol] == CheckersEmpty {
			jumps = append(jumps, NewCheckersMove(row, col, endRow, endCol))
		}
	}
	return jumps
}

func (s *CheckersState) simpleMoves(row, col int, player Player) []CheckersMove {
	if !inBounds(row, col, CheckersSize, CheckersSize) {
		return nil
	}
	var moves []CheckersMove
	for _, d := range checkersDirections(s.Board[row][col], player) {
		r, c := row+d[0], col+d[1]
		if inBounds(r, c, CheckersSize, CheckersSize) && s.Board[r][c] == CheckersEmpty {
			moves = append(moves, NewCheckersMove(row, col, r, c))
		}
	}
	return moves
}

// pieceAt returns CheckersEmpty for squares off the board
func (s *CheckersState) pieceAt(row, col int) CheckersPiece {
	if !inBounds(row, col, CheckersSize, CheckersSize) {
		return CheckersEmpty
	}
	return s.Board[row][col]
}

// checkersDirections lists forward diagonals for the player, plus backward
// ones for kings. Player 1 moves towards row 0.
func checkersDirections(piece CheckersPiece, player Player) [][2]int {
	var dirs [][2]int
	if player == Player1 || piece.IsKing() {
		dirs = append(dirs, [2]int{-1, -1}, [2]int{-1, 1})
	}
	if player == Player2 || piece.IsKing() {
		dirs = append(dirs, [2]int{1, -1}, [2]int{1, 1})
	}
	return dirs
}

func containsStep(moves []CheckersMove, from, to Coord) bool {
	for _, m := range moves {
		if *m.FromRow == from.Row() && *m.FromCol == from.Col() && *m.ToRow == to.Row() && *m.ToCol == to.Col() {
			return true
		}
	}
	return false
}

func (m CheckersMove) String() string {
	if !m.complete() {
		return "incomplete"
	}
	sep := "-"
	if m.IsJump {
		sep = "x"
	}
	return fmt.Sprintf("(%d,%d)%s(%d,%d)", *m.FromRow, *m.FromCol, sep, *m.ToRow, *m.ToCol)
}
