package engine

import (
	"fmt"
	"slices"
)

const (
	ConnectFourRows = 6
	ConnectFourCols = 7
	connectFourLine = 4
)

// ConnectFourState is the match snapshot for Connect Four
type ConnectFourState struct {
	Board         [ConnectFourRows][ConnectFourCols]Player `json:"board"`
	CurrentPlayer Player                                   `json:"current_player"`
	Moves         []ConnectFourLogEntry                    `json:"moves"`
}

// ConnectFourLogEntry records one dropped disc
type ConnectFourLogEntry struct {
	Player Player `json:"player"`
	Column int    `json:"column"`
}

// ConnectFourMove drops a disc into Column
type ConnectFourMove struct {
	Column *int `json:"column"`
}

func (*ConnectFourState) GameType() GameType { return ConnectFour }
func (s *ConnectFourState) Turn() Player     { return s.CurrentPlayer }
func (ConnectFourMove) GameType() GameType   { return ConnectFour }

// ConnectFourEngine implements gravity-drop four in a row on a 6x7 grid
type ConnectFourEngine struct{}

// NewConnectFourEngine creates a Connect Four engine
func NewConnectFourEngine() *ConnectFourEngine {
	return &ConnectFourEngine{}
}

func (e *ConnectFourEngine) Type() GameType { return ConnectFour }

func (e *ConnectFourEngine) CreateInitialState() State {
	return &ConnectFourState{
		CurrentPlayer: Player1,
		Moves:         []ConnectFourLogEntry{},
	}
}

func (e *ConnectFourEngine) ValidateMove(state State, player Player, move Move) (bool, string) {
	s, ok := state.(*ConnectFourState)
	if !ok {
		return false, "Unsupported game state"
	}
	if s.CurrentPlayer != player {
		return false, "Not your turn"
	}
	if _, over := s.winner(); over || s.full() {
		return false, "Game is over"
	}

	m, ok := moveAs[ConnectFourMove](move)
	if !ok || m.Column == nil {
		return false, "Column is required"
	}
	col := *m.Column
	if col < 0 || col >= ConnectFourCols {
		return false, fmt.Sprintf("Column must be between 0 and %d", ConnectFourCols-1)
	}
	if s.Board[0][col] != NoPlayer {
		return false, "Column is full"
	}

	return true, ""
}

func (e *ConnectFourEngine) ApplyMove(state State, player Player, move Move) State {
	s := mustState[*ConnectFourState](state, ConnectFour)
	m := mustMove[ConnectFourMove](move, ConnectFour)
	col := *m.Column

	next := *s
	row := next.dropRow(col)
	if row < 0 {
		panic(fmt.Sprintf("connect four: column %d is full", col))
	}
	next.Board[row][col] = player
	next.CurrentPlayer = player.Opponent()
	next.Moves = append(slices.Clip(s.Moves), ConnectFourLogEntry{Player: player, Column: col})

	return &next
}

func (e *ConnectFourEngine) CheckWinner(state State) (Player, bool) {
	return mustState[*ConnectFourState](state, ConnectFour).winner()
}

func (e *ConnectFourEngine) IsGameOver(state State) bool {
	s := mustState[*ConnectFourState](state, ConnectFour)
	if _, ok := s.winner(); ok {
		return true
	}
	return s.full()
}

func (e *ConnectFourEngine) GetValidMoves(state State, player Player) []Move {
	s := mustState[*ConnectFourState](state, ConnectFour)
	moves := []Move{}
	if s.CurrentPlayer != player || e.IsGameOver(s) {
		return moves
	}
	for col := 0; col < ConnectFourCols; col++ {
		if s.Board[0][col] == NoPlayer {
			moves = append(moves, ConnectFourMove{Column: intPtr(col)})
		}
	}
	return moves
}

func (e *ConnectFourEngine) SerializeState(state State) ([]byte, error) {
	return marshalState(state, ConnectFour)
}

func (e *ConnectFourEngine) DeserializeState(data []byte) (State, error) {
	return unmarshalState[ConnectFourState](data, ConnectFour)
}

func (e *ConnectFourEngine) DecodeMove(data []byte) (Move, error) {
	return unmarshalMove[ConnectFourMove](data, ConnectFour)
}

// dropRow returns the lowest empty row of col, or -1 when the column is full
func (s *ConnectFourState) dropRow(col int) int {
	for row := ConnectFourRows - 1; row >= 0; row-- {
		if s.Board[row][col] == NoPlayer {
			return row
		}
	}
	return -1
}

func (s *ConnectFourState) full() bool {
	for col := 0; col < ConnectFourCols; col++ {
		if s.Board[0][col] == NoPlayer {
			return false
		}
	}
	return true
}

// winner scans every cell as the start of a line in each of the four directions
func (s *ConnectFourState) winner() (Player, bool) {
	directions := [][2]int{
		{0, 1},  // horizontal
		{1, 0},  // vertical
		{1, 1},  // diagonal down-right
		{-1, 1}, // diagonal up-right
	}

	for row := 0; row < ConnectFourRows; row++ {
		for col := 0; col < ConnectFourCols; col++ {
			mark := s.Board[row][col]
			if mark == NoPlayer {
				continue
			}
			for _, d := range directions {
				count := 1
				r, c := row+d[0], col+d[1]
				for count < connectFourLine && inBounds(r, c, ConnectFourRows, ConnectFourCols) && s.Board[r][c] == mark {
					count++
					r += d[0]
					c += d[1]
				}
				if count == connectFourLine {
					return mark, true
				}
			}
		}
	}

	return NoPlayer, false
}
