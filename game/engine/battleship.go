package engine

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
)

const (
	BattleshipSize = 10

	ActionPlaceShip   = "place_ship"
	ActionRandomSetup = "random_setup"

	randomPlacementAttempts = 100
	randomLayoutAttempts    = 50
)

// BattleshipFleet lists the ship lengths every player must place
var BattleshipFleet = []int{5, 4, 3, 3, 2}

// BattleshipPhase is the stage of a battleship match
type BattleshipPhase string

const (
	PhaseSetup    BattleshipPhase = "setup"
	PhasePlaying  BattleshipPhase = "playing"
	PhaseFinished BattleshipPhase = "finished"
)

// Ship is a placed ship and whether every one of its cells has been hit
type Ship struct {
	Positions []Coord `json:"positions"`
	Sunk      bool    `json:"sunk"`
}

func (s Ship) covers(c Coord) bool {
	return slices.Contains(s.Positions, c)
}

// BattleshipBoard is one player's grid. Hits and Misses are the attacks this
// board has received.
type BattleshipBoard struct {
	Ships  []Ship  `json:"ships"`
	Hits   []Coord `json:"hits"`
	Misses []Coord `json:"misses"`
}

func newBattleshipBoard() BattleshipBoard {
	return BattleshipBoard{Ships: []Ship{}, Hits: []Coord{}, Misses: []Coord{}}
}

func (b BattleshipBoard) attacked(c Coord) bool {
	return slices.Contains(b.Hits, c) || slices.Contains(b.Misses, c)
}

func (b BattleshipBoard) allSunk() bool {
	for _, s := range b.Ships {
		if !s.Sunk {
			return false
		}
	}
	return true
}

func (b BattleshipBoard) canPlace(positions []Coord) bool {
	for _, p := range positions {
		if !inBounds(p.Row(), p.Col(), BattleshipSize, BattleshipSize) {
			return false
		}
		for _, s := range b.Ships {
			if s.covers(p) {
				return false
			}
		}
	}
	return true
}

// remainingLengths returns the fleet lengths not yet placed on the board
func (b BattleshipBoard) remainingLengths() []int {
	available := slices.Clone(BattleshipFleet)
	for _, s := range b.Ships {
		if i := slices.Index(available, len(s.Positions)); i >= 0 {
			available = slices.Delete(available, i, i+1)
		}
	}
	return available
}

// BattleshipState is the match snapshot for battleship
type BattleshipState struct {
	Boards        BySeat[BattleshipBoard] `json:"boards"`
	CurrentPlayer Player                  `json:"current_player"`
	Phase         BattleshipPhase         `json:"phase"`
	Moves         []BattleshipLogEntry    `json:"moves"`
	ShipsPlaced   BySeat[bool]            `json:"ships_placed"`
}

// BattleshipLogEntry records one attack
type BattleshipLogEntry struct {
	Player Player `json:"player"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Hit    bool   `json:"hit"`
}

// BattleshipMove is either a setup action or an attack. Attacks carry only
// Row and Col.
type BattleshipMove struct {
	Action     string `json:"action,omitempty"`
	Row        *int   `json:"row,omitempty"`
	Col        *int   `json:"col,omitempty"`
	Length     *int   `json:"length,omitempty"`
	Horizontal *bool  `json:"horizontal,omitempty"`
}

func (*BattleshipState) GameType() GameType { return Battleship }
func (s *BattleshipState) Turn() Player     { return s.CurrentPlayer }
func (BattleshipMove) GameType() GameType   { return Battleship }

// Untimed reports whether fleets are still being placed. Both seats place
// at once, so no clock runs.
func (s *BattleshipState) Untimed() bool { return s.Phase == PhaseSetup }

// NewAttack builds an attack payload
func NewAttack(row, col int) BattleshipMove {
	return BattleshipMove{Row: intPtr(row), Col: intPtr(col)}
}

// NewPlaceShip builds a place_ship payload
func NewPlaceShip(row, col, length int, horizontal bool) BattleshipMove {
	return BattleshipMove{
		Action:     ActionPlaceShip,
		Row:        intPtr(row),
		Col:        intPtr(col),
		Length:     intPtr(length),
		Horizontal: boolPtr(horizontal),
	}
}

func (m BattleshipMove) horizontal() bool {
	return m.Horizontal == nil || *m.Horizontal
}

// BattleshipView is what one player may see of a match
type BattleshipView struct {
	MyShips           []Ship          `json:"my_ships"`
	MyHitsTaken       []Coord         `json:"my_hits_taken"`
	MyMissesTaken     []Coord         `json:"my_misses_taken"`
	MyAttacksHit      []Coord         `json:"my_attacks_hit"`
	MyAttacksMissed   []Coord         `json:"my_attacks_missed"`
	OpponentSunkShips []Ship          `json:"opponent_sunk_ships"`
	Phase             BattleshipPhase `json:"phase"`
	CurrentPlayer     Player          `json:"current_player"`
	IsMyTurn          bool            `json:"is_my_turn"`
}

// RandSource supplies the randomness used by random_setup
type RandSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// BattleshipOption configures a BattleshipEngine
type BattleshipOption func(*BattleshipEngine)

// WithRandSource replaces the process-level random source
func WithRandSource(r RandSource) BattleshipOption {
	return func(e *BattleshipEngine) {
		if r != nil {
			e.rand = r
		}
	}
}

// BattleshipEngine implements two-board battleship with a setup phase
type BattleshipEngine struct {
	rand RandSource
}

// NewBattleshipEngine creates a battleship engine
func NewBattleshipEngine(opts ...BattleshipOption) *BattleshipEngine {
	e := &BattleshipEngine{rand: globalRand{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *BattleshipEngine) Type() GameType { return Battleship }

func (e *BattleshipEngine) CreateInitialState() State {
	return &BattleshipState{
		Boards: BySeat[BattleshipBoard]{
			One: newBattleshipBoard(),
			Two: newBattleshipBoard(),
		},
		CurrentPlayer: Player1,
		Phase:         PhaseSetup,
		Moves:         []BattleshipLogEntry{},
	}
}

func (e *BattleshipEngine) ValidateMove(state State, player Player, move Move) (bool, string) {
	s, ok := state.(*BattleshipState)
	if !ok {
		return false, "Unsupported game state"
	}
	if !player.Valid() {
		return false, "Invalid player"
	}
	m, ok := moveAs[BattleshipMove](move)
	if !ok {
		m = BattleshipMove{}
	}

	switch s.Phase {
	case PhaseSetup:
		return validatePlacement(s, player, m)
	case PhasePlaying:
		if s.CurrentPlayer != player {
			return false, "Not your turn"
		}
		if m.Row == nil || m.Col == nil {
			return false, "Attack requires row and col"
		}
		target := Coord{*m.Row, *m.Col}
		if !inBounds(target.Row(), target.Col(), BattleshipSize, BattleshipSize) {
			return false, "Invalid position"
		}
		if s.Boards.Get(player.Opponent()).attacked(target) {
			return false, "Already attacked this position"
		}
		return true, ""
	default:
		return false, "Game is over"
	}
}

func validatePlacement(s *BattleshipState, player Player, m BattleshipMove) (bool, string) {
	switch m.Action {
	case ActionPlaceShip:
		if m.Row == nil || m.Col == nil || m.Length == nil {
			return false, "Ship placement requires row, col, length"
		}
		board := s.Boards.Get(player)
		available := board.remainingLengths()
		if !slices.Contains(available, *m.Length) {
			return false, "Invalid ship length. Available: " + formatLengths(available)
		}
		if !board.canPlace(shipPositions(*m.Row, *m.Col, *m.Length, m.horizontal())) {
			return false, "Invalid ship position"
		}
		return true, ""
	case ActionRandomSetup:
		if s.ShipsPlaced.Get(player) {
			return false, "Ships already placed"
		}
		return true, ""
	default:
		return false, "During setup, use action: place_ship or random_setup"
	}
}

func (e *BattleshipEngine) ApplyMove(state State, player Player, move Move) State {
	s := mustState[*BattleshipState](state, Battleship)
	m := mustMove[BattleshipMove](move, Battleship)

	next := *s
	switch s.Phase {
	case PhaseSetup:
		board := s.Boards.Get(player)
		if m.Action == ActionRandomSetup {
			board = e.randomBoard()
			next.ShipsPlaced = next.ShipsPlaced.With(player, true)
		} else {
			ship := Ship{Positions: shipPositions(*m.Row, *m.Col, *m.Length, m.horizontal())}
			board.Ships = append(slices.Clip(board.Ships), ship)
			if len(board.Ships) == len(BattleshipFleet) {
				next.ShipsPlaced = next.ShipsPlaced.With(player, true)
			}
		}
		next.Boards = next.Boards.With(player, board)

		if next.ShipsPlaced.One && next.ShipsPlaced.Two {
			next.Phase = PhasePlaying
			next.CurrentPlayer = Player1
		}

	case PhasePlaying:
		target := Coord{*m.Row, *m.Col}
		opponent := player.Opponent()
		board := s.Boards.Get(opponent)

		hit := false
		for i, ship := range board.Ships {
			if !ship.covers(target) {
				continue
			}
			hit = true
			board.Hits = append(slices.Clip(board.Hits), target)
			if !ship.Sunk && allIn(ship.Positions, board.Hits) {
				board.Ships = slices.Clone(board.Ships)
				board.Ships[i].Sunk = true
			}
			break
		}
		if !hit {
			board.Misses = append(slices.Clip(board.Misses), target)
		}
		next.Boards = next.Boards.With(opponent, board)
		next.Moves = append(slices.Clip(s.Moves), BattleshipLogEntry{
			Player: player,
			Row:    target.Row(),
			Col:    target.Col(),
			Hit:    hit,
		})

		if board.allSunk() {
			next.Phase = PhaseFinished
		} else {
			next.CurrentPlayer = opponent
		}

	default:
		panic("battleship engine: move applied to a finished game")
	}

	return &next
}

func (e *BattleshipEngine) CheckWinner(state State) (Player, bool) {
	s := mustState[*BattleshipState](state, Battleship)
	if s.Phase != PhaseFinished {
		return NoPlayer, false
	}
	for _, p := range []Player{Player1, Player2} {
		if s.Boards.Get(p).allSunk() {
			return p.Opponent(), true
		}
	}
	return NoPlayer, false
}

func (e *BattleshipEngine) IsGameOver(state State) bool {
	return mustState[*BattleshipState](state, Battleship).Phase == PhaseFinished
}

func (e *BattleshipEngine) GetValidMoves(state State, player Player) []Move {
	s := mustState[*BattleshipState](state, Battleship)
	moves := []Move{}

	switch s.Phase {
	case PhaseSetup:
		if !s.ShipsPlaced.Get(player) {
			moves = append(moves, BattleshipMove{Action: ActionRandomSetup})
		}
	case PhasePlaying:
		if s.CurrentPlayer != player {
			return moves
		}
		target := s.Boards.Get(player.Opponent())
		for row := 0; row < BattleshipSize; row++ {
			for col := 0; col < BattleshipSize; col++ {
				if !target.attacked(Coord{row, col}) {
					moves = append(moves, NewAttack(row, col))
				}
			}
		}
	}

	return moves
}

// PlayerView hides every unsunk ship of the opponent
func (e *BattleshipEngine) PlayerView(state State, player Player) any {
	return e.View(state, player)
}

// View is PlayerView with a concrete return type
func (e *BattleshipEngine) View(state State, player Player) *BattleshipView {
	s := mustState[*BattleshipState](state, Battleship)
	mine := s.Boards.Get(player)
	theirs := s.Boards.Get(player.Opponent())

	sunk := []Ship{}
	for _, ship := range theirs.Ships {
		if ship.Sunk {
			sunk = append(sunk, ship)
		}
	}

	return &BattleshipView{
		MyShips:           mine.Ships,
		MyHitsTaken:       mine.Hits,
		MyMissesTaken:     mine.Misses,
		MyAttacksHit:      theirs.Hits,
		MyAttacksMissed:   theirs.Misses,
		OpponentSunkShips: sunk,
		Phase:             s.Phase,
		CurrentPlayer:     s.CurrentPlayer,
		IsMyTurn:          s.CurrentPlayer == player && s.Phase == PhasePlaying,
	}
}

func (e *BattleshipEngine) SerializeState(state State) ([]byte, error) {
	return marshalState(state, Battleship)
}

func (e *BattleshipEngine) DeserializeState(data []byte) (State, error) {
	return unmarshalState[BattleshipState](data, Battleship)
}

func (e *BattleshipEngine) DecodeMove(data []byte) (Move, error) {
	return unmarshalMove[BattleshipMove](data, Battleship)
}

// randomBoard places the whole fleet by rejection sampling. A layout that
// cannot fit a ship within the attempt budget is discarded and redrawn; the
// fixed layout below is the last resort.
func (e *BattleshipEngine) randomBoard() BattleshipBoard {
	for layout := 0; layout < randomLayoutAttempts; layout++ {
		board := newBattleshipBoard()
		complete := true
		for _, length := range BattleshipFleet {
			placed := false
			for attempt := 0; attempt < randomPlacementAttempts && !placed; attempt++ {
				row := e.rand.IntN(BattleshipSize)
				col := e.rand.IntN(BattleshipSize)
				horizontal := e.rand.IntN(2) == 0
				positions := shipPositions(row, col, length, horizontal)
				if board.canPlace(positions) {
					board.Ships = append(board.Ships, Ship{Positions: positions})
					placed = true
				}
			}
			if !placed {
				complete = false
				break
			}
		}
		if complete {
			return board
		}
	}

	board := newBattleshipBoard()
	for i, length := range BattleshipFleet {
		board.Ships = append(board.Ships, Ship{Positions: shipPositions(2*i, 0, length, true)})
	}
	return board
}

func shipPositions(row, col, length int, horizontal bool) []Coord {
	positions := make([]Coord, 0, length)
	for i := 0; i < length; i++ {
		if horizontal {
			positions = append(positions, Coord{row, col + i})
		} else {
			positions = append(positions, Coord{row + i, col})
		}
	}
	return positions
}

func allIn(positions, hits []Coord) bool {
	for _, p := range positions {
		if !slices.Contains(hits, p) {
			return false
		}
	}
	return true
}

// formatLengths renders lengths as "[5, 4, 3]"
func formatLengths(lengths []int) string {
	parts := make([]string, len(lengths))
	for i, l := range lengths {
		parts[i] = strconv.Itoa(l)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
