package engine

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

const ChessSize = 8

// CastlingRights are tracked for FEN output but move generation ignores them
type CastlingRights struct {
	WhiteKingside  bool `json:"K"`
	WhiteQueenside bool `json:"Q"`
	BlackKingside  bool `json:"k"`
	BlackQueenside bool `json:"q"`
}

func (c CastlingRights) String() string {
	var b strings.Builder
	if c.WhiteKingside {
		b.WriteByte('K')
	}
	if c.WhiteQueenside {
		b.WriteByte('Q')
	}
	if c.BlackKingside {
		b.WriteByte('k')
	}
	if c.BlackQueenside {
		b.WriteByte('q')
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

// ChessState is the match snapshot for chess. Uppercase codes are White
// (player 1), lowercase are Black (player 2), "" is an empty square.
type ChessState struct {
	Board          [ChessSize][ChessSize]string `json:"board"`
	CurrentPlayer  Player                       `json:"current_player"`
	Moves          []string                     `json:"moves"`
	Castling       CastlingRights               `json:"castling"`
	EnPassant      *string                      `json:"en_passant"`
	HalfmoveClock  int                          `json:"halfmove_clock"`
	FullmoveNumber int                          `json:"fullmove_number"`
}

// ChessMove moves the piece on From to To. Promotion defaults to a queen.
type ChessMove struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

func (*ChessState) GameType() GameType { return Chess }
func (s *ChessState) Turn() Player     { return s.CurrentPlayer }
func (ChessMove) GameType() GameType   { return Chess }

// String renders the move in coordinate notation, e.g. e7e8q
func (m ChessMove) String() string {
	return m.From + m.To + strings.ToLower(m.Promotion)
}

// FEN renders the position. En passant is never tracked, so its field is "-".
func (s *ChessState) FEN() string {
	var b strings.Builder
	for row := 0; row < ChessSize; row++ {
		empty := 0
		for col := 0; col < ChessSize; col++ {
			piece := s.Board[row][col]
			if piece == "" {
				empty++
				continue
			}
			if empty > 0 {
				b.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			b.WriteString(piece)
		}
		if empty > 0 {
			b.WriteString(strconv.Itoa(empty))
		}
		if row < ChessSize-1 {
			b.WriteByte('/')
		}
	}

	active := "w"
	if s.CurrentPlayer == Player2 {
		active = "b"
	}
	return fmt.Sprintf("%s %s %s - %d %d", b.String(), active, s.Castling, s.HalfmoveClock, s.FullmoveNumber)
}

// ChessEngine implements chess without castling, en passant or draw rules
type ChessEngine struct{}

// NewChessEngine creates a chess engine
func NewChessEngine() *ChessEngine {
	return &ChessEngine{}
}

func (e *ChessEngine) Type() GameType { return Chess }

func (e *ChessEngine) CreateInitialState() State {
	s := &ChessState{
		CurrentPlayer:  Player1,
		Moves:          []string{},
		Castling:       CastlingRights{true, true, true, true},
		FullmoveNumber: 1,
	}
	back := [ChessSize]string{"r", "n", "b", "q", "k", "b", "n", "r"}
	for col := 0; col < ChessSize; col++ {
		s.Board[0][col] = back[col]
		s.Board[1][col] = "p"
		s.Board[6][col] = "P"
		s.Board[7][col] = strings.ToUpper(back[col])
	}
	return s
}

func (e *ChessEngine) ValidateMove(state State, player Player, move Move) (bool, string) {
	s, ok := state.(*ChessState)
	if !ok {
		return false, "Unsupported game state"
	}
	if s.CurrentPlayer != player {
		return false, "Not your turn"
	}

	m, ok := moveAs[ChessMove](move)
	if !ok {
		return false, "Invalid move format. Use {from: 'e2', to: 'e4'}"
	}
	from, fok := parseSquare(m.From)
	to, tok := parseSquare(m.To)
	if !fok || !tok {
		return false, "Invalid move format. Use {from: 'e2', to: 'e4'}"
	}
	if !inBounds(from.Row(), from.Col(), ChessSize, ChessSize) {
		return false, "Invalid from position"
	}
	if !inBounds(to.Row(), to.Col(), ChessSize, ChessSize) {
		return false, "Invalid to position"
	}

	board := chessBoard(s.Board)
	piece := board[from.Row()][from.Col()]
	if piece == "" {
		return false, "No piece at starting position"
	}
	if pieceOwner(piece) != player {
		return false, "Not your piece"
	}
	if !slices.Contains(board.pseudoMoves(from.Row(), from.Col(), player), to) {
		return false, "Invalid move for this piece"
	}
	promoting := strings.ToUpper(piece) == "P" && to.Row() == promotionRow(player)
	if promoting && m.Promotion != "" && !validPromotion(m.Promotion) {
		return false, "Invalid promotion piece"
	}
	if after := board.moved(from, to); after.inCheck(player) {
		return false, "Move leaves king in check"
	}

	return true, ""
}

func (e *ChessEngine) ApplyMove(state State, player Player, move Move) State {
	s := mustState[*ChessState](state, Chess)
	m := mustMove[ChessMove](move, Chess)
	from, fok := parseSquare(m.From)
	to, tok := parseSquare(m.To)
	if !fok || !tok {
		panic(fmt.Sprintf("chess engine: malformed move %q", m.String()))
	}

	board := chessBoard(s.Board)
	piece := board[from.Row()][from.Col()]
	captured := board[to.Row()][to.Col()] != ""
	board = board.moved(from, to)

	notation := m.From + m.To
	isPawn := strings.ToUpper(piece) == "P"
	if isPawn && to.Row() == promotionRow(player) {
		promo := strings.ToUpper(m.Promotion)
		if promo == "" {
			promo = "Q"
		}
		if player == Player2 {
			promo = strings.ToLower(promo)
		}
		board[to.Row()][to.Col()] = promo
		notation += strings.ToLower(promo)
	}

	next := *s
	next.Board = board
	next.CurrentPlayer = player.Opponent()
	next.Moves = append(slices.Clip(s.Moves), notation)
	next.EnPassant = nil
	next.HalfmoveClock = s.HalfmoveClock + 1
	if isPawn || captured {
		next.HalfmoveClock = 0
	}
	if player == Player2 {
		next.FullmoveNumber = s.FullmoveNumber + 1
	}

	return &next
}

// CheckWinner reports a win only for checkmate. Stalemate ends the game
// without a winner.
func (e *ChessEngine) CheckWinner(state State) (Player, bool) {
	s := mustState[*ChessState](state, Chess)
	board := chessBoard(s.Board)
	if !board.inCheck(s.CurrentPlayer) {
		return NoPlayer, false
	}
	if board.hasLegalMove(s.CurrentPlayer) {
		return NoPlayer, false
	}
	return s.CurrentPlayer.Opponent(), true
}

func (e *ChessEngine) IsGameOver(state State) bool {
	s := mustState[*ChessState](state, Chess)
	board := chessBoard(s.Board)
	return !board.hasLegalMove(s.CurrentPlayer)
}

func (e *ChessEngine) GetValidMoves(state State, player Player) []Move {
	s := mustState[*ChessState](state, Chess)
	moves := []Move{}
	if s.CurrentPlayer != player {
		return moves
	}
	board := chessBoard(s.Board)
	for _, m := range board.legalMoves(player) {
		moves = append(moves, m)
	}
	return moves
}

func (e *ChessEngine) SerializeState(state State) ([]byte, error) {
	return marshalState(state, Chess)
}

func (e *ChessEngine) DeserializeState(data []byte) (State, error) {
	return unmarshalState[ChessState](data, Chess)
}

func (e *ChessEngine) DecodeMove(data []byte) (Move, error) {
	return unmarshalMove[ChessMove](data, Chess)
}

type chessBoard [ChessSize][ChessSize]string

var (
	knightDeltas   = [][2]int{{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1}}
	kingDeltas     = [][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	rookDeltas     = [][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
	bishopDeltas   = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	promotionCodes = "QRBN"
)

// moved returns a copy of b with the piece on from placed on to
func (b chessBoard) moved(from, to Coord) chessBoard {
	b[to.Row()][to.Col()] = b[from.Row()][from.Col()]
	b[from.Row()][from.Col()] = ""
	return b
}

// pseudoMoves lists target squares for the piece on (row, col) ignoring
// whether the move exposes the mover's king
func (b *chessBoard) pseudoMoves(row, col int, player Player) []Coord {
	var moves []Coord
	occupiable := func(r, c int) bool {
		return inBounds(r, c, ChessSize, ChessSize) && pieceOwner(b[r][c]) != player
	}

	switch strings.ToUpper(b[row][col]) {
	case "P":
		dir, start := -1, 6
		if player == Player2 {
			dir, start = 1, 1
		}
		next := row + dir
		if inBounds(next, col, ChessSize, ChessSize) && b[next][col] == "" {
			moves = append(moves, Coord{next, col})
			if row == start && b[row+2*dir][col] == "" {
				moves = append(moves, Coord{row + 2*dir, col})
			}
		}
		for _, dc := range []int{-1, 1} {
			c := col + dc
			if inBounds(next, c, ChessSize, ChessSize) && b[next][c] != "" && pieceOwner(b[next][c]) != player {
				moves = append(moves, Coord{next, c})
			}
		}
	case "N":
		for _, d := range knightDeltas {
			if occupiable(row+d[0], col+d[1]) {
				moves = append(moves, Coord{row + d[0], col + d[1]})
			}
		}
	case "K":
		for _, d := range kingDeltas {
			if occupiable(row+d[0], col+d[1]) {
				moves = append(moves, Coord{row + d[0], col + d[1]})
			}
		}
	case "R":
		moves = b.slide(moves, row, col, player, rookDeltas)
	case "B":
		moves = b.slide(moves, row, col, player, bishopDeltas)
	case "Q":
		moves = b.slide(moves, row, col, player, rookDeltas)
		moves = b.slide(moves, row, col, player, bishopDeltas)
	}

	return moves
}

func (b *chessBoard) slide(moves []Coord, row, col int, player Player, deltas [][2]int) []Coord {
	for _, d := range deltas {
		r, c := row+d[0], col+d[1]
		for inBounds(r, c, ChessSize, ChessSize) {
			owner := pieceOwner(b[r][c])
			if owner == player {
				break
			}
			moves = append(moves, Coord{r, c})
			if owner != NoPlayer {
				break
			}
			r += d[0]
			c += d[1]
		}
	}
	return moves
}

// inCheck reports whether player's king is attacked. A missing king counts
// as being in check.
func (b *chessBoard) inCheck(player Player) bool {
	king, found := Coord{}, false
	for r := 0; r < ChessSize && !found; r++ {
		for c := 0; c < ChessSize; c++ {
			if strings.ToUpper(b[r][c]) == "K" && pieceOwner(b[r][c]) == player {
				king, found = Coord{r, c}, true
				break
			}
		}
	}
	if !found {
		return true
	}

	opponent := player.Opponent()
	for r := 0; r < ChessSize; r++ {
		for c := 0; c < ChessSize; c++ {
			if pieceOwner(b[r][c]) != opponent {
				continue
			}
			if slices.Contains(b.pseudoMoves(r, c, opponent), king) {
				return true
			}
		}
	}
	return false
}

func (b *chessBoard) legalMoves(player Player) []ChessMove {
	var moves []ChessMove
	b.eachLegal(player, func(from, to Coord) bool {
		moves = append(moves, ChessMove{From: squareName(from), To: squareName(to)})
		return true
	})
	return moves
}

func (b *chessBoard) hasLegalMove(player Player) bool {
	found := false
	b.eachLegal(player, func(from, to Coord) bool {
		found = true
		return false
	})
	return found
}

// eachLegal calls fn for every legal move of player until fn returns false
func (b *chessBoard) eachLegal(player Player, fn func(from, to Coord) bool) {
	for r := 0; r < ChessSize; r++ {
		for c := 0; c < ChessSize; c++ {
			if pieceOwner(b[r][c]) != player {
				continue
			}
			from := Coord{r, c}
			for _, to := range b.pseudoMoves(r, c, player) {
				after := b.moved(from, to)
				if after.inCheck(player) {
					continue
				}
				if !fn(from, to) {
					return
				}
			}
		}
	}
}

func pieceOwner(piece string) Player {
	if piece == "" {
		return NoPlayer
	}
	if unicode.IsUpper(rune(piece[0])) {
		return Player1
	}
	return Player2
}

func promotionRow(player Player) int {
	if player == Player1 {
		return 0
	}
	return ChessSize - 1
}

func validPromotion(p string) bool {
	return len(p) == 1 && strings.Contains(promotionCodes, strings.ToUpper(p))
}

// parseSquare converts algebraic notation into board coordinates. The result
// may be off the board; ok is false only for malformed input.
func parseSquare(sq string) (Coord, bool) {
	if len(sq) != 2 {
		return Coord{}, false
	}
	rank, err := strconv.Atoi(sq[1:])
	if err != nil {
		return Coord{}, false
	}
	file := unicode.ToLower(rune(sq[0]))
	return Coord{ChessSize - rank, int(file - 'a')}, true
}

func squareName(c Coord) string {
	return fmt.Sprintf("%c%d", 'a'+c.Col(), ChessSize-c.Row())
}
