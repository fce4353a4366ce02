package engine

import (
	"sort"
	"strings"
	"testing"

	"github.com/notnil/chess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chessFromFEN builds a state from the placement and active colour fields
func chessFromFEN(t *testing.T, fen string) *ChessState {
	t.Helper()
	fields := strings.Fields(fen)
	require.GreaterOrEqual(t, len(fields), 2)

	s := &ChessState{CurrentPlayer: Player1, Moves: []string{}, FullmoveNumber: 1}
	if fields[1] == "b" {
		s.CurrentPlayer = Player2
	}
	for row, rank := range strings.Split(fields[0], "/") {
		col := 0
		for _, ch := range rank {
			if ch >= '1' && ch <= '8' {
				col += int(ch - '0')
				continue
			}
			s.Board[row][col] = string(ch)
			col++
		}
	}
	return s
}

func playChess(t *testing.T, e *ChessEngine, state State, moves ...string) State {
	t.Helper()
	for _, mv := range moves {
		move := ChessMove{From: mv[:2], To: mv[2:4]}
		if len(mv) == 5 {
			move.Promotion = mv[4:]
		}
		player := state.Turn()
		ok, reason := e.ValidateMove(state, player, move)
		require.Truef(t, ok, "%s rejected: %s", mv, reason)
		state = e.ApplyMove(state, player, move)
	}
	return state
}

func TestChessInitialState(t *testing.T) {
	e := NewChessEngine()
	s := e.CreateInitialState().(*ChessState)

	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", s.FEN())
	assert.Len(t, e.GetValidMoves(s, Player1), 20)
	assert.Empty(t, e.GetValidMoves(s, Player2))
	assert.Nil(t, s.EnPassant)
	assert.Equal(t, CastlingRights{true, true, true, true}, s.Castling)
}

func TestChessValidateMove(t *testing.T) {
	e := NewChessEngine()
	initial := e.CreateInitialState()
	pinned := chessFromFEN(t, "4k3/4r3/8/8/8/8/4B3/4K3 w - - 0 1")

	tests := []struct {
		name   string
		state  State
		player Player
		move   ChessMove
		reason string
	}{
		{"pawn double step", initial, Player1, ChessMove{From: "e2", To: "e4"}, ""},
		{"knight", initial, Player1, ChessMove{From: "g1", To: "f3"}, ""},
		{"uppercase file", initial, Player1, ChessMove{From: "E2", To: "E3"}, ""},
		{"wrong turn", initial, Player2, ChessMove{From: "e7", To: "e5"}, "Not your turn"},
		{"bad format", initial, Player1, ChessMove{From: "e22", To: "e4"}, "Invalid move format. Use {from: 'e2', to: 'e4'}"},
		{"missing to", initial, Player1, ChessMove{From: "e2"}, "Invalid move format. Use {from: 'e2', to: 'e4'}"},
		{"from off board", initial, Player1, ChessMove{From: "z2", To: "e4"}, "Invalid from position"},
		{"to off board", initial, Player1, ChessMove{From: "e2", To: "e9"}, "Invalid to position"},
		{"empty square", initial, Player1, ChessMove{From: "e4", To: "e5"}, "No piece at starting position"},
		{"opponent piece", initial, Player1, ChessMove{From: "e7", To: "e5"}, "Not your piece"},
		{"pawn triple step", initial, Player1, ChessMove{From: "e2", To: "e5"}, "Invalid move for this piece"},
		{"blocked bishop", initial, Player1, ChessMove{From: "c1", To: "e3"}, "Invalid move for this piece"},
		{"promotion ignored off the last rank", initial, Player1, ChessMove{From: "e2", To: "e4", Promotion: "x"}, ""},
		{"pinned bishop", pinned, Player1, ChessMove{From: "e2", To: "d3"}, "Move leaves king in check"},
		{"king steps aside", pinned, Player1, ChessMove{From: "e1", To: "d1"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := e.ValidateMove(tt.state, tt.player, tt.move)
			assert.Equal(t, tt.reason == "", ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestChessApplyMoveCounters(t *testing.T) {
	e := NewChessEngine()
	initial := e.CreateInitialState()
	state := playChess(t, e, initial, "e2e4")
	s := state.(*ChessState)

	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1", s.FEN())
	assert.Equal(t, []string{"e2e4"}, s.Moves)
	assert.Equal(t, Player2, s.CurrentPlayer)
	assert.Equal(t, "P", initial.(*ChessState).Board[6][4], "input untouched")

	s = playChess(t, e, s, "g8f6", "g1f3").(*ChessState)
	assert.Equal(t, 2, s.HalfmoveClock)
	assert.Equal(t, 2, s.FullmoveNumber)

	s = playChess(t, e, s, "f6e4").(*ChessState)
	assert.Equal(t, 0, s.HalfmoveClock, "capture resets the clock")
	assert.Equal(t, 3, s.FullmoveNumber)
	assert.Nil(t, s.EnPassant)
}

func TestChessPromotion(t *testing.T) {
	e := NewChessEngine()
	white := chessFromFEN(t, "8/P6k/8/8/8/8/6p1/K7 w - - 0 1")

	queen := playChess(t, e, white, "a7a8").(*ChessState)
	assert.Equal(t, "Q", queen.Board[0][0])
	assert.Equal(t, []string{"a7a8q"}, queen.Moves)

	ok, reason := e.ValidateMove(white, Player1, ChessMove{From: "a7", To: "a8", Promotion: "K"})
	assert.False(t, ok)
	assert.Equal(t, "Invalid promotion piece", reason)

	plain := e.ApplyMove(e.CreateInitialState(), Player1, ChessMove{From: "e2", To: "e4", Promotion: "x"}).(*ChessState)
	assert.Equal(t, []string{"e2e4"}, plain.Moves)

	knight := playChess(t, e, white, "a7a8n").(*ChessState)
	assert.Equal(t, "N", knight.Board[0][0])

	black := playChess(t, e, knight, "g2g1r").(*ChessState)
	assert.Equal(t, "r", black.Board[7][6])
	assert.Equal(t, "a7a8n", black.Moves[0])
	assert.Equal(t, "g2g1r", black.Moves[1])
}

func TestChessCheckEscape(t *testing.T) {
	e := NewChessEngine()
	state := playChess(t, e, e.CreateInitialState(), "e2e4", "f7f5", "d1h5")

	_, ok := e.CheckWinner(state)
	assert.False(t, ok)
	assert.False(t, e.IsGameOver(state))

	ok, reason := e.ValidateMove(state, Player2, ChessMove{From: "a7", To: "a6"})
	assert.False(t, ok)
	assert.Equal(t, "Move leaves king in check", reason)

	ok, reason = e.ValidateMove(state, Player2, ChessMove{From: "g7", To: "g6"})
	assert.True(t, ok, reason)
}

func TestChessFoolsMate(t *testing.T) {
	e := NewChessEngine()
	state := playChess(t, e, e.CreateInitialState(), "f2f3", "e7e5", "g2g4", "d8h4")

	winner, ok := e.CheckWinner(state)
	assert.True(t, ok)
	assert.Equal(t, Player2, winner)
	assert.True(t, e.IsGameOver(state))
	assert.Empty(t, e.GetValidMoves(state, Player1))
}

func TestChessStalemate(t *testing.T) {
	e := NewChessEngine()
	s := chessFromFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")

	_, ok := e.CheckWinner(s)
	assert.False(t, ok)
	assert.True(t, e.IsGameOver(s))
	assert.Empty(t, e.GetValidMoves(s, Player2))
}

func TestChessMissingKingCountsAsCheck(t *testing.T) {
	e := NewChessEngine()
	s := chessFromFEN(t, "4k3/8/8/8/8/8/4P3/8 w - - 0 1")

	winner, ok := e.CheckWinner(s)
	assert.True(t, ok)
	assert.Equal(t, Player2, winner)
}

// moveSet reduces moves to from+to strings. Promotion variants collapse.
func moveSet(moves []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, m := range moves {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

func TestChessMoveGenerationMatchesReference(t *testing.T) {
	positions := []string{
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w - - 0 1",
		"r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w - - 4 4",
		"r1bqkb1r/pppp1Qpp/2n2n2/4p3/2B1P3/8/PPPP1PPP/RNB1K1NR b - - 0 4",
		"8/P6k/8/8/8/8/6p1/K7 w - - 0 1",
		"8/P6k/8/8/8/8/6p1/K7 b - - 0 1",
		"4k3/8/8/8/8/8/4r3/4K3 w - - 0 1",
		"4k3/4r3/8/8/8/8/4B3/4K3 w - - 0 1",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w - - 0 1",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R b - - 0 1",
	}

	e := NewChessEngine()
	for _, fen := range positions {
		t.Run(fen, func(t *testing.T) {
			opt, err := chess.FEN(fen)
			require.NoError(t, err)
			game := chess.NewGame(opt)

			var want []string
			for _, m := range game.ValidMoves() {
				want = append(want, m.S1().String()+m.S2().String())
			}

			s := chessFromFEN(t, fen)
			var got []string
			for _, m := range e.GetValidMoves(s, s.CurrentPlayer) {
				cm := m.(ChessMove)
				got = append(got, cm.From+cm.To)
			}

			assert.Equal(t, moveSet(want), moveSet(got))
		})
	}
}
