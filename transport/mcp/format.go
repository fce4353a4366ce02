package mcp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wricardo/online-games/game/engine"
	"github.com/wricardo/online-games/game/service"
)

// matchView mirrors service.MatchInfo with the engine-specific fields left
// raw so they can be decoded per game type
type matchView struct {
	ID               string                `json:"id"`
	GameType         engine.GameType       `json:"game_type"`
	PresetID         string                `json:"preset_id"`
	Ranked           bool                  `json:"ranked"`
	Status           service.MatchStatus   `json:"status"`
	Player1          string                `json:"player1"`
	Player2          string                `json:"player2"`
	ChallengedPlayer string                `json:"challenged_player"`
	Winner           engine.Player         `json:"winner"`
	WinnerID         string                `json:"winner_id"`
	EndReason        string                `json:"end_reason"`
	YourSeat         engine.Player         `json:"your_seat"`
	CurrentPlayer    engine.Player         `json:"current_player"`
	IsYourTurn       bool                  `json:"is_your_turn"`
	BoardState       json.RawMessage       `json:"board_state"`
	ValidMoves       []json.RawMessage     `json:"valid_moves"`
	MoveCount        int                   `json:"move_count"`
	TimeLimitSeconds int                   `json:"time_limit_seconds"`
	RemainingMillis  *engine.BySeat[int64] `json:"remaining_ms"`
}

type moveResultView struct {
	Success  bool                `json:"success"`
	Message  string              `json:"message"`
	GameOver bool                `json:"game_over"`
	Match    *matchView          `json:"match"`
	Events   []service.GameEvent `json:"events"`
}

// maxListedMoves caps the valid move list shown to the model
const maxListedMoves = 40

func formatMatch(m *matchView) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Match %s (%s, preset %s)\n", m.ID, m.GameType, m.PresetID)
	opponent := m.Player2
	if opponent == "" {
		opponent = "(open seat)"
	}
	fmt.Fprintf(&b, "Players: 1=%s 2=%s\n", m.Player1, opponent)
	fmt.Fprintf(&b, "Status: %s | Moves played: %d\n", m.Status, m.MoveCount)
	if m.YourSeat.Valid() {
		fmt.Fprintf(&b, "You are player %d\n", m.YourSeat)
	} else {
		b.WriteString("You are spectating\n")
	}

	if m.RemainingMillis != nil {
		fmt.Fprintf(&b, "Clock: player 1 %s, player 2 %s\n",
			formatClock(m.RemainingMillis.One), formatClock(m.RemainingMillis.Two))
	}

	switch m.Status {
	case service.StatusCompleted:
		switch {
		case m.Winner.Valid() && m.EndReason == service.EndWin:
			fmt.Fprintf(&b, "Game over: player %d (%s) won\n", m.Winner, m.WinnerID)
		case m.Winner.Valid():
			fmt.Fprintf(&b, "Game over: player %d (%s) won by %s\n", m.Winner, m.WinnerID, m.EndReason)
		default:
			fmt.Fprintf(&b, "Game over: %s\n", m.EndReason)
		}
	case service.StatusAbandoned:
		if m.EndReason == service.EndDecline {
			fmt.Fprintf(&b, "Challenge declined by %s\n", m.ChallengedPlayer)
		} else {
			b.WriteString("Match abandoned\n")
		}
	case service.StatusWaiting:
		if m.ChallengedPlayer != "" {
			fmt.Fprintf(&b, "Private challenge, waiting for %s to accept\n", m.ChallengedPlayer)
		} else {
			b.WriteString("Waiting for an opponent to join\n")
		}
	case service.StatusInProgress:
		if m.IsYourTurn {
			b.WriteString("It is YOUR turn\n")
		} else {
			fmt.Fprintf(&b, "Waiting for player %d to move\n", m.CurrentPlayer)
		}
	}

	if len(m.BoardState) > 0 && string(m.BoardState) != "null" {
		b.WriteString("\n")
		b.WriteString(formatBoard(m.GameType, m.BoardState))
	}

	if len(m.ValidMoves) > 0 {
		fmt.Fprintf(&b, "\nValid moves (%d):\n", len(m.ValidMoves))
		for i, mv := range m.ValidMoves {
			if i == maxListedMoves {
				fmt.Fprintf(&b, "  ... %d more\n", len(m.ValidMoves)-maxListedMoves)
				break
			}
			fmt.Fprintf(&b, "  %s\n", string(mv))
		}
	}

	return b.String()
}

func formatMoveResult(r *moveResultView) string {
	var b strings.Builder
	if r.Success {
		b.WriteString("Move accepted")
	} else {
		b.WriteString("Move not applied")
	}
	if r.Message != "" {
		fmt.Fprintf(&b, ": %s", r.Message)
	}
	b.WriteString("\n")

	for _, ev := range r.Events {
		fmt.Fprintf(&b, "- [%s] %s\n", ev.Type, ev.Message)
	}
	if r.Match != nil {
		b.WriteString("\n")
		b.WriteString(formatMatch(r.Match))
	}
	return b.String()
}

func formatHistory(h *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move history (page %d of %d, %d moves total)\n\n", h.Page, h.TotalPages, h.TotalMoves)
	for _, mv := range h.Moves {
		fmt.Fprintf(&b, "  %s\n", string(mv))
	}
	if h.HasPrevious {
		b.WriteString("\n(previous page available)")
	}
	if h.HasNext {
		b.WriteString("\n(next page available)")
	}
	return b.String()
}

func formatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// formatBoard renders the board document for a game type. Unknown shapes
// fall back to the raw JSON.
func formatBoard(gameType engine.GameType, raw json.RawMessage) string {
	var (
		out string
		err error
	)
	switch gameType {
	case engine.ConnectFour:
		var s engine.ConnectFourState
		if err = json.Unmarshal(raw, &s); err == nil {
			out = formatConnectFour(&s)
		}
	case engine.Checkers:
		var s engine.CheckersState
		if err = json.Unmarshal(raw, &s); err == nil {
			out = formatCheckers(&s)
		}
	case engine.Chess:
		var s engine.ChessState
		if err = json.Unmarshal(raw, &s); err == nil {
			out = formatChess(&s)
		}
	case engine.Battleship:
		var v engine.BattleshipView
		if err = json.Unmarshal(raw, &v); err == nil {
			out = formatBattleship(&v)
		}
	default:
		err = fmt.Errorf("unknown game type %q", gameType)
	}
	if err != nil {
		return string(raw) + "\n"
	}
	return out
}

func formatConnectFour(s *engine.ConnectFourState) string {
	var b strings.Builder
	b.WriteString("Board (columns 0-6, pieces drop to the bottom):\n")
	for row := 0; row < engine.ConnectFourRows; row++ {
		b.WriteString("|")
		for col := 0; col < engine.ConnectFourCols; col++ {
			switch s.Board[row][col] {
			case engine.Player1:
				b.WriteString("X")
			case engine.Player2:
				b.WriteString("O")
			default:
				b.WriteString(".")
			}
		}
		b.WriteString("|\n")
	}
	b.WriteString(" 0123456\n")
	b.WriteString("Legend: X=player 1, O=player 2\n")
	return b.String()
}

func formatCheckers(s *engine.CheckersState) string {
	var b strings.Builder
	b.WriteString("Board (row, col from the top left):\n")
	b.WriteString("   01234567\n")
	for row := 0; row < engine.CheckersSize; row++ {
		fmt.Fprintf(&b, "%d  ", row)
		for col := 0; col < engine.CheckersSize; col++ {
			switch s.Board[row][col] {
			case engine.CheckersMan1:
				b.WriteString("x")
			case engine.CheckersKing1:
				b.WriteString("X")
			case engine.CheckersMan2:
				b.WriteString("o")
			case engine.CheckersKing2:
				b.WriteString("O")
			default:
				b.WriteString(".")
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("Legend: x/X=player 1 man/king, o/O=player 2 man/king\n")
	if s.MustJumpFrom != nil {
		fmt.Fprintf(&b, "Multi-jump in progress: continue jumping from %s\n", s.MustJumpFrom)
	}
	return b.String()
}

func formatChess(s *engine.ChessState) string {
	var b strings.Builder
	b.WriteString("Board (white uppercase, black lowercase):\n")
	for row := 0; row < engine.ChessSize; row++ {
		fmt.Fprintf(&b, "%d ", engine.ChessSize-row)
		for col := 0; col < engine.ChessSize; col++ {
			if piece := s.Board[row][col]; piece != "" {
				b.WriteString(piece)
			} else {
				b.WriteString(".")
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("  abcdefgh\n")
	fmt.Fprintf(&b, "FEN: %s\n", s.FEN())
	return b.String()
}

func formatBattleship(v *engine.BattleshipView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phase: %s\n", v.Phase)

	own := grid()
	for _, ship := range v.MyShips {
		for _, p := range ship.Positions {
			own[p.Row()][p.Col()] = 'S'
		}
	}
	for _, p := range v.MyHitsTaken {
		own[p.Row()][p.Col()] = 'X'
	}
	for _, p := range v.MyMissesTaken {
		own[p.Row()][p.Col()] = 'o'
	}

	target := grid()
	for _, p := range v.MyAttacksMissed {
		target[p.Row()][p.Col()] = 'o'
	}
	for _, p := range v.MyAttacksHit {
		target[p.Row()][p.Col()] = 'X'
	}
	for _, ship := range v.OpponentSunkShips {
		for _, p := range ship.Positions {
			target[p.Row()][p.Col()] = '#'
		}
	}

	b.WriteString("Your fleet          Your attacks\n")
	b.WriteString("   0123456789          0123456789\n")
	for row := 0; row < engine.BattleshipSize; row++ {
		fmt.Fprintf(&b, "%d  %s       %d  %s\n", row, own[row], row, target[row])
	}
	b.WriteString("Legend: S=ship, X=hit, o=miss, #=sunk enemy ship\n")

	sunk := 0
	for _, ship := range v.MyShips {
		if ship.Sunk {
			sunk++
		}
	}
	fmt.Fprintf(&b, "Your ships sunk: %d/%d, enemy ships sunk: %d/%d\n",
		sunk, len(engine.BattleshipFleet), len(v.OpponentSunkShips), len(engine.BattleshipFleet))
	return b.String()
}

type gridRow [engine.BattleshipSize]byte

func (r gridRow) String() string { return string(r[:]) }

func grid() [engine.BattleshipSize]gridRow {
	var g [engine.BattleshipSize]gridRow
	for i := range g {
		for j := range g[i] {
			g[i][j] = '.'
		}
	}
	return g
}

var gameRules = map[string]string{
	string(engine.ConnectFour): `Connect Four
Board: 6 rows x 7 columns. Player 1 moves first.
Move: {"column": 0-6}. The piece drops to the lowest empty row of the column.
Win: four of your pieces in a row, column or diagonal. Full board is a draw.`,

	string(engine.Checkers): `Checkers
Board: 8x8, pieces on dark squares. Player 1 starts on rows 5-7 and moves up.
Move: {"from_row": r, "from_col": c, "to_row": r, "to_col": c}.
Men move one square diagonally forward, kings in both directions.
Captures are mandatory. After a capture the same piece must keep jumping
while it can. A man reaching the far row is crowned.
Win: the opponent has no pieces or no legal moves.`,

	string(engine.Battleship): `Battleship
Board: 10x10 per player. Fleet lengths: 5, 4, 3, 3, 2.
Setup moves:
  {"action": "place_ship", "row": r, "col": c, "length": n, "horizontal": true}
  {"action": "random_setup"} places the whole fleet at random
Ships may not overlap or leave the board. Once both fleets are placed,
player 1 attacks first.
Attack: {"row": r, "col": c}. Turns alternate after every shot.
Win: sink every enemy ship. You only see your own fleet and your shots.`,

	string(engine.Chess): `Chess
White (player 1, uppercase) moves first. Row 8 is black's back rank.
Move: {"from": "e2", "to": "e4"}, add "promotion": "Q", "R", "B" or "N" for pawn promotion
(queen when omitted).
Castling and en passant are not supported. Moves that leave your king in check are rejected.
Checkmate wins. Stalemate ends the game as a draw.`,
}
