// Command validate checks match presets and saved match documents.
//
// Presets are checked for a name, a known game type and a non-negative time
// limit. Match documents are decoded with the engine for their game type and
// checked for:
//   - Seat and status consistency (waiting has one player, play needs two)
//   - A state the engine can read, with a valid side to move
//   - Board invariants of each game
//   - Agreement between the stored status and what the engine reports
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/online-games/game/engine"
	"github.com/wricardo/online-games/game/service"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...any) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

func newResult(filePath string) ValidationResult {
	return ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}
}

// validatePreset loads and validates a single preset file
func validatePreset(filePath string) ValidationResult {
	result := newResult(filePath)

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var preset service.Preset
	if err := json.Unmarshal(data, &preset); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if preset.Name == "" {
		result.fail("Missing name")
	}
	if _, err := engine.ParseGameType(string(preset.GameType)); err != nil {
		result.fail("Unknown game type %q", preset.GameType)
	}
	if preset.TimeLimitSeconds < 0 {
		result.fail("time_limit_seconds must not be negative, got %d", preset.TimeLimitSeconds)
	}

	if result.Valid {
		result.info("Name: %s", preset.Name)
		result.info("Game: %s", preset.GameType)
		if preset.TimeLimitSeconds > 0 {
			result.info("Clock: %ds per player", preset.TimeLimitSeconds)
		}
	}
	return result
}

var statuses = []service.MatchStatus{
	service.StatusWaiting,
	service.StatusInProgress,
	service.StatusCompleted,
	service.StatusAbandoned,
}

// validateMatch loads a saved match and checks it against its engine
func validateMatch(filePath string) ValidationResult {
	result := newResult(filePath)

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var match service.Match
	if err := json.Unmarshal(data, &match); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if match.ID == "" {
		result.fail("Missing id")
	} else if stem := strings.TrimSuffix(result.File, ".json"); stem != match.ID {
		result.fail("File name %s does not match id %s", result.File, match.ID)
	}

	if !slices.Contains(statuses, match.Status) {
		result.fail("Unknown status %q", match.Status)
	}
	validateSeats(&match, &result)

	if (match.TimeLimitSeconds > 0) != (match.RemainingMillis != nil) {
		result.fail("Clock present without a time limit, or missing with one")
	}

	e, err := engine.New(match.GameType)
	if err != nil {
		result.fail("Unknown game type %q", match.GameType)
		return result
	}
	state, err := e.DeserializeState(match.State)
	if err != nil {
		result.fail("Unreadable state: %v", err)
		return result
	}
	if !state.Turn().Valid() {
		result.fail("Invalid side to move: %d", state.Turn())
	}

	for _, problem := range boardProblems(state) {
		result.fail("%s", problem)
	}
	validateOutcome(&match, e, state, &result)

	if result.Valid {
		result.info("Game: %s", match.GameType)
		result.info("Status: %s", match.Status)
		result.info("Moves: %d", engine.MoveCount(state))
		result.info("Outcome: %s", engine.Outcome(e, state))
	}
	return result
}

func validateSeats(m *service.Match, result *ValidationResult) {
	if m.Player1 == "" {
		result.fail("Missing player1")
	}
	switch m.Status {
	case service.StatusWaiting:
		if m.Player2 != "" {
			result.fail("Waiting match already has player2")
		}
	case service.StatusInProgress, service.StatusCompleted:
		if m.Player2 == "" {
			result.fail("Match %s without player2", m.Status)
		}
	}
	if m.Player1 != "" && m.Player1 == m.Player2 {
		result.fail("Both seats held by %s", m.Player1)
	}
	if m.Winner != engine.NoPlayer && (!m.Winner.Valid() || m.Status != service.StatusCompleted) {
		result.fail("Winner %d recorded on a %s match", m.Winner, m.Status)
	}
	if c := m.ChallengedPlayer; c != "" {
		if c == m.Player1 {
			result.fail("Player1 %s challenges themselves", c)
		}
		if m.Player2 != "" && m.Player2 != c {
			result.fail("Challenge for %s taken by %s", c, m.Player2)
		}
	}
}

func validateOutcome(m *service.Match, e engine.Engine, state engine.State, result *ValidationResult) {
	over := e.IsGameOver(state)
	switch m.Status {
	case service.StatusInProgress, service.StatusWaiting:
		if over {
			result.fail("Engine reports game over but status is %s", m.Status)
		}
	case service.StatusCompleted:
		if m.EndReason != service.EndWin && m.EndReason != service.EndDraw {
			// resign and timeout end a game the engine still considers open
			return
		}
		if !over {
			result.fail("Status completed by %s but engine reports game in progress", m.EndReason)
			return
		}
		winner, won := e.CheckWinner(state)
		if !won {
			winner = engine.NoPlayer
		}
		if winner != m.Winner {
			result.fail("Recorded winner %d, engine says %d", m.Winner, winner)
		}
	}
}

// boardProblems lists invariant violations in the board of state
func boardProblems(state engine.State) []string {
	switch s := state.(type) {
	case *engine.ConnectFourState:
		return connectFourProblems(s)
	case *engine.CheckersState:
		return checkersProblems(s)
	case *engine.ChessState:
		return chessProblems(s)
	case *engine.BattleshipState:
		return battleshipProblems(s)
	}
	return nil
}

func connectFourProblems(s *engine.ConnectFourState) []string {
	var problems []string
	counts := engine.CountPieces(s)
	if d := counts.One - counts.Two; d != 0 && d != 1 {
		problems = append(problems, fmt.Sprintf("Piece counts out of balance: %d vs %d", counts.One, counts.Two))
	}
	if total := counts.One + counts.Two; total != len(s.Moves) {
		problems = append(problems, fmt.Sprintf("%d pieces on the board but %d moves logged", total, len(s.Moves)))
	}
	for col := 0; col < engine.ConnectFourCols; col++ {
		for row := 0; row < engine.ConnectFourRows-1; row++ {
			if s.Board[row][col] != engine.NoPlayer && s.Board[row+1][col] == engine.NoPlayer {
				problems = append(problems, fmt.Sprintf("Floating piece at (%d,%d)", row, col))
			}
		}
	}
	return problems
}

func checkersProblems(s *engine.CheckersState) []string {
	var problems []string
	for row := 0; row < engine.CheckersSize; row++ {
		for col := 0; col < engine.CheckersSize; col++ {
			piece := s.Board[row][col]
			if piece == engine.CheckersEmpty {
				continue
			}
			if piece.Owner() == engine.NoPlayer {
				problems = append(problems, fmt.Sprintf("Unknown piece %d at (%d,%d)", piece, row, col))
				continue
			}
			if (row+col)%2 != 1 {
				problems = append(problems, fmt.Sprintf("Piece on a light square at (%d,%d)", row, col))
			}
			if (piece == engine.CheckersMan1 && row == 0) || (piece == engine.CheckersMan2 && row == engine.CheckersSize-1) {
				problems = append(problems, fmt.Sprintf("Uncrowned man on the last row at (%d,%d)", row, col))
			}
		}
	}
	counts := engine.CountPieces(s)
	if counts.One > 12 || counts.Two > 12 {
		problems = append(problems, fmt.Sprintf("Too many pieces: %d vs %d", counts.One, counts.Two))
	}
	if s.MustJumpFrom != nil && s.Board[s.MustJumpFrom.Row()][s.MustJumpFrom.Col()].Owner() != s.CurrentPlayer {
		problems = append(problems, fmt.Sprintf("Multi-jump square %s does not hold a piece of the side to move", s.MustJumpFrom))
	}
	return problems
}

func chessProblems(s *engine.ChessState) []string {
	var problems []string
	kings := map[string]int{}
	for row := 0; row < engine.ChessSize; row++ {
		for col := 0; col < engine.ChessSize; col++ {
			piece := s.Board[row][col]
			if piece == "" {
				continue
			}
			if len(piece) != 1 || !strings.Contains("PNBRQKpnbrqk", piece) {
				problems = append(problems, fmt.Sprintf("Unknown piece %q at (%d,%d)", piece, row, col))
				continue
			}
			if strings.EqualFold(piece, "k") {
				kings[piece]++
			}
			if strings.EqualFold(piece, "p") && (row == 0 || row == engine.ChessSize-1) {
				problems = append(problems, fmt.Sprintf("Pawn on a back rank at (%d,%d)", row, col))
			}
		}
	}
	if kings["K"] != 1 || kings["k"] != 1 {
		problems = append(problems, fmt.Sprintf("Expected one king per side, found %d white and %d black", kings["K"], kings["k"]))
	}
	return problems
}

func battleshipProblems(s *engine.BattleshipState) []string {
	var problems []string
	for _, p := range []engine.Player{engine.Player1, engine.Player2} {
		board := s.Boards.Get(p)
		if len(board.Ships) > len(engine.BattleshipFleet) {
			problems = append(problems, fmt.Sprintf("Player %d has %d ships", p, len(board.Ships)))
		}
		if s.Phase != engine.PhaseSetup && len(board.Ships) != len(engine.BattleshipFleet) {
			problems = append(problems, fmt.Sprintf("Player %d fleet incomplete in phase %s", p, s.Phase))
		}

		occupied := map[engine.Coord]bool{}
		for i, ship := range board.Ships {
			sunk := true
			for _, c := range ship.Positions {
				if c.Row() < 0 || c.Row() >= engine.BattleshipSize || c.Col() < 0 || c.Col() >= engine.BattleshipSize {
					problems = append(problems, fmt.Sprintf("Player %d ship %d off the board at %s", p, i, c))
				}
				if occupied[c] {
					problems = append(problems, fmt.Sprintf("Player %d ships overlap at %s", p, c))
				}
				occupied[c] = true
				if !slices.Contains(board.Hits, c) {
					sunk = false
				}
			}
			if sunk != ship.Sunk {
				problems = append(problems, fmt.Sprintf("Player %d ship %d sunk flag is %t, hits say %t", p, i, ship.Sunk, sunk))
			}
		}
		for _, c := range board.Hits {
			if !occupied[c] {
				problems = append(problems, fmt.Sprintf("Player %d hit recorded on open water at %s", p, c))
			}
		}
		for _, c := range board.Misses {
			if occupied[c] {
				problems = append(problems, fmt.Sprintf("Player %d miss recorded on a ship at %s", p, c))
			}
		}
	}
	return problems
}

func printResult(result ValidationResult) bool {
	fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

	if result.Valid {
		fmt.Println("✅ VALID")
		for _, info := range result.Errors {
			fmt.Println("  " + info)
		}
		return true
	}

	fmt.Println("❌ INVALID")
	for _, err := range result.Errors {
		if !strings.HasPrefix(err, "✓") {
			fmt.Println("  ❌ " + err)
		}
	}
	return false
}

func validateDir(dir string, validate func(string) ValidationResult) (bool, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return false, fmt.Errorf("error finding files in %s: %w", dir, err)
	}
	allValid := true
	for _, file := range files {
		if !printResult(validate(file)) {
			allValid = false
		}
	}
	return allValid, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	presetsValid, err := validateDir(cmd.String("config-dir"), validatePreset)
	if err != nil {
		return err
	}
	matchesValid, err := validateDir(cmd.String("sessions-dir"), validateMatch)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if !presetsValid || !matchesValid {
		return cli.Exit("❌ Some files have errors", 1)
	}
	fmt.Println("✅ All presets and matches are valid!")
	return nil
}

// main scans the preset and match directories and validates every file,
// exiting with non-zero status if any are invalid.
func main() {
	cmd := &cli.Command{
		Name:  "validate",
		Usage: "Validate match presets and saved matches",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "configs", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Sources: cli.EnvVars("SESSIONS_DIR")},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
