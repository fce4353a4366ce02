// Command analyze prints quick, human-readable summaries of saved matches.
// For every match file it reports the game, status, players and move count,
// then a per-game material picture: discs, pieces and kings, ships afloat,
// or chess material.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/online-games/game/engine"
	"github.com/wricardo/online-games/game/service"
)

// Summary is what analyze reports about one match
type Summary struct {
	ID       string
	GameType engine.GameType
	Status   service.MatchStatus
	Players  engine.BySeat[string]
	Moves    int
	Outcome  string
	Pieces   engine.BySeat[int]
	Details  []string
}

func analyzeMatch(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	var match service.Match
	if err := json.Unmarshal(data, &match); err != nil {
		return nil, fmt.Errorf("error parsing JSON: %w", err)
	}

	e, err := engine.New(match.GameType)
	if err != nil {
		return nil, err
	}
	state, err := e.DeserializeState(match.State)
	if err != nil {
		return nil, fmt.Errorf("error reading state: %w", err)
	}

	summary := &Summary{
		ID:       match.ID,
		GameType: match.GameType,
		Status:   match.Status,
		Players:  engine.BySeat[string]{One: match.Player1, Two: match.Player2},
		Moves:    engine.MoveCount(state),
		Outcome:  engine.Outcome(e, state),
		Pieces:   engine.CountPieces(state),
	}
	if match.EndReason == service.EndResign || match.EndReason == service.EndTimeout {
		summary.Outcome = fmt.Sprintf("player %d wins by %s", match.Winner, match.EndReason)
	}

	switch s := state.(type) {
	case *engine.ConnectFourState:
		summary.Details = append(summary.Details, fmt.Sprintf("Discs: %d vs %d", summary.Pieces.One, summary.Pieces.Two))
	case *engine.CheckersState:
		kings := engine.CountKings(s)
		summary.Details = append(summary.Details,
			fmt.Sprintf("Pieces: %d vs %d", summary.Pieces.One, summary.Pieces.Two),
			fmt.Sprintf("Kings: %d vs %d", kings.One, kings.Two))
		if s.MustJumpFrom != nil {
			summary.Details = append(summary.Details, fmt.Sprintf("Multi-jump pending from %s", s.MustJumpFrom))
		}
	case *engine.BattleshipState:
		summary.Details = append(summary.Details,
			fmt.Sprintf("Phase: %s", s.Phase),
			fmt.Sprintf("Ships afloat: %d vs %d", summary.Pieces.One, summary.Pieces.Two),
			fmt.Sprintf("Accuracy: %s vs %s", accuracy(s, engine.Player1), accuracy(s, engine.Player2)))
	case *engine.ChessState:
		material := engine.ChessMaterial(s)
		summary.Details = append(summary.Details,
			fmt.Sprintf("Material: %d vs %d (%+d)", material.One, material.Two, material.One-material.Two),
			fmt.Sprintf("FEN: %s", s.FEN()))
	}

	return summary, nil
}

// accuracy is the share of attacks by player that hit
func accuracy(s *engine.BattleshipState, player engine.Player) string {
	target := s.Boards.Get(player.Opponent())
	shots := len(target.Hits) + len(target.Misses)
	if shots == 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d", len(target.Hits), shots)
}

func printSummary(w io.Writer, s *Summary) {
	fmt.Fprintf(w, "Game: %s\n", s.GameType)
	fmt.Fprintf(w, "Status: %s\n", s.Status)
	two := s.Players.Two
	if two == "" {
		two = "(open)"
	}
	fmt.Fprintf(w, "Players: %s vs %s\n", s.Players.One, two)
	fmt.Fprintf(w, "Moves: %d\n", s.Moves)
	fmt.Fprintf(w, "Outcome: %s\n", s.Outcome)
	for _, d := range s.Details {
		fmt.Fprintln(w, d)
	}
}

func analyzeDir(w io.Writer, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	byType := map[engine.GameType]int{}
	for _, file := range files {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", filepath.Base(file))
		summary, err := analyzeMatch(file)
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			continue
		}
		printSummary(w, summary)
		byType[summary.GameType]++
	}

	fmt.Fprintf(w, "\n%d match files\n", len(files))
	for _, t := range engine.DefaultRegistry().Types() {
		if n := byType[t]; n > 0 {
			fmt.Fprintf(w, "  %s: %d\n", t, n)
		}
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "Summarize saved matches",
		ArgsUsage: "[file.json ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "Directory of saved matches", Sources: cli.EnvVars("SESSIONS_DIR")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return analyzeDir(os.Stdout, cmd.String("sessions-dir"))
			}
			for _, file := range cmd.Args().Slice() {
				fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
				summary, err := analyzeMatch(file)
				if err != nil {
					return err
				}
				printSummary(os.Stdout, summary)
			}
			return nil
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
