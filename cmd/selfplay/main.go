// Command selfplay drives a match through the REST API with two automated
// players. It creates a match, joins it with a second player and keeps
// submitting moves chosen from the server's valid move list until the game
// ends or the move cap is reached.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/online-games/game/service"
)

var errNoProgress = errors.New("neither player has a playable move")

// Result summarizes a finished selfplay run
type Result struct {
	MatchID   string
	Moves     int
	Finished  bool
	Winner    string
	EndReason string
}

// Player is one automated seat
type Player struct {
	ID       string
	Strategy Strategy
}

// Play runs one match between two players on the server behind client
func Play(ctx context.Context, client *Client, preset string, players [2]Player, maxMoves int, delay time.Duration, logger *zap.Logger) (*Result, error) {
	match, err := client.CreateMatch(ctx, players[0].ID, preset)
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	logger = logger.With(zap.String("match_id", match.ID), zap.String("game_type", match.GameType))
	logger.Info("match created")

	if _, err := client.JoinMatch(ctx, match.ID, players[1].ID); err != nil {
		return nil, fmt.Errorf("join match: %w", err)
	}

	result := &Result{MatchID: match.ID}
	for result.Moves < maxMoves {
		moved := false
		for _, p := range players {
			state, err := client.GetState(ctx, match.ID, p.ID)
			if err != nil {
				return result, fmt.Errorf("get state: %w", err)
			}
			if state.Status != service.StatusInProgress {
				result.Finished = true
				result.Winner = state.WinnerID
				result.EndReason = state.EndReason
				logger.Info("match finished",
					zap.Int("moves", result.Moves),
					zap.String("winner", result.Winner),
					zap.String("end_reason", result.EndReason))
				return result, nil
			}

			move := p.Strategy.NextMove(state)
			if move == nil {
				continue
			}
			resp, err := client.Move(ctx, match.ID, p.ID, move)
			if err != nil {
				// the move list can go stale between reads, so try the other seat
				logger.Debug("move rejected", zap.String("player", p.ID), zap.Error(err))
				continue
			}
			moved = true
			result.Moves++
			logger.Debug("move played",
				zap.String("player", p.ID),
				zap.ByteString("move", move),
				zap.String("message", resp.Message))

			if delay > 0 {
				select {
				case <-ctx.Done():
					return result, ctx.Err()
				case <-time.After(delay):
				}
			}
		}
		if !moved {
			return result, errNoProgress
		}
	}

	logger.Warn("move cap reached", zap.Int("moves", result.Moves))
	return result, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	var logger *zap.Logger
	var err error
	if cmd.Bool("verbose") {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	defer logger.Sync()

	strategy := cmd.String("strategy")
	seed := uint64(cmd.Int("seed"))
	s1, ok := newStrategy(strategy, seed)
	if !ok {
		return fmt.Errorf("unknown strategy %q (use random or first)", strategy)
	}
	s2, _ := newStrategy(strategy, seed+1)

	players := [2]Player{
		{ID: "selfplay-" + uuid.NewString()[:8], Strategy: s1},
		{ID: "selfplay-" + uuid.NewString()[:8], Strategy: s2},
	}

	client := NewClient(cmd.String("url"))
	logger.Info("connecting to game server", zap.String("url", cmd.String("url")))

	games, maxMoves := int(cmd.Int("games")), int(cmd.Int("max-moves"))
	for game := 1; game <= games; game++ {
		result, err := Play(ctx, client, cmd.String("preset"), players, maxMoves, cmd.Duration("delay"), logger)
		if err != nil {
			return fmt.Errorf("game %d: %w", game, err)
		}
		winner := result.Winner
		if winner == "" {
			winner = "none"
		}
		fmt.Printf("game %d: match %s, %d moves, finished=%t, winner=%s (%s)\n",
			game, result.MatchID, result.Moves, result.Finished, winner, result.EndReason)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "selfplay",
		Usage: "Play automated matches against a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL", Sources: cli.EnvVars("API_URL")},
			&cli.StringFlag{Name: "preset", Value: "connect_four", Usage: "Preset id or game type"},
			&cli.StringFlag{Name: "strategy", Value: "random", Usage: "random or first"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "Seed for the random strategy"},
			&cli.IntFlag{Name: "games", Value: 1, Usage: "Number of matches to play"},
			&cli.IntFlag{Name: "max-moves", Value: 1000, Usage: "Maximum moves per match"},
			&cli.DurationFlag{Name: "delay", Usage: "Delay between moves"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Log every move"},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
