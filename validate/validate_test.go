package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/online-games/game/engine"
	"github.com/wricardo/online-games/game/service"
)

func newMatch(t *testing.T, e engine.Engine, state engine.State) *service.Match {
	t.Helper()
	raw, err := e.SerializeState(state)
	require.NoError(t, err)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &service.Match{
		ID:        "m1",
		GameType:  e.Type(),
		PresetID:  string(e.Type()),
		Status:    service.StatusInProgress,
		Player1:   "alice",
		Player2:   "bob",
		State:     raw,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func writeMatch(t *testing.T, m *service.Match) string {
	t.Helper()
	return writeJSON(t, t.TempDir(), m.ID+".json", m)
}

func hasError(result ValidationResult, substr string) bool {
	for _, err := range result.Errors {
		if strings.Contains(err, substr) {
			return true
		}
	}
	return false
}

func dropAll(e engine.Engine, state engine.State, cols ...int) engine.State {
	for _, col := range cols {
		c := col
		state = e.ApplyMove(state, state.Turn(), engine.ConnectFourMove{Column: &c})
	}
	return state
}

func TestValidatePreset_ShippedConfigs(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "configs", "*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		result := validatePreset(file)
		assert.True(t, result.Valid, "%s: %v", file, result.Errors)
	}
}

func TestValidatePreset_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		preset map[string]any
		want   string
	}{
		{"unknown game", map[string]any{"name": "Go", "game_type": "go"}, "Unknown game type"},
		{"negative clock", map[string]any{"name": "Bad", "game_type": "chess", "time_limit_seconds": -1}, "must not be negative"},
		{"no name", map[string]any{"game_type": "checkers"}, "Missing name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validatePreset(writeJSON(t, dir, "p.json", tt.preset))
			assert.False(t, result.Valid)
			assert.True(t, hasError(result, tt.want), "errors: %v", result.Errors)
		})
	}
}

func TestValidateMatch_ReadErrors(t *testing.T) {
	result := validateMatch("/non/existent/file.json")
	assert.False(t, result.Valid)
	assert.True(t, hasError(result, "Failed to read file"))

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id": invalid}`), 0644))
	result = validateMatch(path)
	assert.False(t, result.Valid)
	assert.True(t, hasError(result, "Invalid JSON"))
}

func TestValidateMatch_ConnectFour(t *testing.T) {
	e := engine.NewConnectFourEngine()

	t.Run("fresh waiting match", func(t *testing.T) {
		m := newMatch(t, e, e.CreateInitialState())
		m.Status = service.StatusWaiting
		m.Player2 = ""
		result := validateMatch(writeMatch(t, m))
		assert.True(t, result.Valid, "%v", result.Errors)
		assert.True(t, hasError(result, "Outcome: in progress"))
	})

	t.Run("completed win", func(t *testing.T) {
		m := newMatch(t, e, dropAll(e, e.CreateInitialState(), 0, 1, 0, 1, 0, 1, 0))
		m.Status = service.StatusCompleted
		m.Winner = engine.Player1
		m.EndReason = service.EndWin
		result := validateMatch(writeMatch(t, m))
		assert.True(t, result.Valid, "%v", result.Errors)
		assert.True(t, hasError(result, "Moves: 7"))
	})

	t.Run("wrong winner", func(t *testing.T) {
		m := newMatch(t, e, dropAll(e, e.CreateInitialState(), 0, 1, 0, 1, 0, 1, 0))
		m.Status = service.StatusCompleted
		m.Winner = engine.Player2
		m.EndReason = service.EndWin
		result := validateMatch(writeMatch(t, m))
		assert.False(t, result.Valid)
		assert.True(t, hasError(result, "Recorded winner 2, engine says 1"))
	})

	t.Run("finished game still in progress", func(t *testing.T) {
		m := newMatch(t, e, dropAll(e, e.CreateInitialState(), 0, 1, 0, 1, 0, 1, 0))
		result := validateMatch(writeMatch(t, m))
		assert.False(t, result.Valid)
		assert.True(t, hasError(result, "Engine reports game over"))
	})

	t.Run("resigned game need not be over", func(t *testing.T) {
		m := newMatch(t, e, dropAll(e, e.CreateInitialState(), 3))
		m.Status = service.StatusCompleted
		m.Winner = engine.Player1
		m.EndReason = service.EndResign
		result := validateMatch(writeMatch(t, m))
		assert.True(t, result.Valid, "%v", result.Errors)
	})

	t.Run("floating piece", func(t *testing.T) {
		s := dropAll(e, e.CreateInitialState(), 3).(*engine.ConnectFourState)
		s.Board[engine.ConnectFourRows-1][3] = engine.NoPlayer
		s.Board[0][3] = engine.Player1
		result := validateMatch(writeMatch(t, newMatch(t, e, s)))
		assert.False(t, result.Valid)
		assert.True(t, hasError(result, "Floating piece at (0,3)"))
	})
}

func TestValidateMatch_Seats(t *testing.T) {
	e := engine.NewConnectFourEngine()

	m := newMatch(t, e, e.CreateInitialState())
	m.Status = service.StatusWaiting
	result := validateMatch(writeMatch(t, m))
	assert.False(t, result.Valid)
	assert.True(t, hasError(result, "Waiting match already has player2"))

	m = newMatch(t, e, e.CreateInitialState())
	m.Player2 = ""
	result = validateMatch(writeMatch(t, m))
	assert.True(t, hasError(result, "in_progress without player2"))

	m = newMatch(t, e, e.CreateInitialState())
	m.Winner = engine.Player1
	result = validateMatch(writeMatch(t, m))
	assert.True(t, hasError(result, "Winner 1 recorded on a in_progress match"))

	m = newMatch(t, e, e.CreateInitialState())
	m.TimeLimitSeconds = 60
	result = validateMatch(writeMatch(t, m))
	assert.True(t, hasError(result, "Clock present without a time limit"))

	m = newMatch(t, e, e.CreateInitialState())
	m.ChallengedPlayer = "carol"
	result = validateMatch(writeMatch(t, m))
	assert.True(t, hasError(result, "Challenge for carol taken by bob"))

	m = newMatch(t, e, e.CreateInitialState())
	m.ChallengedPlayer = "bob"
	result = validateMatch(writeMatch(t, m))
	assert.True(t, result.Valid, result.Errors)

	m = newMatch(t, e, e.CreateInitialState())
	result = validateMatch(writeJSON(t, t.TempDir(), "other.json", m))
	assert.True(t, hasError(result, "does not match id m1"))
}

func TestValidateMatch_UnknownGame(t *testing.T) {
	m := newMatch(t, engine.NewConnectFourEngine(), engine.NewConnectFourEngine().CreateInitialState())
	m.GameType = "go"
	result := validateMatch(writeMatch(t, m))
	assert.False(t, result.Valid)
	assert.True(t, hasError(result, `Unknown game type "go"`))
}

func TestValidateMatch_Checkers(t *testing.T) {
	e := engine.NewCheckersEngine()
	result := validateMatch(writeMatch(t, newMatch(t, e, e.CreateInitialState())))
	assert.True(t, result.Valid, "%v", result.Errors)

	s := e.CreateInitialState().(*engine.CheckersState)
	s.Board[0][1] = engine.CheckersMan1
	s.Board[4][4] = engine.CheckersMan2
	result = validateMatch(writeMatch(t, newMatch(t, e, s)))
	assert.False(t, result.Valid)
	assert.True(t, hasError(result, "Uncrowned man on the last row at (0,1)"))
	assert.True(t, hasError(result, "Piece on a light square at (4,4)"))
}

func TestValidateMatch_Chess(t *testing.T) {
	e := engine.NewChessEngine()
	result := validateMatch(writeMatch(t, newMatch(t, e, e.CreateInitialState())))
	assert.True(t, result.Valid, "%v", result.Errors)

	s := e.CreateInitialState().(*engine.ChessState)
	s.Board[0][4] = ""
	s.Board[3][3] = "x"
	result = validateMatch(writeMatch(t, newMatch(t, e, s)))
	assert.False(t, result.Valid)
	assert.True(t, hasError(result, "found 1 white and 0 black"))
	assert.True(t, hasError(result, `Unknown piece "x"`))
}

func TestValidateMatch_Battleship(t *testing.T) {
	e := engine.NewBattleshipEngine()
	setup := engine.BattleshipMove{Action: engine.ActionRandomSetup}
	state := e.ApplyMove(e.CreateInitialState(), engine.Player1, setup)
	state = e.ApplyMove(state, engine.Player2, setup)
	s := state.(*engine.BattleshipState)
	require.Equal(t, engine.PhasePlaying, s.Phase)

	result := validateMatch(writeMatch(t, newMatch(t, e, s)))
	assert.True(t, result.Valid, "%v", result.Errors)

	board := s.Boards.Get(engine.Player2)
	ships := append([]engine.Ship(nil), board.Ships...)
	ships[0].Sunk = true
	board.Ships = ships
	board.Misses = []engine.Coord{ships[1].Positions[0]}
	s.Boards = s.Boards.With(engine.Player2, board)

	result = validateMatch(writeMatch(t, newMatch(t, e, s)))
	assert.False(t, result.Valid)
	assert.True(t, hasError(result, "Player 2 ship 0 sunk flag is true, hits say false"))
	assert.True(t, hasError(result, "Player 2 miss recorded on a ship"))
}
