package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/online-games/game/engine"
	"github.com/wricardo/online-games/game/service"
)

func saveMatch(t *testing.T, dir, id string, e engine.Engine, state engine.State, edit func(*service.Match)) string {
	t.Helper()
	raw, err := e.SerializeState(state)
	require.NoError(t, err)
	m := &service.Match{
		ID:       id,
		GameType: e.Type(),
		Status:   service.StatusInProgress,
		Player1:  "alice",
		Player2:  "bob",
		State:    raw,
	}
	if edit != nil {
		edit(m)
	}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	path := filepath.Join(dir, id+".json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestAnalyzeMatch_Chess(t *testing.T) {
	e := engine.NewChessEngine()
	s := e.CreateInitialState().(*engine.ChessState)
	s.Board[0][3] = "" // black queen gone

	summary, err := analyzeMatch(saveMatch(t, t.TempDir(), "c1", e, s, nil))
	require.NoError(t, err)
	assert.Equal(t, engine.Chess, summary.GameType)
	assert.Equal(t, engine.BySeat[int]{One: 16, Two: 15}, summary.Pieces)
	assert.Contains(t, summary.Details, "Material: 39 vs 30 (+9)")
	assert.Equal(t, "in progress", summary.Outcome)
}

func TestAnalyzeMatch_Checkers(t *testing.T) {
	e := engine.NewCheckersEngine()
	s := e.CreateInitialState().(*engine.CheckersState)
	s.Board[5][0] = engine.CheckersKing1

	summary, err := analyzeMatch(saveMatch(t, t.TempDir(), "k1", e, s, nil))
	require.NoError(t, err)
	assert.Contains(t, summary.Details, "Pieces: 12 vs 12")
	assert.Contains(t, summary.Details, "Kings: 1 vs 0")
}

func TestAnalyzeMatch_ConnectFourResigned(t *testing.T) {
	e := engine.NewConnectFourEngine()
	col := 2
	state := e.ApplyMove(e.CreateInitialState(), engine.Player1, engine.ConnectFourMove{Column: &col})

	summary, err := analyzeMatch(saveMatch(t, t.TempDir(), "f1", e, state, func(m *service.Match) {
		m.Status = service.StatusCompleted
		m.Winner = engine.Player2
		m.EndReason = service.EndResign
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Moves)
	assert.Equal(t, "player 2 wins by resign", summary.Outcome)
	assert.Contains(t, summary.Details, "Discs: 1 vs 0")
}

func TestAnalyzeMatch_Battleship(t *testing.T) {
	e := engine.NewBattleshipEngine()
	setup := engine.BattleshipMove{Action: engine.ActionRandomSetup}
	state := e.ApplyMove(e.CreateInitialState(), engine.Player1, setup)
	state = e.ApplyMove(state, engine.Player2, setup)

	summary, err := analyzeMatch(saveMatch(t, t.TempDir(), "b1", e, state, nil))
	require.NoError(t, err)
	assert.Contains(t, summary.Details, "Phase: playing")
	assert.Contains(t, summary.Details, "Ships afloat: 5 vs 5")
	assert.Contains(t, summary.Details, "Accuracy: - vs -")
}

func TestAnalyzeMatch_Errors(t *testing.T) {
	_, err := analyzeMatch("/non/existent.json")
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	_, err = analyzeMatch(bad)
	assert.Error(t, err)

	e := engine.NewChessEngine()
	path := saveMatch(t, dir, "g1", e, e.CreateInitialState(), func(m *service.Match) { m.GameType = "go" })
	_, err = analyzeMatch(path)
	assert.ErrorIs(t, err, engine.ErrUnknownGameType)
}

func TestAnalyzeDir(t *testing.T) {
	dir := t.TempDir()
	c4 := engine.NewConnectFourEngine()
	chess := engine.NewChessEngine()
	saveMatch(t, dir, "a", c4, c4.CreateInitialState(), nil)
	saveMatch(t, dir, "b", chess, chess.CreateInitialState(), nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.json"), []byte("nope"), 0644))

	var out bytes.Buffer
	require.NoError(t, analyzeDir(&out, dir))
	text := out.String()
	assert.Contains(t, text, "=== Analyzing a.json ===")
	assert.Contains(t, text, "Error: error parsing JSON")
	assert.Contains(t, text, "3 match files")
	assert.Contains(t, text, "  connect_four: 1")
	assert.Contains(t, text, "  chess: 1")
}
