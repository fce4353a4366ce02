package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wricardo/online-games/api"
	"github.com/wricardo/online-games/game/config"
	"github.com/wricardo/online-games/game/service"
	"github.com/wricardo/online-games/game/session"
)

func newServer(t *testing.T) *Client {
	t.Helper()
	logger := zaptest.NewLogger(t)
	presets, err := config.NewManager(t.TempDir())
	require.NoError(t, err)
	svc := service.NewGameService(session.NewManager(), presets, service.WithLogger(logger))
	srv := httptest.NewServer(api.NewServer(svc, nil, logger))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func players(seed uint64) [2]Player {
	return [2]Player{
		{ID: "p1", Strategy: NewRandomStrategy(seed)},
		{ID: "p2", Strategy: NewRandomStrategy(seed + 1)},
	}
}

func TestPlay_FinishesGames(t *testing.T) {
	for _, preset := range []string{"connect_four", "battleship"} {
		t.Run(preset, func(t *testing.T) {
			client := newServer(t)
			result, err := Play(context.Background(), client, preset, players(7), 5000, 0, zaptest.NewLogger(t))
			require.NoError(t, err)
			assert.True(t, result.Finished, "moves played: %d", result.Moves)
			assert.NotEmpty(t, result.EndReason)
			if result.EndReason == service.EndWin {
				assert.Contains(t, []string{"p1", "p2"}, result.Winner)
			}
		})
	}
}

func TestPlay_MoveCap(t *testing.T) {
	client := newServer(t)
	result, err := Play(context.Background(), client, "chess", players(3), 4, 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, result.Finished)
	assert.Equal(t, 4, result.Moves)

	state, err := client.GetState(context.Background(), result.MatchID, "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, state.MoveCount)
	assert.Equal(t, service.StatusInProgress, state.Status)
}

func TestPlay_UnknownPreset(t *testing.T) {
	client := newServer(t)
	_, err := Play(context.Background(), client, "no_such_preset", players(1), 10, 0, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestStrategies(t *testing.T) {
	state := &MatchState{ValidMoves: []json.RawMessage{
		json.RawMessage(`{"column":0}`),
		json.RawMessage(`{"column":1}`),
		json.RawMessage(`{"column":2}`),
	}}

	assert.JSONEq(t, `{"column":0}`, string(FirstMoveStrategy{}.NextMove(state)))

	// same seed, same choices
	a, b := NewRandomStrategy(42), NewRandomStrategy(42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.NextMove(state), b.NextMove(state))
	}

	assert.Nil(t, a.NextMove(&MatchState{}))
	assert.Nil(t, FirstMoveStrategy{}.NextMove(&MatchState{}))

	_, ok := newStrategy("minimax", 1)
	assert.False(t, ok)
}
