package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wricardo/online-games/game/config"
	"github.com/wricardo/online-games/game/engine"
	"github.com/wricardo/online-games/game/service"
	"github.com/wricardo/online-games/game/session"
	"github.com/wricardo/online-games/transport/websocket"
)

type testEnv struct {
	server *Server
	hub    *websocket.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	dir := t.TempDir()
	preset := `{"name":"Blitz","game_type":"chess","time_limit_seconds":300,"ranked":true}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blitz.json"), []byte(preset), 0644))
	presets, err := config.NewManager(dir)
	require.NoError(t, err)

	svc := service.NewGameService(session.NewManager(session.WithLogger(logger)), presets, service.WithLogger(logger))
	hub := websocket.NewHub(svc.GetMatch, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return &testEnv{server: NewServer(svc, hub, logger), hub: hub}
}

// do sends a request as player and decodes the JSON response into out
func (e *testEnv) do(t *testing.T, method, path, player string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if player != "" {
		req.Header.Set(PlayerHeader, player)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)

	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func (e *testEnv) startMatch(t *testing.T, gameType string) string {
	t.Helper()
	var created service.MatchInfo
	require.Equal(t, http.StatusCreated, e.do(t, "POST", "/api/matches", "alice", map[string]string{"game_type": gameType}, &created))
	require.Equal(t, http.StatusOK, e.do(t, "POST", "/api/matches/"+created.ID+"/join", "bob", nil, nil))
	return created.ID
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, env.do(t, "GET", "/health", "", nil, &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestCatalogEndpoints(t *testing.T) {
	env := newTestEnv(t)

	var types []service.GameTypeInfo
	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/game-types", "", nil, &types))
	assert.Len(t, types, 4)

	var presets []service.PresetInfo
	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/configs", "", nil, &presets))
	ids := []string{}
	for _, p := range presets {
		ids = append(ids, p.PresetID)
	}
	assert.Contains(t, ids, "blitz")
	assert.Contains(t, ids, "connect_four")
}

func TestCreateMatch(t *testing.T) {
	env := newTestEnv(t)

	t.Run("preset", func(t *testing.T) {
		var info service.MatchInfo
		require.Equal(t, http.StatusCreated, env.do(t, "POST", "/api/matches", "alice", map[string]string{"preset_id": "blitz"}, &info))
		assert.Equal(t, engine.Chess, info.GameType)
		assert.Equal(t, 300, info.TimeLimitSeconds)
		assert.Equal(t, service.StatusWaiting, info.Status)
	})

	t.Run("empty body uses default preset", func(t *testing.T) {
		var info service.MatchInfo
		require.Equal(t, http.StatusCreated, env.do(t, "POST", "/api/matches", "alice", nil, &info))
		assert.Equal(t, engine.Battleship, info.GameType)
		assert.Equal(t, "battleship", info.PresetID, "first preset by id when there is no classic_chess")
	})

	t.Run("unknown preset", func(t *testing.T) {
		var body map[string]string
		assert.Equal(t, http.StatusNotFound, env.do(t, "POST", "/api/matches", "alice", map[string]string{"preset_id": "poker"}, &body))
		assert.Contains(t, body["error"], "preset not found")
	})

	t.Run("missing player header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, env.do(t, "POST", "/api/matches", "", map[string]string{"game_type": "chess"}, nil))
	})

	t.Run("bad body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/matches", strings.NewReader("{"))
		req.Header.Set(PlayerHeader, "alice")
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMatchFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.startMatch(t, "connect_four")

	var bobView service.MatchInfo
	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/matches/"+id, "bob", nil, &bobView))
	assert.Equal(t, service.StatusInProgress, bobView.Status)
	assert.False(t, bobView.IsYourTurn)

	play := func(player string, column int) (int, service.MoveResult, map[string]string) {
		var raw json.RawMessage
		code := env.do(t, "POST", "/api/matches/"+id+"/move", player,
			map[string]any{"move": map[string]int{"column": column}}, &raw)
		var result service.MoveResult
		var errBody map[string]string
		if code == http.StatusOK {
			require.NoError(t, json.Unmarshal(raw, &result))
		} else {
			require.NoError(t, json.Unmarshal(raw, &errBody))
		}
		return code, result, errBody
	}

	code, _, errBody := play("bob", 0)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, errBody["error"], "Not your turn")

	code, _, _ = play("mallory", 0)
	assert.Equal(t, http.StatusForbidden, code)

	for i := 0; i < 3; i++ {
		code, _, _ = play("alice", 0)
		require.Equal(t, http.StatusOK, code)
		code, _, _ = play("bob", 1)
		require.Equal(t, http.StatusOK, code)
	}
	code, result, _ := play("alice", 0)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, result.GameOver)
	assert.Equal(t, "alice", result.Match.WinnerID)

	code, _, _ = play("bob", 1)
	assert.Equal(t, http.StatusConflict, code)

	var history service.HistoryResponse
	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/matches/"+id+"/history?limit=3&order=asc", "", nil, &history))
	assert.Equal(t, 7, history.TotalMoves)
	assert.Len(t, history.Moves, 3)
	assert.Equal(t, 3, history.TotalPages)
	assert.True(t, history.HasNext)
}

func TestMoveRequiresBody(t *testing.T) {
	env := newTestEnv(t)
	id := env.startMatch(t, "chess")

	assert.Equal(t, http.StatusBadRequest, env.do(t, "POST", "/api/matches/"+id+"/move", "alice", map[string]any{}, nil))

	req := httptest.NewRequest("POST", "/api/matches/"+id+"/move", strings.NewReader("not json"))
	req.Header.Set(PlayerHeader, "alice")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJoinRules(t *testing.T) {
	env := newTestEnv(t)

	var created service.MatchInfo
	require.Equal(t, http.StatusCreated, env.do(t, "POST", "/api/matches", "alice", map[string]string{"game_type": "checkers"}, &created))
	path := "/api/matches/" + created.ID + "/join"

	assert.Equal(t, http.StatusConflict, env.do(t, "POST", path, "alice", nil, nil))
	assert.Equal(t, http.StatusOK, env.do(t, "POST", path, "bob", nil, nil))
	assert.Equal(t, http.StatusConflict, env.do(t, "POST", path, "carol", nil, nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, "POST", "/api/matches/missing/join", "carol", nil, nil))
}

func TestChallengeFlow(t *testing.T) {
	env := newTestEnv(t)

	var created service.MatchInfo
	require.Equal(t, http.StatusCreated, env.do(t, "POST", "/api/challenges", "alice",
		map[string]string{"preset_id": "blitz", "opponent_id": "bob"}, &created))
	assert.Equal(t, "bob", created.ChallengedPlayer)
	assert.Equal(t, service.StatusWaiting, created.Status)

	assert.Equal(t, http.StatusBadRequest, env.do(t, "POST", "/api/challenges", "alice",
		map[string]string{"game_type": "chess", "opponent_id": "alice"}, nil))
	assert.Equal(t, http.StatusBadRequest, env.do(t, "POST", "/api/challenges", "alice",
		map[string]string{"game_type": "chess"}, nil))

	var list struct {
		Count      int                     `json:"count"`
		Challenges []*service.MatchSummary `json:"challenges"`
	}
	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/challenges", "bob", nil, &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, created.ID, list.Challenges[0].ID)
	assert.Equal(t, "alice", list.Challenges[0].Player1)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, "GET", "/api/challenges", "", nil, nil))

	base := "/api/matches/" + created.ID
	assert.Equal(t, http.StatusForbidden, env.do(t, "POST", base+"/join", "carol", nil, nil))
	assert.Equal(t, http.StatusForbidden, env.do(t, "POST", base+"/accept", "carol", nil, nil))

	var accepted service.MatchInfo
	require.Equal(t, http.StatusOK, env.do(t, "POST", base+"/accept", "bob", nil, &accepted))
	assert.Equal(t, service.StatusInProgress, accepted.Status)
	assert.Equal(t, engine.Player2, accepted.YourSeat)
	assert.Equal(t, http.StatusConflict, env.do(t, "POST", base+"/decline", "bob", nil, nil))

	var declined service.MatchInfo
	require.Equal(t, http.StatusCreated, env.do(t, "POST", "/api/challenges", "carol",
		map[string]string{"game_type": "checkers", "opponent_id": "bob"}, &created))
	require.Equal(t, http.StatusOK, env.do(t, "POST", "/api/matches/"+created.ID+"/decline", "bob", nil, &declined))
	assert.Equal(t, service.StatusAbandoned, declined.Status)
	assert.Equal(t, service.EndDecline, declined.EndReason)

	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/challenges", "bob", nil, &list))
	assert.Zero(t, list.Count)
}

func TestResignAndList(t *testing.T) {
	env := newTestEnv(t)
	chess := env.startMatch(t, "chess")
	checkers := env.startMatch(t, "checkers")

	var result service.MoveResult
	require.Equal(t, http.StatusOK, env.do(t, "POST", "/api/matches/"+chess+"/resign", "alice", nil, &result))
	assert.Equal(t, "bob", result.Match.WinnerID)
	assert.Equal(t, service.EndResign, result.Match.EndReason)

	var list struct {
		Count   int                     `json:"count"`
		Total   int                     `json:"total"`
		Matches []*service.MatchSummary `json:"matches"`
	}
	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/matches?status=completed", "", nil, &list))
	require.Len(t, list.Matches, 1)
	assert.Equal(t, chess, list.Matches[0].ID)

	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/matches?game_type=checkers&player_id=bob", "", nil, &list))
	require.Len(t, list.Matches, 1)
	assert.Equal(t, checkers, list.Matches[0].ID)

	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/matches?limit=1", "", nil, &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, 2, list.Total)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, "DELETE", "/api/matches/"+chess, "", nil, nil))
	assert.Equal(t, http.StatusForbidden, env.do(t, "DELETE", "/api/matches/"+chess, "mallory", nil, nil))
	assert.Equal(t, http.StatusOK, env.do(t, "DELETE", "/api/matches/"+chess, "bob", nil, nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, "DELETE", "/api/matches/"+chess, "bob", nil, nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, "GET", "/api/matches/"+chess, "alice", nil, nil))
}

func TestBattleshipViewsOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	id := env.startMatch(t, "battleship")

	require.Equal(t, http.StatusOK, env.do(t, "POST", "/api/matches/"+id+"/move", "alice",
		map[string]any{"move": map[string]any{"action": "random_setup"}}, nil))

	var alice struct {
		BoardState engine.BattleshipView `json:"board_state"`
	}
	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/matches/"+id, "alice", nil, &alice))
	assert.Len(t, alice.BoardState.MyShips, 5)

	var bob struct {
		BoardState engine.BattleshipView `json:"board_state"`
	}
	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/matches/"+id, "bob", nil, &bob))
	assert.Empty(t, bob.BoardState.MyShips)

	var spectator map[string]any
	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/matches/"+id, "", nil, &spectator))
	assert.NotContains(t, spectator, "board_state")
}

func TestWebSocketUpdates(t *testing.T) {
	env := newTestEnv(t)
	id := env.startMatch(t, "connect_four")

	srv := httptest.NewServer(env.server)
	defer srv.Close()

	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/ws", "", nil, nil))
	assert.Equal(t, http.StatusForbidden, env.do(t, "GET", "/ws?match="+id+"&player=mallory", "", nil, nil))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?match=" + id + "&player=bob"
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() websocket.Message {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg websocket.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	initial := read()
	require.NotNil(t, initial.Match)
	assert.Equal(t, 0, initial.Match.MoveCount)

	require.Equal(t, http.StatusOK, env.do(t, "POST", "/api/matches/"+id+"/move", "alice",
		map[string]any{"move": map[string]int{"column": 3}}, nil))

	update := read()
	assert.Equal(t, "state_update", update.Event)
	assert.Equal(t, 1, update.Match.MoveCount)
	assert.True(t, update.Match.IsYourTurn)
	assert.Equal(t, engine.Player2, update.Match.YourSeat)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: abc", service.ErrMatchNotFound), http.StatusNotFound},
		{service.ErrPresetNotFound, http.StatusNotFound},
		{service.ErrNotAPlayer, http.StatusForbidden},
		{service.ErrPrivateChallenge, http.StatusForbidden},
		{service.ErrNotChallenged, http.StatusForbidden},
		{service.ErrChallengeSelf, http.StatusBadRequest},
		{service.ErrOpponentRequired, http.StatusBadRequest},
		{service.ErrPlayerRequired, http.StatusUnauthorized},
		{fmt.Errorf("%w: Column is full", service.ErrInvalidMove), http.StatusBadRequest},
		{service.ErrOwnMatch, http.StatusConflict},
		{service.ErrMatchNotWaiting, http.StatusConflict},
		{service.ErrWaitingForOpponent, http.StatusConflict},
		{service.ErrMatchNotInProgress, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
