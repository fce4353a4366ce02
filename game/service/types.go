package service

import (
	"encoding/json"
	"time"

	"github.com/wricardo/online-games/game/engine"
)

// MatchStatus is the lifecycle stage of a match
type MatchStatus string

const (
	StatusWaiting    MatchStatus = "waiting"
	StatusInProgress MatchStatus = "in_progress"
	StatusCompleted  MatchStatus = "completed"
	StatusAbandoned  MatchStatus = "abandoned"
)

// End reasons recorded on finished matches
const (
	EndWin     = "win"
	EndDraw    = "draw"
	EndResign  = "resign"
	EndTimeout = "timeout"
	EndDecline = "declined"
)

// Match is the stored record of one online game. State holds the engine's
// serialized document and is only interpreted through the engine.
type Match struct {
	ID               string                `json:"id"`
	GameType         engine.GameType       `json:"game_type"`
	PresetID         string                `json:"preset_id"`
	Ranked           bool                  `json:"ranked,omitempty"`
	Status           MatchStatus           `json:"status"`
	Player1          string                `json:"player1"`
	Player2          string                `json:"player2,omitempty"`
	ChallengedPlayer string                `json:"challenged_player,omitempty"`
	Winner           engine.Player         `json:"winner"`
	EndReason        string                `json:"end_reason,omitempty"`
	State            json.RawMessage       `json:"state"`
	TimeLimitSeconds int                   `json:"time_limit_seconds,omitempty"`
	RemainingMillis  *engine.BySeat[int64] `json:"remaining_ms,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	LastMoveAt       *time.Time            `json:"last_move_at,omitempty"`
}

// Seat returns the seat held by playerID, or NoPlayer
func (m *Match) Seat(playerID string) engine.Player {
	switch {
	case playerID == "":
		return engine.NoPlayer
	case m.Player1 == playerID:
		return engine.Player1
	case m.Player2 == playerID:
		return engine.Player2
	default:
		return engine.NoPlayer
	}
}

// PlayerID returns the id seated at p
func (m *Match) PlayerID(p engine.Player) string {
	if p == engine.Player2 {
		return m.Player2
	}
	if p == engine.Player1 {
		return m.Player1
	}
	return ""
}

// Clone returns a deep copy that can be modified without touching m
func (m *Match) Clone() *Match {
	c := *m
	c.State = append(json.RawMessage(nil), m.State...)
	if m.RemainingMillis != nil {
		r := *m.RemainingMillis
		c.RemainingMillis = &r
	}
	if m.LastMoveAt != nil {
		t := *m.LastMoveAt
		c.LastMoveAt = &t
	}
	return &c
}

// Preset is a named match template. ID is filled in by the loader.
type Preset struct {
	ID               string          `json:"-"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	GameType         engine.GameType `json:"game_type"`
	TimeLimitSeconds int             `json:"time_limit_seconds,omitempty"`
	Ranked           bool            `json:"ranked,omitempty"`
}

// PresetInfo provides information about a match preset
type PresetInfo struct {
	Filename         string          `json:"filename,omitempty"`
	PresetID         string          `json:"preset_id"` // The identifier to use for match creation
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	GameType         engine.GameType `json:"game_type"`
	TimeLimitSeconds int             `json:"time_limit_seconds,omitempty"`
	Ranked           bool            `json:"ranked"`
}

// GameTypeInfo describes one supported game
type GameTypeInfo struct {
	Type        engine.GameType `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
}

// MatchInfo is a match as seen by one participant
type MatchInfo struct {
	ID               string                `json:"id"`
	GameType         engine.GameType       `json:"game_type"`
	PresetID         string                `json:"preset_id"`
	Ranked           bool                  `json:"ranked"`
	Status           MatchStatus           `json:"status"`
	Player1          string                `json:"player1"`
	Player2          string                `json:"player2,omitempty"`
	ChallengedPlayer string                `json:"challenged_player,omitempty"`
	Winner           engine.Player         `json:"winner"`
	WinnerID         string                `json:"winner_id,omitempty"`
	EndReason        string                `json:"end_reason,omitempty"`
	YourSeat         engine.Player         `json:"your_seat"`
	CurrentPlayer    engine.Player         `json:"current_player"`
	IsYourTurn       bool                  `json:"is_your_turn"`
	BoardState       any                   `json:"board_state,omitempty"`
	ValidMoves       []engine.Move         `json:"valid_moves,omitempty"`
	MoveCount        int                   `json:"move_count"`
	TimeLimitSeconds int                   `json:"time_limit_seconds,omitempty"`
	RemainingMillis  *engine.BySeat[int64] `json:"remaining_ms,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// MatchFilter narrows ListMatches. Zero fields match everything.
type MatchFilter struct {
	GameType engine.GameType `json:"game_type,omitempty"`
	Status   MatchStatus     `json:"status,omitempty"`
	PlayerID string          `json:"player_id,omitempty"`
}

// MatchSummary is the list form of a match, without board state
type MatchSummary struct {
	ID               string          `json:"id"`
	GameType         engine.GameType `json:"game_type"`
	PresetID         string          `json:"preset_id"`
	Ranked           bool            `json:"ranked"`
	Status           MatchStatus     `json:"status"`
	Player1          string          `json:"player1"`
	Player2          string          `json:"player2,omitempty"`
	ChallengedPlayer string          `json:"challenged_player,omitempty"`
	Winner           engine.Player   `json:"winner"`
	TimeLimitSeconds int             `json:"time_limit_seconds,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message,omitempty"`
	GameOver bool        `json:"game_over"`
	Match    *MatchInfo  `json:"match"`
	Events   []GameEvent `json:"events,omitempty"`
}

// GameEvent represents something that happened during a match
type GameEvent struct {
	Type      string        `json:"type"` // "move", "game_over", "resign", "timeout"
	Message   string        `json:"message"`
	Player    engine.Player `json:"player,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history. Entries keep the
// engine's own log format.
type HistoryResponse struct {
	Moves       []json.RawMessage `json:"moves"`
	TotalMoves  int               `json:"total_moves"`
	Page        int               `json:"page"`
	PageSize    int               `json:"page_size"`
	TotalPages  int               `json:"total_pages"`
	HasNext     bool              `json:"has_next"`
	HasPrevious bool              `json:"has_previous"`
}
