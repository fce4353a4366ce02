package service

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchExists        = errors.New("match already exists")
	ErrNotAPlayer         = errors.New("not a player in this match")
	ErrMatchNotWaiting    = errors.New("match is not available to join")
	ErrOwnMatch           = errors.New("cannot join your own match")
	ErrWaitingForOpponent = errors.New("waiting for opponent")
	ErrMatchNotInProgress = errors.New("match is not in progress")
	ErrInvalidMove        = errors.New("invalid move")
	ErrPlayerRequired     = errors.New("player id is required")
	ErrOpponentRequired   = errors.New("opponent id is required")
	ErrChallengeSelf      = errors.New("cannot challenge yourself")
	ErrPrivateChallenge   = errors.New("match is a private challenge")
	ErrNotChallenged      = errors.New("challenge is not for you")
)

// GameService defines all match-related operations
type GameService interface {
	// Match lifecycle
	CreateMatch(ctx context.Context, presetOrType, playerID string) (*MatchInfo, error)
	JoinMatch(ctx context.Context, matchID, playerID string) (*MatchInfo, error)
	GetMatch(ctx context.Context, matchID, playerID string) (*MatchInfo, error)
	ListMatches(ctx context.Context, filter MatchFilter) ([]*MatchSummary, error)
	DeleteMatch(ctx context.Context, matchID, playerID string) error

	// Private challenges
	Challenge(ctx context.Context, presetOrType, playerID, opponentID string) (*MatchInfo, error)
	ListChallenges(ctx context.Context, playerID string) ([]*MatchSummary, error)
	AcceptChallenge(ctx context.Context, matchID, playerID string) (*MatchInfo, error)
	DeclineChallenge(ctx context.Context, matchID, playerID string) (*MatchInfo, error)

	// Play
	MakeMove(ctx context.Context, matchID, playerID string, move json.RawMessage) (*MoveResult, error)
	Resign(ctx context.Context, matchID, playerID string) (*MoveResult, error)
	GetMoveHistory(ctx context.Context, matchID string, opts HistoryOptions) (*HistoryResponse, error)

	// Catalog
	ListPresets(ctx context.Context) ([]*PresetInfo, error)
	ListGameTypes(ctx context.Context) ([]*GameTypeInfo, error)
}

// MatchManager defines match storage operations. Update runs fn on a private
// copy of the match while holding that match's lock and stores the copy only
// when fn succeeds.
type MatchManager interface {
	Create(ctx context.Context, m *Match) error
	Get(ctx context.Context, id string) (*Match, error)
	Update(ctx context.Context, id string, fn func(*Match) error) (*Match, error)
	List(ctx context.Context) []*Match
	Delete(ctx context.Context, id string) error
}

// PresetManager handles match preset loading
type PresetManager interface {
	LoadConfig(name string) (*Preset, error)
	ListConfigs() ([]*PresetInfo, error)
	GetDefault() *Preset
	SaveConfig(name string, preset *Preset) error
}
