package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wricardo/online-games/game/engine"
)

var ErrPresetNotFound = errors.New("preset not found")

var gameTypeDescriptions = map[engine.GameType]GameTypeInfo{
	engine.ConnectFour: {Name: "Connect Four", Description: "Drop discs into a 6x7 grid and line up four in a row"},
	engine.Checkers:    {Name: "Checkers", Description: "Diagonal moves on an 8x8 board with forced captures and kings"},
	engine.Battleship:  {Name: "Battleship", Description: "Hide a fleet on a 10x10 grid and sink your opponent's ships"},
	engine.Chess:       {Name: "Chess", Description: "Standard pieces and checkmate, without castling or en passant"},
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	matches  MatchManager
	presets  PresetManager
	registry *engine.Registry
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *gameServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry replaces the default engine registry
func WithRegistry(r *engine.Registry) Option {
	return func(s *gameServiceImpl) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithClock replaces time.Now, mostly for tests of timed matches
func WithClock(now func() time.Time) Option {
	return func(s *gameServiceImpl) {
		if now != nil {
			s.now = now
		}
	}
}

// NewGameService creates a new game service instance
func NewGameService(matches MatchManager, presets PresetManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		matches:  matches,
		presets:  presets,
		registry: engine.DefaultRegistry(),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateMatch opens a match from a preset (or a bare game type) with
// playerID in seat 1
func (s *gameServiceImpl) CreateMatch(ctx context.Context, presetOrType, playerID string) (*MatchInfo, error) {
	match, err := s.newMatch(presetOrType, playerID)
	if err != nil {
		return nil, err
	}
	if err := s.matches.Create(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	s.logger.Info("match created",
		zap.String("match_id", match.ID),
		zap.String("game_type", string(match.GameType)),
		zap.String("preset", match.PresetID),
		zap.String("player", playerID),
	)

	return s.buildInfo(match, playerID)
}

// Challenge opens a private match that only opponentID may join
func (s *gameServiceImpl) Challenge(ctx context.Context, presetOrType, playerID, opponentID string) (*MatchInfo, error) {
	if playerID == "" {
		return nil, ErrPlayerRequired
	}
	if opponentID == "" {
		return nil, ErrOpponentRequired
	}
	if opponentID == playerID {
		return nil, ErrChallengeSelf
	}
	match, err := s.newMatch(presetOrType, playerID)
	if err != nil {
		return nil, err
	}
	match.ChallengedPlayer = opponentID
	if err := s.matches.Create(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	s.logger.Info("challenge issued",
		zap.String("match_id", match.ID),
		zap.String("game_type", string(match.GameType)),
		zap.String("preset", match.PresetID),
		zap.String("player", playerID),
		zap.String("opponent", opponentID),
	)

	return s.buildInfo(match, playerID)
}

// ListChallenges returns open challenges addressed to playerID, newest first
func (s *gameServiceImpl) ListChallenges(ctx context.Context, playerID string) ([]*MatchSummary, error) {
	if playerID == "" {
		return nil, ErrPlayerRequired
	}
	matches := s.matches.List(ctx)
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	result := make([]*MatchSummary, 0)
	for _, m := range matches {
		if m.Status == StatusWaiting && m.ChallengedPlayer == playerID {
			result = append(result, summarize(m))
		}
	}
	return result, nil
}

// AcceptChallenge seats the challenged player and starts the match
func (s *gameServiceImpl) AcceptChallenge(ctx context.Context, matchID, playerID string) (*MatchInfo, error) {
	if playerID == "" {
		return nil, ErrPlayerRequired
	}

	match, err := s.matches.Update(ctx, matchID, func(m *Match) error {
		if m.ChallengedPlayer == "" || m.ChallengedPlayer != playerID {
			return ErrNotChallenged
		}
		if m.Status != StatusWaiting {
			return ErrMatchNotWaiting
		}
		s.seatSecond(m, playerID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("challenge accepted",
		zap.String("match_id", match.ID),
		zap.String("player", playerID),
	)

	return s.buildInfo(match, playerID)
}

// DeclineChallenge abandons a challenge addressed to playerID
func (s *gameServiceImpl) DeclineChallenge(ctx context.Context, matchID, playerID string) (*MatchInfo, error) {
	if playerID == "" {
		return nil, ErrPlayerRequired
	}

	match, err := s.matches.Update(ctx, matchID, func(m *Match) error {
		if m.ChallengedPlayer == "" || m.ChallengedPlayer != playerID {
			return ErrNotChallenged
		}
		if m.Status != StatusWaiting {
			return ErrMatchNotWaiting
		}
		m.Status = StatusAbandoned
		m.EndReason = EndDecline
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("challenge declined",
		zap.String("match_id", match.ID),
		zap.String("player", playerID),
	)

	return s.buildInfo(match, playerID)
}

// newMatch builds an unsaved waiting match with playerID in seat 1
func (s *gameServiceImpl) newMatch(presetOrType, playerID string) (*Match, error) {
	if playerID == "" {
		return nil, ErrPlayerRequired
	}

	presetID := presetOrType
	var preset *Preset
	if presetOrType == "" {
		preset = s.presets.GetDefault()
		if preset == nil {
			return nil, fmt.Errorf("%w: no default preset", ErrPresetNotFound)
		}
		presetID = preset.ID
		if presetID == "" {
			presetID = string(preset.GameType)
		}
	} else {
		var err error
		preset, err = s.presets.LoadConfig(presetOrType)
		if err != nil {
			if errors.Is(err, ErrPresetNotFound) {
				return nil, fmt.Errorf("%w: %q, available: %v", ErrPresetNotFound, presetOrType, s.presetIDs())
			}
			return nil, fmt.Errorf("failed to load preset %s: %w", presetOrType, err)
		}
	}

	eng, err := s.registry.Get(preset.GameType)
	if err != nil {
		return nil, err
	}
	data, err := eng.SerializeState(eng.CreateInitialState())
	if err != nil {
		return nil, fmt.Errorf("failed to serialize initial state: %w", err)
	}

	now := s.now()
	match := &Match{
		ID:               uuid.NewString(),
		GameType:         preset.GameType,
		PresetID:         presetID,
		Ranked:           preset.Ranked,
		Status:           StatusWaiting,
		Player1:          playerID,
		State:            data,
		TimeLimitSeconds: preset.TimeLimitSeconds,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if preset.TimeLimitSeconds > 0 {
		budget := int64(preset.TimeLimitSeconds) * 1000
		match.RemainingMillis = &engine.BySeat[int64]{One: budget, Two: budget}
	}
	return match, nil
}

// seatSecond puts playerID in seat 2 and starts the clock
func (s *gameServiceImpl) seatSecond(m *Match, playerID string) {
	now := s.now()
	m.Player2 = playerID
	m.Status = StatusInProgress
	m.LastMoveAt = &now
}

// JoinMatch seats playerID as player 2 and starts the match
func (s *gameServiceImpl) JoinMatch(ctx context.Context, matchID, playerID string) (*MatchInfo, error) {
	if playerID == "" {
		return nil, ErrPlayerRequired
	}

	match, err := s.matches.Update(ctx, matchID, func(m *Match) error {
		if m.Player1 == playerID {
			return ErrOwnMatch
		}
		if m.Status != StatusWaiting {
			return ErrMatchNotWaiting
		}
		if m.ChallengedPlayer != "" && m.ChallengedPlayer != playerID {
			return ErrPrivateChallenge
		}
		s.seatSecond(m, playerID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match joined",
		zap.String("match_id", match.ID),
		zap.String("player", playerID),
	)

	return s.buildInfo(match, playerID)
}

// GetMatch returns the match as seen from playerID's seat. An empty
// playerID asks for the spectator view.
func (s *gameServiceImpl) GetMatch(ctx context.Context, matchID, playerID string) (*MatchInfo, error) {
	match, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if playerID != "" && match.Seat(playerID) == engine.NoPlayer && playerID != match.ChallengedPlayer {
		return nil, ErrNotAPlayer
	}
	return s.buildInfo(match, playerID)
}

// ListMatches returns summaries of stored matches, newest first
func (s *gameServiceImpl) ListMatches(ctx context.Context, filter MatchFilter) ([]*MatchSummary, error) {
	matches := s.matches.List(ctx)
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	result := make([]*MatchSummary, 0, len(matches))
	for _, m := range matches {
		if filter.GameType != "" && m.GameType != filter.GameType {
			continue
		}
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		if filter.PlayerID != "" && m.Seat(filter.PlayerID) == engine.NoPlayer {
			continue
		}
		result = append(result, summarize(m))
	}

	return result, nil
}

// DeleteMatch removes a match. Only its seated players may delete it.
func (s *gameServiceImpl) DeleteMatch(ctx context.Context, matchID, playerID string) error {
	if playerID == "" {
		return ErrPlayerRequired
	}
	match, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return err
	}
	if match.Seat(playerID) == engine.NoPlayer {
		return ErrNotAPlayer
	}
	if err := s.matches.Delete(ctx, matchID); err != nil {
		return err
	}
	s.logger.Info("match deleted",
		zap.String("match_id", matchID),
		zap.String("player", playerID),
	)
	return nil
}

// MakeMove decodes, validates and applies one move for playerID. Rejected
// moves return an error wrapping ErrInvalidMove with the engine's reason.
func (s *gameServiceImpl) MakeMove(ctx context.Context, matchID, playerID string, raw json.RawMessage) (*MoveResult, error) {
	result := &MoveResult{}

	match, err := s.matches.Update(ctx, matchID, func(m *Match) error {
		seat := m.Seat(playerID)
		if seat == engine.NoPlayer {
			return ErrNotAPlayer
		}
		switch m.Status {
		case StatusInProgress:
		case StatusWaiting:
			return ErrWaitingForOpponent
		default:
			return ErrMatchNotInProgress
		}

		eng, state, err := s.decode(m)
		if err != nil {
			return err
		}

		// only the seat on move is charged; anyone else is rejected by
		// validation below
		now := s.now()
		if engine.ClockRunning(state, seat) && s.chargeClock(m, seat, now) {
			m.Status = StatusCompleted
			m.Winner = seat.Opponent()
			m.EndReason = EndTimeout
			result.Message = "Time expired"
			result.GameOver = true
			result.Events = append(result.Events, GameEvent{
				Type:      "timeout",
				Message:   fmt.Sprintf("Player %d ran out of time", seat),
				Player:    seat,
				Timestamp: now,
			})
			return nil
		}

		move, err := eng.DecodeMove(raw)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMove, err)
		}
		if ok, reason := eng.ValidateMove(state, seat, move); !ok {
			return fmt.Errorf("%w: %s", ErrInvalidMove, reason)
		}

		next := eng.ApplyMove(state, seat, move)
		data, err := eng.SerializeState(next)
		if err != nil {
			return fmt.Errorf("failed to serialize state: %w", err)
		}
		m.State = data
		m.LastMoveAt = &now

		result.Success = true
		result.Events = append(result.Events, GameEvent{
			Type:      "move",
			Message:   fmt.Sprintf("Player %d moved", seat),
			Player:    seat,
			Timestamp: now,
		})

		if eng.IsGameOver(next) {
			m.Status = StatusCompleted
			m.EndReason = EndDraw
			message := "Game over: draw"
			if winner, ok := eng.CheckWinner(next); ok {
				m.Winner = winner
				m.EndReason = EndWin
				message = fmt.Sprintf("Game over: player %d wins", winner)
			}
			result.GameOver = true
			result.Message = message
			result.Events = append(result.Events, GameEvent{
				Type:      "game_over",
				Message:   message,
				Player:    m.Winner,
				Timestamp: now,
			})
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidMove) {
			s.logger.Debug("move rejected",
				zap.String("match_id", matchID),
				zap.String("player", playerID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.logger.Info("move applied",
		zap.String("match_id", match.ID),
		zap.String("player", playerID),
		zap.String("status", string(match.Status)),
		zap.Bool("success", result.Success),
	)

	info, err := s.buildInfo(match, playerID)
	if err != nil {
		return nil, err
	}
	result.Match = info
	return result, nil
}

// Resign concedes an in-progress match. Player 1 leaving a match nobody has
// joined yet abandons it instead.
func (s *gameServiceImpl) Resign(ctx context.Context, matchID, playerID string) (*MoveResult, error) {
	result := &MoveResult{Success: true, GameOver: true}

	match, err := s.matches.Update(ctx, matchID, func(m *Match) error {
		seat := m.Seat(playerID)
		if seat == engine.NoPlayer {
			return ErrNotAPlayer
		}

		now := s.now()
		switch m.Status {
		case StatusInProgress:
			m.Status = StatusCompleted
			m.Winner = seat.Opponent()
			m.EndReason = EndResign
			result.Message = "You have resigned"
		case StatusWaiting:
			m.Status = StatusAbandoned
			result.Message = "Match abandoned"
		default:
			return ErrMatchNotInProgress
		}

		result.Events = append(result.Events, GameEvent{
			Type:      "resign",
			Message:   result.Message,
			Player:    seat,
			Timestamp: now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("player resigned",
		zap.String("match_id", match.ID),
		zap.String("player", playerID),
		zap.String("status", string(match.Status)),
	)

	info, err := s.buildInfo(match, playerID)
	if err != nil {
		return nil, err
	}
	result.Match = info
	return result, nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, matchID string, opts HistoryOptions) (*HistoryResponse, error) {
	match, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Moves []json.RawMessage `json:"moves"`
	}
	if err := json.Unmarshal(match.State, &doc); err != nil {
		return nil, fmt.Errorf("failed to read move log: %w", err)
	}
	history := doc.Moves
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []json.RawMessage{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListPresets returns available match presets
func (s *gameServiceImpl) ListPresets(ctx context.Context) ([]*PresetInfo, error) {
	return s.presets.ListConfigs()
}

// ListGameTypes returns the games the registry can serve
func (s *gameServiceImpl) ListGameTypes(ctx context.Context) ([]*GameTypeInfo, error) {
	types := s.registry.Types()
	result := make([]*GameTypeInfo, 0, len(types))
	for _, t := range types {
		info := gameTypeDescriptions[t]
		info.Type = t
		if info.Name == "" {
			info.Name = string(t)
		}
		result = append(result, &info)
	}
	return result, nil
}

// decode returns the engine and live state of a stored match
func (s *gameServiceImpl) decode(m *Match) (engine.Engine, engine.State, error) {
	eng, err := s.registry.Get(m.GameType)
	if err != nil {
		return nil, nil, err
	}
	state, err := eng.DeserializeState(m.State)
	if err != nil {
		return nil, nil, fmt.Errorf("match %s: %w", m.ID, err)
	}
	return eng, state, nil
}

// chargeClock deducts the time since the last move from seat's budget and
// reports whether it ran out
func (s *gameServiceImpl) chargeClock(m *Match, seat engine.Player, now time.Time) bool {
	if m.RemainingMillis == nil || m.LastMoveAt == nil {
		return false
	}
	elapsed := now.Sub(*m.LastMoveAt).Milliseconds()
	remaining := m.RemainingMillis.Get(seat) - elapsed
	*m.RemainingMillis = m.RemainingMillis.With(seat, remaining)
	return remaining <= 0
}

// buildInfo renders a match for playerID. Players only ever see their own
// view of hidden-information games; outsiders see no board at all.
func (s *gameServiceImpl) buildInfo(m *Match, playerID string) (*MatchInfo, error) {
	eng, state, err := s.decode(m)
	if err != nil {
		return nil, err
	}

	seat := m.Seat(playerID)
	info := &MatchInfo{
		ID:               m.ID,
		GameType:         m.GameType,
		PresetID:         m.PresetID,
		Ranked:           m.Ranked,
		Status:           m.Status,
		Player1:          m.Player1,
		Player2:          m.Player2,
		ChallengedPlayer: m.ChallengedPlayer,
		Winner:           m.Winner,
		WinnerID:         m.PlayerID(m.Winner),
		EndReason:        m.EndReason,
		YourSeat:         seat,
		CurrentPlayer:    state.Turn(),
		MoveCount:        engine.MoveCount(state),
		TimeLimitSeconds: m.TimeLimitSeconds,
		RemainingMillis:  m.RemainingMillis,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}

	if seat == engine.NoPlayer {
		if _, hidden := eng.(engine.Viewer); !hidden {
			info.BoardState = state
		}
		return info, nil
	}

	info.BoardState = engine.ViewFor(eng, state, seat)
	if m.Status == StatusInProgress {
		info.IsYourTurn = state.Turn() == seat
		if moves := eng.GetValidMoves(state, seat); len(moves) > 0 {
			info.ValidMoves = moves
		}
	}
	return info, nil
}

func summarize(m *Match) *MatchSummary {
	return &MatchSummary{
		ID:               m.ID,
		GameType:         m.GameType,
		PresetID:         m.PresetID,
		Ranked:           m.Ranked,
		Status:           m.Status,
		Player1:          m.Player1,
		Player2:          m.Player2,
		ChallengedPlayer: m.ChallengedPlayer,
		Winner:           m.Winner,
		TimeLimitSeconds: m.TimeLimitSeconds,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func (s *gameServiceImpl) presetIDs() []string {
	presets, err := s.presets.ListConfigs()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(presets))
	for _, p := range presets {
		ids = append(ids, p.PresetID)
	}
	return ids
}
