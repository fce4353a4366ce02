package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownGameType = errors.New("unknown game type")
	ErrStateMismatch   = errors.New("state does not belong to this game")
)

// Engine provides the rule set of one game. Implementations hold no per-match
// data: every call receives the current state and returns a fresh one.
type Engine interface {
	// Type returns the tag this engine is registered under
	Type() GameType

	// Lifecycle
	CreateInitialState() State
	ValidateMove(state State, player Player, move Move) (bool, string)
	ApplyMove(state State, player Player, move Move) State

	// Outcome
	CheckWinner(state State) (Player, bool)
	IsGameOver(state State) bool
	GetValidMoves(state State, player Player) []Move

	// Wire format
	SerializeState(state State) ([]byte, error)
	DeserializeState(data []byte) (State, error)
	DecodeMove(data []byte) (Move, error)
}

// Viewer is implemented by engines whose state holds information that must be
// hidden from one of the players.
type Viewer interface {
	PlayerView(state State, player Player) any
}

// ViewFor returns what player may see of state. Engines without hidden
// information expose the full state.
func ViewFor(e Engine, state State, player Player) any {
	if v, ok := e.(Viewer); ok {
		return v.PlayerView(state, player)
	}
	return state
}

// Registry maps game types to engine instances
type Registry struct {
	engines map[GameType]Engine
}

// NewRegistry creates a registry holding the given engines. Later engines
// replace earlier ones registered under the same type.
func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[GameType]Engine, len(engines))}
	for _, e := range engines {
		r.engines[e.Type()] = e
	}
	return r
}

// DefaultRegistry returns a registry with all four engines
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewConnectFourEngine(),
		NewCheckersEngine(),
		NewBattleshipEngine(),
		NewChessEngine(),
	)
}

// Get returns the engine for a game type
func (r *Registry) Get(t GameType) (Engine, error) {
	e, ok := r.engines[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGameType, t)
	}
	return e, nil
}

// Types returns the registered game types in sorted order
func (r *Registry) Types() []GameType {
	types := make([]GameType, 0, len(r.engines))
	for t := range r.engines {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

var defaultRegistry = DefaultRegistry()

// New returns the default engine for a game type
func New(t GameType) (Engine, error) {
	return defaultRegistry.Get(t)
}

// ParseGameType converts a string into a known GameType
func ParseGameType(s string) (GameType, error) {
	t := GameType(s)
	if _, err := defaultRegistry.Get(t); err != nil {
		return "", err
	}
	return t, nil
}

// mustState asserts the concrete state type. A mismatch is a caller bug.
func mustState[T State](s State, g GameType) T {
	t, ok := s.(T)
	if !ok {
		panic(fmt.Sprintf("%s engine: unexpected state type %T", g, s))
	}
	return t
}

// moveAs accepts a move given either by value or by pointer
func moveAs[T any](m Move) (T, bool) {
	if v, ok := any(m).(T); ok {
		return v, true
	}
	if p, ok := any(m).(*T); ok && p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

// mustMove is moveAs for ApplyMove, where a wrong payload type is a caller bug
func mustMove[T any](m Move, g GameType) T {
	v, ok := moveAs[T](m)
	if !ok {
		panic(fmt.Sprintf("%s engine: unexpected move type %T", g, m))
	}
	return v
}

func marshalState(s State, g GameType) ([]byte, error) {
	if s == nil || s.GameType() != g {
		return nil, fmt.Errorf("serialize %s: %w", g, ErrStateMismatch)
	}
	return json.Marshal(s)
}

func unmarshalState[T any, PT interface {
	*T
	State
}](data []byte, g GameType) (State, error) {
	var s T
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("deserialize %s state: %w", g, err)
	}
	return PT(&s), nil
}

func unmarshalMove[T Move](data []byte, g GameType) (Move, error) {
	var m T
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s move: %w", g, err)
	}
	return m, nil
}

func inBounds(row, col, rows, cols int) bool {
	return row >= 0 && row < rows && col >= 0 && col < cols
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
