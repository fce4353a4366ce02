package main

import (
	"encoding/json"
	"math/rand/v2"
)

// Strategy picks one of the offered moves
type Strategy interface {
	NextMove(state *MatchState) json.RawMessage
}

// RandomStrategy plays a uniformly random valid move
type RandomStrategy struct {
	rng *rand.Rand
}

func NewRandomStrategy(seed uint64) *RandomStrategy {
	return &RandomStrategy{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *RandomStrategy) NextMove(state *MatchState) json.RawMessage {
	if len(state.ValidMoves) == 0 {
		return nil
	}
	return state.ValidMoves[s.rng.IntN(len(state.ValidMoves))]
}

// FirstMoveStrategy always plays the first offered move, which makes games
// fully reproducible
type FirstMoveStrategy struct{}

func (FirstMoveStrategy) NextMove(state *MatchState) json.RawMessage {
	if len(state.ValidMoves) == 0 {
		return nil
	}
	return state.ValidMoves[0]
}

func newStrategy(name string, seed uint64) (Strategy, bool) {
	switch name {
	case "random":
		return NewRandomStrategy(seed), true
	case "first":
		return FirstMoveStrategy{}, true
	}
	return nil, false
}
