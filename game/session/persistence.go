package session

import (
	"context"

	"github.com/wricardo/online-games/game/service"
)

// MatchPersistence defines the interface for persisting matches
type MatchPersistence interface {
	// Save persists a match to storage
	Save(ctx context.Context, match *service.Match) error

	// Load retrieves a match from storage by ID
	Load(ctx context.Context, id string) (*service.Match, error)

	// Delete removes a match from storage
	Delete(ctx context.Context, id string) error

	// ListAll returns all persisted match IDs
	ListAll(ctx context.Context) ([]string, error)

	// Exists checks if a match exists in storage
	Exists(ctx context.Context, id string) bool
}
