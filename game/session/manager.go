package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/online-games/game/service"
)

var ErrInvalidMatchID = errors.New("invalid match ID")

// Manager handles match lifecycle and implements service.MatchManager
type Manager struct {
	matches     map[string]*service.Match
	locks       map[string]*sync.Mutex
	persistence MatchPersistence
	logger      *zap.Logger
	now         func() time.Time
	mu          sync.RWMutex
}

// Option configures a Manager
type Option func(*Manager)

// WithPersistence stores every change through p
func WithPersistence(p MatchPersistence) Option {
	return func(m *Manager) { m.persistence = p }
}

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock replaces time.Now for UpdatedAt stamps and expiry
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a new match manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		matches: make(map[string]*service.Match),
		locks:   make(map[string]*sync.Mutex),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create stores a new match
func (m *Manager) Create(ctx context.Context, match *service.Match) error {
	if match == nil || match.ID == "" {
		return ErrInvalidMatchID
	}

	m.mu.Lock()
	if _, exists := m.matches[match.ID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", service.ErrMatchExists, match.ID)
	}
	stored := match.Clone()
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = m.now()
	}
	m.matches[match.ID] = stored
	m.locks[match.ID] = &sync.Mutex{}
	m.mu.Unlock()

	m.persist(ctx, stored)
	return nil
}

// Get returns a copy of the match, loading it from persistence when it is
// not in memory
func (m *Manager) Get(ctx context.Context, id string) (*service.Match, error) {
	m.mu.RLock()
	match, exists := m.matches[id]
	m.mu.RUnlock()
	if exists {
		return match.Clone(), nil
	}

	match, err := m.loadPersisted(ctx, id)
	if err != nil {
		return nil, err
	}
	return match.Clone(), nil
}

// Update runs fn on a copy of the match under that match's lock. The copy
// replaces the stored match only when fn returns nil.
func (m *Manager) Update(ctx context.Context, id string, fn func(*service.Match) error) (*service.Match, error) {
	lock, err := m.lockFor(ctx, id)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	current, exists := m.matches[id]
	m.mu.RUnlock()
	if !exists {
		// deleted while we waited
		return nil, fmt.Errorf("%w: %s", service.ErrMatchNotFound, id)
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.UpdatedAt = m.now()

	m.mu.Lock()
	m.matches[id] = next
	m.mu.Unlock()

	m.persist(ctx, next)
	return next.Clone(), nil
}

// List returns copies of all matches held in memory
func (m *Manager) List(ctx context.Context) []*service.Match {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Match, 0, len(m.matches))
	for _, match := range m.matches {
		result = append(result, match.Clone())
	}
	return result
}

// Delete removes a match from memory and persistence
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	_, inMemory := m.matches[id]
	delete(m.matches, id)
	delete(m.locks, id)
	m.mu.Unlock()

	if m.persistence != nil && m.persistence.Exists(ctx, id) {
		if err := m.persistence.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete persisted match: %w", err)
		}
		return nil
	}

	if !inMemory {
		return fmt.Errorf("%w: %s", service.ErrMatchNotFound, id)
	}
	return nil
}

// CleanupExpired drops matches that have not changed within maxAge from
// memory. Persisted copies are kept.
func (m *Manager) CleanupExpired(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	removed := 0
	for id, match := range m.matches {
		if match.UpdatedAt.Before(cutoff) {
			delete(m.matches, id)
			delete(m.locks, id)
			removed++
		}
	}

	if removed > 0 {
		m.logger.Info("expired matches removed", zap.Int("count", removed))
	}
	return removed
}

// Count returns the number of matches in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matches)
}

// LoadPersisted loads all persisted matches into memory
func (m *Manager) LoadPersisted(ctx context.Context) error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list persisted matches: %w", err)
	}

	loaded := 0
	for _, id := range ids {
		m.mu.RLock()
		_, exists := m.matches[id]
		m.mu.RUnlock()
		if exists {
			continue
		}

		if _, err := m.loadPersisted(ctx, id); err != nil {
			m.logger.Warn("failed to load persisted match", zap.String("match_id", id), zap.Error(err))
			continue
		}
		loaded++
	}

	if loaded > 0 {
		m.logger.Info("loaded persisted matches", zap.Int("count", loaded))
	}
	return nil
}

// SaveAll writes every in-memory match to persistence
func (m *Manager) SaveAll(ctx context.Context) error {
	if m.persistence == nil {
		return nil
	}

	errorCount := 0
	for _, match := range m.List(ctx) {
		if err := m.persistence.Save(ctx, match); err != nil {
			m.logger.Warn("failed to save match", zap.String("match_id", match.ID), zap.Error(err))
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d matches", errorCount)
	}
	return nil
}

func (m *Manager) lockFor(ctx context.Context, id string) (*sync.Mutex, error) {
	m.mu.RLock()
	lock, exists := m.locks[id]
	m.mu.RUnlock()
	if exists {
		return lock, nil
	}

	if _, err := m.loadPersisted(ctx, id); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if lock, exists = m.locks[id]; !exists {
		return nil, fmt.Errorf("%w: %s", service.ErrMatchNotFound, id)
	}
	return lock, nil
}

// loadPersisted pulls a match from persistence into memory. A copy already
// in memory wins over the stored one.
func (m *Manager) loadPersisted(ctx context.Context, id string) (*service.Match, error) {
	if m.persistence == nil || !m.persistence.Exists(ctx, id) {
		return nil, fmt.Errorf("%w: %s", service.ErrMatchNotFound, id)
	}

	match, err := m.persistence.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted match: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.matches[id]; ok {
		return existing, nil
	}
	m.matches[id] = match
	m.locks[id] = &sync.Mutex{}
	return match, nil
}

func (m *Manager) persist(ctx context.Context, match *service.Match) {
	if m.persistence == nil {
		return
	}
	if err := m.persistence.Save(ctx, match); err != nil {
		// memory stays authoritative
		m.logger.Warn("failed to persist match", zap.String("match_id", match.ID), zap.Error(err))
	}
}
