package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wricardo/online-games/game/engine"
	"github.com/wricardo/online-games/game/service"
)

func newMatch(t *testing.T, id string) *service.Match {
	t.Helper()
	e := engine.NewConnectFourEngine()
	state, err := e.SerializeState(e.CreateInitialState())
	require.NoError(t, err)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &service.Match{
		ID:        id,
		GameType:  engine.ConnectFour,
		PresetID:  "connect_four",
		Status:    service.StatusWaiting,
		Player1:   "alice",
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestManager_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewManager(WithLogger(zaptest.NewLogger(t)))

	match := newMatch(t, "m1")
	require.NoError(t, m.Create(ctx, match))
	assert.Equal(t, 1, m.Count())

	got, err := m.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, match, got)

	got.Player2 = "mallory"
	again, err := m.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, again.Player2, "Get returns a copy")

	err = m.Create(ctx, newMatch(t, "m1"))
	assert.ErrorIs(t, err, service.ErrMatchExists)

	assert.ErrorIs(t, m.Create(ctx, newMatch(t, "")), ErrInvalidMatchID)
	assert.ErrorIs(t, m.Create(ctx, nil), ErrInvalidMatchID)

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrMatchNotFound)
}

func TestManager_Update(t *testing.T) {
	ctx := context.Background()
	later := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(WithClock(func() time.Time { return later }))
	require.NoError(t, m.Create(ctx, newMatch(t, "m1")))

	t.Run("applies changes", func(t *testing.T) {
		updated, err := m.Update(ctx, "m1", func(match *service.Match) error {
			match.Player2 = "bob"
			match.Status = service.StatusInProgress
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "bob", updated.Player2)
		assert.Equal(t, later, updated.UpdatedAt)

		stored, err := m.Get(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, service.StatusInProgress, stored.Status)
	})

	t.Run("discards changes on error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := m.Update(ctx, "m1", func(match *service.Match) error {
			match.Status = service.StatusAbandoned
			match.State = json.RawMessage(`{}`)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		stored, err := m.Get(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, service.StatusInProgress, stored.Status)
		assert.NotEqual(t, `{}`, string(stored.State))
	})

	t.Run("missing match", func(t *testing.T) {
		_, err := m.Update(ctx, "nope", func(*service.Match) error { return nil })
		assert.ErrorIs(t, err, service.ErrMatchNotFound)
	})
}

func TestManager_UpdateSerializesPerMatch(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	require.NoError(t, m.Create(ctx, newMatch(t, "m1")))

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Update(ctx, "m1", func(match *service.Match) error {
				match.TimeLimitSeconds++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := m.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, workers, stored.TimeLimitSeconds)
}

func TestManager_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	for i := 0; i < 3; i++ {
		require.NoError(t, m.Create(ctx, newMatch(t, fmt.Sprintf("m%d", i))))
	}
	assert.Len(t, m.List(ctx), 3)

	require.NoError(t, m.Delete(ctx, "m1"))
	assert.Len(t, m.List(ctx), 2)
	assert.ErrorIs(t, m.Delete(ctx, "m1"), service.ErrMatchNotFound)

	_, err := m.Update(ctx, "m1", func(*service.Match) error { return nil })
	assert.ErrorIs(t, err, service.ErrMatchNotFound)
}

func TestManager_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewManager(WithClock(func() time.Time { return now }))

	old := newMatch(t, "old")
	old.UpdatedAt = now.Add(-2 * time.Hour)
	require.NoError(t, m.Create(ctx, old))
	fresh := newMatch(t, "fresh")
	fresh.UpdatedAt = now.Add(-time.Minute)
	require.NoError(t, m.Create(ctx, fresh))

	assert.Equal(t, 1, m.CleanupExpired(time.Hour))
	assert.Equal(t, 1, m.Count())
	_, err := m.Get(ctx, "fresh")
	assert.NoError(t, err)
	_, err = m.Get(ctx, "old")
	assert.ErrorIs(t, err, service.ErrMatchNotFound)
}

func TestManager_WithPersistence(t *testing.T) {
	ctx := context.Background()
	fp, err := NewFilePersistence(t.TempDir())
	require.NoError(t, err)

	m := NewManager(WithPersistence(fp), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, m.Create(ctx, newMatch(t, "m1")))
	_, err = m.Update(ctx, "m1", func(match *service.Match) error {
		match.Player2 = "bob"
		return nil
	})
	require.NoError(t, err)
	assert.True(t, fp.Exists(ctx, "m1"))

	t.Run("lazy load on Get", func(t *testing.T) {
		restarted := NewManager(WithPersistence(fp))
		got, err := restarted.Get(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, "bob", got.Player2)
	})

	t.Run("lazy load on Update", func(t *testing.T) {
		restarted := NewManager(WithPersistence(fp))
		updated, err := restarted.Update(ctx, "m1", func(match *service.Match) error {
			match.Status = service.StatusInProgress
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, service.StatusInProgress, updated.Status)

		loaded, err := fp.Load(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, service.StatusInProgress, loaded.Status)
	})

	t.Run("LoadPersisted and SaveAll", func(t *testing.T) {
		require.NoError(t, fp.Save(ctx, newMatch(t, "m2")))

		restarted := NewManager(WithPersistence(fp))
		require.NoError(t, restarted.LoadPersisted(ctx))
		assert.Equal(t, 2, restarted.Count())
		require.NoError(t, restarted.SaveAll(ctx))
	})

	t.Run("delete removes the file", func(t *testing.T) {
		require.NoError(t, m.Delete(ctx, "m1"))
		assert.False(t, fp.Exists(ctx, "m1"))
	})

	t.Run("no persistence is a no-op", func(t *testing.T) {
		plain := NewManager()
		assert.NoError(t, plain.LoadPersisted(ctx))
		assert.NoError(t, plain.SaveAll(ctx))
	})
}
