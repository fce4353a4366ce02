package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wricardo/online-games/game/service"
)

const (
	matchKeyPrefix = "match:"
	matchIndexKey  = "matches"
)

// RedisPersistence implements MatchPersistence with one key per match plus
// an index set of ids
type RedisPersistence struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisPersistence connects to redisURL (redis://[:password@]host:port[/db])
// and checks the connection. A zero ttl keeps matches forever.
func NewRedisPersistence(ctx context.Context, redisURL string, ttl time.Duration) (*RedisPersistence, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisPersistenceWithClient(rdb, ttl), nil
}

// NewRedisPersistenceWithClient wraps an existing client
func NewRedisPersistenceWithClient(rdb *redis.Client, ttl time.Duration) *RedisPersistence {
	return &RedisPersistence{rdb: rdb, ttl: ttl}
}

// Close closes the underlying client
func (rp *RedisPersistence) Close() error {
	return rp.rdb.Close()
}

// Save stores the match and adds it to the index
func (rp *RedisPersistence) Save(ctx context.Context, match *service.Match) error {
	if match == nil {
		return fmt.Errorf("match cannot be nil")
	}
	if match.ID == "" {
		return ErrInvalidMatchID
	}

	raw, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("failed to marshal match: %w", err)
	}

	_, err = rp.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, matchKey(match.ID), raw, rp.ttl)
		pipe.SAdd(ctx, matchIndexKey, match.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save match %s: %w", match.ID, err)
	}
	return nil
}

// Load fetches a match
func (rp *RedisPersistence) Load(ctx context.Context, id string) (*service.Match, error) {
	raw, err := rp.rdb.Get(ctx, matchKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", service.ErrMatchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match %s: %w", id, err)
	}

	var match service.Match
	if err := json.Unmarshal(raw, &match); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}
	return &match, nil
}

// Delete removes the match key and its index entry
func (rp *RedisPersistence) Delete(ctx context.Context, id string) error {
	var deleted *redis.IntCmd
	_, err := rp.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, matchKey(id))
		pipe.SRem(ctx, matchIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete match %s: %w", id, err)
	}
	if deleted.Val() == 0 {
		return fmt.Errorf("%w: %s", service.ErrMatchNotFound, id)
	}
	return nil
}

// ListAll returns indexed ids whose keys still exist. Ids whose keys expired
// are pruned from the index.
func (rp *RedisPersistence) ListAll(ctx context.Context) ([]string, error) {
	ids, err := rp.rdb.SMembers(ctx, matchIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = matchKey(id)
	}
	cmds, err := rp.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Exists(ctx, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	live := make([]string, 0, len(ids))
	var stale []any
	for i, cmd := range cmds {
		if cmd.(*redis.IntCmd).Val() > 0 {
			live = append(live, ids[i])
		} else {
			stale = append(stale, ids[i])
		}
	}
	if len(stale) > 0 {
		rp.rdb.SRem(ctx, matchIndexKey, stale...)
	}
	return live, nil
}

// Exists checks if a match key exists
func (rp *RedisPersistence) Exists(ctx context.Context, id string) bool {
	n, err := rp.rdb.Exists(ctx, matchKey(id)).Result()
	return err == nil && n > 0
}

func matchKey(id string) string { return matchKeyPrefix + strings.TrimSpace(id) }
