package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"examsim/internal/model"

	"github.com/redis/go-redis/v9"
)

// CheckpointCache is the durable side channel for pause checkpoints and
// autosave drafts. Keys are namespaced by session id.
type CheckpointCache interface {
	SetCheckpoint(ctx context.Context, cp *model.Checkpoint) error
	GetCheckpoint(ctx context.Context, sessionID int) (*model.Checkpoint, error)
	DeleteCheckpoint(ctx context.Context, sessionID int) error

	SetDraft(ctx context.Context, draft *model.Draft) error
	GetDraft(ctx context.Context, sessionID int) (*model.Draft, error)
	DeleteDraft(ctx context.Context, sessionID int) error
}

// ErrInvalidSessionID is returned for keys that cannot belong to a session
var ErrInvalidSessionID = errors.New("invalid session id")

func checkpointKey(sessionID int) string {
	return fmt.Sprintf("simulation:%d:checkpoint", sessionID)
}

func draftKey(sessionID int) string {
	return fmt.Sprintf("simulation:%d:draft", sessionID)
}

type redisCheckpointCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCheckpointCache creates a Redis-backed checkpoint cache
func NewCheckpointCache(client *redis.Client, ttl time.Duration) CheckpointCache {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &redisCheckpointCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *redisCheckpointCache) SetCheckpoint(ctx context.Context, cp *model.Checkpoint) error {
	if cp.SessionID <= 0 {
		return ErrInvalidSessionID
	}
	return c.setJSON(ctx, checkpointKey(cp.SessionID), cp)
}

func (c *redisCheckpointCache) GetCheckpoint(ctx context.Context, sessionID int) (*model.Checkpoint, error) {
	var cp model.Checkpoint
	found, err := c.getJSON(ctx, checkpointKey(sessionID), &cp)
	if err != nil || !found {
		return nil, err
	}
	return &cp, nil
}

func (c *redisCheckpointCache) DeleteCheckpoint(ctx context.Context, sessionID int) error {
	return c.client.Del(ctx, checkpointKey(sessionID)).Err()
}

func (c *redisCheckpointCache) SetDraft(ctx context.Context, draft *model.Draft) error {
	if draft.SessionID <= 0 {
		return ErrInvalidSessionID
	}
	return c.setJSON(ctx, draftKey(draft.SessionID), draft)
}

func (c *redisCheckpointCache) GetDraft(ctx context.Context, sessionID int) (*model.Draft, error) {
	var draft model.Draft
	found, err := c.getJSON(ctx, draftKey(sessionID), &draft)
	if err != nil || !found {
		return nil, err
	}
	return &draft, nil
}

func (c *redisCheckpointCache) DeleteDraft(ctx context.Context, sessionID int) error {
	return c.client.Del(ctx, draftKey(sessionID)).Err()
}

func (c *redisCheckpointCache) setJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// getJSON returns found=false with no error for a missing key
func (c *redisCheckpointCache) getJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("corrupt record at %s: %w", key, err)
	}
	return true, nil
}
