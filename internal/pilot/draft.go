package pilot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"empirepilot/internal/domain"
)

// DraftStore keeps the lead being qualified for each session between turns.
type DraftStore interface {
	Get(ctx context.Context, sessionID string) (domain.Lead, bool, error)
	Set(ctx context.Context, sessionID string, l domain.Lead) error
}

type RedisDrafts struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisDrafts(rdb *redis.Client, ttl time.Duration) *RedisDrafts {
	return &RedisDrafts{redis: rdb, ttl: ttl}
}

func (d *RedisDrafts) key(sessionID string) string {
	return "empire:draft:" + sessionID
}

func (d *RedisDrafts) Set(ctx context.Context, sessionID string, l domain.Lead) error {
	b, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := d.redis.Set(ctx, d.key(sessionID), string(b), d.ttl).Err(); err != nil {
		return fmt.Errorf("set draft: %w", err)
	}
	return nil
}

func (d *RedisDrafts) Get(ctx context.Context, sessionID string) (domain.Lead, bool, error) {
	raw, err := d.redis.Get(ctx, d.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Lead{}, false, nil
	}
	if err != nil {
		return domain.Lead{}, false, fmt.Errorf("get draft: %w", err)
	}
	var l domain.Lead
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("malformed lead draft")
		return domain.Lead{}, false, nil
	}
	return l, true, nil
}

type MemoryDrafts struct {
	mu     sync.RWMutex
	drafts map[string]domain.Lead
}

func NewMemoryDrafts() *MemoryDrafts {
	return &MemoryDrafts{drafts: make(map[string]domain.Lead)}
}

func (d *MemoryDrafts) Get(_ context.Context, sessionID string) (domain.Lead, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.drafts[sessionID]
	return l, ok, nil
}

func (d *MemoryDrafts) Set(_ context.Context, sessionID string, l domain.Lead) error {
	d.mu.Lock()
	d.drafts[sessionID] = l
	d.mu.Unlock()
	return nil
}
