// internal/conversation/store.go
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists conversation contexts between worker invocations.
type Store interface {
	// Get returns the context for id, or a fresh empty context when
	// none exists yet.
	Get(ctx context.Context, id string) (*Context, error)
	Save(ctx context.Context, c *Context) error
	Delete(ctx context.Context, id string) error
}

const keyPrefix = "conversation:"

// RedisStore keeps contexts in Redis with a TTL, so an abandoned
// conversation expires on its own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Context, error) {
	raw, err := s.client.Get(ctx, keyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return &Context{ID: id}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", id, err)
	}

	var c Context
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		// A corrupt record is unrecoverable state, not a fatal error:
		// start the conversation over.
		return &Context{ID: id}, nil
	}
	c.ID = id
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, c *Context) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode conversation %s: %w", c.ID, err)
	}
	if err := s.client.Set(ctx, keyPrefix+c.ID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save conversation %s: %w", c.ID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	return nil
}

// MemoryStore is the in-process fallback used when Redis is not
// configured, and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	contexts map[string]*Context
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contexts: make(map[string]*Context)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.contexts[id]; ok {
		copied := *c
		copied.Turns = append([]Turn(nil), c.Turns...)
		return &copied, nil
	}
	return &Context{ID: id}, nil
}

func (s *MemoryStore) Save(_ context.Context, c *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *c
	copied.Turns = append([]Turn(nil), c.Turns...)
	s.contexts[c.ID] = &copied
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, id)
	return nil
}
