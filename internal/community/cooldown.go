package community

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cooldown grants at most one reservation per key within a window.
type Cooldown interface {
	Reserve(ctx context.Context, key string, window time.Duration) (bool, error)
	// Release gives back a reservation whose post was not stored.
	Release(ctx context.Context, key string) error
}

func messageCooldownKey(userID string) string {
	return "message:" + userID
}

func replyCooldownKey(userID string) string {
	return "reply:" + userID
}

// MemoryCooldown keeps reservations in process memory.
type MemoryCooldown struct {
	mu    sync.Mutex
	clock func() time.Time
	until map[string]time.Time
}

// NewMemoryCooldown constructs a MemoryCooldown. A nil clock uses time.Now.
func NewMemoryCooldown(clock func() time.Time) *MemoryCooldown {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryCooldown{clock: clock, until: make(map[string]time.Time)}
}

func (c *MemoryCooldown) Reserve(_ context.Context, key string, window time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if until, ok := c.until[key]; ok && now.Before(until) {
		return false, nil
	}
	c.until[key] = now.Add(window)

	// opportunistic cleanup keeps the map bounded by active posters.
	for existingKey, until := range c.until {
		if !now.Before(until) {
			delete(c.until, existingKey)
		}
	}
	return true, nil
}

func (c *MemoryCooldown) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.until, key)
	return nil
}

// RedisCooldown shares reservations across instances using SET NX PX.
type RedisCooldown struct {
	client redis.Cmdable
	prefix string
}

// NewRedisCooldown constructs a RedisCooldown whose keys are namespaced by prefix.
func NewRedisCooldown(client redis.Cmdable, prefix string) *RedisCooldown {
	return &RedisCooldown{client: client, prefix: prefix}
}

func (c *RedisCooldown) Reserve(ctx context.Context, key string, window time.Duration) (bool, error) {
	return c.client.SetNX(ctx, c.prefix+key, 1, window).Result()
}

func (c *RedisCooldown) Release(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}
