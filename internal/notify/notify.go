package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"loungehub/internal/models"
)

// DisplayWindow is how long a posted notification stays readable before the
// slot self-clears.
const DisplayWindow = 3 * time.Second

// Notifier is the single-slot transient message channel. Each profile has one
// slot; posting overwrites whatever is currently displayed.
type Notifier interface {
	Post(ctx context.Context, profileID string, n models.Notification) error

	// Current returns the displayed notification, or nil once it has expired
	// or been superseded.
	Current(ctx context.Context, profileID string) (*models.Notification, error)
}

// RedisNotifier keeps the slot in a redis key with a TTL matching the display
// window, so expiry needs no timer of its own.
type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

func slotKey(profileID string) string {
	return fmt.Sprintf("notify:%s", profileID)
}

func (r *RedisNotifier) Post(ctx context.Context, profileID string, n models.Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := r.rdb.Set(ctx, slotKey(profileID), raw, DisplayWindow).Err(); err != nil {
		return fmt.Errorf("failed to post notification: %w", err)
	}
	return nil
}

func (r *RedisNotifier) Current(ctx context.Context, profileID string) (*models.Notification, error) {
	raw, err := r.rdb.Get(ctx, slotKey(profileID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read notification: %w", err)
	}
	var n models.Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("failed to decode notification: %w", err)
	}
	return &n, nil
}

// MemoryNotifier records every post and serves the latest one. Expiry is
// checked lazily against the post time, mirroring the redis TTL.
type MemoryNotifier struct {
	mu      sync.Mutex
	current map[string]models.Notification
	posted  map[string]time.Time
	History []models.Notification
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{
		current: make(map[string]models.Notification),
		posted:  make(map[string]time.Time),
	}
}

func (m *MemoryNotifier) Post(ctx context.Context, profileID string, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current[profileID] = n
	m.posted[profileID] = time.Now()
	m.History = append(m.History, n)
	return nil
}

func (m *MemoryNotifier) Current(ctx context.Context, profileID string) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	posted, ok := m.posted[profileID]
	if !ok || time.Since(posted) > DisplayWindow {
		return nil, nil
	}
	n := m.current[profileID]
	return &n, nil
}
