package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"matchengine/internal/model"
)

// SendNotifyChannel prefixes the per-session channel the socket
// collaborator listens on.
const SendNotifyChannel = "send_notify"

// RedisDispatcher hands notifications to the socket collaborator by
// publishing send_notify payloads on a per-session channel.
type RedisDispatcher struct {
	client *redis.Client
}

func NewRedisDispatcher(client *redis.Client) *RedisDispatcher {
	return &RedisDispatcher{client: client}
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, sessionID string, notification model.Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return d.client.Publish(ctx, fmt.Sprintf("%s:%s", SendNotifyChannel, sessionID), body).Err()
}

// MemoryDispatcher records deliveries for tests.
type MemoryDispatcher struct {
	mu         sync.Mutex
	Deliveries map[string][]model.Notification
}

func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{Deliveries: make(map[string][]model.Notification)}
}

func (d *MemoryDispatcher) Dispatch(_ context.Context, sessionID string, notification model.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Deliveries[sessionID] = append(d.Deliveries[sessionID], notification)
	return nil
}

// Delivered returns a copy of the notifications sent to a session.
func (d *MemoryDispatcher) Delivered(sessionID string) []model.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.Notification, len(d.Deliveries[sessionID]))
	copy(out, d.Deliveries[sessionID])
	return out
}
