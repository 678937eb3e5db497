package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"matchengine/internal/model"
)

// RedisBus implements Bus on Redis pub/sub, optionally mirroring every
// publish to a secondary transport.
type RedisBus struct {
	client *redis.Client
	mirror Mirror
}

// NewRedisBus wraps an existing Redis connection, usually the store's.
// mirror may be nil.
func NewRedisBus(client *redis.Client, mirror Mirror) *RedisBus {
	return &RedisBus{client: client, mirror: mirror}
}

func (b *RedisBus) publish(ctx context.Context, channel string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", channel, err)
	}

	if err := b.client.Publish(ctx, channel, body).Err(); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("Failed to publish event")
		return err
	}

	if b.mirror != nil {
		b.mirror.Mirror(channel, body)
	}

	log.Debug().Str("channel", channel).Int("size", len(body)).Msg("Published event")
	return nil
}

func (b *RedisBus) PublishMatchFound(ctx context.Context, ev model.MatchFoundEvent) error {
	if err := b.publish(ctx, ChannelMatchFound, ev); err != nil {
		return err
	}
	// Dashboard gets the same shape duplicated.
	return b.publish(ctx, ChannelDashboard, ev)
}

func (b *RedisBus) PublishPoolUpdated(ctx context.Context, ev model.PoolUpdatedEvent) error {
	return b.publish(ctx, ChannelDashboard, ev)
}

func (b *RedisBus) PublishLog(ctx context.Context, ev model.DashboardLogEvent) error {
	return b.publish(ctx, ChannelDashboard, ev)
}

// SubscribeMatchFound consumes the match_found channel until cancelled.
// Undecodable payloads are logged and skipped.
func (b *RedisBus) SubscribeMatchFound(ctx context.Context) (<-chan model.MatchFoundEvent, func(), error) {
	pubsub := b.client.Subscribe(ctx, ChannelMatchFound)

	// Force the subscription to be established before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", ChannelMatchFound, err)
	}

	out := make(chan model.MatchFoundEvent)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev model.MatchFoundEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Error().Err(err).Str("channel", ChannelMatchFound).Msg("Dropping undecodable event")
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		if err := pubsub.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing match_found subscription")
		}
	}
	return out, cancel, nil
}

// Close is a no-op: the underlying connection belongs to the store.
func (b *RedisBus) Close() error { return nil }
