package bus

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"matchengine/internal/model"
)

// MemoryBus is an in-process Bus for tests and local development. It also
// records every dashboard event so tests can assert on the feed.
type MemoryBus struct {
	mu          sync.Mutex
	subscribers []chan model.MatchFoundEvent
	MatchFound  []model.MatchFoundEvent
	PoolUpdated []model.PoolUpdatedEvent
	Logs        []model.DashboardLogEvent
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) PublishMatchFound(_ context.Context, ev model.MatchFoundEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.MatchFound = append(b.MatchFound, ev)
	for _, sub := range b.subscribers {
		select {
		case sub <- ev:
		default:
			log.Warn().Str("matchId", ev.MatchID).Msg("Dropping match_found for slow subscriber")
		}
	}
	return nil
}

func (b *MemoryBus) PublishPoolUpdated(_ context.Context, ev model.PoolUpdatedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.PoolUpdated = append(b.PoolUpdated, ev)
	return nil
}

func (b *MemoryBus) PublishLog(_ context.Context, ev model.DashboardLogEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Logs = append(b.Logs, ev)
	return nil
}

func (b *MemoryBus) SubscribeMatchFound(context.Context) (<-chan model.MatchFoundEvent, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(chan model.MatchFoundEvent, 16)
	b.subscribers = append(b.subscribers, sub)

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subscribers {
			if s == sub {
				b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
				close(sub)
				return
			}
		}
	}
	return sub, cancel, nil
}

func (b *MemoryBus) Close() error { return nil }
