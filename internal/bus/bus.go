package bus

import (
	"context"

	"matchengine/internal/model"
)

// Logical channels carried by the bus.
const (
	ChannelMatchFound = "match_found"
	ChannelDashboard  = "dashboard_events"
)

// Bus is the engine's event surface. Delivery is at-least-once within the
// process and best-effort across processes; subscribers must tolerate
// duplicates. Events are typed on this side of the boundary and serialized
// exactly once, inside the adapter.
type Bus interface {
	// PublishMatchFound emits the event on match_found and duplicates it on
	// dashboard_events for the dashboard feed.
	PublishMatchFound(ctx context.Context, ev model.MatchFoundEvent) error

	// PublishPoolUpdated emits a pool_updated event on dashboard_events.
	PublishPoolUpdated(ctx context.Context, ev model.PoolUpdatedEvent) error

	// PublishLog emits a log event on dashboard_events.
	PublishLog(ctx context.Context, ev model.DashboardLogEvent) error

	// SubscribeMatchFound delivers match_found events until the returned
	// cancel func is called or ctx ends.
	SubscribeMatchFound(ctx context.Context) (<-chan model.MatchFoundEvent, func(), error)

	Close() error
}

// Mirror forwards already-serialized events to a secondary transport for
// out-of-process consumers. Mirroring is best-effort: failures are logged
// by the implementation and never surface to the publisher.
type Mirror interface {
	Mirror(channel string, body []byte)
}
