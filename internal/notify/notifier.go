package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"matchengine/internal/bus"
	"matchengine/internal/model"
	"matchengine/internal/store"
)

// Dispatcher delivers a notification to one live session. The socket
// collaborator owns actual delivery; the engine only addresses by session
// id.
type Dispatcher interface {
	Dispatch(ctx context.Context, sessionID string, notification model.Notification) error
}

// Notifier consumes match_found events and fans them out to every matched
// player with a live session. Offline players (no session id) are dropped
// silently; no retry state is kept.
type Notifier struct {
	bus        bus.Bus
	sessions   store.SessionStore
	dispatcher Dispatcher
}

// NewNotifier wires the fan-out against the bus, the session map and a
// dispatcher.
func NewNotifier(b bus.Bus, sessions store.SessionStore, dispatcher Dispatcher) *Notifier {
	return &Notifier{bus: b, sessions: sessions, dispatcher: dispatcher}
}

// Run subscribes to match_found and processes events until ctx is
// cancelled, draining anything already in flight before exiting.
func (n *Notifier) Run(ctx context.Context) error {
	events, cancel, err := n.bus.SubscribeMatchFound(ctx)
	if err != nil {
		return fmt.Errorf("subscribe match_found: %w", err)
	}

	log.Info().Msg("Notification fan-out started")

	for {
		select {
		case <-ctx.Done():
			cancel()
			for ev := range events {
				n.HandleEvent(context.WithoutCancel(ctx), ev)
			}
			log.Info().Msg("Notification fan-out stopped")
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			n.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent delivers one match_found event to every reachable player.
// Replaying the same event produces the same per-player payload set, so
// duplicate deliveries from the at-least-once bus are harmless.
func (n *Notifier) HandleEvent(ctx context.Context, ev model.MatchFoundEvent) {
	notification := model.Notification{
		Message: fmt.Sprintf("Match %s is ready!", ev.MatchID),
		MatchID: ev.MatchID,
		Region:  ev.Region,
		Teams:   ev.Teams,
	}

	delivered := 0
	offline := 0
	for _, team := range ev.Teams {
		for _, player := range team {
			sid, err := n.sessions.Session(ctx, player.PlayerName)
			if errors.Is(err, store.ErrNotFound) {
				offline++
				continue
			} else if err != nil {
				log.Error().Err(err).Str("player", player.PlayerName).Msg("Session lookup failed")
				continue
			}

			if err := n.dispatcher.Dispatch(ctx, sid, notification); err != nil {
				log.Error().
					Err(err).
					Str("player", player.PlayerName).
					Str("sessionId", sid).
					Msg("Notification dispatch failed")
				continue
			}
			delivered++
		}
	}

	log.Info().
		Str("matchId", ev.MatchID).
		Int("delivered", delivered).
		Int("offline", offline).
		Msg("Match notifications dispatched")
}
