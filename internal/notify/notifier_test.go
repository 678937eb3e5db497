package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchengine/internal/bus"
	"matchengine/internal/model"
	"matchengine/internal/store"
)

func matchEvent() model.MatchFoundEvent {
	return model.MatchFoundEvent{
		Event:   model.EVENT_MATCH_FOUND,
		MatchID: "match-1",
		Region:  "us-east",
		Teams: map[string][]model.Player{
			"team_1": {{PlayerName: "alice", Skill: 100}},
			"team_2": {{PlayerName: "bob", Skill: 110}},
		},
		TicketIDs: []string{"t1", "t2"},
	}
}

func TestHandleEventDeliversToLiveSessions(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	dispatcher := NewMemoryDispatcher()
	n := NewNotifier(bus.NewMemoryBus(), st, dispatcher)

	require.NoError(t, st.RegisterSession(ctx, "alice", "sid-alice"))
	// bob is offline: no session, dropped silently.

	n.HandleEvent(ctx, matchEvent())

	delivered := dispatcher.Delivered("sid-alice")
	require.Len(t, delivered, 1)
	assert.Equal(t, "Match match-1 is ready!", delivered[0].Message)
	assert.Equal(t, "match-1", delivered[0].MatchID)
	assert.Equal(t, "us-east", delivered[0].Region)
	assert.Empty(t, dispatcher.Deliveries["sid-bob"])
}

func TestHandleEventReplayIsIdempotentPayload(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	dispatcher := NewMemoryDispatcher()
	n := NewNotifier(bus.NewMemoryBus(), st, dispatcher)

	require.NoError(t, st.RegisterSession(ctx, "alice", "sid-alice"))
	require.NoError(t, st.RegisterSession(ctx, "bob", "sid-bob"))

	ev := matchEvent()
	n.HandleEvent(ctx, ev)
	n.HandleEvent(ctx, ev)

	// The at-least-once bus may duplicate events; each replay produces the
	// exact same per-player payload.
	for _, sid := range []string{"sid-alice", "sid-bob"} {
		delivered := dispatcher.Delivered(sid)
		require.Len(t, delivered, 2, sid)
		assert.Equal(t, delivered[0], delivered[1], sid)
	}
}

func TestRunConsumesBusEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	st := store.NewMemoryStore()
	b := bus.NewMemoryBus()
	dispatcher := NewMemoryDispatcher()
	n := NewNotifier(b, st, dispatcher)

	require.NoError(t, st.RegisterSession(ctx, "alice", "sid-alice"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = n.Run(ctx)
	}()

	require.NoError(t, b.PublishMatchFound(ctx, matchEvent()))

	assert.Eventually(t, func() bool {
		return len(dispatcher.Delivered("sid-alice")) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
