package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchengine/internal/bus"
	"matchengine/internal/config"
	"matchengine/internal/model"
	"matchengine/internal/rules"
	"matchengine/internal/store"
)

func newTestController(t *testing.T) (TicketController, *store.MemoryStore, *bus.MemoryBus) {
	t.Helper()
	reg, err := rules.New(map[string]model.ModeRules{
		"1v1": {TeamSize: 1, NumTeams: 2, SkillTolerance: 50},
		"2v2": {TeamSize: 2, NumTeams: 2, SkillTolerance: 50},
	})
	require.NoError(t, err)

	st := store.NewMemoryStore()
	b := bus.NewMemoryBus()
	cfg := config.MatchmakingConfig{
		TicketTTLSec: 600,
		KnownRegions: []string{"eu-west", "us-east"},
	}
	return NewTicketController(st, b, reg, cfg), st, b
}

func TestEnqueueTicket(t *testing.T) {
	tc, st, b := newTestController(t)
	ctx := context.Background()

	id, err := tc.EnqueueTicket(ctx, JoinQueueRequest{
		GameMode: "2v2",
		Players: []PlayerPayload{
			{PlayerName: "alice", Skill: 120},
			{PlayerName: "bob", Skill: 80},
		},
		LatencyData: map[string]int{"us-east": 40},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	ticket, err := st.GetTicket(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.STATUS_SEARCHING, ticket.Status)
	assert.Equal(t, 100.0, ticket.AverageSkill())

	pooled, err := st.PoolContains(ctx, "2v2", id)
	require.NoError(t, err)
	assert.True(t, pooled)

	require.Len(t, b.PoolUpdated, 1)
	assert.Equal(t, model.ACTION_ENQUEUED, b.PoolUpdated[0].Action)
	assert.Equal(t, "2v2", b.PoolUpdated[0].GameMode)
}

func TestEnqueueUnknownMode(t *testing.T) {
	tc, _, _ := newTestController(t)

	_, err := tc.EnqueueTicket(context.Background(), JoinQueueRequest{
		GameMode: "battle-royale",
		Players:  []PlayerPayload{{PlayerName: "alice", Skill: 100}},
	})
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestEnqueueValidation(t *testing.T) {
	tc, _, _ := newTestController(t)
	ctx := context.Background()

	cases := map[string]JoinQueueRequest{
		"no players": {GameMode: "2v2"},
		"oversized party": {GameMode: "2v2", Players: []PlayerPayload{
			{PlayerName: "a"}, {PlayerName: "b"}, {PlayerName: "c"},
			{PlayerName: "d"}, {PlayerName: "e"}, {PlayerName: "f"},
		}},
		"blank name":     {GameMode: "2v2", Players: []PlayerPayload{{PlayerName: "  "}}},
		"negative skill": {GameMode: "2v2", Players: []PlayerPayload{{PlayerName: "a", Skill: -1}}},
		"latency below floor": {
			GameMode:    "2v2",
			Players:     []PlayerPayload{{PlayerName: "a", Skill: 10}},
			LatencyData: map[string]int{"us-east": 5},
		},
		"zero preference weight": {
			GameMode: "2v2",
			Players:  []PlayerPayload{{PlayerName: "a", Skill: 10, RegionPreference: map[string]int{"us-east": 0}}},
		},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tc.EnqueueTicket(ctx, req)
			assert.ErrorIs(t, err, ErrInvalidTicket)
		})
	}
}

func TestEnqueueRejectsPartyLargerThanMatchSize(t *testing.T) {
	tc, st, b := newTestController(t)
	ctx := context.Background()

	// A 3-party in 1v1 (match size 2) could never fill a proposal: pooled,
	// it would anchor every round and block the mode until its TTL.
	_, err := tc.EnqueueTicket(ctx, JoinQueueRequest{
		GameMode: "1v1",
		Players: []PlayerPayload{
			{PlayerName: "a", Skill: 90},
			{PlayerName: "b", Skill: 90},
			{PlayerName: "c", Skill: 90},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidTicket)

	// A full 5-party is within the global cap but exceeds 2v2's match size
	// of 4.
	_, err = tc.EnqueueTicket(ctx, JoinQueueRequest{
		GameMode: "2v2",
		Players: []PlayerPayload{
			{PlayerName: "a", Skill: 90}, {PlayerName: "b", Skill: 90},
			{PlayerName: "c", Skill: 90}, {PlayerName: "d", Skill: 90},
			{PlayerName: "e", Skill: 90},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidTicket)

	// Nothing was stored or pooled, and the mode keeps matching normally.
	for _, mode := range []string{"1v1", "2v2"} {
		size, err := st.PoolSize(ctx, mode)
		require.NoError(t, err)
		assert.Zero(t, size, mode)
	}
	assert.Empty(t, b.PoolUpdated)

	id, err := tc.EnqueueTicket(ctx, JoinQueueRequest{
		GameMode: "1v1",
		Players:  []PlayerPayload{{PlayerName: "solo", Skill: 100}},
	})
	require.NoError(t, err)
	pooled, err := st.PoolContains(ctx, "1v1", id)
	require.NoError(t, err)
	assert.True(t, pooled)
}

func TestSyntheticLatencyDeterministic(t *testing.T) {
	tc, st, _ := newTestController(t)
	ctx := context.Background()

	req := JoinQueueRequest{
		GameMode: "2v2",
		Players:  []PlayerPayload{{PlayerName: "carol", Skill: 50}},
	}

	id1, err := tc.EnqueueTicket(ctx, req)
	require.NoError(t, err)
	id2, err := tc.EnqueueTicket(ctx, req)
	require.NoError(t, err)

	t1, err := st.GetTicket(ctx, id1)
	require.NoError(t, err)
	t2, err := st.GetTicket(ctx, id2)
	require.NoError(t, err)

	assert.Equal(t, t1.LatencyData, t2.LatencyData, "same party identity, same figures")
	for region, latency := range t1.LatencyData {
		assert.GreaterOrEqual(t, latency, 10, region)
		assert.LessOrEqual(t, latency, 200, region)
	}
	assert.Len(t, t1.LatencyData, 2, "one entry per known region")
}

func TestPoolSizeUnknownMode(t *testing.T) {
	tc, _, _ := newTestController(t)

	_, err := tc.PoolSize(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownMode)
}
