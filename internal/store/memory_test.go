package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchengine/internal/model"
)

func TestPoolOrderingAndTies(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	require.NoError(t, st.PoolInsert(ctx, "duel", "b", 100))
	require.NoError(t, st.PoolInsert(ctx, "duel", "a", 100)) // same score, later insert
	require.NoError(t, st.PoolInsert(ctx, "duel", "c", 90))
	require.NoError(t, st.PoolInsert(ctx, "duel", "d", 110))

	ids, err := st.PoolRangeByScore(ctx, "duel", 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a", "d"}, ids, "ascending score, ties in insertion order")

	id, score, ok, err := st.PoolPopMin(ctx, "duel")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c", id)
	assert.Equal(t, 90.0, score)
}

func TestPoolInsertIdempotent(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	require.NoError(t, st.PoolInsert(ctx, "duel", "a", 100))
	require.NoError(t, st.PoolInsert(ctx, "duel", "a", 100))

	size, err := st.PoolSize(ctx, "duel")
	require.NoError(t, err)
	assert.EqualValues(t, 1, size)
}

func TestPoolInsertThenRemoveRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	before, err := st.PoolSize(ctx, "duel")
	require.NoError(t, err)

	require.NoError(t, st.PoolInsert(ctx, "duel", "a", 100))
	removed, err := st.PoolRemoveMany(ctx, "duel", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	after, err := st.PoolSize(ctx, "duel")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPoolRemoveManyReportsActualCount(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	require.NoError(t, st.PoolInsert(ctx, "duel", "a", 100))
	require.NoError(t, st.PoolInsert(ctx, "duel", "b", 110))

	removed, err := st.PoolRemoveMany(ctx, "duel", []string{"a", "b", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestPoolPopMinEmpty(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	_, _, ok, err := st.PoolPopMin(ctx, "duel")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTicketTTLExpiry(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	ticket := &model.Ticket{TicketID: "t1", Players: []model.Player{{PlayerName: "p", Skill: 10}}}
	require.NoError(t, st.PutTicket(ctx, ticket, time.Millisecond))

	time.Sleep(5 * time.Millisecond)
	_, err := st.GetTicket(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionLookup(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	_, err := st.Session(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.RegisterSession(ctx, "alice", "sid-1"))
	sid, err := st.Session(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "sid-1", sid)
}
