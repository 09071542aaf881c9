package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreateSessionOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first, err := s.CreateSession(ctx, Session{SessionID: "CA1", Channel: ChannelVoice, RestaurantID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	_, err = s.CreateSession(ctx, Session{SessionID: "CA1", Channel: ChannelVoice, RestaurantID: "r2"})
	assert.ErrorIs(t, err, ErrExists)

	got, err := s.GetSession(ctx, "CA1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RestaurantID)
}

func TestMemoryStoreTurnsStrictlyOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	frozen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return frozen }

	_, err := s.CreateSession(ctx, Session{SessionID: "web-1", Channel: ChannelChat, RestaurantID: "default"})
	require.NoError(t, err)

	for i, role := range []Role{RoleUser, RoleAssistant, RoleUser, RoleAssistant} {
		turn, err := s.AppendTurn(ctx, Turn{SessionID: "web-1", Role: role, Content: string(role)})
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), turn.ID)
	}

	turns, err := s.ListTurns(ctx, "web-1")
	require.NoError(t, err)
	require.Len(t, turns, 4)
	for i := 1; i < len(turns); i++ {
		assert.True(t, turns[i].CreatedAt.After(turns[i-1].CreatedAt))
	}
	assert.Equal(t, RoleUser, turns[0].Role)
}

func TestMemoryStoreAppendToUnknownSession(t *testing.T) {
	_, err := NewMemoryStore().AppendTurn(context.Background(), Turn{SessionID: "ghost", Role: RoleUser})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListSessionsFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, in := range []Session{
		{SessionID: "a", Channel: ChannelChat, RestaurantID: "r1"},
		{SessionID: "b", Channel: ChannelVoice, RestaurantID: "r2"},
		{SessionID: "c", Channel: ChannelChat, RestaurantID: "r1"},
	} {
		_, err := s.CreateSession(ctx, in)
		require.NoError(t, err)
	}

	all, err := s.ListSessions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].SessionID)

	r1, err := s.ListSessions(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, r1, 2)
}
