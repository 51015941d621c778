package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"realty/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedTurns(n int) []model.Turn {
	turns := make([]model.Turn, 0, n)
	for i := 1; i <= n; i++ {
		role := model.RoleUser
		if i%2 == 0 {
			role = model.RoleModel
		}
		turns = append(turns, model.Turn{Role: role, Text: fmt.Sprintf("turn %d", i)})
	}
	return turns
}

func TestMemoryHistoryStore_KeepsMostRecentTurns(t *testing.T) {
	store := NewMemoryHistoryStore(20)
	ctx := context.Background()

	var history []model.Turn
	for _, turn := range numberedTurns(25) {
		loaded, err := store.Load(ctx, "s1")
		require.NoError(t, err)
		history = append(loaded, turn)
		require.NoError(t, store.Save(ctx, "s1", history))
	}

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 20)
	assert.Equal(t, "turn 6", got[0].Text)
	assert.Equal(t, "turn 25", got[19].Text)
	assert.Equal(t, numberedTurns(25)[5:], got)
}

func TestMemoryHistoryStore_SessionsAreIsolated(t *testing.T) {
	store := NewMemoryHistoryStore(0)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "b", numberedTurns(2)))
	require.NoError(t, store.Save(ctx, "a", numberedTurns(1)))

	a, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, a, 1)

	ids, err := store.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, store.Clear(ctx, "b"))
	b, err := store.Load(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestMemoryHistoryStore_LoadReturnsCopy(t *testing.T) {
	store := NewMemoryHistoryStore(20)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "s", numberedTurns(1)))

	loaded, _ := store.Load(ctx, "s")
	loaded[0].Text = "mutated"

	again, _ := store.Load(ctx, "s")
	assert.Equal(t, "turn 1", again[0].Text)
}

func TestEncodeTurns_TrimsAndRoundTrips(t *testing.T) {
	data, err := encodeTurns(numberedTurns(25), 20)
	require.NoError(t, err)

	turns, err := decodeTurns(data)
	require.NoError(t, err)
	assert.Equal(t, numberedTurns(25)[5:], turns)

	empty, err := encodeTurns(nil, 20)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(empty))
}

func TestDecodeTurns_Malformed(t *testing.T) {
	_, err := decodeTurns([]byte(`{"role":`))
	assert.Error(t, err)
}

func TestRedisHistoryStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	store := NewRedisHistoryStore(client, 20, time.Minute)
	session := fmt.Sprintf("test-%d", time.Now().UnixNano())
	defer store.Clear(ctx, session)

	require.NoError(t, store.Save(ctx, session, numberedTurns(25)))
	got, err := store.Load(ctx, session)
	require.NoError(t, err)
	assert.Len(t, got, 20)

	ids, err := store.Sessions(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, session)

	require.NoError(t, store.Clear(ctx, session))
	got, err = store.Load(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, got)
}
