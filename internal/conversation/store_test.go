// internal/conversation/store_test.go
package conversation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JourneytoNewland/chatBI-sub000/internal/intent"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t, time.Minute)
	ctx := context.Background()

	c, err := store.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.Empty(t, c.Turns, "unknown id yields a fresh context")

	c.AddTurn("最近7天GMV", &intent.QueryIntent{Query: "最近7天GMV", CoreSubject: "GMV"}, time.Now().UTC())
	require.NoError(t, store.Save(ctx, c))

	loaded, err := store.Get(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, loaded.Turns, 1)
	assert.Equal(t, "GMV", loaded.Turns[0].Intent.CoreSubject)
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	c := &Context{ID: "conv-ttl"}
	c.AddTurn("GMV", nil, time.Now())
	require.NoError(t, store.Save(ctx, c))

	mr.FastForward(2 * time.Minute)

	loaded, err := store.Get(ctx, "conv-ttl")
	require.NoError(t, err)
	assert.Empty(t, loaded.Turns, "expired conversation starts over")
}

func TestRedisStoreCorruptRecordStartsOver(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)

	require.NoError(t, mr.Set(keyPrefix+"conv-bad", "not json"))

	loaded, err := store.Get(context.Background(), "conv-bad")
	require.NoError(t, err)
	assert.Empty(t, loaded.Turns)
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := newRedisStore(t, time.Minute)
	ctx := context.Background()

	c := &Context{ID: "conv-del"}
	c.AddTurn("GMV", nil, time.Now())
	require.NoError(t, store.Save(ctx, c))
	require.NoError(t, store.Delete(ctx, "conv-del"))

	loaded, err := store.Get(ctx, "conv-del")
	require.NoError(t, err)
	assert.Empty(t, loaded.Turns)
}

func TestMemoryStoreIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	c := &Context{ID: "conv-mem"}
	c.AddTurn("GMV", &intent.QueryIntent{CoreSubject: "GMV"}, time.Now())
	require.NoError(t, store.Save(ctx, c))

	// Mutating the caller's copy must not leak into the store.
	c.Turns[0].Query = "mutated"

	loaded, err := store.Get(ctx, "conv-mem")
	require.NoError(t, err)
	assert.Equal(t, "GMV", loaded.Turns[0].Query)
}

func TestContextTurnBound(t *testing.T) {
	c := &Context{ID: "conv-bound"}
	for i := 0; i < MaxTurns+3; i++ {
		c.AddTurn(fmt.Sprintf("query-%d", i), nil, time.Now())
	}
	require.Len(t, c.Turns, MaxTurns)
	assert.Equal(t, "query-3", c.Turns[0].Query, "oldest turns are discarded first")
}

func TestResolveReference(t *testing.T) {
	c := &Context{ID: "conv-ref"}
	c.AddTurn("最近7天GMV", &intent.QueryIntent{CoreSubject: "GMV"}, time.Now())

	tests := []struct {
		name         string
		query        string
		want         string
		wantResolved bool
	}{
		{"possessive pronoun", "它的环比呢", "GMV环比呢", true},
		{"demonstrative", "那个指标按地区拆一下", "GMV指标按地区拆一下", true},
		{"english pronoun", "show it by region", "show GMV by region", true},
		{"no pronoun", "DAU总和", "DAU总和", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, resolved := c.ResolveReference(tt.query)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantResolved, resolved)
		})
	}

	t.Run("no prior subject passes through", func(t *testing.T) {
		empty := &Context{ID: "conv-empty"}
		got, resolved := empty.ResolveReference("它的环比呢")
		assert.Equal(t, "它的环比呢", got)
		assert.False(t, resolved)
	})
}
