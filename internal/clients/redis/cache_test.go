package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozi7266/aieng/internal/pkg/logger"
)

func newTestCache(t *testing.T) (Cache, *miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	c, err := NewCache(logger.Nop(), rdb)
	require.NoError(t, err)
	return c, mr, rdb
}

func TestCacheSetGetWithTTL(t *testing.T) {
	ctx := context.Background()
	c, mr, _ := newTestCache(t)

	require.NoError(t, c.Set(ctx, "Learning:user:1:session:2:word:apple", []byte(`{"word":"apple"}`), 24*time.Hour))
	assert.Equal(t, 24*time.Hour, mr.TTL("Learning:user:1:session:2:word:apple"))

	val, ok, err := c.Get(ctx, "Learning:user:1:session:2:word:apple")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"word":"apple"}`, string(val))

	mr.FastForward(25 * time.Hour)
	_, ok, err = c.Get(ctx, "Learning:user:1:session:2:word:apple")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheSetRejectsZeroTTL(t *testing.T) {
	c, _, _ := newTestCache(t)
	assert.Error(t, c.Set(context.Background(), "k", []byte("v"), 0))
}

func TestCacheKeysMatchesSessionPrefix(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	for _, k := range []string{
		"Learning:user:1:session:2:word:cat",
		"Learning:user:1:session:2:word:apple",
		"Learning:user:1:session:3:word:dog",
		"Song:user:1:session:2",
	} {
		require.NoError(t, c.Set(ctx, k, []byte("{}"), time.Hour))
	}
	keys, err := c.Keys(ctx, "Learning:user:1:session:2:word:*")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Learning:user:1:session:2:word:apple",
		"Learning:user:1:session:2:word:cat",
	}, keys)
}

func TestBusPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, _, rdb := newTestCache(t)
	b, err := NewBus(logger.Nop(), rdb, "test.events")
	require.NoError(t, err)

	got := make(chan Event, 1)
	require.NoError(t, b.Subscribe(ctx, func(ev Event) { got <- ev }))
	require.NoError(t, b.Publish(ctx, Event{Type: "word.ready", UserID: 1, SessionID: 2, Key: "k"}))

	select {
	case ev := <-got:
		assert.Equal(t, "word.ready", ev.Type)
		assert.Equal(t, int64(2), ev.SessionID)
	case <-time.After(2 * time.Second):
		t.Fatalf("event not delivered")
	}
}

func TestCacheGetReportsWrongType(t *testing.T) {
	c, mr, _ := newTestCache(t)
	mr.HSet("Learning:user:3:session:10:word:cat", "wordEn", "cat")

	_, ok, err := c.Get(context.Background(), "Learning:user:3:session:10:word:cat")
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrWrongType)
}
