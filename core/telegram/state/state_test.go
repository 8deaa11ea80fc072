package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState int

const (
	stateIdle testState = iota
	stateAwaiting
)

type testFields struct {
	Author string `json:"author"`
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[testState, testFields](time.Minute)

	_, ok, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	sess := Session[testState, testFields]{State: stateAwaiting, ChatID: 10}
	sess.Fields.Author = "Роулинг"
	sess.Track(5, 0, 6)
	require.NoError(t, store.Save(ctx, 1, sess))

	got, ok, err := store.Load(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stateAwaiting, got.State)
	assert.Equal(t, "Роулинг", got.Fields.Author)
	assert.Equal(t, []int{5, 6}, got.Tracked)
	assert.False(t, got.UpdatedAt.IsZero())

	got.Tracked[0] = 99
	again, _, _ := store.Load(ctx, 1)
	assert.Equal(t, 5, again.Tracked[0], "loaded sessions are copies")

	require.NoError(t, store.Erase(ctx, 1))
	require.NoError(t, store.Erase(ctx, 1))
	_, ok, _ = store.Load(ctx, 1)
	assert.False(t, ok)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore[testState, testFields](10 * time.Minute)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, 1, Session[testState, testFields]{State: stateAwaiting}))
	require.NoError(t, store.Save(ctx, 2, Session[testState, testFields]{State: stateAwaiting}))

	now = now.Add(5 * time.Minute)
	_, ok, _ := store.Load(ctx, 1)
	assert.True(t, ok)

	now = now.Add(6 * time.Minute)
	_, ok, _ = store.Load(ctx, 1)
	assert.False(t, ok, "idle session is discarded on load")
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, store.Sweep())
	assert.Zero(t, store.Len())
}

func TestSessionTakeTracked(t *testing.T) {
	var s Session[testState, testFields]
	s.Track(1, 2)
	assert.Equal(t, []int{1, 2}, s.TakeTracked())
	assert.Empty(t, s.TakeTracked())

	now := time.Now()
	s.UpdatedAt = now.Add(-time.Hour)
	assert.True(t, s.Expired(now, time.Minute))
	assert.False(t, s.Expired(now, 0))
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	titles := NewRedisStore[testState, testFields](client, "bookbot:session:title", time.Minute)
	authors := NewRedisStore[testState, testFields](client, "bookbot:session:author", time.Minute)

	sess := Session[testState, testFields]{State: stateAwaiting, ChatID: 7}
	sess.Track(11)
	require.NoError(t, titles.Save(ctx, 42, sess))
	assert.True(t, mr.Exists("bookbot:session:title:42"))

	got, ok, err := titles.Load(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stateAwaiting, got.State)
	assert.Equal(t, []int{11}, got.Tracked)

	_, ok, err = authors.Load(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok, "workflows do not share sessions")

	mr.FastForward(2 * time.Minute)
	_, ok, err = titles.Load(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, titles.Save(ctx, 42, sess))
	require.NoError(t, titles.Erase(ctx, 42))
	_, ok, _ = titles.Load(ctx, 42)
	assert.False(t, ok)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, mr.Set("s:1", "{not json"))

	store := NewRedisStore[testState, testFields](client, "s", time.Minute)
	_, ok, err := store.Load(context.Background(), 1)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestLockerSerializesUser(t *testing.T) {
	locker := NewLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock(1)
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, locker.Active())
}
