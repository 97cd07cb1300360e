package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStoreRoundTrip(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	store := NewStore(redis.NewClient(&redis.Options{Addr: mini.Addr()}), zerolog.Nop())
	ctx := context.Background()

	store.Set(ctx, "sample", sample{Name: "first", Count: 2}, time.Minute)

	var got sample
	require.NoError(t, store.Get(ctx, "sample", &got))
	require.Equal(t, sample{Name: "first", Count: 2}, got)

	store.Delete(ctx, "sample")
	require.ErrorIs(t, store.Get(ctx, "sample", &got), ErrCacheMiss)
}

func TestStoreMissOnAbsentKey(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	store := NewStore(redis.NewClient(&redis.Options{Addr: mini.Addr()}), zerolog.Nop())

	var got sample
	require.ErrorIs(t, store.Get(context.Background(), "missing", &got), ErrCacheMiss)
}

func TestStoreNilClientDegradesToMiss(t *testing.T) {
	store := NewStore(nil, zerolog.Nop())
	ctx := context.Background()

	// Writes are no-ops and reads always miss, but nothing fails.
	store.Set(ctx, "key", sample{Name: "ignored"}, time.Minute)
	store.Delete(ctx, "key")

	var got sample
	require.ErrorIs(t, store.Get(ctx, "key", &got), ErrCacheMiss)
}

func TestStoreUnreachableClientDegradesToMiss(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	store := NewStore(client, zerolog.Nop())
	ctx := context.Background()

	store.Set(ctx, "key", sample{Name: "kept"}, time.Minute)

	// Simulate the cache going away mid-flight.
	mini.Close()

	var got sample
	require.ErrorIs(t, store.Get(ctx, "key", &got), ErrCacheMiss)

	// Writes against the dead cache are swallowed.
	store.Set(ctx, "key", sample{Name: "dropped"}, time.Minute)
	store.Delete(ctx, "key")
}

func TestStoreUndecodableValueDegradesToMiss(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	require.NoError(t, mini.Set("bad", "not-json{"))

	store := NewStore(redis.NewClient(&redis.Options{Addr: mini.Addr()}), zerolog.Nop())

	var got sample
	require.ErrorIs(t, store.Get(context.Background(), "bad", &got), ErrCacheMiss)
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	locks := NewKeyedMutex()

	var mu sync.Mutex
	order := []int{}

	locks.Lock("tc-1")

	done := make(chan struct{})
	go func() {
		locks.Lock("tc-1")
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		locks.Unlock("tc-1")
		close(done)
	}()

	// An unrelated key is not blocked.
	locks.Lock("tc-2")
	locks.Unlock("tc-2")

	mu.Lock()
	order = append(order, 1)
	mu.Unlock()
	locks.Unlock("tc-1")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second locker never ran")
	}

	require.Equal(t, []int{1, 2}, order)
}
