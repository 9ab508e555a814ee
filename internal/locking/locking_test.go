package locking

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal(0)
	ctx := context.Background()

	var inFlight, maxInFlight int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "conv-1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight)
	assert.Zero(t, l.size())
}

func TestLocalDifferentKeysDoNotContend(t *testing.T) {
	l := NewLocal(50 * time.Millisecond)
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestLocalBusyAfterWait(t *testing.T) {
	l := NewLocal(20 * time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "conv-1")
	require.NoError(t, err)

	_, err = l.Lock(ctx, "conv-1")
	assert.ErrorIs(t, err, ErrBusy)

	unlock()
	unlock()

	again, err := l.Lock(ctx, "conv-1")
	require.NoError(t, err)
	again()
	assert.Zero(t, l.size())
}

func TestLocalHonoursContext(t *testing.T) {
	l := NewLocal(0)
	unlock, err := l.Lock(context.Background(), "conv-1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "conv-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	l := NewRedis(client, 2*time.Second, 50*time.Millisecond, zap.NewNop())
	key := "test-" + time.Now().Format("150405.000000")

	unlock, err := l.Lock(ctx, key)
	require.NoError(t, err)

	_, err = l.Lock(ctx, key)
	assert.ErrorIs(t, err, ErrBusy)

	unlock()

	again, err := l.Lock(ctx, key)
	require.NoError(t, err)
	again()
}
