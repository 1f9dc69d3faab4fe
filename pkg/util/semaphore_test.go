package util

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphoreBoundsHolders(t *testing.T) {
	t.Parallel()

	for _, limit := range []int{1, 3, 10} {
		s := NewSemaphore(limit)
		var holders, peak int64
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !s.Acquire(context.Background()) {
					return
				}
				n := atomic.AddInt64(&holders, 1)
				for {
					p := atomic.LoadInt64(&peak)
					if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt64(&holders, -1)
				s.Release()
			}()
		}
		wg.Wait()
		assert.LessOrEqual(t, peak, int64(limit), "limit %d", limit)
	}
}

func TestSemaphoreFullHonoursContext(t *testing.T) {
	t.Parallel()

	s := NewSemaphore(1)
	require.True(t, s.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.False(t, s.Acquire(ctx))

	s.Release()
	require.True(t, s.Acquire(context.Background()))
}

func TestSemaphoreUnlimited(t *testing.T) {
	t.Parallel()

	s := NewSemaphore(0)
	for i := 0; i < 1000; i++ {
		require.True(t, s.Acquire(context.Background()))
	}
	for i := 0; i < 1000; i++ {
		s.Release()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, s.Acquire(ctx))
}
