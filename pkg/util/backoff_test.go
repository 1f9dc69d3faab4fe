package util

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/require"
	"github.com/tilinna/clock"
)

func TestConstantBackoffNeverGrows(t *testing.T) {
	t.Parallel()
	f := NewConstantBackoffFactory(1500*time.Millisecond, clock.Realtime())
	bo := f()
	for i := 0; i < 50; i++ {
		require.Equal(t, 1500*time.Millisecond, bo.NextBackOff())
	}
}

func TestConstantBackoffNeverStops(t *testing.T) {
	t.Parallel()
	clck := clock.NewMock(time.Unix(1, 0))
	f := NewConstantBackoffFactory(time.Second, clck)
	bo := f()
	clck.Add(24 * time.Hour)
	require.NotEqual(t, backoff.Stop, bo.NextBackOff())
}

func TestConstantBackoffFactoryIsolated(t *testing.T) {
	t.Parallel()
	f := NewConstantBackoffFactory(10*time.Millisecond, clock.Realtime())
	a, b := f(), f()
	require.NotSame(t, a, b)
	require.Equal(t, a.NextBackOff(), b.NextBackOff())
}
