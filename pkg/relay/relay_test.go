package relay

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/atlassian/kairosrelay"
	"github.com/atlassian/kairosrelay/internal/fixtures"
	"github.com/atlassian/kairosrelay/pkg/backends/rest"
	"github.com/atlassian/kairosrelay/pkg/healthcheck"
	"github.com/atlassian/kairosrelay/pkg/selfstats"
	"github.com/atlassian/kairosrelay/pkg/transport"
)

func waitClosed(t *testing.T, b *fixtures.CapturingBackend) {
	select {
	case <-b.Closed():
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting for flush")
	}
}

func TestOnFlushScenario(t *testing.T) {
	t.Parallel()

	b := fixtures.NewCapturingBackend()
	r := NewFromViper(viper.New(), fixtures.NewTestLogger(t), b)
	ctx, _ := fixtures.NewMockClock(context.Background(), time.Unix(2000, 0))

	r.OnFlush(ctx, time.Unix(1990, 0), fixtures.MakeSnapshot(fixtures.Counter("hits", 10, 2)))
	waitClosed(t, b)

	flushes := b.Flushes()
	require.Len(t, flushes, 1)
	dps := flushes[0].Datapoints
	require.Equal(t, []string{
		"stats.counters.hits.rate",
		"stats.counters.hits.count",
		"stats.statsd.numStats",
		"stats.statsd.kairosdbStats.calculationtime",
		"stats.statsd.kairosdbStats.last_exception",
		"stats.statsd.kairosdbStats.last_flush",
		"stats.statsd.kairosdbStats.flush_time",
		"stats.statsd.kairosdbStats.flush_length",
	}, fixtures.Names(dps))
	require.EqualValues(t, 2, dps[0].Value)
	require.EqualValues(t, 10, dps[1].Value)
	require.EqualValues(t, 1, dps[2].Value)
	require.EqualValues(t, 0, dps[5].Value) // no previous flush
	require.Equal(t, time.Unix(1990, 0), flushes[0].Timestamp)
}

func TestSelfStatsUpdatedAfterFlush(t *testing.T) {
	t.Parallel()

	b := fixtures.NewCapturingBackend()
	r := NewFromViper(viper.New(), fixtures.NewTestLogger(t), b)
	ctx, clck := fixtures.NewMockClock(context.Background(), time.Unix(2000, 0))

	r.OnFlush(ctx, time.Unix(2000, 0), kairosrelay.NewSnapshot())
	waitClosed(t, b)
	require.EqualValues(t, 2000, r.Stats().Record().LastFlush)

	clck.Add(10 * time.Second)
	r.OnFlush(ctx, time.Unix(2010, 0), kairosrelay.NewSnapshot())
	waitClosed(t, b)

	second := b.Flushes()[1].Datapoints
	require.EqualValues(t, 2000, fixtures.Find(second, "stats.statsd.kairosdbStats.last_flush").Value)
	require.EqualValues(t, 2010, r.Stats().Record().LastFlush)

	var fields []string
	r.Status(func(err error, group, name string, value int64) {
		require.NoError(t, err)
		require.Equal(t, selfstats.Group, group)
		fields = append(fields, name)
	})
	require.Equal(t, []string{"last_flush", "last_exception", "flush_time", "flush_length"}, fields)
}

func TestForward(t *testing.T) {
	t.Parallel()

	b := fixtures.NewCapturingBackend()
	r := New(fixtures.NewTestLogger(t), b, nil, selfstats.NewReporter())

	r.Forward(context.Background(), time.Unix(1, 0), nil)
	r.Forward(context.Background(), time.Unix(1, 0), []*kairosrelay.Datapoint{
		kairosrelay.NewDatapoint("stats.counters.x.count", time.Unix(1, 0), 1, kairosrelay.NewTags(nil).WithClient("10.1.1.1")),
	})
	waitClosed(t, b)

	flushes := b.Flushes()
	require.Len(t, flushes, 1)
	require.Equal(t, "10.1.1.1", flushes[0].Datapoints[0].Tags[kairosrelay.TagClient])
	require.Zero(t, r.Stats().Record().LastFlush)
}

func TestFailedSendIsLoggedAndNextFlushProceeds(t *testing.T) {
	t.Parallel()

	var requests int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&requests, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	logger, hook := fixtures.NewCapturingLogger(t)
	v := viper.New()
	host, port, err := net.SplitHostPort(ts.Listener.Addr().String())
	require.NoError(t, err)
	v.Set("kairosdb.host", host)
	v.Set("kairosdb.port", port)
	b, err := rest.NewClientFromViper(v, logger, transport.NewTransportPool(logger, v))
	require.NoError(t, err)
	r := NewFromViper(v, logger, b)

	for i := 0; i < 2; i++ {
		require.NotPanics(t, func() {
			r.OnFlush(context.Background(), time.Unix(int64(1000+i), 0), fixtures.MakeSnapshot(fixtures.Gauge("g", 1)))
		})
	}
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&requests) == 2
	}, 5*time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		return len(fixtures.Messages(hook, logrus.WarnLevel)) == 1
	}, 5*time.Second, time.Millisecond)
	require.Equal(t, "failed to send datapoints", fixtures.Messages(hook, logrus.WarnLevel)[0])
}

func TestHealthChecks(t *testing.T) {
	t.Parallel()

	r := NewFromViper(viper.New(), fixtures.NewTestLogger(t), fixtures.NewCapturingBackend())
	checks := r.HealthChecks()
	require.Len(t, checks, 1)
	msg, status := checks[0]()
	require.Equal(t, "relay using capturing backend", msg)
	require.Equal(t, healthcheck.Healthy, status)
}
