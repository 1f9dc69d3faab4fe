package selfstats

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type statusLine struct {
	err   error
	group string
	name  string
	value int64
}

func TestReporterStartsAtZero(t *testing.T) {
	t.Parallel()

	require.Equal(t, Record{}, NewReporter().Record())
}

func TestFlushedSetsOnlyFlushFields(t *testing.T) {
	t.Parallel()

	r := NewReporter()
	r.RecordFlushLength(512)
	r.RecordException(time.Unix(100, 0))
	r.Flushed(time.Unix(1500, 999999999), 42*time.Millisecond+500*time.Microsecond)

	require.Equal(t, Record{
		LastFlush:     1500,
		LastException: 100,
		FlushTime:     42,
		FlushLength:   512,
	}, r.Record())
}

func TestStatusWritesEveryField(t *testing.T) {
	t.Parallel()

	r := NewReporter()
	r.Flushed(time.Unix(10, 0), 3*time.Millisecond)

	var lines []statusLine
	r.Status(func(err error, group, name string, value int64) {
		lines = append(lines, statusLine{err, group, name, value})
	})
	require.Equal(t, []statusLine{
		{nil, "kairosdb", "last_flush", 10},
		{nil, "kairosdb", "last_exception", 0},
		{nil, "kairosdb", "flush_time", 3},
		{nil, "kairosdb", "flush_length", 0},
	}, lines)
}

func TestRecordValuesOrder(t *testing.T) {
	t.Parallel()

	values := Record{LastFlush: 1, LastException: 2, FlushTime: 3, FlushLength: 4}.Values()
	require.Len(t, values, 4)
	require.Equal(t, "last_exception", values[0].Name)
	require.EqualValues(t, 2, values[0].Value)
	require.Equal(t, "last_flush", values[1].Name)
	require.Equal(t, "flush_time", values[2].Name)
	require.Equal(t, "flush_length", values[3].Name)
}

func TestCollect(t *testing.T) {
	t.Parallel()

	r := NewReporter()
	r.Flushed(time.Unix(7, 0), 0)
	expected := `
# HELP kairosrelay_kairosdb_last_flush Unix time of the start of the last flush.
# TYPE kairosrelay_kairosdb_last_flush gauge
kairosrelay_kairosdb_last_flush 7
`
	require.NoError(t, testutil.CollectAndCompare(r, strings.NewReader(expected), "kairosrelay_kairosdb_last_flush"))
	require.Equal(t, 4, testutil.CollectAndCount(r))
}
