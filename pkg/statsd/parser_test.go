package statsd

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlassian/kairosrelay"
	"github.com/atlassian/kairosrelay/internal/fixtures"
	"github.com/atlassian/kairosrelay/pkg/namespace"
)

func newTestParser() *Parser {
	return NewParser(namespace.New(namespace.DefaultOptions()), kairosrelay.NewTags(nil))
}

type nv struct {
	name  string
	value float64
}

func TestParseLine(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		line     string
		expected []nv
		errs     []error
	}{
		{line: "hits:3|c", expected: []nv{{"stats.counters.hits.count", 3}}},
		{line: "hits:|c", expected: []nv{{"stats.counters.hits.count", 1}}},
		{line: "hits:1|c|@0.5", expected: []nv{{"stats.counters.hits.count", 2}}},
		{line: "req:320|ms", expected: []nv{{"stats.timers.req", 320}}},
		{line: "req:12.5|h", expected: []nv{{"stats.timers.req", 12.5}}},
		{line: "temp:21|g", expected: []nv{{"stats.gauges.temp", 21}}},
		{line: "my key/x:1|g", expected: []nv{{"stats.gauges.my_key-x", 1}}},
		{line: "multi:1|c:2|ms:3|g", expected: []nv{
			{"stats.counters.multi.count", 1},
			{"stats.timers.multi", 2},
			{"stats.gauges.multi", 3},
		}},
		{line: "temp:+3|g", errs: []error{errUnsupported}},
		{line: "temp:-3|g", errs: []error{errUnsupported}},
		{line: "users:bob|s", errs: []error{errUnsupported}},
		{line: "mixed:x|c:4|ms", expected: []nv{{"stats.timers.mixed", 4}}, errs: []error{errBadLine}},
		{line: "hits:1|c|0.5", errs: []error{errBadLine}},
		{line: "hits:1|c|@2", errs: []error{errBadLine}},
		{line: "hits:1|zz", errs: []error{errBadLine}},
		{line: "hits:1", errs: []error{errBadLine}},
		{line: "hits", errs: []error{errBadLine}},
		{line: ":1|c", errs: []error{errBadLine}},
		{line: "req:abc|ms", errs: []error{errBadLine}},
		{line: "   "},
	} {
		tc := tc
		t.Run(tc.line, func(t *testing.T) {
			t.Parallel()
			dps, errs := newTestParser().ParseLine([]byte(tc.line), time.Unix(10, 0), "")
			var got []nv
			for _, dp := range dps {
				got = append(got, nv{dp.Name, dp.Value})
				assert.Equal(t, int64(10), dp.Timestamp.Unix())
			}
			require.Equal(t, tc.expected, got)
			require.Len(t, errs, len(tc.errs))
			for i, err := range errs {
				require.True(t, errors.Is(err, tc.errs[i]), "%v", err)
			}
		})
	}
}

func TestParseLineClientTag(t *testing.T) {
	t.Parallel()

	p := NewParser(namespace.New(namespace.DefaultOptions()), kairosrelay.NewTags(map[string]string{"env": "dev"}))
	dps, errs := p.ParseLine([]byte("hits:1|c"), time.Unix(10, 0), "10.0.0.7")
	require.Empty(t, errs)
	require.Equal(t, kairosrelay.Tags{"source": "statsd", "env": "dev", "client": "10.0.0.7"}, dps[0].Tags)

	// the shared tags are never modified
	dps, _ = p.ParseLine([]byte("hits:1|c"), time.Unix(10, 0), "")
	require.Equal(t, kairosrelay.Tags{"source": "statsd", "env": "dev"}, dps[0].Tags)
	require.Nil(t, fixtures.Find(dps, "missing"))
}
