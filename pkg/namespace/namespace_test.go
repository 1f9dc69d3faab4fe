package namespace

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	ns := New(DefaultOptions())
	require.Equal(t, []string{"stats"}, ns.Global)
	require.Equal(t, []string{"stats", "counters"}, ns.Counters)
	require.Equal(t, []string{"stats", "timers"}, ns.Timers)
	require.Equal(t, []string{"stats", "gauges"}, ns.Gauges)
	require.Equal(t, []string{"stats", "sets"}, ns.Sets)
	require.Equal(t, []string{"stats", "statsd"}, ns.Stats)
	require.Empty(t, ns.Suffix)
}

func TestNewIsIdempotent(t *testing.T) {
	t.Parallel()

	opts := Options{GlobalPrefix: "a.", PrefixCounter: ".c", PrefixTimer: "t", GlobalSuffix: "s"}
	require.Equal(t, New(opts), New(opts))
}

func TestNewOmitsEmptySegments(t *testing.T) {
	t.Parallel()

	ns := New(Options{
		GlobalPrefix:  "",
		PrefixCounter: "counters",
		PrefixTimer:   "",
		PrefixGauge:   "...",
		PrefixSet:     "sets",
		PrefixStats:   "statsd",
	})
	require.Empty(t, ns.Global)
	require.Equal(t, []string{"counters"}, ns.Counters)
	require.Empty(t, ns.Timers)
	require.Empty(t, ns.Gauges)
	for _, segs := range [][]string{ns.Global, ns.Counters, ns.Timers, ns.Gauges, ns.Sets, ns.Stats} {
		for _, s := range segs {
			require.NotEmpty(t, s)
		}
	}
}

func TestJoin(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name     string
		opts     Options
		parts    []string
		expected string
	}{
		{
			name:     "defaults",
			opts:     DefaultOptions(),
			parts:    []string{"hits", "rate"},
			expected: "stats.counters.hits.rate",
		},
		{
			name:     "suffix",
			opts:     Options{GlobalPrefix: "stats", PrefixCounter: "counters", GlobalSuffix: ".host1."},
			parts:    []string{"hits", "count"},
			expected: "stats.counters.hits.count.host1",
		},
		{
			name:     "no prefixes",
			opts:     Options{},
			parts:    []string{"hits", "rate"},
			expected: "hits.rate",
		},
		{
			name:     "normalized key",
			opts:     DefaultOptions(),
			parts:    []string{"api hits/sec#1", "rate"},
			expected: "stats.counters.api_hits-sec1.rate",
		},
		{
			name:     "empty part skipped",
			opts:     DefaultOptions(),
			parts:    []string{"", "rate"},
			expected: "stats.counters.rate",
		},
		{
			name:     "key normalized away",
			opts:     DefaultOptions(),
			parts:    []string{"!!!", "rate"},
			expected: "stats.counters.rate",
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ns := New(tc.opts)
			require.Equal(t, tc.expected, ns.Join(ns.Counters, tc.parts...))
		})
	}
}

func TestNewFromViper(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set(ParamGlobalPrefix, "")
	v.Set(ParamPrefixGauge, "g")
	v.Set(ParamGlobalSuffix, "dc1")
	ns := NewFromViper(v)

	require.Empty(t, ns.Global)
	require.Equal(t, []string{"counters"}, ns.Counters)
	require.Equal(t, []string{"g"}, ns.Gauges)
	require.Equal(t, []string{"statsd"}, ns.Stats)
	require.Equal(t, "g.temp.dc1", ns.Join(ns.Gauges, "temp"))
}

func TestNewFromViperDefaults(t *testing.T) {
	t.Parallel()

	require.Equal(t, New(DefaultOptions()), NewFromViper(viper.New()))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a_b-c.d", Normalize("a \tb/c.d!"))
}
