package kairosrelay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshot(t *testing.T) {
	t.Parallel()

	const body = `{
		"counters": {"z.hits": 10, "a.hits": null},
		"counter_rates": {"z.hits": 1, "a.hits": 0.5},
		"timer_data": {
			"resp": {"mean": 4.5, "upper": 9, "histogram": {"bin_10": 3, "bin_inf": 1}}
		},
		"gauges": {"temp": -1.25},
		"sets": {"users": ["u1", "u2", "u1"], "pages": {"p1": 1, "p2": 1}, "ids": [1, 2]},
		"statsd_metrics": {"processing_time": 12},
		"pctThreshold": [90]
	}`

	s, err := DecodeSnapshot(strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, []NamedValue{{"z.hits", 10}, {"a.hits", 0}}, s.Counters)
	assert.Equal(t, 1.0, s.CounterRate("z.hits"))
	assert.Equal(t, 0.5, s.CounterRate("a.hits"))
	assert.Zero(t, s.CounterRate("missing"))

	require.Len(t, s.TimerData, 1)
	timer := s.TimerData[0]
	assert.Equal(t, "resp", timer.Name)
	require.Len(t, timer.Fields, 3)
	assert.Equal(t, Scalar("mean", 4.5), timer.Fields[0])
	assert.Equal(t, Scalar("upper", 9), timer.Fields[1])
	assert.True(t, timer.Fields[2].IsBreakdown())
	assert.Equal(t, []NamedValue{{"bin_10", 3}, {"bin_inf", 1}}, timer.Fields[2].Breakdown)

	assert.Equal(t, []NamedValue{{"temp", -1.25}}, s.Gauges)

	require.Len(t, s.Sets, 3)
	assert.Equal(t, "users", s.Sets[0].Name)
	assert.Equal(t, 2, s.Sets[0].Cardinality())
	assert.Equal(t, 2, s.Sets[1].Cardinality())
	assert.Equal(t, 2, s.Sets[2].Cardinality())

	assert.Equal(t, []NamedValue{{"processing_time", 12}}, s.StatsdMetrics)
}

func TestDecodeSnapshotEmpty(t *testing.T) {
	t.Parallel()

	s, err := DecodeSnapshot(strings.NewReader(`{}`))
	require.NoError(t, err)
	assert.Empty(t, s.Counters)
	assert.Empty(t, s.TimerData)
	assert.Empty(t, s.Sets)
	assert.NotNil(t, s.CounterRates)
}

func TestDecodeSnapshotMalformed(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		body string
	}{
		{"empty", ``},
		{"array", `[]`},
		{"truncated", `{"counters": {"a": 1`},
		{"string counter", `{"counters": {"a": "1"}}`},
		{"set of numbers", `{"sets": {"a": 1}}`},
	} {
		_, err := DecodeSnapshot(strings.NewReader(tc.body))
		assert.Error(t, err, tc.name)
	}
}

func TestSnapshotBreakdownIsNeverNil(t *testing.T) {
	t.Parallel()

	f := Breakdown("histogram")
	require.True(t, f.IsBreakdown())
	require.Empty(t, f.Breakdown)
	require.False(t, Scalar("mean", 1).IsBreakdown())
}
