package fixtures

import (
	"github.com/atlassian/kairosrelay"
)

type SnapshotOpt func(s *kairosrelay.Snapshot)

// MakeSnapshot builds a snapshot for tests, metrics are kept in the order of opts.
func MakeSnapshot(opts ...SnapshotOpt) *kairosrelay.Snapshot {
	s := kairosrelay.NewSnapshot()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func Counter(name string, count, rate float64) SnapshotOpt {
	return func(s *kairosrelay.Snapshot) {
		s.Counters = append(s.Counters, kairosrelay.NamedValue{Name: name, Value: count})
		s.CounterRates[name] = rate
	}
}

func Timer(name string, fields ...kairosrelay.TimerField) SnapshotOpt {
	return func(s *kairosrelay.Snapshot) {
		s.TimerData = append(s.TimerData, kairosrelay.Timer{Name: name, Fields: fields})
	}
}

func Gauge(name string, value float64) SnapshotOpt {
	return func(s *kairosrelay.Snapshot) {
		s.Gauges = append(s.Gauges, kairosrelay.NamedValue{Name: name, Value: value})
	}
}

func Set(name string, members ...string) SnapshotOpt {
	return func(s *kairosrelay.Snapshot) {
		s.Sets = append(s.Sets, kairosrelay.NewSet(name, members...))
	}
}

func StatsdMetric(name string, value float64) SnapshotOpt {
	return func(s *kairosrelay.Snapshot) {
		s.StatsdMetrics = append(s.StatsdMetrics, kairosrelay.NamedValue{Name: name, Value: value})
	}
}

// Names returns the names of dps, in order.
func Names(dps []*kairosrelay.Datapoint) []string {
	names := make([]string, 0, len(dps))
	for _, dp := range dps {
		names = append(names, dp.Name)
	}
	return names
}

// Find returns the first datapoint named name, or nil.
func Find(dps []*kairosrelay.Datapoint, name string) *kairosrelay.Datapoint {
	for _, dp := range dps {
		if dp.Name == name {
			return dp
		}
	}
	return nil
}
