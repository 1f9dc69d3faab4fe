// Package transform turns an aggregated snapshot into the ordered datapoints of one flush.
package transform

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tilinna/clock"

	"github.com/atlassian/kairosrelay"
	"github.com/atlassian/kairosrelay/pkg/namespace"
	"github.com/atlassian/kairosrelay/pkg/selfstats"
)

const (
	// DefaultFlushCounts controls whether counters also emit their raw count.
	DefaultFlushCounts = true

	ParamFlushCounts = "flush_counts"
	ParamTags        = "tags"
)

const (
	suffixRate  = "rate"
	suffixCount = "count"

	statNumStats        = "numStats"
	statGroup           = "kairosdbStats"
	statCalculationTime = "calculationtime"
)

// Transformer maps snapshots to datapoints. It holds no per-flush state.
type Transformer struct {
	ns          *namespace.Namespaces
	tags        kairosrelay.Tags
	flushCounts bool
}

// New creates a Transformer. tags are attached to every datapoint.
func New(ns *namespace.Namespaces, tags kairosrelay.Tags, flushCounts bool) *Transformer {
	return &Transformer{
		ns:          ns,
		tags:        tags,
		flushCounts: flushCounts,
	}
}

// NewFromViper creates a Transformer from the kairosdb configuration sub-tree.
func NewFromViper(v *viper.Viper) *Transformer {
	v.SetDefault(ParamFlushCounts, DefaultFlushCounts)
	v.SetDefault(ParamTags, map[string]string{})
	return New(
		namespace.NewFromViper(v),
		tagsFromViper(v),
		v.GetBool(ParamFlushCounts),
	)
}

// tagsFromViper reads the configured tags, either as a mapping or as a list of "key:value"
// entries. Viper lower-cases the keys of a mapping read from a config file, the list form keeps
// them as written.
func tagsFromViper(v *viper.Viper) kairosrelay.Tags {
	switch v.Get(ParamTags).(type) {
	case []interface{}, []string, string:
		configured := map[string]string{}
		for _, tag := range v.GetStringSlice(ParamTags) {
			key, value, ok := strings.Cut(tag, ":")
			key = strings.TrimSpace(key)
			if !ok || key == "" {
				continue
			}
			configured[key] = strings.TrimSpace(value)
		}
		return kairosrelay.NewTags(configured)
	default:
		return kairosrelay.NewTags(v.GetStringMapString(ParamTags))
	}
}

// Namespaces returns the namespaces names are built from.
func (t *Transformer) Namespaces() *namespace.Namespaces {
	return t.ns
}

// Tags returns the tags attached to every datapoint.
func (t *Transformer) Tags() kairosrelay.Tags {
	return t.tags
}

// Result describes a completed Transform.
type Result struct {
	// NumStats is the number of metric keys processed.
	NumStats int
	// StatsTime is the time spent emitting the self-stats datapoints.
	StatsTime time.Duration
}

// Transform emits the datapoints for snap through add, in order: counters, timers, gauges,
// sets, then the self-reporting datapoints sourced from snap and rec.
func (t *Transformer) Transform(ctx context.Context, ts time.Time, snap *kairosrelay.Snapshot, rec selfstats.Record, add func(*kairosrelay.Datapoint)) Result {
	clck := clock.FromContext(ctx)
	start := clck.Now()
	emit := func(segs []string, value float64, parts ...string) {
		add(kairosrelay.NewDatapoint(t.ns.Join(segs, parts...), ts, value, t.tags))
	}

	numStats := 0
	for _, c := range snap.Counters {
		emit(t.ns.Counters, snap.CounterRate(c.Name), c.Name, suffixRate)
		if t.flushCounts {
			emit(t.ns.Counters, c.Value, c.Name, suffixCount)
		}
		numStats++
	}
	for _, timer := range snap.TimerData {
		for _, field := range timer.Fields {
			if field.IsBreakdown() {
				for _, sub := range field.Breakdown {
					emit(t.ns.Timers, sub.Value, timer.Name, field.Name, sub.Name)
				}
			} else {
				emit(t.ns.Timers, field.Value, timer.Name, field.Name)
			}
		}
		numStats++
	}
	for _, g := range snap.Gauges {
		emit(t.ns.Gauges, g.Value, g.Name)
		numStats++
	}
	for _, s := range snap.Sets {
		emit(t.ns.Sets, float64(s.Cardinality()), s.Name, suffixCount)
		numStats++
	}

	statsStart := clck.Now()
	emit(t.ns.Stats, float64(numStats), statNumStats)
	emit(t.ns.Stats, float64(clck.Since(start).Milliseconds()), statGroup, statCalculationTime)
	for _, m := range snap.StatsdMetrics {
		emit(t.ns.Stats, m.Value, m.Name)
	}
	for _, f := range rec.Values() {
		emit(t.ns.Stats, f.Value, statGroup, f.Name)
	}

	return Result{
		NumStats:  numStats,
		StatsTime: clck.Since(statsStart),
	}
}
