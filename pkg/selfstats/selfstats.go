package selfstats

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/atlassian/kairosrelay"
)

// Group is the status group every field is reported under.
const Group = "kairosdb"

const (
	FieldLastException = "last_exception"
	FieldLastFlush     = "last_flush"
	FieldFlushTime     = "flush_time"
	FieldFlushLength   = "flush_length"
)

// Record is a point in time copy of the self-stats.
type Record struct {
	LastFlush     int64 // unix seconds
	LastException int64 // unix seconds
	FlushTime     int64 // milliseconds
	FlushLength   int64 // bytes
}

// Values returns the record in emission order.
func (r Record) Values() []kairosrelay.NamedValue {
	return []kairosrelay.NamedValue{
		{Name: FieldLastException, Value: float64(r.LastException)},
		{Name: FieldLastFlush, Value: float64(r.LastFlush)},
		{Name: FieldFlushTime, Value: float64(r.FlushTime)},
		{Name: FieldFlushLength, Value: float64(r.FlushLength)},
	}
}

// Reporter tracks the self-stats. It is safe for concurrent use.
type Reporter struct {
	lastFlush     atomic.Int64
	lastException atomic.Int64
	flushTime     atomic.Int64
	flushLength   atomic.Int64

	descs map[string]*prometheus.Desc
}

var _ prometheus.Collector = (*Reporter)(nil)

// NewReporter returns a Reporter with every field zero.
func NewReporter() *Reporter {
	r := &Reporter{
		descs: map[string]*prometheus.Desc{},
	}
	for name, help := range map[string]string{
		FieldLastFlush:     "Unix time of the start of the last flush.",
		FieldLastException: "Unix time of the last recorded exception.",
		FieldFlushTime:     "Milliseconds spent emitting self-stats during the last flush.",
		FieldFlushLength:   "Length in bytes of the last recorded flush payload.",
	} {
		r.descs[name] = prometheus.NewDesc(prometheus.BuildFQName("kairosrelay", Group, name), help, nil, nil)
	}
	return r
}

// Record returns the current values.
func (r *Reporter) Record() Record {
	return Record{
		LastFlush:     r.lastFlush.Load(),
		LastException: r.lastException.Load(),
		FlushTime:     r.flushTime.Load(),
		FlushLength:   r.flushLength.Load(),
	}
}

// Flushed is called once a flush completed. start is the flush start, emit the time spent
// emitting the self-stats datapoints. Only that step is counted as the flush time.
func (r *Reporter) Flushed(start time.Time, emit time.Duration) {
	r.lastFlush.Store(start.Unix())
	r.flushTime.Store(emit.Milliseconds())
}

// RecordException sets last_exception. Nothing in the flush path calls it.
func (r *Reporter) RecordException(ts time.Time) {
	r.lastException.Store(ts.Unix())
}

// RecordFlushLength sets flush_length. Nothing in the flush path calls it.
func (r *Reporter) RecordFlushLength(n int64) {
	r.flushLength.Store(n)
}

// Status writes every field through write, with a nil error.
func (r *Reporter) Status(write kairosrelay.StatusWriter) {
	rec := r.Record()
	write(nil, Group, FieldLastFlush, rec.LastFlush)
	write(nil, Group, FieldLastException, rec.LastException)
	write(nil, Group, FieldFlushTime, rec.FlushTime)
	write(nil, Group, FieldFlushLength, rec.FlushLength)
}

// Describe implements prometheus.Collector.
func (r *Reporter) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range r.descs {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (r *Reporter) Collect(ch chan<- prometheus.Metric) {
	r.Status(func(_ error, _ string, name string, value int64) {
		ch <- prometheus.MustNewConstMetric(r.descs[name], prometheus.GaugeValue, float64(value))
	})
}
