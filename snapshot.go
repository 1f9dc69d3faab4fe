package kairosrelay

// NamedValue is a metric name and its numeric value.
type NamedValue struct {
	Name  string
	Value float64
}

// TimerField is one field of a timer's aggregated data. It is either a scalar, or a breakdown
// of named sub-values such as percentiles. Breakdown is non-nil exactly when the field is a breakdown.
type TimerField struct {
	Name      string
	Value     float64
	Breakdown []NamedValue
}

// Scalar creates a scalar TimerField.
func Scalar(name string, value float64) TimerField {
	return TimerField{Name: name, Value: value}
}

// Breakdown creates a TimerField holding named sub-values.
func Breakdown(name string, values ...NamedValue) TimerField {
	if values == nil {
		values = []NamedValue{}
	}
	return TimerField{Name: name, Breakdown: values}
}

// IsBreakdown reports whether the field holds sub-values rather than a single value.
func (f TimerField) IsBreakdown() bool {
	return f.Breakdown != nil
}

// Timer is the aggregated data of a single timer.
type Timer struct {
	Name   string
	Fields []TimerField
}

// Set is an aggregated set. Only its cardinality is sent downstream.
type Set struct {
	Name   string
	Values map[string]struct{}
}

// NewSet creates a Set from its members, duplicates collapse.
func NewSet(name string, members ...string) Set {
	values := make(map[string]struct{}, len(members))
	for _, m := range members {
		values[m] = struct{}{}
	}
	return Set{Name: name, Values: values}
}

// Cardinality returns the number of distinct members.
func (s Set) Cardinality() int {
	return len(s.Values)
}

// Snapshot is the aggregated state handed over by the aggregator on every flush.
// Slices keep the order in which the aggregator produced the metrics.
type Snapshot struct {
	Counters      []NamedValue
	CounterRates  map[string]float64 // keyed by counter name
	TimerData     []Timer
	Gauges        []NamedValue
	Sets          []Set
	StatsdMetrics []NamedValue // the aggregator's own metrics
}

// NewSnapshot returns an empty Snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		CounterRates: map[string]float64{},
	}
}

// CounterRate returns the pre-computed rate of the named counter, 0 if there is none.
func (s *Snapshot) CounterRate(name string) float64 {
	return s.CounterRates[name]
}
