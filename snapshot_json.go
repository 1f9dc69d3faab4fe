package kairosrelay

import (
	"errors"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var errMalformedSnapshot = errors.New("malformed snapshot")

// DecodeSnapshot reads a JSON snapshot of the form
//
//	{"counters": {...}, "counter_rates": {...}, "timer_data": {...},
//	 "gauges": {...}, "sets": {...}, "statsd_metrics": {...}}
//
// Object key order is preserved. Timer fields holding an object become breakdowns. Set
// members are given either as an array or as the keys of an object. null values read as 0.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	iter := jsoniter.Parse(jsoniter.ConfigFastest, r, 4096)
	s := NewSnapshot()
	ok := iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		switch field {
		case "counters":
			s.Counters = readNamedValues(it)
		case "counter_rates":
			for _, nv := range readNamedValues(it) {
				s.CounterRates[nv.Name] = nv.Value
			}
		case "timer_data":
			it.ReadObjectCB(func(it *jsoniter.Iterator, name string) bool {
				s.TimerData = append(s.TimerData, Timer{Name: name, Fields: readTimerFields(it)})
				return it.Error == nil
			})
		case "gauges":
			s.Gauges = readNamedValues(it)
		case "sets":
			it.ReadObjectCB(func(it *jsoniter.Iterator, name string) bool {
				s.Sets = append(s.Sets, NewSet(name, readMembers(it)...))
				return it.Error == nil
			})
		case "statsd_metrics":
			s.StatsdMetrics = readNamedValues(it)
		default:
			it.Skip()
		}
		return it.Error == nil
	})
	if !ok {
		switch iter.Error {
		case nil:
			return nil, errMalformedSnapshot
		case io.EOF:
			return nil, io.ErrUnexpectedEOF
		default:
			return nil, iter.Error
		}
	}
	return s, nil
}

func readNamedValues(it *jsoniter.Iterator) []NamedValue {
	values := []NamedValue{}
	it.ReadObjectCB(func(it *jsoniter.Iterator, name string) bool {
		values = append(values, NamedValue{Name: name, Value: readNumber(it)})
		return it.Error == nil
	})
	return values
}

func readTimerFields(it *jsoniter.Iterator) []TimerField {
	var fields []TimerField
	it.ReadObjectCB(func(it *jsoniter.Iterator, name string) bool {
		if it.WhatIsNext() == jsoniter.ObjectValue {
			fields = append(fields, Breakdown(name, readNamedValues(it)...))
		} else {
			fields = append(fields, Scalar(name, readNumber(it)))
		}
		return it.Error == nil
	})
	return fields
}

func readMembers(it *jsoniter.Iterator) []string {
	var members []string
	switch it.WhatIsNext() {
	case jsoniter.ArrayValue:
		it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			members = append(members, readMember(it))
			return it.Error == nil
		})
	case jsoniter.ObjectValue:
		it.ReadObjectCB(func(it *jsoniter.Iterator, member string) bool {
			members = append(members, member)
			it.Skip()
			return it.Error == nil
		})
	default:
		it.ReportError("decode set", "members must be an array or an object")
	}
	return members
}

func readMember(it *jsoniter.Iterator) string {
	if it.WhatIsNext() == jsoniter.StringValue {
		return it.ReadString()
	}
	return string(it.SkipAndReturnBytes())
}

func readNumber(it *jsoniter.Iterator) float64 {
	switch it.WhatIsNext() {
	case jsoniter.NumberValue:
		return it.ReadFloat64()
	case jsoniter.NilValue:
		it.ReadNil()
		return 0
	default:
		it.ReportError("decode number", "value must be a number")
		return 0
	}
}
