package statsd

import (
	"bytes"
	"errors"
	"strconv"
	"time"

	"github.com/atlassian/kairosrelay"
	"github.com/atlassian/kairosrelay/pkg/namespace"
)

var (
	errBadLine     = errors.New("bad line")
	errUnsupported = errors.New("unsupported")
)

// lineError is a problem with one sub-metric of a line. The rest of the line is still used.
type lineError struct {
	err    error
	reason string
	metric []byte
}

func (e *lineError) Error() string {
	return e.err.Error() + ": " + e.reason + ": " + strconv.Quote(string(e.metric))
}

func (e *lineError) Unwrap() error {
	return e.err
}

// Parser turns statsd lines into datapoints, without any aggregation.
type Parser struct {
	ns   *namespace.Namespaces
	tags kairosrelay.Tags
}

// NewParser creates a Parser naming datapoints with ns and tagging them with tags.
func NewParser(ns *namespace.Namespaces, tags kairosrelay.Tags) *Parser {
	return &Parser{
		ns:   ns,
		tags: tags,
	}
}

// ParseLine parses a line of the form
//
//	<name>:<value>|<type>[|@<sample rate>][:<value>|<type>...]
//
// Every valid sub-metric becomes a datapoint stamped with ts and tagged with client when it is
// not empty. Each invalid or unsupported sub-metric yields an error, the others are kept.
func (p *Parser) ParseLine(line []byte, ts time.Time, client string) ([]*kairosrelay.Datapoint, []error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, nil
	}
	bits := bytes.Split(line, []byte{':'})
	key := string(bits[0])
	if key == "" {
		return nil, []error{&lineError{err: errBadLine, reason: "missing name", metric: line}}
	}
	if len(bits) == 1 {
		return nil, []error{&lineError{err: errBadLine, reason: "missing value", metric: line}}
	}

	tags := p.tags.WithClient(client)
	var dps []*kairosrelay.Datapoint
	var errs []error
	for _, bit := range bits[1:] {
		dp, err := p.parseMetric(key, bit, ts, tags)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		dps = append(dps, dp)
	}
	return dps, errs
}

func (p *Parser) parseMetric(key string, bit []byte, ts time.Time, tags kairosrelay.Tags) (*kairosrelay.Datapoint, error) {
	fields := bytes.Split(bit, []byte{'|'})
	if len(fields) == 1 {
		return nil, &lineError{err: errBadLine, reason: "missing type", metric: bit}
	}

	value := fields[0]
	switch string(fields[1]) {
	case "c":
		v := 1.0
		if len(value) != 0 {
			var err error
			if v, err = parseFloat(value); err != nil {
				return nil, &lineError{err: errBadLine, reason: "invalid counter value", metric: bit}
			}
		}
		if len(fields) > 2 {
			rate, err := parseSampleRate(fields[2])
			if err != nil {
				return nil, &lineError{err: errBadLine, reason: "invalid sample rate", metric: bit}
			}
			v /= rate
		}
		return kairosrelay.NewDatapoint(p.ns.Join(p.ns.Counters, key, "count"), ts, v, tags), nil
	case "ms", "h":
		v, err := parseFloat(value)
		if err != nil {
			return nil, &lineError{err: errBadLine, reason: "invalid timer value", metric: bit}
		}
		return kairosrelay.NewDatapoint(p.ns.Join(p.ns.Timers, key), ts, v, tags), nil
	case "g":
		if len(value) > 0 && (value[0] == '+' || value[0] == '-') {
			return nil, &lineError{err: errUnsupported, reason: "gauge deltas", metric: bit}
		}
		v, err := parseFloat(value)
		if err != nil {
			return nil, &lineError{err: errBadLine, reason: "invalid gauge value", metric: bit}
		}
		return kairosrelay.NewDatapoint(p.ns.Join(p.ns.Gauges, key), ts, v, tags), nil
	case "s":
		return nil, &lineError{err: errUnsupported, reason: "sets", metric: bit}
	default:
		return nil, &lineError{err: errBadLine, reason: "unknown type", metric: bit}
	}
}

func parseFloat(b []byte) (float64, error) {
	return strconv.ParseFloat(string(b), 64)
}

func parseSampleRate(b []byte) (float64, error) {
	if len(b) < 2 || b[0] != '@' {
		return 0, errBadLine
	}
	rate, err := parseFloat(b[1:])
	if err != nil {
		return 0, err
	}
	if rate <= 0 || rate > 1 {
		return 0, errBadLine
	}
	return rate, nil
}
