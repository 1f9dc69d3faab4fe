// Package namespace resolves the configured prefixes and suffix into the dotted paths
// every emitted metric name is built from.
package namespace

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultGlobalPrefix is the default global prefix.
	DefaultGlobalPrefix = "stats"
	// DefaultPrefixCounter is the default counters prefix.
	DefaultPrefixCounter = "counters"
	// DefaultPrefixTimer is the default timers prefix.
	DefaultPrefixTimer = "timers"
	// DefaultPrefixGauge is the default gauges prefix.
	DefaultPrefixGauge = "gauges"
	// DefaultPrefixSet is the default sets prefix.
	DefaultPrefixSet = "sets"
	// DefaultPrefixStats is the default prefix of the relay's own metrics.
	DefaultPrefixStats = "statsd"
	// DefaultGlobalSuffix is the default global suffix.
	DefaultGlobalSuffix = ""
)

const (
	ParamGlobalPrefix  = "globalPrefix"
	ParamPrefixCounter = "prefixCounter"
	ParamPrefixTimer   = "prefixTimer"
	ParamPrefixGauge   = "prefixGauge"
	ParamPrefixSet     = "prefixSet"
	ParamPrefixStats   = "prefixStats"
	ParamGlobalSuffix  = "globalSuffix"
)

var (
	regWhitespace  = regexp.MustCompile(`\s+`)
	regNonAlphaNum = regexp.MustCompile(`[^a-zA-Z\d_.-]`)
)

// Options holds the raw prefix configuration. An empty prefix omits its segment.
type Options struct {
	GlobalPrefix  string
	PrefixCounter string
	PrefixTimer   string
	PrefixGauge   string
	PrefixSet     string
	PrefixStats   string
	GlobalSuffix  string
}

// DefaultOptions returns the Options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		GlobalPrefix:  DefaultGlobalPrefix,
		PrefixCounter: DefaultPrefixCounter,
		PrefixTimer:   DefaultPrefixTimer,
		PrefixGauge:   DefaultPrefixGauge,
		PrefixSet:     DefaultPrefixSet,
		PrefixStats:   DefaultPrefixStats,
		GlobalSuffix:  DefaultGlobalSuffix,
	}
}

// Namespaces are the resolved, immutable path segments per metric class. No segment is empty.
type Namespaces struct {
	Global   []string
	Counters []string
	Timers   []string
	Gauges   []string
	Sets     []string
	Stats    []string
	// Suffix is appended to every joined name, empty means none.
	Suffix string
}

// New resolves opts. It is a pure function of its input.
func New(opts Options) *Namespaces {
	global := segments(opts.GlobalPrefix)
	return &Namespaces{
		Global:   global,
		Counters: segments(opts.GlobalPrefix, opts.PrefixCounter),
		Timers:   segments(opts.GlobalPrefix, opts.PrefixTimer),
		Gauges:   segments(opts.GlobalPrefix, opts.PrefixGauge),
		Sets:     segments(opts.GlobalPrefix, opts.PrefixSet),
		Stats:    segments(opts.GlobalPrefix, opts.PrefixStats),
		Suffix:   Normalize(strings.Trim(opts.GlobalSuffix, ".")),
	}
}

// NewFromViper resolves the prefixes found in v. An absent key takes its default,
// a key explicitly set to the empty string omits the segment.
func NewFromViper(v *viper.Viper) *Namespaces {
	d := DefaultOptions()
	v.SetDefault(ParamGlobalPrefix, d.GlobalPrefix)
	v.SetDefault(ParamPrefixCounter, d.PrefixCounter)
	v.SetDefault(ParamPrefixTimer, d.PrefixTimer)
	v.SetDefault(ParamPrefixGauge, d.PrefixGauge)
	v.SetDefault(ParamPrefixSet, d.PrefixSet)
	v.SetDefault(ParamPrefixStats, d.PrefixStats)
	v.SetDefault(ParamGlobalSuffix, d.GlobalSuffix)
	return New(Options{
		GlobalPrefix:  v.GetString(ParamGlobalPrefix),
		PrefixCounter: v.GetString(ParamPrefixCounter),
		PrefixTimer:   v.GetString(ParamPrefixTimer),
		PrefixGauge:   v.GetString(ParamPrefixGauge),
		PrefixSet:     v.GetString(ParamPrefixSet),
		PrefixStats:   v.GetString(ParamPrefixStats),
		GlobalSuffix:  v.GetString(ParamGlobalSuffix),
	})
}

// Join builds a metric name from the namespace segments followed by parts, then the suffix.
// Parts are normalized and empty parts are skipped, so a key with no valid characters
// yields the bare namespace path.
func (ns *Namespaces) Join(namespace []string, parts ...string) string {
	buf := bytes.Buffer{}
	write := func(s string) {
		if s == "" {
			return
		}
		if buf.Len() > 0 {
			buf.WriteByte('.')
		}
		buf.WriteString(s)
	}
	for _, s := range namespace {
		write(s)
	}
	for _, p := range parts {
		write(Normalize(p))
	}
	write(ns.Suffix)
	return buf.String()
}

// Fields returns the namespaces in a form suitable for logging.
func (ns *Namespaces) Fields() map[string]interface{} {
	return map[string]interface{}{
		"counter-namespace": strings.Join(ns.Counters, "."),
		"timer-namespace":   strings.Join(ns.Timers, "."),
		"gauges-namespace":  strings.Join(ns.Gauges, "."),
		"sets-namespace":    strings.Join(ns.Sets, "."),
		"stats-namespace":   strings.Join(ns.Stats, "."),
		"global-suffix":     ns.Suffix,
	}
}

// Normalize will:
// - Replace:
// -- whitespace with "_"
// -- "/" with "-"
// - Delete:
// -- any character that is non alphanumeric, "_", ".", or "-"
func Normalize(s string) string {
	r1 := regWhitespace.ReplaceAllLiteral([]byte(s), []byte{'_'})
	r2 := bytes.Replace(r1, []byte{'/'}, []byte{'-'}, -1)
	return string(regNonAlphaNum.ReplaceAllLiteral(r2, nil))
}

func segments(prefixes ...string) []string {
	result := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = Normalize(strings.Trim(p, "."))
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
