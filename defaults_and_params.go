package kairosrelay

import (
	"github.com/spf13/pflag"
)

const (
	// DefaultBackend is the name of the default backend.
	DefaultBackend = "telnet"
	// DefaultWebAddress is the default address of the web server receiving flushes and status queries.
	DefaultWebAddress = "127.0.0.1:8125"
	// DefaultLegacyAddress is the default address of the legacy statsd line receiver, empty disables it.
	DefaultLegacyAddress = ""
	// DefaultBadLinesPerMinute is the default number of bad lines to log per minute.
	DefaultBadLinesPerMinute = 0
)

const (
	// ParamBackend is the name of parameter with the backend to deliver datapoints with.
	ParamBackend = "backend"
	// ParamWebAddress is the name of parameter with the web server address.
	ParamWebAddress = "web-address"
	// ParamLegacyAddress is the name of parameter with the UDP address of the legacy line receiver.
	ParamLegacyAddress = "legacy-address"
	// ParamBadLinesPerMinute is the name of parameter with the number of bad lines to allow to log per minute.
	ParamBadLinesPerMinute = "bad-lines-per-minute"
)

// AddFlags adds flags to the specified FlagSet.
func AddFlags(fs *pflag.FlagSet) {
	fs.String(ParamBackend, DefaultBackend, "Backend used to deliver datapoints to KairosDB (rest or telnet)")
	fs.String(ParamWebAddress, DefaultWebAddress, "Address on which to receive flushes and serve status")
	fs.String(ParamLegacyAddress, DefaultLegacyAddress, "If set, receive raw statsd lines on this UDP address")
	fs.Float64(ParamBadLinesPerMinute, DefaultBadLinesPerMinute, "Maximum number of bad lines to log per minute")
}
