package telnet

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"

	"github.com/atlassian/kairosrelay"
)

// State is the connection state of a Client.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

type flush struct {
	client *Client
}

func (f flush) Add(dp *kairosrelay.Datapoint) {
	f.client.enqueue(formatLine(dp))
}

// CloseAsync has nothing left to send, lines are handed over as they are added.
func (f flush) CloseAsync(cb kairosrelay.SendCallback) {
	cb(nil)
}

// formatLine renders dp as
//
//	put <name> <timestamp seconds> <value> <k>=<v> ...\n
//
// with tags in key order.
func formatLine(dp *kairosrelay.Datapoint) []byte {
	buf := bytes.Buffer{}
	buf.WriteString("put ")
	buf.WriteString(dp.Name)
	buf.WriteByte(' ')
	buf.WriteString(strconv.FormatInt(dp.Timestamp.Unix(), 10))
	buf.WriteByte(' ')
	buf.WriteString(strconv.FormatFloat(dp.Value, 'f', -1, 64))
	for _, k := range dp.Tags.Keys() {
		buf.WriteByte(' ')
		buf.WriteString(sanitizeTag(k))
		buf.WriteByte('=')
		buf.WriteString(sanitizeTag(dp.Tags[k]))
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// sanitizeTag replaces the characters which would break the line format with "_".
func sanitizeTag(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '=' || unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, s)
}
