package kairosrelay

import (
	"sort"
	"strings"
)

// Tags represents the KairosDB tag set attached to a datapoint, keyed by tag name.
// A Tags value is treated as immutable once built, helpers return copies.
type Tags map[string]string

const (
	// TagSource is always present on emitted datapoints.
	TagSource = "source"
	// DefaultSource is the value of the source tag unless configured otherwise.
	DefaultSource = "statsd"
	// TagClient carries the originating address of a datapoint, when known.
	TagClient = "client"
)

// NewTags builds the base tag set: source=statsd with the configured tags merged over it.
func NewTags(configured map[string]string) Tags {
	tags := make(Tags, len(configured)+1)
	tags[TagSource] = DefaultSource
	for k, v := range configured {
		tags[k] = v
	}
	return tags
}

// Keys returns the tag names in sorted order.
func (tags Tags) Keys() []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns a space-separated, key sorted, k=v representation of the tags.
func (tags Tags) String() string {
	sb := strings.Builder{}
	for i, k := range tags.Keys() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(tags[k])
	}
	return sb.String()
}

// Copy returns a copy of the Tags
func (tags Tags) Copy() Tags {
	if tags == nil {
		return nil
	}
	tagCopy := make(Tags, len(tags))
	for k, v := range tags {
		tagCopy[k] = v
	}
	return tagCopy
}

// With returns a new Tags with key set to value. The receiver is not modified.
func (tags Tags) With(key, value string) Tags {
	t := make(Tags, len(tags)+1)
	for k, v := range tags {
		t[k] = v
	}
	t[key] = value
	return t
}

// WithClient returns the tags with the client tag added, or the receiver itself when client is empty.
func (tags Tags) WithClient(client string) Tags {
	if client == "" {
		return tags
	}
	return tags.With(TagClient, client)
}
