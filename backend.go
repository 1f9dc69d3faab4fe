package kairosrelay

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/atlassian/kairosrelay/pkg/transport"
)

// SendCallback is called by Flush.CloseAsync() to notify about the result of operation.
// A list of errors is passed to the callback. It may be empty or contain nil values. Every non-nil value is an error
// that happened while sending datapoints.
type SendCallback func([]error)

// Backend represents a transport delivering datapoints to KairosDB.
// If Backend implements the Runner interface, it's started in a new goroutine at creation.
type Backend interface {
	// Name returns the name of the backend.
	Name() string
	// NewFlush starts a flush cycle stamped with ts.
	NewFlush(ctx context.Context, ts time.Time) Flush
}

// Flush collects the datapoints of a single flush cycle. Implementations may write each
// datapoint as soon as it is added, or hold them until CloseAsync.
// A Flush is used from a single goroutine and must not be used after CloseAsync.
type Flush interface {
	// Add hands a datapoint to the backend. It must not block on network I/O.
	Add(dp *Datapoint)
	// CloseAsync completes the flush, doing any remaining send asynchronously.
	CloseAsync(cb SendCallback)
}

// BackendFactory is a function that returns a Backend.
type BackendFactory func(v *viper.Viper, logger logrus.FieldLogger, pool *transport.TransportPool) (Backend, error)
