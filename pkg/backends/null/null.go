package null

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/atlassian/kairosrelay"
	"github.com/atlassian/kairosrelay/pkg/transport"
)

// BackendName is the name of this backend.
const BackendName = "null"

// client represents a discarding backend.
type client struct{}

// NewClientFromViper constructs a discarding backend, configuration is ignored.
func NewClientFromViper(v *viper.Viper, logger logrus.FieldLogger, pool *transport.TransportPool) (kairosrelay.Backend, error) {
	return NewClient()
}

// NewClient constructs a client object.
func NewClient() (kairosrelay.Backend, error) {
	return client{}, nil
}

// NewFlush returns a flush discarding every datapoint.
func (client) NewFlush(ctx context.Context, ts time.Time) kairosrelay.Flush {
	return discard{}
}

// Name returns the name of the backend.
func (client) Name() string {
	return BackendName
}

type discard struct{}

func (discard) Add(*kairosrelay.Datapoint) {}

func (discard) CloseAsync(cb kairosrelay.SendCallback) {
	cb(nil)
}
