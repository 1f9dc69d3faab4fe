package telnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tilinna/clock"

	"github.com/atlassian/kairosrelay"
	"github.com/atlassian/kairosrelay/pkg/healthcheck"
	"github.com/atlassian/kairosrelay/pkg/transport"
	"github.com/atlassian/kairosrelay/pkg/util"
)

const (
	// BackendName is the name of this backend.
	BackendName = "telnet"

	DefaultHost = "127.0.0.1"
	DefaultPort = 4242
	// DefaultReconnectInterval is the default delay between connection attempts, in milliseconds.
	DefaultReconnectInterval = 1000
	// DefaultDialTimeout is the default net.Dial timeout.
	DefaultDialTimeout = 5 * time.Second
	// DefaultWriteTimeout is the default socket write timeout.
	DefaultWriteTimeout = 30 * time.Second
	// DefaultQueueSize is the default number of lines waiting to be written.
	DefaultQueueSize = 100000

	ParamHost              = "host"
	ParamPort              = "port"
	ParamReconnectInterval = "reconnectInterval"
	ParamDialTimeout       = "dial-timeout"
	ParamWriteTimeout      = "write-timeout"
	ParamQueueSize         = "queue-size"
)

var (
	errHostRequired             = errors.New("[" + BackendName + "] " + ParamHost + " is required")
	errPortInvalid              = errors.New("[" + BackendName + "] " + ParamPort + " must be between 1 and 65535")
	errReconnectIntervalInvalid = errors.New("[" + BackendName + "] " + ParamReconnectInterval + " must be positive")
	errDialTimeoutInvalid       = errors.New("[" + BackendName + "] " + ParamDialTimeout + " must be positive")
	errWriteTimeoutInvalid      = errors.New("[" + BackendName + "] " + ParamWriteTimeout + " must not be negative")
	errQueueSizeInvalid         = errors.New("[" + BackendName + "] " + ParamQueueSize + " must be positive")
	errPeerClosed               = errors.New("[" + BackendName + "] connection closed by peer")
)

// Client writes every datapoint as a put line to a single long lived connection. The
// connection is owned by Run, Add only hands lines over.
type Client struct {
	written        uint64 // Accumulated number of lines written
	dropped        uint64 // Accumulated number of lines dropped, never sent
	droppedEpisode uint64 // Lines dropped since the last connect
	connects       uint64 // Accumulated number of successful connects

	state int32

	logger logrus.FieldLogger

	address           string
	dialer            net.Dialer
	writeTimeout      time.Duration
	reconnectInterval time.Duration
	queue             chan []byte

	descWritten   *prometheus.Desc
	descDropped   *prometheus.Desc
	descConnects  *prometheus.Desc
	descConnected *prometheus.Desc
}

var _ kairosrelay.Backend = (*Client)(nil)
var _ kairosrelay.Runner = (*Client)(nil)
var _ prometheus.Collector = (*Client)(nil)
var _ healthcheck.DeepCheckProvider = (*Client)(nil)

// NewClientFromViper constructs a Client from the kairosdb configuration sub-tree.
func NewClientFromViper(v *viper.Viper, logger logrus.FieldLogger, _ *transport.TransportPool) (kairosrelay.Backend, error) {
	k := util.GetSubViper(v, "kairosdb")
	k.SetDefault(ParamHost, DefaultHost)
	k.SetDefault(ParamPort, DefaultPort)
	k.SetDefault(ParamReconnectInterval, DefaultReconnectInterval)
	k.SetDefault(ParamDialTimeout, DefaultDialTimeout)
	k.SetDefault(ParamWriteTimeout, DefaultWriteTimeout)
	k.SetDefault(ParamQueueSize, DefaultQueueSize)

	return NewClient(
		k.GetString(ParamHost),
		k.GetInt(ParamPort),
		time.Duration(k.GetInt64(ParamReconnectInterval))*time.Millisecond,
		k.GetDuration(ParamDialTimeout),
		k.GetDuration(ParamWriteTimeout),
		k.GetInt(ParamQueueSize),
		logger,
	)
}

// NewClient constructs a telnet backend. Nothing is dialed until Run is called.
func NewClient(
	host string,
	port int,
	reconnectInterval time.Duration,
	dialTimeout time.Duration,
	writeTimeout time.Duration,
	queueSize int,
	logger logrus.FieldLogger,
) (*Client, error) {
	if host == "" {
		return nil, errHostRequired
	}
	if port <= 0 || port > 65535 {
		return nil, errPortInvalid
	}
	if reconnectInterval <= 0 {
		return nil, errReconnectIntervalInvalid
	}
	if dialTimeout <= 0 {
		return nil, errDialTimeoutInvalid
	}
	if writeTimeout < 0 {
		return nil, errWriteTimeoutInvalid
	}
	if queueSize <= 0 {
		return nil, errQueueSizeInvalid
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	logger.WithFields(logrus.Fields{
		"address":              address,
		ParamReconnectInterval: reconnectInterval,
		ParamDialTimeout:       dialTimeout,
		ParamWriteTimeout:      writeTimeout,
		ParamQueueSize:         queueSize,
	}).Info("created backend")

	return &Client{
		state:             int32(Disconnected),
		logger:            logger.WithField("backend", BackendName),
		address:           address,
		dialer:            net.Dialer{Timeout: dialTimeout},
		writeTimeout:      writeTimeout,
		reconnectInterval: reconnectInterval,
		queue:             make(chan []byte, queueSize),

		descWritten:   newDesc("lines_written_total", "Put lines written to the connection."),
		descDropped:   newDesc("lines_dropped_total", "Put lines dropped while disconnected or with a full queue."),
		descConnects:  newDesc("connects_total", "Successful connects to KairosDB."),
		descConnected: newDesc("connected", "1 while connected to KairosDB."),
	}, nil
}

func newDesc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName("kairosrelay", BackendName, name), help, nil, nil)
}

// Name returns the name of the backend.
func (c *Client) Name() string {
	return BackendName
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(atomic.LoadInt32(&c.state))
}

func (c *Client) setState(s State) {
	atomic.StoreInt32(&c.state, int32(s))
}

// Dropped returns the number of lines which were never sent.
func (c *Client) Dropped() uint64 {
	return atomic.LoadUint64(&c.dropped)
}

// NewFlush returns a Flush writing through the connection as datapoints are added.
func (c *Client) NewFlush(ctx context.Context, ts time.Time) kairosrelay.Flush {
	return flush{client: c}
}

// enqueue hands a line to the connection goroutine. It never blocks, a line which can not
// be handed over is dropped.
func (c *Client) enqueue(line []byte) {
	if c.State() != Connected {
		c.drop(1)
		return
	}
	select {
	case c.queue <- line:
	default:
		c.drop(1)
	}
}

func (c *Client) drop(n uint64) {
	atomic.AddUint64(&c.dropped, n)
	atomic.AddUint64(&c.droppedEpisode, n)
}

// discardQueued drops any lines left over from a previous connection.
func (c *Client) discardQueued() {
	for {
		select {
		case <-c.queue:
			c.drop(1)
		default:
			return
		}
	}
}

// Run owns the connection: it connects, writes queued lines, and after any failure waits
// exactly the reconnect interval before the next attempt. Failures are logged once until
// a connection succeeds again.
func (c *Client) Run(ctx context.Context) {
	clck := clock.FromContext(ctx)
	bo := util.NewConstantBackoffFactory(c.reconnectInterval, clck)()
	failureLogged := false

	for {
		c.setState(Connecting)
		conn, err := c.dialer.DialContext(ctx, "tcp", c.address)
		if err == nil {
			c.discardQueued()
			c.setState(Connected)
			failureLogged = false
			bo.Reset()
			atomic.AddUint64(&c.connects, 1)
			c.logger.WithFields(logrus.Fields{
				"address": c.address,
				"dropped": atomic.SwapUint64(&c.droppedEpisode, 0),
			}).Info("connected")

			err = c.serve(ctx, conn)
			c.setState(Disconnected)
			if e := conn.Close(); e != nil {
				c.logger.WithError(e).Debug("close failed")
			}
			c.discardQueued()
		} else {
			c.setState(Disconnected)
		}

		if ctx.Err() != nil {
			return
		}
		if !failureLogged {
			c.logger.WithError(err).WithField("address", c.address).Warn("connection failed, reconnecting")
			failureLogged = true
		}

		timer := clock.NewTimer(ctx, bo.NextBackOff())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// serve writes queued lines to conn until conn fails, the peer closes it, or ctx is done.
func (c *Client) serve(ctx context.Context, conn net.Conn) error {
	closed := make(chan error, 1)
	go func() {
		// KairosDB does not answer put lines, anything read is discarded.
		_, err := io.Copy(ioutil.Discard, conn)
		if err == nil {
			err = errPeerClosed
		}
		closed <- err
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-closed:
			return err
		case line := <-c.queue:
			if c.writeTimeout > 0 {
				if e := conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); e != nil {
					c.logger.WithError(e).Warn("failed to set write deadline")
				}
			}
			if _, err := conn.Write(line); err != nil {
				c.drop(1)
				return fmt.Errorf("[%s] write failed: %v", BackendName, err)
			}
			atomic.AddUint64(&c.written, 1)
		}
	}
}

// DeepChecks reports the connection state, healthy only while connected.
func (c *Client) DeepChecks() []healthcheck.HealthcheckFunc {
	return []healthcheck.HealthcheckFunc{
		func() (string, healthcheck.HealthyStatus) {
			state := c.State()
			return fmt.Sprintf("%s %s %s", BackendName, c.address, state), healthcheck.HealthyStatus(state == Connected)
		},
	}
}

// Describe implements prometheus.Collector.
func (c *Client) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.descWritten
	ch <- c.descDropped
	ch <- c.descConnects
	ch <- c.descConnected
}

// Collect implements prometheus.Collector.
func (c *Client) Collect(ch chan<- prometheus.Metric) {
	connected := 0.0
	if c.State() == Connected {
		connected = 1
	}
	ch <- prometheus.MustNewConstMetric(c.descWritten, prometheus.CounterValue, float64(atomic.LoadUint64(&c.written)))
	ch <- prometheus.MustNewConstMetric(c.descDropped, prometheus.CounterValue, float64(atomic.LoadUint64(&c.dropped)))
	ch <- prometheus.MustNewConstMetric(c.descConnects, prometheus.CounterValue, float64(atomic.LoadUint64(&c.connects)))
	ch <- prometheus.MustNewConstMetric(c.descConnected, prometheus.GaugeValue, connected)
}
