package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/atlassian/kairosrelay"
	"github.com/atlassian/kairosrelay/pkg/pool"
	"github.com/atlassian/kairosrelay/pkg/transport"
	"github.com/atlassian/kairosrelay/pkg/util"
)

const (
	// BackendName is the name of this backend.
	BackendName = "rest"

	DefaultHost            = "127.0.0.1"
	DefaultPort            = 4242
	DefaultPath            = "/api/v1/datapoints"
	DefaultCompressPayload = false
	DefaultDebug           = false
	DefaultMaxRequests     = 10
	DefaultTransport       = "default"

	ParamHost            = "host"
	ParamPort            = "port"
	ParamPath            = "path"
	ParamCompressPayload = "compress-payload"
	ParamDebug           = "debug"
	ParamMaxRequests     = "max-requests"
	ParamTransport       = "transport"
)

var (
	errHostRequired         = errors.New("[" + BackendName + "] " + ParamHost + " is required")
	errPortInvalid          = errors.New("[" + BackendName + "] " + ParamPort + " must be between 1 and 65535")
	errMaxRequestsNegative  = errors.New("[" + BackendName + "] " + ParamMaxRequests + " must not be negative")
	errUnexpectedStatusCode = errors.New("[" + BackendName + "] unexpected status code")
)

// Client posts each flush to the KairosDB REST API as a single JSON array.
type Client struct {
	flushesSent       uint64 // Accumulated number of flushes accepted with a 204
	flushesFailed     uint64 // Accumulated number of flushes rejected or not delivered
	datapointsSent    uint64 // Accumulated number of datapoints in accepted flushes
	flushesSkipped    uint64 // Accumulated number of empty flushes, never sent
	flushesInProgress int64

	logger logrus.FieldLogger

	url             string
	client          *transport.Client
	compressPayload bool
	debug           bool
	requests        *util.Semaphore
	buffers         *pool.Buffers

	descSent     *prometheus.Desc
	descFailed   *prometheus.Desc
	descPoints   *prometheus.Desc
	descSkipped  *prometheus.Desc
	descInFlight *prometheus.Desc
}

var _ kairosrelay.Backend = (*Client)(nil)
var _ prometheus.Collector = (*Client)(nil)

// NewClientFromViper constructs a Client from the kairosdb configuration sub-tree.
func NewClientFromViper(v *viper.Viper, logger logrus.FieldLogger, tp *transport.TransportPool) (kairosrelay.Backend, error) {
	k := util.GetSubViper(v, "kairosdb")
	k.SetDefault(ParamHost, DefaultHost)
	k.SetDefault(ParamPort, DefaultPort)
	k.SetDefault(ParamPath, DefaultPath)
	k.SetDefault(ParamCompressPayload, DefaultCompressPayload)
	k.SetDefault(ParamDebug, DefaultDebug)
	k.SetDefault(ParamMaxRequests, DefaultMaxRequests)
	k.SetDefault(ParamTransport, DefaultTransport)

	return NewClient(
		k.GetString(ParamHost),
		k.GetInt(ParamPort),
		k.GetString(ParamPath),
		k.GetBool(ParamCompressPayload),
		k.GetBool(ParamDebug),
		k.GetInt(ParamMaxRequests),
		k.GetString(ParamTransport),
		logger,
		tp,
	)
}

// NewClient constructs a REST backend. maxRequests bounds the concurrent POSTs, 0 means unlimited.
func NewClient(
	host string,
	port int,
	path string,
	compressPayload bool,
	debug bool,
	maxRequests int,
	transportName string,
	logger logrus.FieldLogger,
	tp *transport.TransportPool,
) (*Client, error) {
	if host == "" {
		return nil, errHostRequired
	}
	if port <= 0 || port > 65535 {
		return nil, errPortInvalid
	}
	if maxRequests < 0 {
		return nil, errMaxRequestsNegative
	}

	endpoint := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   path,
	}

	httpClient, err := tp.Get(transportName)
	if err != nil {
		logger.WithError(err).Error("failed to create http client")
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"url":                endpoint.String(),
		ParamCompressPayload: compressPayload,
		ParamDebug:           debug,
		ParamMaxRequests:     maxRequests,
		ParamTransport:       transportName,
	}).Info("created backend")

	return &Client{
		logger:          logger.WithField("backend", BackendName),
		url:             endpoint.String(),
		client:          httpClient,
		compressPayload: compressPayload,
		debug:           debug,
		requests:        util.NewSemaphore(maxRequests),
		buffers:         pool.NewBuffers(),

		descSent:     newDesc("flushes_sent_total", "Flushes accepted by KairosDB."),
		descFailed:   newDesc("flushes_failed_total", "Flushes rejected by or not delivered to KairosDB."),
		descPoints:   newDesc("datapoints_sent_total", "Datapoints in flushes accepted by KairosDB."),
		descSkipped:  newDesc("flushes_skipped_total", "Empty flushes for which no request was made."),
		descInFlight: newDesc("flushes_in_flight", "Flushes currently being sent."),
	}, nil
}

func newDesc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName("kairosrelay", BackendName, name), help, nil, nil)
}

// Name returns the name of the backend.
func (c *Client) Name() string {
	return BackendName
}

// NewFlush starts accumulating a flush. ctx bounds the eventual POST.
func (c *Client) NewFlush(ctx context.Context, ts time.Time) kairosrelay.Flush {
	return &flush{
		ctx:    ctx,
		client: c,
	}
}

// Describe implements prometheus.Collector.
func (c *Client) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.descSent
	ch <- c.descFailed
	ch <- c.descPoints
	ch <- c.descSkipped
	ch <- c.descInFlight
}

// Collect implements prometheus.Collector.
func (c *Client) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.descSent, prometheus.CounterValue, float64(atomic.LoadUint64(&c.flushesSent)))
	ch <- prometheus.MustNewConstMetric(c.descFailed, prometheus.CounterValue, float64(atomic.LoadUint64(&c.flushesFailed)))
	ch <- prometheus.MustNewConstMetric(c.descPoints, prometheus.CounterValue, float64(atomic.LoadUint64(&c.datapointsSent)))
	ch <- prometheus.MustNewConstMetric(c.descSkipped, prometheus.CounterValue, float64(atomic.LoadUint64(&c.flushesSkipped)))
	ch <- prometheus.MustNewConstMetric(c.descInFlight, prometheus.GaugeValue, float64(atomic.LoadInt64(&c.flushesInProgress)))
}

// send POSTs the payload of one flush. The status code and the start of the body are part of
// the returned error when KairosDB does not answer 204.
func (c *Client) send(ctx context.Context, payload []metric) error {
	if !c.requests.Acquire(ctx) {
		atomic.AddUint64(&c.flushesFailed, 1)
		return ctx.Err()
	}
	defer c.requests.Release()
	atomic.AddInt64(&c.flushesInProgress, 1)
	defer atomic.AddInt64(&c.flushesInProgress, -1)

	if err := c.post(ctx, payload); err != nil {
		atomic.AddUint64(&c.flushesFailed, 1)
		return err
	}
	atomic.AddUint64(&c.flushesSent, 1)
	atomic.AddUint64(&c.datapointsSent, uint64(len(payload)))
	return nil
}

func (c *Client) post(ctx context.Context, payload []metric) error {
	if c.debug {
		pretty := &bytes.Buffer{}
		if err := transport.WriteJSON(pretty, payload, true); err == nil {
			c.logger.WithField("url", c.url).Infof("sending payload:\n%s", pretty)
		}
	}

	buf := c.buffers.Get()
	defer c.buffers.Put(buf)
	encoding, err := c.encode(buf, payload)
	if err != nil {
		return fmt.Errorf("[%s] unable to encode: %v", BackendName, err)
	}

	resp, err := c.client.PostRaw(ctx, c.url, "application/json", encoding, nil, buf.Bytes())
	if err != nil {
		return fmt.Errorf("[%s] %v", BackendName, err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w %d: %s", errUnexpectedStatusCode, resp.StatusCode, bytes.TrimSpace(resp.Body))
	}
	return nil
}

// encode writes payload as JSON into buf, compressed when configured, and returns the
// content encoding.
func (c *Client) encode(buf *bytes.Buffer, payload []metric) (string, error) {
	if !c.compressPayload {
		return "identity", transport.WriteJSON(buf, payload, false)
	}
	g, err := gzip.NewWriterLevel(buf, gzip.BestCompression)
	if err != nil {
		return "", err
	}
	if err := transport.WriteJSON(g, payload, false); err != nil {
		return "", err
	}
	if err := g.Close(); err != nil {
		return "", err
	}
	return "gzip", nil
}
