package statsd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/libp2p/go-reuseport"
	"github.com/sirupsen/logrus"
	"github.com/tilinna/clock"
	"golang.org/x/time/rate"

	"github.com/atlassian/kairosrelay"
)

// ip packet size is stored in two bytes and that is how big in theory the packet can be.
// In practice it is highly unlikely but still possible to get packets bigger than usual MTU of 1500.
const packetSizeUDP = 0xffff

// Forwarder delivers datapoints which did not come from a snapshot.
type Forwarder interface {
	Forward(ctx context.Context, ts time.Time, dps []*kairosrelay.Datapoint)
}

// ReceiverStats holds statistics for a Receiver.
type ReceiverStats struct {
	LastPacket         time.Time
	BadLines           uint64
	UnsupportedMetrics uint64
	PacketsReceived    uint64
	DatapointsReceived uint64
}

// Receiver reads statsd lines from UDP and forwards every metric as is, tagged with the
// address it came from.
type Receiver struct {
	// Counter fields below must be read/written only using atomic instructions.
	// 64-bit fields must be the first fields in the struct to guarantee proper memory alignment.
	// See https://golang.org/pkg/sync/atomic/#pkg-note-BUG
	lastPacket         int64 // When last packet was received. Unix timestamp in nsec.
	badLines           uint64
	unsupportedMetrics uint64
	packetsReceived    uint64
	datapointsReceived uint64

	address   string
	parser    *Parser
	forwarder Forwarder
	logger    logrus.FieldLogger
	limiter   *rate.Limiter // nil when problems are only logged at debug level
}

// NewReceiver creates a Receiver listening on address. badLinesPerMinute bounds how many
// bad or unsupported lines are logged as warnings, 0 logs them at debug level only.
func NewReceiver(address string, parser *Parser, forwarder Forwarder, badLinesPerMinute float64, logger logrus.FieldLogger) *Receiver {
	var limiter *rate.Limiter
	if badLinesPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(badLinesPerMinute/60.0), 1)
	}
	return &Receiver{
		address:   address,
		parser:    parser,
		forwarder: forwarder,
		logger:    logger,
		limiter:   limiter,
	}
}

// GetStats returns current Receiver stats. Safe for concurrent use.
func (r *Receiver) GetStats() ReceiverStats {
	return ReceiverStats{
		LastPacket:         time.Unix(0, atomic.LoadInt64(&r.lastPacket)),
		BadLines:           atomic.LoadUint64(&r.badLines),
		UnsupportedMetrics: atomic.LoadUint64(&r.unsupportedMetrics),
		PacketsReceived:    atomic.LoadUint64(&r.packetsReceived),
		DatapointsReceived: atomic.LoadUint64(&r.datapointsReceived),
	}
}

// Run listens on the configured address until ctx is done.
func (r *Receiver) Run(ctx context.Context) {
	c, err := reuseport.ListenPacket("udp", r.address)
	if err != nil {
		r.logger.WithError(err).WithField("address", r.address).Error("failed to listen")
		return
	}
	r.logger.WithField("address", c.LocalAddr().String()).Info("receiving statsd lines")
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()
	if err := r.Receive(ctx, c); err != nil && err != context.Canceled {
		r.logger.WithError(err).Error("receiver stopped")
	}
}

// Receive accepts incoming datagrams on c and forwards the datapoints of each one.
func (r *Receiver) Receive(ctx context.Context, c net.PacketConn) error {
	buf := make([]byte, packetSizeUDP)
	for {
		// This will error out when the socket is closed.
		nbytes, addr, err := c.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if netErr, ok := err.(net.Error); ok && !netErr.Timeout() {
				return fmt.Errorf("error reading from socket: %v", err)
			}
			r.logger.WithError(err).Warn("error reading from socket")
			continue
		}
		atomic.AddUint64(&r.packetsReceived, 1)
		atomic.StoreInt64(&r.lastPacket, clock.FromContext(ctx).Now().UnixNano())
		r.handlePacket(ctx, addr, buf[:nbytes])
	}
}

// handlePacket splits msg into lines and forwards every datapoint parsed from them together.
func (r *Receiver) handlePacket(ctx context.Context, addr net.Addr, msg []byte) {
	clck := clock.FromContext(ctx)
	now := clck.Now()
	ip := getIP(addr)
	var dps []*kairosrelay.Datapoint
	for {
		idx := bytes.IndexByte(msg, '\n')
		var line []byte
		// protocol does not require line to end in \n
		if idx == -1 { // \n not found
			if len(msg) == 0 {
				break
			}
			line = msg
			msg = nil
		} else { // usual case
			line = msg[:idx]
			msg = msg[idx+1:]
		}
		parsed, errs := r.parser.ParseLine(line, now, ip)
		dps = append(dps, parsed...)
		for _, err := range errs {
			r.reportLineError(now, ip, err)
		}
	}
	if len(dps) == 0 {
		return
	}
	atomic.AddUint64(&r.datapointsReceived, uint64(len(dps)))
	r.forwarder.Forward(ctx, now, dps)
}

func (r *Receiver) reportLineError(now time.Time, ip string, err error) {
	msg := "Bad line"
	if errors.Is(err, errUnsupported) {
		atomic.AddUint64(&r.unsupportedMetrics, 1)
		msg = "Unsupported metric"
	} else {
		atomic.AddUint64(&r.badLines, 1)
	}
	entry := r.logger.WithError(err).WithField("client", ip)
	if r.limiter != nil && r.limiter.AllowN(now, 1) {
		entry.Warn(msg)
	} else {
		// logging as debug to avoid spamming logs when a bad actor sends
		// badly formatted messages
		entry.Debug(msg)
	}
}

func getIP(addr net.Addr) string {
	if a, ok := addr.(*net.UDPAddr); ok {
		return a.IP.String()
	}
	return ""
}
