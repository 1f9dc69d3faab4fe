package fixtures

import (
	"net"
	"sync"
	"time"
)

type packet struct {
	from net.Addr
	data []byte
}

// PacketConn is a net.PacketConn handing out pushed packets from ReadFrom. ReadFrom blocks
// while nothing is pushed, until Close.
type PacketConn struct {
	local     net.Addr
	packets   chan packet
	closed    chan struct{}
	closeOnce sync.Once
}

var _ net.PacketConn = (*PacketConn)(nil)

// NewPacketConn returns a PacketConn bound to local.
func NewPacketConn(local net.Addr) *PacketConn {
	return &PacketConn{
		local:   local,
		packets: make(chan packet, 100),
		closed:  make(chan struct{}),
	}
}

// Push queues a datagram as if it was sent by from.
func (c *PacketConn) Push(from net.Addr, data string) {
	c.packets <- packet{from: from, data: []byte(data)}
}

func (c *PacketConn) ReadFrom(b []byte) (int, net.Addr, error) {
	select {
	case <-c.closed:
		return 0, nil, net.ErrClosed
	case p := <-c.packets:
		return copy(b, p.data), p.from, nil
	}
}

func (c *PacketConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	select {
	case <-c.closed:
		return 0, net.ErrClosed
	default:
		return len(b), nil
	}
}

func (c *PacketConn) Close() error {
	err := net.ErrClosed
	c.closeOnce.Do(func() {
		close(c.closed)
		err = nil
	})
	return err
}

func (c *PacketConn) LocalAddr() net.Addr { return c.local }

func (c *PacketConn) SetDeadline(t time.Time) error { return nil }

func (c *PacketConn) SetReadDeadline(t time.Time) error { return nil }

func (c *PacketConn) SetWriteDeadline(t time.Time) error { return nil }
