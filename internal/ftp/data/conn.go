package data

import (
	"errors"
	"io"
	"net"
	"sync/atomic"
)

// Conn is a live, single-use duplex byte channel bound to exactly one
// transfer. It is produced by Manager.Open and closed unconditionally by
// Manager.Close after the transfer, regardless of outcome.
type Conn struct {
	nc     net.Conn
	closed atomic.Bool
}

func newConn(nc net.Conn) *Conn {
	return &Conn{nc: nc}
}

// SendAll streams r to the client until EOF and returns the byte count.
func (c *Conn) SendAll(r io.Reader) (int64, error) {
	return io.Copy(c.nc, r)
}

// ReceiveAll streams the client's data into sink until the client closes
// its side, returning the byte count.
func (c *Conn) ReceiveAll(sink io.Writer) (int64, error) {
	return io.Copy(sink, c.nc)
}

// RemoteAddr reports the peer address for logging.
func (c *Conn) RemoteAddr() string {
	if c.nc == nil {
		return ""
	}
	return c.nc.RemoteAddr().String()
}

// Close tears down the underlying transport connection. Idempotent.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.nc.Close()
}

// IsAbort reports whether err is a transport-level disconnect (peer reset,
// closed socket) as opposed to any other I/O failure. Aborts are a
// first-class outcome with their own reply code, not a bug.
func IsAbort(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
