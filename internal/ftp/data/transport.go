package data

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// Transport establishes the raw connection described by a Descriptor.
// Implementations own socket dialing/accepting, TLS upgrade and timeouts;
// the Manager owns lifecycle and single-use bookkeeping on top.
type Transport interface {
	// Open establishes the connection. Blocks until established, the
	// context is done, or the transport's own timeout expires.
	Open(ctx context.Context, d *Descriptor) (net.Conn, error)
}

// NetTransport is the TCP implementation of Transport.
//
// Active mode dials the client's advertised address; passive mode accepts
// one connection on the descriptor's pre-bound listener. When the
// descriptor requires TLS and a config is present, the accepted or dialed
// connection is upgraded before use.
type NetTransport struct {
	// Timeout bounds dialing and accepting. Zero means no bound beyond
	// the context.
	Timeout time.Duration

	// TLSConfig enables TLS upgrade for descriptors with Secure set.
	TLSConfig *tls.Config
}

// Open implements Transport.
func (t *NetTransport) Open(ctx context.Context, d *Descriptor) (net.Conn, error) {
	var nc net.Conn
	var err error

	switch d.Mode {
	case ModeActive:
		dialer := net.Dialer{Timeout: t.Timeout}
		nc, err = dialer.DialContext(ctx, "tcp", d.PeerAddr.String())
		if err != nil {
			return nil, fmt.Errorf("data: dial %s: %w", d.PeerAddr, err)
		}
	case ModePassive:
		nc, err = t.accept(ctx, d.Listener)
		if err != nil {
			return nil, fmt.Errorf("data: accept on %s: %w", d.Listener.Addr(), err)
		}
	default:
		return nil, fmt.Errorf("data: descriptor has no mode")
	}

	if d.Secure {
		if t.TLSConfig == nil {
			nc.Close()
			return nil, fmt.Errorf("data: descriptor requires TLS but transport has no TLS config")
		}
		nc = tls.Server(nc, t.TLSConfig)
	}

	return nc, nil
}

// accept waits for the client to connect to the passive listener,
// honoring the context and the transport timeout.
func (t *NetTransport) accept(ctx context.Context, l net.Listener) (net.Conn, error) {
	if t.Timeout > 0 {
		if tl, ok := l.(*net.TCPListener); ok {
			tl.SetDeadline(time.Now().Add(t.Timeout))
		}
	}

	type result struct {
		nc  net.Conn
		err error
	}
	done := make(chan result, 1)
	go func() {
		nc, err := l.Accept()
		done <- result{nc, err}
	}()

	select {
	case <-ctx.Done():
		l.Close()
		// Drain the Accept result so the goroutine does not leak a socket.
		r := <-done
		if r.nc != nil {
			r.nc.Close()
		}
		return nil, ctx.Err()
	case r := <-done:
		return r.nc, r.err
	}
}
