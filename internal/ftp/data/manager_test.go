package data

import (
	"context"
	"errors"
	"net"
	"testing"
)

// countingConn wraps a net.Conn and counts Close calls.
type countingConn struct {
	net.Conn
	closes int
}

func (c *countingConn) Close() error {
	c.closes++
	return c.Conn.Close()
}

// fakeTransport hands out a prepared connection or error.
type fakeTransport struct {
	conn  net.Conn
	err   error
	opens int
}

func (f *fakeTransport) Open(ctx context.Context, d *Descriptor) (net.Conn, error) {
	f.opens++
	if f.err != nil {
		return nil, f.err
	}
	return f.conn, nil
}

func activeDescriptor() *Descriptor {
	return &Descriptor{
		Mode:     ModeActive,
		PeerAddr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 20000},
	}
}

func TestOpenWithoutDescriptor(t *testing.T) {
	m := NewManager(&fakeTransport{})

	if m.HasDescriptor() {
		t.Error("fresh manager should have no descriptor")
	}
	_, err := m.Open(context.Background())
	if !errors.Is(err, ErrNoDescriptor) {
		t.Errorf("err = %v, want ErrNoDescriptor", err)
	}
}

func TestOpenAndSingleUse(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	ft := &fakeTransport{conn: server}
	m := NewManager(ft)
	m.SetDescriptor(activeDescriptor())

	if !m.HasDescriptor() {
		t.Fatal("descriptor should be valid")
	}

	conn, err := m.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if conn == nil {
		t.Fatal("Open returned nil conn")
	}
	if !m.HasOpenConnection() {
		t.Error("manager should report an open connection")
	}

	// A second open without a fresh descriptor is forbidden.
	_, err = m.Open(context.Background())
	if !errors.Is(err, ErrDescriptorConsumed) {
		t.Errorf("err = %v, want ErrDescriptorConsumed", err)
	}
}

func TestTransportFailureMapsToUnavailable(t *testing.T) {
	ft := &fakeTransport{err: errors.New("connection refused")}
	m := NewManager(ft)
	m.SetDescriptor(activeDescriptor())

	_, err := m.Open(context.Background())
	if !errors.Is(err, ErrConnectionUnavailable) {
		t.Errorf("err = %v, want ErrConnectionUnavailable", err)
	}
	if m.HasOpenConnection() {
		t.Error("no connection should be open after transport failure")
	}
}

func TestCloseIsIdempotentAndInvalidates(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	cc := &countingConn{Conn: server}
	m := NewManager(&fakeTransport{conn: cc})
	m.SetDescriptor(activeDescriptor())

	if _, err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	m.Close(context.Background())
	m.Close(context.Background())
	m.Close(context.Background())

	if cc.closes != 1 {
		t.Errorf("underlying connection closed %d times, want exactly 1", cc.closes)
	}
	if m.HasOpenConnection() {
		t.Error("connection should be gone after Close")
	}
	if m.HasDescriptor() {
		t.Error("descriptor should be invalidated by Close")
	}
}

func TestCloseWithNothingOpenIsNoOp(t *testing.T) {
	m := NewManager(&fakeTransport{})
	m.Close(context.Background()) // must not panic
	if m.HasDescriptor() || m.HasOpenConnection() {
		t.Error("manager should be empty")
	}
}

func TestNewDescriptorInvalidatesPrevious(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	m := NewManager(&fakeTransport{})
	m.SetDescriptor(&Descriptor{Mode: ModePassive, Listener: l})
	m.SetDescriptor(activeDescriptor())

	// The passive listener from the replaced descriptor must be closed.
	if _, err := l.Accept(); err == nil {
		t.Error("replaced passive listener should be closed")
	}

	if !m.HasDescriptor() {
		t.Error("new descriptor should be valid")
	}
}

func TestDescriptorReady(t *testing.T) {
	var nilDesc *Descriptor
	if nilDesc.Ready() {
		t.Error("nil descriptor is never ready")
	}
	if (&Descriptor{Mode: ModeActive}).Ready() {
		t.Error("active descriptor without peer address is not ready")
	}
	if !activeDescriptor().Ready() {
		t.Error("active descriptor with peer address is ready")
	}
	if (&Descriptor{Mode: ModeNone}).Ready() {
		t.Error("mode none is never ready")
	}
}

func TestIsAbort(t *testing.T) {
	if IsAbort(nil) {
		t.Error("nil is not an abort")
	}
	if !IsAbort(&net.OpError{Op: "read", Err: errors.New("connection reset by peer")}) {
		t.Error("net.OpError is an abort")
	}
	if !IsAbort(net.ErrClosed) {
		t.Error("net.ErrClosed is an abort")
	}
	if IsAbort(errors.New("disk full")) {
		t.Error("generic errors are not aborts")
	}
}
